package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atinyakov/videora/internal/models"
)

// wireProfile is the profile shape as sent by the backend. Some deployments
// use Mongo-style "_id" and "profilePicture" names.
type wireProfile struct {
	ID             string `json:"id"`
	MongoID        string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Picture        string `json:"picture"`
	ProfilePicture string `json:"profilePicture"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Username       string `json:"username"`
}

func (w *wireProfile) profile() (models.Profile, error) {
	p := models.Profile{
		ID:       w.ID,
		Name:     w.Name,
		Email:    w.Email,
		Picture:  w.Picture,
		Phone:    w.Phone,
		Address:  w.Address,
		Username: w.Username,
	}
	if p.ID == "" {
		p.ID = w.MongoID
	}
	if p.Picture == "" {
		p.Picture = w.ProfilePicture
	}
	if p.ID == "" && p.Email == "" {
		return models.Profile{}, fmt.Errorf("%w: profile has neither id nor email", ErrMalformedResponse)
	}
	return p, nil
}

type profileEnvelope struct {
	User *wireProfile `json:"user"`
}

func (e profileEnvelope) profile() (models.Profile, error) {
	if e.User == nil {
		return models.Profile{}, fmt.Errorf("%w: missing user", ErrMalformedResponse)
	}
	return e.User.profile()
}

type tokensEnvelope struct {
	Token       string       `json:"token"`
	AccessToken string       `json:"access_token"`
	User        *wireProfile `json:"user"`
}

func (e tokensEnvelope) tokens() (models.Tokens, error) {
	if e.Token == "" && e.AccessToken == "" {
		return models.Tokens{}, fmt.Errorf("%w: no token issued", ErrMalformedResponse)
	}
	t := models.Tokens{Token: e.Token, AccessToken: e.AccessToken}
	if e.User != nil {
		if p, err := e.User.profile(); err == nil {
			t.User = &p
		}
	}
	return t, nil
}

// ExchangeCredential trades an identity-provider credential for backend
// session tokens.
func (c *Client) ExchangeCredential(ctx context.Context, cred models.Credential) (models.Tokens, error) {
	r, err := c.jsonRequest(http.MethodPost, apiTokenLogin, "", cred)
	if err != nil {
		return models.Tokens{}, err
	}
	var env tokensEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return models.Tokens{}, err
	}
	return env.tokens()
}

// ExchangeCode trades an OAuth authorization code for backend session tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURL string) (models.Tokens, error) {
	payload := map[string]string{"code": code}
	if redirectURL != "" {
		payload["redirect_uri"] = redirectURL
	}
	r, err := c.jsonRequest(http.MethodPost, apiGoogleLogin, "", payload)
	if err != nil {
		return models.Tokens{}, err
	}
	var env tokensEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return models.Tokens{}, err
	}
	return env.tokens()
}

// Profile fetches the profile of the user owning token.
func (c *Client) Profile(ctx context.Context, token string) (models.Profile, error) {
	var env profileEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: apiProfile, token: token}, &env); err != nil {
		return models.Profile{}, err
	}
	return env.profile()
}

// UpdateProfile submits profile changes. Older backends only expose the
// POST update route, which is tried when the edit route is missing.
func (c *Client) UpdateProfile(ctx context.Context, token string, upd models.ProfileUpdate) (models.Profile, error) {
	r, err := c.jsonRequest(http.MethodPut, apiProfileEdit, token, upd)
	if err != nil {
		return models.Profile{}, err
	}
	var env profileEnvelope
	err = c.do(ctx, r, &env)
	if IsStatus(err, http.StatusNotFound, http.StatusMethodNotAllowed) {
		if r, err = c.jsonRequest(http.MethodPost, apiProfileUpdate, token, upd); err != nil {
			return models.Profile{}, err
		}
		err = c.do(ctx, r, &env)
	}
	if err != nil {
		return models.Profile{}, err
	}
	return env.profile()
}

// Logout invalidates token on the backend.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, request{method: http.MethodPost, path: apiLogout, token: token}, nil)
}
