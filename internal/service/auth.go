// Package service holds the client-side business logic: the session
// controller that owns authentication state, the library service behind the
// views, and upload and quota rules.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atinyakov/videora/internal/client/storage"
	"github.com/atinyakov/videora/internal/client/token"
	"github.com/atinyakov/videora/internal/models"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session
	// when none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidCredential is returned when an identity credential cannot
	// be decoded.
	ErrInvalidCredential = errors.New("invalid credential")
)

// ProfileSource fetches the profile of the user owning a bearer token.
type ProfileSource interface {
	Profile(ctx context.Context, token string) (models.Profile, error)
}

// AuthAPI defines the backend operations required by the Controller.
type AuthAPI interface {
	ProfileSource
	ExchangeCredential(ctx context.Context, cred models.Credential) (models.Tokens, error)
	ExchangeCode(ctx context.Context, code, redirectURL string) (models.Tokens, error)
	UpdateProfile(ctx context.Context, token string, upd models.ProfileUpdate) (models.Profile, error)
	Logout(ctx context.Context, token string) error
}

// Controller owns the client session. It is the single writer of both the
// session store and the in-memory state; views read snapshots through State
// or Subscribe and change the session only through its methods.
type Controller struct {
	store     storage.Store
	primary   AuthAPI
	secondary ProfileSource
	log       *zap.Logger
	now       func() time.Time
	navigate  func(models.Route)

	// writeMu serializes mutations together with subscriber notification so
	// that subscribers observe states in the order they were produced.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   models.State
	subs    map[int]func(models.State)
	nextSub int

	checks singleflight.Group
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger used for degraded paths.
func WithLogger(log *zap.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithNavigator registers a callback that receives the view to show after
// login and logout.
func WithNavigator(fn func(models.Route)) ControllerOption {
	return func(c *Controller) { c.navigate = fn }
}

// NewController returns a Controller in the Unknown phase. secondary may be
// nil, in which case profile hydration has no second origin to try.
func NewController(store storage.Store, primary AuthAPI, secondary ProfileSource, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:     store,
		primary:   primary,
		secondary: secondary,
		log:       zap.NewNop(),
		now:       time.Now,
		navigate:  func(models.Route) {},
		state:     models.State{Phase: models.PhaseUnknown, Loading: true},
		subs:      make(map[int]func(models.State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current session state.
func (c *Controller) State() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return snapshot(c.state)
}

// Subscribe registers fn to receive every state change and returns a func
// that removes the subscription. fn runs on the goroutine performing the
// change and must not call Controller mutations.
func (c *Controller) Subscribe(fn func(models.State)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Token returns the bearer token to present for the current session, chosen
// by the recorded auth method, or "" when there is no session.
func (c *Controller) Token() string {
	oauthTok, _ := c.store.Get(storage.KeyToken)
	jwtTok, _ := c.store.Get(storage.KeyAccessToken)
	method, _ := c.store.Get(storage.KeyAuthType)

	switch models.AuthMethod(method) {
	case models.AuthGoogle:
		if jwtTok != "" {
			return jwtTok
		}
		return oauthTok
	case models.AuthBackend:
		if oauthTok != "" {
			return oauthTok
		}
		return jwtTok
	default:
		if jwtTok != "" {
			return jwtTok
		}
		return oauthTok
	}
}

// CheckSession validates the stored session and hydrates the profile. Calls
// made while a check is already running wait for that check and share its
// outcome. It never fails: every error degrades to an anonymous or cached
// state and the returned state always has Loading=false.
func (c *Controller) CheckSession(ctx context.Context) models.State {
	v, _, _ := c.checks.Do("session", func() (any, error) {
		c.checkSession(ctx)
		return c.State(), nil
	})
	return v.(models.State)
}

func (c *Controller) checkSession(ctx context.Context) {
	c.update(func(s *models.State) {
		s.Phase = models.PhaseChecking
		s.Loading = true
	})

	oauthTok, _ := c.store.Get(storage.KeyToken)
	jwtTok, _ := c.store.Get(storage.KeyAccessToken)
	if oauthTok == "" && jwtTok == "" {
		c.deleteKeys(storage.KeyUserData)
		c.setAnonymous()
		return
	}

	if jwtTok != "" && c.IsSessionExpired(jwtTok) {
		c.log.Info("stored session expired")
		c.clearSession()
		c.setAnonymous()
		return
	}

	c.FetchProfile(ctx, c.Token())
}

// IsSessionExpired reports whether the JWT's expiry claim has passed. A
// token that cannot be decoded counts as expired and the session is cleared.
func (c *Controller) IsSessionExpired(raw string) bool {
	claims, err := token.Decode(raw)
	if err != nil {
		c.log.Warn("stored token is not decodable", zap.Error(err))
		c.clearSession()
		return true
	}
	return token.Expired(claims, c.now())
}

// FetchProfile hydrates the profile for explicitToken, or for the stored
// token when explicitToken is empty. The primary origin is tried first, then
// the secondary one; when both fail the profile is recovered from the token
// itself. At most two network calls are made.
func (c *Controller) FetchProfile(ctx context.Context, explicitToken string) {
	tok := explicitToken
	if tok == "" {
		tok = c.Token()
	}
	if tok == "" {
		c.setAnonymous()
		return
	}

	p, err := c.primary.Profile(ctx, tok)
	if err != nil {
		c.log.Warn("primary profile fetch failed", zap.Error(err))
		if c.secondary == nil {
			c.RecoverFromToken(tok)
			return
		}
		p, err = c.secondary.Profile(ctx, tok)
	}
	if err != nil {
		c.log.Warn("secondary profile fetch failed", zap.Error(err))
		c.RecoverFromToken(tok)
		return
	}
	c.setProfile(p)
}

// RefreshProfile re-fetches the profile of the current session.
func (c *Controller) RefreshProfile(ctx context.Context) {
	c.FetchProfile(ctx, "")
}

// RecoverFromToken builds the session from local data when the backend is
// unreachable: the cached profile if there is one, otherwise the identity
// claims of raw. An undecodable token ends the session.
func (c *Controller) RecoverFromToken(raw string) {
	claims, err := token.Decode(raw)
	if err != nil {
		c.log.Warn("cannot recover session from token", zap.Error(err))
		c.clearSession()
		c.setAnonymous()
		return
	}

	if cached, ok := c.cachedProfile(); ok {
		c.setUser(cached)
		return
	}
	c.setUser(models.Profile{
		ID:      claims.ID,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	})
}

// Login signs in with a credential from the identity provider's client-side
// flow. The credential is decoded locally and becomes the session's bearer
// token; no backend call is made. On a malformed credential the session is
// cleared and ErrInvalidCredential is returned.
func (c *Controller) Login(_ context.Context, cred models.Credential) error {
	claims, err := token.Decode(cred.Credential)
	if err != nil {
		c.log.Warn("login with invalid credential", zap.Error(err))
		c.clearSession()
		c.setAnonymous()
		return ErrInvalidCredential
	}

	c.deleteKeys(storage.KeyToken, storage.KeyUserData)
	c.setKey(storage.KeyAccessToken, cred.Credential)
	c.setKey(storage.KeyAuthType, string(models.AuthGoogle))
	c.setUser(models.Profile{
		ID:      claims.ID,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	})
	c.navigate(models.RouteHome)
	return nil
}

// ExchangeCredential trades a provider credential for backend tokens.
func (c *Controller) ExchangeCredential(ctx context.Context, cred models.Credential) error {
	tokens, err := c.primary.ExchangeCredential(ctx, cred)
	if err != nil {
		c.log.Warn("credential exchange failed", zap.Error(err))
		return err
	}
	return c.establish(ctx, tokens)
}

// LoginWithCode trades an OAuth authorization code for backend tokens.
func (c *Controller) LoginWithCode(ctx context.Context, code, redirectURL string) error {
	tokens, err := c.primary.ExchangeCode(ctx, code, redirectURL)
	if err != nil {
		c.log.Warn("authorization code exchange failed", zap.Error(err))
		return err
	}
	return c.establish(ctx, tokens)
}

// establish stores backend-issued tokens and hydrates the profile. When
// hydration ends anonymous the sign-in failed and ErrNotAuthenticated is
// returned without navigating.
func (c *Controller) establish(ctx context.Context, tokens models.Tokens) error {
	c.clearSession()
	if tokens.Token != "" {
		c.setKey(storage.KeyToken, tokens.Token)
	}
	if tokens.AccessToken != "" {
		c.setKey(storage.KeyAccessToken, tokens.AccessToken)
	}
	c.setKey(storage.KeyAuthType, string(models.AuthBackend))

	if tokens.User != nil {
		c.setProfile(*tokens.User)
	} else {
		c.FetchProfile(ctx, "")
	}
	if !c.State().Authenticated {
		c.log.Warn("backend tokens did not yield a session")
		return ErrNotAuthenticated
	}
	c.navigate(models.RouteHome)
	return nil
}

// Logout ends the session. The backend is told on a best-effort basis; the
// local session is cleared whatever the outcome of that call.
func (c *Controller) Logout(ctx context.Context) {
	if tok := c.Token(); tok != "" {
		if err := c.primary.Logout(ctx, tok); err != nil {
			c.log.Warn("backend logout failed", zap.Error(err))
		}
	}
	c.clearSession()
	c.deleteKeys(storage.KeyQueryCount, storage.KeyQueryLimitReached)
	c.setAnonymous()
	c.navigate(models.RouteLogin)
}

// UpdateProfile submits profile changes and stores the returned profile.
func (c *Controller) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.Profile, error) {
	tok := c.Token()
	if tok == "" {
		return models.Profile{}, ErrNotAuthenticated
	}
	p, err := c.primary.UpdateProfile(ctx, tok, upd)
	if err != nil {
		return models.Profile{}, err
	}
	c.setProfile(p)
	return p, nil
}

// StartRevalidation re-checks the session every interval until ctx is done.
func (c *Controller) StartRevalidation(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := c.CheckSession(ctx)
				c.log.Debug("session revalidated", zap.String("phase", string(s.Phase)))
			}
		}
	}()
}

func (c *Controller) cachedProfile() (models.Profile, bool) {
	raw, ok := c.store.Get(storage.KeyUserData)
	if !ok || raw == "" {
		return models.Profile{}, false
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		c.log.Warn("cached profile is corrupted", zap.Error(err))
		return models.Profile{}, false
	}
	return p, true
}

// setProfile records a backend-confirmed profile in memory and in the cache.
func (c *Controller) setProfile(p models.Profile) {
	if b, err := json.Marshal(p); err == nil {
		c.setKey(storage.KeyUserData, string(b))
	}
	c.setUser(p)
}

func (c *Controller) setUser(p models.Profile) {
	c.update(func(s *models.State) {
		s.Phase = models.PhaseAuthenticated
		s.User = &p
		s.Authenticated = true
		s.Loading = false
	})
}

func (c *Controller) setAnonymous() {
	c.update(func(s *models.State) {
		s.Phase = models.PhaseAnonymous
		s.User = nil
		s.Authenticated = false
		s.Loading = false
	})
}

func (c *Controller) update(fn func(*models.State)) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	fn(&c.state)
	s := snapshot(c.state)
	subs := make([]func(models.State), 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub(s)
	}
}

func (c *Controller) clearSession() {
	c.deleteKeys(storage.SessionKeys...)
}

func (c *Controller) setKey(key, value string) {
	if err := c.store.Set(key, value); err != nil {
		c.log.Error("failed to persist session", zap.String("key", key), zap.Error(err))
	}
}

func (c *Controller) deleteKeys(keys ...string) {
	if err := c.store.Delete(keys...); err != nil {
		c.log.Error("failed to clear session keys", zap.Strings("keys", keys), zap.Error(err))
	}
}

func snapshot(s models.State) models.State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
