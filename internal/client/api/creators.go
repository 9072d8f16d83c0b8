package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/atinyakov/videora/internal/models"
)

// Creators lists every creator channel.
func (c *Client) Creators(ctx context.Context, token string) ([]models.Creator, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: apiCreators, token: token}, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Creator](raw, "creators")
}

type followResponse struct {
	Following bool `json:"following"`
}

// Follow toggles the follow relationship with a creator and returns whether
// the caller follows the creator afterwards.
func (c *Client) Follow(ctx context.Context, token, creatorID string) (bool, error) {
	var out followResponse
	path := apiCreator + url.PathEscape(creatorID) + "/follow"
	if err := c.do(ctx, request{method: http.MethodPost, path: path, token: token}, &out); err != nil {
		return false, err
	}
	return out.Following, nil
}

// CheckFollow reports whether the caller follows a creator.
func (c *Client) CheckFollow(ctx context.Context, token, creatorID string) (bool, error) {
	var out followResponse
	path := apiCreator + url.PathEscape(creatorID) + "/checkfollow"
	if err := c.do(ctx, request{method: http.MethodGet, path: path, token: token}, &out); err != nil {
		return false, err
	}
	return out.Following, nil
}
