// Package token decodes JWT bearer tokens on the client side.
//
// Decoding never verifies the signature: the client holds no key material.
// Claims obtained here are suitable for display only and must not be used to
// grant access to anything.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atinyakov/videora/internal/models"
)

// ErrMalformed is returned for strings that are not a decodable JWT.
var ErrMalformed = errors.New("malformed token")

var parser = jwt.NewParser()

// Decode extracts the identity claims from raw without verifying it.
func Decode(raw string) (models.Claims, error) {
	if raw == "" {
		return models.Claims{}, ErrMalformed
	}
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, mc); err != nil {
		return models.Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c := models.Claims{
		ID:      firstString(mc, "id", "sub", "user_id"),
		Email:   firstString(mc, "email"),
		Name:    firstString(mc, "name"),
		Picture: firstString(mc, "picture"),
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return models.Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Unix()
	}
	return c, nil
}

// Expired reports whether the claims carry an expiry at or before now.
// Tokens without an exp claim never expire on the client side.
func Expired(c models.Claims, now time.Time) bool {
	return c.ExpiresAt != 0 && c.ExpiresAt <= now.Unix()
}

// firstString returns the first non-empty claim among keys, rendering
// numeric identifiers as decimal strings.
func firstString(mc jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := mc[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
