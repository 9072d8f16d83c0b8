package storage

// Keys persisted in the session store.
const (
	// KeyToken holds the opaque OAuth-style session token.
	KeyToken = "token"
	// KeyAccessToken holds the JWT bearer token.
	KeyAccessToken = "access_token"
	// KeyUserData holds the cached profile as JSON.
	KeyUserData = "userData"
	// KeyAuthType holds the login method tag ("backend" or "google").
	KeyAuthType = "authType"

	// KeyQueryLimitReached is set to "true" once the generation quota is used up.
	KeyQueryLimitReached = "queryLimitReached"
	// KeyQueryCount holds the number of generation queries issued.
	KeyQueryCount = "queryCount"
)

// SessionKeys lists every key that belongs to an authenticated session.
var SessionKeys = []string{KeyToken, KeyAccessToken, KeyUserData, KeyAuthType}

// Store is a persistent key/value area holding the client session.
// Writes are durable once the call returns.
type Store interface {
	// Get returns the value stored under key and whether it was present.
	Get(key string) (string, bool)
	// Set stores value under key.
	Set(key, value string) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(keys ...string) error
}
