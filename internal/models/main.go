// Package models defines the core data structures shared by the Videora
// client: the user profile, decoded token claims, videos and creators.
package models

// Profile is the authenticated identity as known to the client.
// Optional fields are always present and default to the empty string.
type Profile struct {
	// ID is the backend identifier of the user.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Email is the primary e-mail address.
	Email string `json:"email"`
	// Picture is the profile picture URL.
	Picture string `json:"picture"`
	// Phone is the user-provided phone number.
	Phone string `json:"phone"`
	// Address is the user-provided postal address.
	Address string `json:"address"`
	// Username is the public handle.
	Username string `json:"username"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// untouched by the backend.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	Username *string `json:"username,omitempty"`
	Picture  *string `json:"picture,omitempty"`
}

// Claims is the decoded payload of a JWT. It is derived from the raw token
// each time it is needed and never persisted on its own.
type Claims struct {
	ID        string
	Email     string
	Name      string
	Picture   string
	ExpiresAt int64 // seconds since epoch, zero when absent
}

// AuthMethod tags the login path that produced the current session.
type AuthMethod string

const (
	// AuthBackend marks sessions issued by the Videora backend.
	AuthBackend AuthMethod = "backend"
	// AuthGoogle marks sessions built from a Google identity credential.
	AuthGoogle AuthMethod = "google"
)

// Credential is the payload handed over by the identity provider's
// client-side sign-in flow.
type Credential struct {
	// Credential is the signed ID token issued by the provider.
	Credential string `json:"credential"`
	// ClientID is the OAuth client the credential was issued for.
	ClientID string `json:"clientId,omitempty"`
}

// Tokens are the session tokens returned by the backend login endpoints.
type Tokens struct {
	// Token is the opaque OAuth-style session token.
	Token string `json:"token"`
	// AccessToken is the JWT bearer token.
	AccessToken string `json:"access_token"`
	// User is the profile returned alongside the tokens, if any.
	User *Profile `json:"user,omitempty"`
}

// Video is a video record as served by the backend.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"videoUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	CreatorID    string `json:"creatorId"`
	CreatorName  string `json:"creatorName"`
	Views        int64  `json:"views"`
	CreatedAt    string `json:"createdAt"`
}

// Creator is a channel that publishes videos.
type Creator struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Picture     string `json:"picture"`
	Followers   int64  `json:"followers"`
}

// Upload describes a video submitted by the user.
type Upload struct {
	Title       string
	Description string
	Path        string
}

// Phase is a step of the session state machine.
type Phase string

const (
	// PhaseUnknown is the state before the first session check.
	PhaseUnknown Phase = "unknown"
	// PhaseChecking is entered while the session is being validated.
	PhaseChecking Phase = "checking"
	// PhaseAnonymous means no usable session exists.
	PhaseAnonymous Phase = "anonymous"
	// PhaseAuthenticated means a profile is available.
	PhaseAuthenticated Phase = "authenticated"
)

// State is the read-only snapshot of the session exposed to views.
type State struct {
	Phase         Phase
	User          *Profile
	Loading       bool
	Authenticated bool
}

// Route names a view the client should navigate to.
type Route string

const (
	// RouteHome is the default landing view.
	RouteHome Route = "/"
	// RouteLogin is the sign-in view.
	RouteLogin Route = "/login"
)
