// Package http serves the loopback listener that completes the browser
// sign-in flow for the terminal client.
package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// CallbackPath is where the identity provider redirects after consent.
const CallbackPath = "/auth/callback"

// stateTTL bounds how long a consent URL stays usable.
const stateTTL = 10 * time.Minute

var (
	// ErrInvalidState is reported when the callback state is unknown or expired.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrConsentDenied is reported when the provider returns an error instead of a code.
	ErrConsentDenied = errors.New("consent denied")
	// ErrMissingCode is reported when the callback carries no authorization code.
	ErrMissingCode = errors.New("missing authorization code")
)

// Authenticator completes a sign-in with an authorization code.
type Authenticator interface {
	LoginWithCode(ctx context.Context, code, redirectURL string) error
}

// NewOAuthConfig returns the Google consent configuration for clientID with
// the callback served on addr.
func NewOAuthConfig(clientID, addr string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    endpoints.Google,
		RedirectURL: "http://" + addr + CallbackPath,
		Scopes:      []string{"openid", "email", "profile"},
	}
}

// CallbackHandler starts the consent redirect and receives its result.
type CallbackHandler struct {
	// Auth exchanges the code for a session.
	Auth Authenticator
	// OAuth builds the consent URL.
	OAuth *oauth2.Config
	Log   *zap.Logger

	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time

	once sync.Once
	done chan error
}

// NewCallbackHandler returns a handler for auth using cfg.
func NewCallbackHandler(auth Authenticator, cfg *oauth2.Config, log *zap.Logger) *CallbackHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CallbackHandler{
		Auth:   auth,
		OAuth:  cfg,
		Log:    log,
		states: make(map[string]time.Time),
		now:    time.Now,
		done:   make(chan error, 1),
	}
}

// Done delivers the outcome of the first completed callback.
func (h *CallbackHandler) Done() <-chan error {
	return h.done
}

// ConsentURL registers a fresh state and returns the provider URL for it.
func (h *CallbackHandler) ConsentURL() string {
	state := uuid.NewString()
	h.mu.Lock()
	h.states[state] = h.now().Add(stateTTL)
	h.mu.Unlock()
	return h.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Login redirects the browser to the provider's consent page.
func (h *CallbackHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.ConsentURL(), http.StatusFound)
}

// Callback handles the provider redirect.
func (h *CallbackHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if !h.consumeState(q.Get("state")) {
		h.fail(w, http.StatusBadRequest, ErrInvalidState)
		return
	}
	if e := q.Get("error"); e != "" {
		h.Log.Info("consent not granted", zap.String("error", e))
		h.fail(w, http.StatusUnauthorized, ErrConsentDenied)
		return
	}
	code := q.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest, ErrMissingCode)
		return
	}

	if err := h.Auth.LoginWithCode(r.Context(), code, h.OAuth.RedirectURL); err != nil {
		h.fail(w, http.StatusUnauthorized, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = successPage.Execute(w, nil)
	h.report(nil)
}

func (h *CallbackHandler) consumeState(state string) bool {
	if state == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	exp, ok := h.states[state]
	delete(h.states, state)
	return ok && h.now().Before(exp)
}

// fail renders the generic failure page; the cause is only logged.
func (h *CallbackHandler) fail(w http.ResponseWriter, status int, err error) {
	h.Log.Warn("sign-in callback failed", zap.Int("status", status), zap.Error(err))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = failurePage.Execute(w, struct{ Retry string }{Retry: "/login"})
	// a bad state is usually a stale tab; keep waiting for a real attempt
	if !errors.Is(err, ErrInvalidState) {
		h.report(err)
	}
}

func (h *CallbackHandler) report(err error) {
	h.once.Do(func() {
		h.done <- err
		close(h.done)
	})
}

var successPage = template.Must(template.New("success").Parse(`<!doctype html>
<html><head><title>Videora</title></head>
<body><h1>Signed in</h1><p>You can close this window and return to the terminal.</p></body></html>
`))

var failurePage = template.Must(template.New("failure").Parse(`<!doctype html>
<html><head><title>Videora</title></head>
<body><h1>Authentication failed</h1><p><a href="{{.Retry}}">Try again</a></p></body></html>
`))
