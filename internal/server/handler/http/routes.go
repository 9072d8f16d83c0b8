package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atinyakov/videora/internal/middleware"
)

const (
	callbackRate  = rate.Limit(1)
	callbackBurst = 5
)

// NewRouter mounts the sign-in routes:
//
//	GET /              → redirect to /login
//	GET /login         → h.Login
//	GET /auth/callback → h.Callback
//
// Every request is logged through middleware.WithRequestLogging; callback
// attempts are throttled.
func NewRouter(h *CallbackHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.NoCache)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	r.Get("/login", h.Login)
	r.With(middleware.RateLimit(callbackRate, callbackBurst)).Get(CallbackPath, h.Callback)

	return r
}
