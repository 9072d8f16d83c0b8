package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/videora/internal/client/api"
	"github.com/atinyakov/videora/internal/models"
	"github.com/atinyakov/videora/internal/server/handler/http"
)

// loginTimeout bounds how long the callback listener waits for the browser.
const loginTimeout = 5 * time.Minute

// login runs the browser consent flow: it serves the callback listener on
// the configured loopback address and waits for the first completed attempt.
func (a *app) login(ctx context.Context) error {
	if a.opts.GoogleClientID == "" {
		return errors.New("google client id is not configured (-google-client-id or VIDEORA_GOOGLE_CLIENT_ID)")
	}

	h := http.NewCallbackHandler(a.ctrl, http.NewOAuthConfig(a.opts.GoogleClientID, a.opts.CallbackAddr), a.log.Named("callback"))
	srv := &nethttp.Server{
		Handler:           http.NewRouter(h, a.log.Named("callback")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", a.opts.CallbackAddr)
	if err != nil {
		return fmt.Errorf("start callback listener: %w", err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			a.log.Error("callback listener stopped", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(a.out, "Open this link in your browser to sign in:\n  http://%s/login\n", a.opts.CallbackAddr)

	waitCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	select {
	case err := <-h.Done():
		if err != nil {
			a.render.AuthFailed()
			return nil
		}
	case <-waitCtx.Done():
		return fmt.Errorf("sign-in not completed: %w", waitCtx.Err())
	}

	a.render.Profile(a.ctrl.State())
	return nil
}

// loginWithCredential signs in with a Google ID token obtained elsewhere.
// The backend exchange is preferred; a backend without the exchange route
// falls back to the local credential session.
func loginWithCredential(ctx context.Context, a *app, cred models.Credential) error {
	if cred.Credential == "" {
		return errors.New("please provide -credential=<id token>")
	}

	err := a.ctrl.ExchangeCredential(ctx, cred)
	if api.IsStatus(err, nethttp.StatusNotFound, nethttp.StatusMethodNotAllowed, nethttp.StatusNotImplemented) {
		err = a.ctrl.Login(ctx, cred)
	}
	if err != nil {
		a.log.Debug("credential sign-in failed", zap.Error(err))
		a.render.AuthFailed()
		return nil
	}
	a.render.Profile(a.ctrl.State())
	return nil
}
