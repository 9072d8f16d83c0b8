// Package main is the Videora terminal client. It signs in through the
// browser, keeps the session on disk and offers an interactive shell over
// the video library.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/videora/internal/client/api"
	"github.com/atinyakov/videora/internal/client/storage"
	"github.com/atinyakov/videora/internal/client/view"
	"github.com/atinyakov/videora/internal/config"
	"github.com/atinyakov/videora/internal/logger"
	"github.com/atinyakov/videora/internal/models"
	"github.com/atinyakov/videora/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// revalidateEvery is how often the shell re-checks the session.
const revalidateEvery = 5 * time.Minute

func main() {
	options := config.Parse()

	if options.ShowVersion {
		fmt.Printf("Videora Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot start client", zap.Error(err))
	}

	if err := run(ctx, a, options); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// newApp wires the session store, backend clients and services.
func newApp(options *config.Options, log *zap.Logger) (*app, error) {
	httpClient, err := api.NewHTTPClient(options.CAFile, options.Timeout())
	if err != nil {
		return nil, err
	}

	store, err := openStore(options)
	if err != nil {
		return nil, err
	}

	primary := api.NewClient(options.APIURL, httpClient, log.Named("api"))
	var secondary service.ProfileSource
	if options.FallbackURL != "" {
		secondary = api.NewClient(options.FallbackURL, httpClient, log.Named("api.fallback"))
	}

	render := view.NewRenderer(os.Stdout)
	ctrl := service.NewController(store, primary, secondary,
		service.WithLogger(log.Named("session")),
		service.WithNavigator(func(r models.Route) {
			if r == models.RouteLogin {
				fmt.Fprintln(os.Stdout, "Signed out. Run `login` to sign in again.")
			}
		}),
	)
	quota := service.NewQuota(store, options.QueryLimit)
	lib := service.NewLibrary(primary, ctrl, quota, options.MaxUploadSize, log.Named("library"))

	return &app{
		ctrl:   ctrl,
		lib:    lib,
		quota:  quota,
		render: render,
		prompt: view.NewPrompter(os.Stdin, os.Stdout),
		out:    os.Stdout,
		opts:   options,
		log:    log,
	}, nil
}

// openStore opens the session file, encrypted when a key file is configured.
func openStore(options *config.Options) (storage.Store, error) {
	if options.Ephemeral {
		return storage.NewMemoryStore(), nil
	}
	if options.SessionKeyFile == "" {
		return storage.NewFileStore(options.SessionFile, nil)
	}
	key, err := os.ReadFile(options.SessionKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read session key: %w", err)
	}
	aead, err := storage.NewAEADFromKey(key)
	if err != nil {
		return nil, err
	}
	return storage.NewFileStore(options.SessionFile, aead)
}

// run dispatches options.Cmd.
func run(ctx context.Context, a *app, options *config.Options) error {
	switch options.Cmd {
	case "login":
		return a.login(ctx)
	case "login-credential":
		return loginWithCredential(ctx, a, models.Credential{
			Credential: options.Credential,
			ClientID:   options.GoogleClientID,
		})
	case "logout":
		a.ctrl.CheckSession(ctx)
		a.ctrl.Logout(ctx)
		return nil
	case "whoami":
		a.render.Profile(a.ctrl.CheckSession(ctx))
		return nil
	case "shell":
		s := a.ctrl.CheckSession(ctx)
		if !s.Authenticated {
			fmt.Fprintln(a.out, "Not signed in; browsing anonymously. Run `login` to sign in.")
		}
		a.ctrl.StartRevalidation(ctx, revalidateEvery)
		a.repl(ctx)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", options.Cmd)
	}
}
