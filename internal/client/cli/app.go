// Package cli is the terminal front end. It drives the same flows the
// mobile shell does: login, registration, onboarding, the fingerprint
// shortcut and the session watcher.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/proloapp/sparkle/internal/client/account"
	"github.com/proloapp/sparkle/internal/client/biometric"
	"github.com/proloapp/sparkle/internal/client/config"
	"github.com/proloapp/sparkle/internal/client/device"
	"github.com/proloapp/sparkle/internal/client/flows"
	"github.com/proloapp/sparkle/internal/client/prefs"
	"github.com/proloapp/sparkle/internal/client/session"
	"github.com/proloapp/sparkle/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config       *config.Config
	client       account.Client
	auth         *flows.AuthFlow
	bootstrapper *session.Bootstrapper
	store        prefs.Store
	deviceInfo   device.Info
	challenger   biometric.Challenger
	logger       logging.Logger

	current *account.Session
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	db, err := prefs.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err.Error())
		return nil, err
	}

	client := account.NewHTTPClient(c.ServerBaseURL, &http.Client{Timeout: c.RequestTimeout})
	store := prefs.NewSQLiteStore(db)
	info := device.NewStaticInfo(device.Platform(c.Platform))

	app := &App{
		config:     c,
		client:     client,
		store:      store,
		deviceInfo: info,
		logger:     logger,
		reader:     bufio.NewReader(os.Stdin),
	}

	// The terminal stands in for the platform biometric prompt on mobile
	// platform profiles.
	if info.Platform(ctx).Mobile() {
		app.challenger = app.consoleChallenger()
	} else {
		app.challenger = biometric.Unsupported{}
	}

	app.auth = flows.NewAuthFlow(client, store, info, app.challenger, logger)
	app.bootstrapper = session.NewBootstrapper(client, logger)

	return app, nil
}

func (a *App) consoleChallenger() biometric.Challenger {
	return biometric.Func(func(ctx context.Context, reason string) (bool, error) {
		return Confirm(a.reader, reason+" - confirm fingerprint?", os.Stdout)
	})
}

func (a *App) isLoggedIn() bool {
	return a.current != nil
}

func (a *App) Run(ctx context.Context) {
	defer func() { _ = a.client.Close() }()
	a.Root(ctx)
}
