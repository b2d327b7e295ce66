// Package session decides where the app lands on startup and reacts to the
// account session ending while the app is running.
package session

import (
	"context"

	"github.com/proloapp/sparkle/internal/client/account"
	"github.com/proloapp/sparkle/internal/logging"
)

// State is the bootstrap phase of the app.
type State string

const (
	StateChecking        State = "checking"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Route is the screen the app should land on.
type Route string

const (
	RouteDashboard Route = "dashboard"
	RouteLogin     Route = "login"
)

// Bootstrapper resolves the startup session and watches for sign-outs.
type Bootstrapper struct {
	client account.Client
	logger logging.Logger
}

func NewBootstrapper(client account.Client, logger logging.Logger) *Bootstrapper {
	return &Bootstrapper{client: client, logger: logger}
}

// Check resolves the current session. A session check that fails for any
// reason lands on the login screen; the user can always sign in again.
func (b *Bootstrapper) Check(ctx context.Context) (State, Route) {
	session, err := b.client.CurrentSession(ctx)
	if err != nil {
		b.logger.Warn(ctx, "session check failed", "error", err.Error())
		return StateUnauthenticated, RouteLogin
	}
	if session == nil {
		return StateUnauthenticated, RouteLogin
	}
	return StateAuthenticated, RouteDashboard
}

// Watch subscribes to session changes and invokes onSignedOut when the
// session ends. The callback is suppressed once ctx is done, so a screen
// being torn down does not get a late navigation. The caller must
// Unsubscribe the returned subscription.
func (b *Bootstrapper) Watch(ctx context.Context, onSignedOut func()) account.Subscription {
	return b.client.OnSessionChange(func(ev account.SessionEvent) {
		if ev.Type != account.EventSignedOut {
			return
		}
		if ctx.Err() != nil {
			return
		}
		onSignedOut()
	})
}
