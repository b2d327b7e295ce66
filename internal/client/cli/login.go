package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/proloapp/sparkle/internal/client/flows"
	"github.com/proloapp/sparkle/internal/common"
)

func (a *App) Login(ctx context.Context) {
	identifier, err := GetSimpleText(a.reader, "Enter email or username", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	session, err := a.auth.Login(ctx, identifier, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			fmt.Println("Login Failed: Username not found")
		case errors.Is(err, common.ErrLoginFailed):
			fmt.Printf("Login Failed: %s\n", loginFailureMessage(err))
		default:
			fmt.Printf("error: %v\n", err)
		}
		return
	}

	a.current = session
	fmt.Println("Login successful")
	a.Dashboard(ctx)
}

func (a *App) FingerprintLogin(ctx context.Context) {
	profile, err := a.auth.BiometricLogin(ctx)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrPlatformUnsupported):
			fmt.Println("Fingerprint login is only available on mobile devices")
		case errors.Is(err, flows.ErrSetupRequired):
			fmt.Println("Fingerprint login is not set up on this device")
		case errors.Is(err, flows.ErrChallengeDeclined):
			fmt.Println("Fingerprint not recognized")
		case errors.Is(err, common.ErrorUnauthorized):
			fmt.Println("Fingerprint login was disabled for this account, use your password")
		default:
			fmt.Printf("error: %v\n", err)
		}
		return
	}

	// The shortcut unlocks the stored session. When the session expired in
	// the meantime, fall back to the password form.
	s, err := a.client.CurrentSession(ctx)
	if err == nil && s != nil {
		a.current = s
		fmt.Printf("Welcome back, %s\n", profile.Username)
		a.Dashboard(ctx)
		return
	}

	fmt.Println("Session expired, enter your password to finish signing in")
	a.Login(ctx)
}

func (a *App) Logout(ctx context.Context) {
	if err := a.auth.Logout(ctx); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	a.current = nil
	fmt.Println("Logged out")
}

// loginFailureMessage strips the sentinel prefix, leaving the service's own
// wording for display.
func loginFailureMessage(err error) string {
	msg := err.Error()
	prefix := common.ErrLoginFailed.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
