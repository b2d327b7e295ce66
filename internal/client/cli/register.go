package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/proloapp/sparkle/internal/client/flows"
	"github.com/proloapp/sparkle/internal/common"
)

func (a *App) Register(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Choose a username", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	confirm, err := GetPassword("Confirm password", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	user, err := a.auth.Register(ctx, username, email, password, confirm)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			fmt.Println("Username or email already taken")
		} else {
			fmt.Printf("Registration failed: %v\n", err)
		}
		return
	}

	fmt.Println("Account created")

	// signup signs the new account in, so the session is already cached
	session, err := a.client.CurrentSession(ctx)
	if err != nil || session == nil {
		fmt.Println("Account created, sign in to continue")
		return
	}
	a.current = session

	a.runOnboarding(ctx, user.ID)
	a.Dashboard(ctx)
}

// runOnboarding walks the freshly registered user through display name,
// avatar and the biometric offer.
func (a *App) runOnboarding(ctx context.Context, userID string) {
	flow := flows.NewOnboardingFlow(userID, a.client, a.store, a.deviceInfo, a.challenger, a.logger)

	for flow.Step() == flows.StepName {
		name, err := GetSimpleText(a.reader, "Pick a display name", os.Stdout)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if err := flow.SubmitName(name); err != nil {
			fmt.Printf("%v\n", err)
		}
	}

	for flow.Step() == flows.StepAvatar {
		path, err := GetSimpleText(a.reader, "Path to an avatar image (empty to skip)", os.Stdout)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if path == "" {
			if err := flow.SkipAvatar(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
				return
			}
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("error reading file: %v\n", err)
			continue
		}

		flow.SelectAvatar(content, path)
		if err := flow.SubmitAvatar(ctx); err != nil {
			fmt.Printf("Upload failed: %v\n", err)
		}
	}

	for flow.Step() == flows.StepBiometric {
		enable, err := Confirm(a.reader, "Enable fingerprint login on this device?", os.Stdout)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if !enable {
			flow.SkipBiometric()
			continue
		}

		if err := flow.EnableBiometric(ctx); err != nil {
			switch {
			case errors.Is(err, common.ErrPlatformUnsupported):
				fmt.Println("Fingerprint login is only available on mobile devices")
				flow.SkipBiometric()
			case errors.Is(err, flows.ErrChallengeDeclined):
				fmt.Println("Fingerprint not recognized")
				flow.SkipBiometric()
			default:
				fmt.Printf("error: %v\n", err)
				flow.SkipBiometric()
			}
		}
	}

	fmt.Println("You're all set!")
}

func (a *App) ResetPassword(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Enter your account email", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	if err := a.auth.RequestPasswordReset(ctx, email); err != nil {
		fmt.Printf("%v\n", err)
		return
	}

	fmt.Println("If an account exists for this address, a reset link is on its way")
}
