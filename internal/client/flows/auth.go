// Package flows contains the screen-facing controllers. Each flow
// orchestrates validation, the remote account service and device-local
// state; flows never talk to the network directly.
package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/proloapp/sparkle/internal/client/account"
	"github.com/proloapp/sparkle/internal/client/biometric"
	"github.com/proloapp/sparkle/internal/client/device"
	"github.com/proloapp/sparkle/internal/client/prefs"
	"github.com/proloapp/sparkle/internal/client/validate"
	"github.com/proloapp/sparkle/internal/common"
	"github.com/proloapp/sparkle/internal/logging"
)

var (
	// ErrSetupRequired means the fingerprint shortcut was never provisioned
	// on this device.
	ErrSetupRequired = errors.New("fingerprint login is not set up on this device")
	// ErrChallengeDeclined means the user cancelled or failed the biometric
	// prompt.
	ErrChallengeDeclined = errors.New("biometric challenge declined")
)

// AuthFlow drives the login, registration and password-reset screens.
type AuthFlow struct {
	client     account.Client
	prefs      prefs.Store
	device     device.Info
	challenger biometric.Challenger
	logger     logging.Logger
}

func NewAuthFlow(client account.Client, store prefs.Store, info device.Info, challenger biometric.Challenger, logger logging.Logger) *AuthFlow {
	return &AuthFlow{
		client:     client,
		prefs:      store,
		device:     info,
		challenger: challenger,
		logger:     logger,
	}
}

// Login signs the user in. The identifier may be an email address or a
// username; usernames are resolved to the account email through the profile
// table before credentials are presented. A username that resolves to
// nothing fails with NotFound before any sign-in attempt.
func (f *AuthFlow) Login(ctx context.Context, identifier, password string) (*account.Session, error) {
	if errs := validate.Login(identifier, password); !errs.Valid() {
		return nil, errs
	}

	email := identifier
	if !strings.Contains(identifier, "@") {
		profile, err := f.client.ProfileByUsername(ctx, identifier)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, fmt.Errorf("%w: username not found", common.ErrorNotFound)
			}
			return nil, fmt.Errorf("failed to resolve username: %w", err)
		}
		email = profile.Email
	}

	session, err := f.client.SignIn(ctx, email, password)
	if err != nil {
		f.logger.Info(ctx, "sign-in rejected", "error", err.Error())
		return nil, fmt.Errorf("%w: %s", common.ErrLoginFailed, err.Error())
	}

	return session, nil
}

// RequestPasswordReset asks the account service to email a reset link. The
// service responds identically whether or not the address has an account.
func (f *AuthFlow) RequestPasswordReset(ctx context.Context, email string) error {
	if errs := validate.ResetEmail(email); !errs.Valid() {
		return errs
	}
	if err := f.client.ResetPasswordEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to request password reset: %w", err)
	}
	return nil
}

// BiometricLogin runs the fingerprint shortcut. It requires a mobile
// platform, a provisioned local shortcut record, a passed biometric prompt
// and the fingerprint flag still set on the remote profile. A remote flag
// that was turned off elsewhere revokes the shortcut: the local record is
// cleared and the attempt is rejected.
func (f *AuthFlow) BiometricLogin(ctx context.Context) (*account.Profile, error) {
	if !f.device.Platform(ctx).Mobile() {
		return nil, common.ErrPlatformUnsupported
	}

	rec, err := prefs.LoadShortcut(ctx, f.prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprint shortcut: %w", err)
	}
	if rec == nil {
		return nil, ErrSetupRequired
	}

	ok, err := f.challenger.Challenge(ctx, "Log in to your account")
	if err != nil {
		return nil, fmt.Errorf("biometric challenge failed: %w", err)
	}
	if !ok {
		return nil, ErrChallengeDeclined
	}

	profile, err := f.client.ProfileByUserID(ctx, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify fingerprint flag: %w", err)
	}
	if !profile.FingerprintEnabled {
		f.logger.Info(ctx, "fingerprint shortcut revoked remotely", "user_id", rec.UserID)
		if err := prefs.ClearShortcut(ctx, f.prefs); err != nil {
			f.logger.Warn(ctx, "failed to clear fingerprint shortcut", "error", err.Error())
		}
		return nil, common.ErrorUnauthorized
	}

	return profile, nil
}

// Register creates an account. Email and username are pre-checked against
// the profile table before the auth identity is created, so a conflict is
// caught before a dangling identity can exist; the service-side unique
// constraints remain the final word.
func (f *AuthFlow) Register(ctx context.Context, username, email, password, confirmPassword string) (*account.User, error) {
	if errs := validate.Register(username, email, password, confirmPassword); !errs.Valid() {
		return nil, errs
	}

	existing, err := f.client.ProfilesByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing profiles: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: username or email already taken", common.ErrorAlreadyExists)
	}

	user, err := f.client.SignUp(ctx, email, password, username)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: username or email already taken", common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}

	err = f.client.InsertProfile(ctx, account.Profile{
		UserID:   user.ID,
		Username: username,
		Email:    email,
		Charms:   0,
		Level:    1,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: username or email already taken", common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return user, nil
}

// Logout ends the session and leaves the fingerprint shortcut in place, so
// the same user can come back through the biometric prompt.
func (f *AuthFlow) Logout(ctx context.Context) error {
	if err := f.client.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}
