// Package account defines the client-side contract with the remote account
// service: authentication, profile storage and avatar blob storage. The
// concrete transport lives in HTTPClient; flows depend only on Client.
package account

import (
	"context"
	"time"
)

// User is the authentication identity owned by the account service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an authenticated session. The client holds a read-only cached
// reference; the tokens are owned by the account service.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Profile is the per-account record distinct from the raw auth identity.
type Profile struct {
	UserID             string `json:"user_id"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	AvatarURL          string `json:"avatar_url"`
	FingerprintEnabled bool   `json:"fingerprint_enabled"`
	Charms             int    `json:"charms"`
	Level              int    `json:"level"`
}

// ProfilePatch is a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	Username           *string `json:"username,omitempty"`
	AvatarURL          *string `json:"avatar_url,omitempty"`
	FingerprintEnabled *bool   `json:"fingerprint_enabled,omitempty"`
}

// EventType classifies session-change notifications.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// SessionEvent is delivered to OnSessionChange subscribers. Session is nil
// for EventSignedOut.
type SessionEvent struct {
	Type    EventType
	Session *Session
}

// Subscription is a disposable handle returned by OnSessionChange.
// Unsubscribe is idempotent and must be called when the observing screen
// goes away.
type Subscription interface {
	Unsubscribe()
}

// Client is the single long-lived handle to the remote account service.
// It is constructed once at process start and shared by every flow.
type Client interface {
	SignUp(ctx context.Context, email, password, username string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(SessionEvent)) Subscription
	ResetPasswordEmail(ctx context.Context, email string) error

	ProfileByUsername(ctx context.Context, username string) (*Profile, error)
	ProfileByUserID(ctx context.Context, userID string) (*Profile, error)
	ProfilesByEmailOrUsername(ctx context.Context, email, username string) ([]Profile, error)
	InsertProfile(ctx context.Context, p Profile) error
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) error

	UploadAvatar(ctx context.Context, key string, content []byte, contentType string) error
	AvatarPublicURL(key string) string

	Close() error
}
