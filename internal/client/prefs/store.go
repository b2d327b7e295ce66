// Package prefs is the device-scoped preference store. It remembers whether
// the fingerprint shortcut was provisioned on this device and for which
// account; nothing else is kept locally. Writes are last-write-wins, the
// device is single-user.
package prefs

import "context"

// Keys used by the fingerprint shortcut.
const (
	KeyFingerprintEnabled = "fingerprintEnabled"
	KeyFingerprintUserID  = "fingerprintUserId"
)

// Store is a simple persistent KV store. Get returns "" (and no error) when
// the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ShortcutRecord is the locally persisted fingerprint-shortcut state.
type ShortcutRecord struct {
	Enabled bool
	UserID  string
}

// LoadShortcut reads the shortcut record. It returns (nil, nil) when no
// shortcut was provisioned on this device.
func LoadShortcut(ctx context.Context, s Store) (*ShortcutRecord, error) {
	enabled, err := s.Get(ctx, KeyFingerprintEnabled)
	if err != nil {
		return nil, err
	}
	userID, err := s.Get(ctx, KeyFingerprintUserID)
	if err != nil {
		return nil, err
	}
	if enabled != "true" || userID == "" {
		return nil, nil
	}
	return &ShortcutRecord{Enabled: true, UserID: userID}, nil
}

// SaveShortcut marks the shortcut as provisioned for userID.
func SaveShortcut(ctx context.Context, s Store, userID string) error {
	if err := s.Set(ctx, KeyFingerprintEnabled, "true"); err != nil {
		return err
	}
	return s.Set(ctx, KeyFingerprintUserID, userID)
}

// ClearShortcut removes the shortcut provisioning for this device.
func ClearShortcut(ctx context.Context, s Store) error {
	if err := s.Delete(ctx, KeyFingerprintEnabled); err != nil {
		return err
	}
	return s.Delete(ctx, KeyFingerprintUserID)
}
