package models

import "time"

// RefreshToken is one redeemable token of a Sparkle session. Tokens are
// single-use: redeeming one deletes the row and inserts a replacement, so a
// user may hold one row per signed-in device.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
