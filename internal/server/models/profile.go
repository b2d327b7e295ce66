package models

type Profile struct {
	UserID             string
	Username           string
	Email              string
	AvatarURL          string
	FingerprintEnabled bool
	Charms             int
	Level              int
}
