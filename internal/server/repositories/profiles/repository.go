package profiles

import (
	"context"

	"github.com/proloapp/sparkle/internal/server/models"
)

// Patch carries a partial profile update; nil fields are left untouched.
type Patch struct {
	Username           *string
	AvatarURL          *string
	FingerprintEnabled *bool
}

type Repository interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) ([]models.Profile, error)
	Update(ctx context.Context, userID string, patch Patch) error
}
