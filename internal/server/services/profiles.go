package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/proloapp/sparkle/internal/common"
	"github.com/proloapp/sparkle/internal/server/models"
	"github.com/proloapp/sparkle/internal/server/repositories/profiles"
	"github.com/proloapp/sparkle/internal/server/repositories/repomanager"
)

// ProfileService owns the profile records attached to auth identities.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewProfileService(db *sql.DB, rm repomanager.RepositoryManager) *ProfileService {
	return &ProfileService{db: db, repomanager: rm}
}

// Create inserts a profile row. The owner must match the authenticated user.
func (s *ProfileService) Create(ctx context.Context, userID string, p *models.Profile) error {
	if p.UserID != userID {
		return common.ErrorUnauthorized
	}

	err := s.repomanager.Profiles(s.db).Create(ctx, p)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorAlreadyExists
		}
		return common.ErrorInternal
	}
	return nil
}

// GetByUserID returns the profile for userID.
func (s *ProfileService) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.repomanager.Profiles(s.db).GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return p, nil
}

// GetByUsername returns the profile with the given username.
func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	p, err := s.repomanager.Profiles(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return p, nil
}

// FindByEmailOrUsername returns every profile matching either value. Used by
// the registration pre-check; an empty slice is a valid result.
func (s *ProfileService) FindByEmailOrUsername(ctx context.Context, email, username string) ([]models.Profile, error) {
	list, err := s.repomanager.Profiles(s.db).FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return list, nil
}

// Update applies a partial update to the caller's own profile.
func (s *ProfileService) Update(ctx context.Context, callerID, userID string, patch profiles.Patch) error {
	if callerID != userID {
		return common.ErrorUnauthorized
	}

	err := s.repomanager.Profiles(s.db).Update(ctx, userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return common.ErrorNotFound
		case errors.Is(err, common.ErrorAlreadyExists):
			return common.ErrorAlreadyExists
		}
		return common.ErrorInternal
	}
	return nil
}
