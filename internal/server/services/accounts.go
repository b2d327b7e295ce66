// Package services contains the account service business logic, sitting
// between the HTTP layer and the repositories.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/proloapp/sparkle/internal/common"
	"github.com/proloapp/sparkle/internal/dbx"
	"github.com/proloapp/sparkle/internal/logging"
	"github.com/proloapp/sparkle/internal/server/auth"
	"github.com/proloapp/sparkle/internal/server/config"
	"github.com/proloapp/sparkle/internal/server/models"
	"github.com/proloapp/sparkle/internal/server/repositories/repomanager"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AccountService owns sign-up, credential checks and the token lifecycle.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger

	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewAccountService(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *AccountService {
	return &AccountService{
		db:                           db,
		repomanager:                  rm,
		logger:                       logger,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// SignUp creates an auth identity and signs it in immediately. The returned
// token pair lets the freshly registered client create its profile row
// without a separate login round trip.
func (s *AccountService) SignUp(ctx context.Context, email, password, username string) (*models.User, *TokenPair, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}

	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, nil, common.ErrorAlreadyExists
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	return user, pair, nil
}

// Login checks the credentials and issues a token pair. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a
// fresh pair is issued inside one transaction, so a token can never be
// redeemed twice.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	var user *models.User
	var pair *TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tokens := s.repomanager.RefreshTokens(tx)

		row, err := tokens.Find(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrRefreshTokenExpired
			}
			return err
		}

		if err := tokens.Delete(ctx, refreshToken); err != nil {
			return err
		}

		if time.Now().After(row.Expires) {
			return common.ErrRefreshTokenExpired
		}

		user, err = s.repomanager.Users(tx).GetByID(ctx, row.UserID)
		if err != nil {
			return err
		}

		accessToken, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
		if err != nil {
			return err
		}
		newRefresh, err := common.MakeRandHexString(32)
		if err != nil {
			return err
		}
		if err := tokens.Create(ctx, user.ID, newRefresh, s.refreshTokenValidityDuration); err != nil {
			return err
		}

		pair = &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrRefreshTokenExpired) {
			return nil, nil, common.ErrRefreshTokenExpired
		}
		return nil, nil, common.ErrorInternal
	}

	return user, pair, nil
}

// Logout revokes every refresh token issued to userID.
func (s *AccountService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// GetUser returns the auth identity for userID.
func (s *AccountService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// VerifyAccessToken validates an access token and returns the user id.
func (s *AccountService) VerifyAccessToken(tokenString string) (string, error) {
	return auth.GetUserIDFromToken(tokenString, s.jwtSecret)
}

// Recover starts a password reset. The outcome is identical whether or not
// the address has an account, so the endpoint cannot be used to probe for
// registered emails.
func (s *AccountService) Recover(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "password reset requested for unknown email")
			return nil
		}
		return common.ErrorInternal
	}

	token := uuid.NewString()

	// Mail delivery is handled out of process; the reset token is handed to
	// the delivery pipeline through the log for now.
	s.logger.Info(ctx, "password reset token issued", "user_id", user.ID, "token", token)
	return nil
}

func (s *AccountService) issueTokens(ctx context.Context, userID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.RefreshTokens(s.db).Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
