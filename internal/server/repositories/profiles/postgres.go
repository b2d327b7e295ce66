// Package profiles provides a PostgreSQL-backed repository for profile
// records.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/proloapp/sparkle/internal/common"
	"github.com/proloapp/sparkle/internal/dbx"
	"github.com/proloapp/sparkle/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const profileColumns = `user_id, username, email, avatar_url, fingerprint_enabled, charms, level`

func scanProfile(row interface{ Scan(...any) error }, p *models.Profile) error {
	return row.Scan(&p.UserID, &p.Username, &p.Email, &p.AvatarURL,
		&p.FingerprintEnabled, &p.Charms, &p.Level)
}

// Create inserts a profile row. A duplicate user id, email or username
// yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, username, email, avatar_url, fingerprint_enabled, charms, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Username, p.Email, p.AvatarURL, p.FingerprintEnabled, p.Charms, p.Level)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByUserID returns the profile for userID, or common.ErrorNotFound.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	p := &models.Profile{}
	err := scanProfile(r.db.QueryRowContext(ctx, query, userID), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// GetByUsername returns the profile with the given username, or
// common.ErrorNotFound.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username = $1`

	p := &models.Profile{}
	err := scanProfile(r.db.QueryRowContext(ctx, query, username), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// FindByEmailOrUsername returns every profile matching the email or the
// username. An empty result is not an error.
func (r *PostgresRepository) FindByEmailOrUsername(ctx context.Context, email, username string) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1 OR username = $2`

	rows, err := r.db.QueryContext(ctx, query, email, username)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Update applies the non-nil patch fields to the profile for userID. An
// unknown userID yields common.ErrorNotFound; a username collision yields
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Update(ctx context.Context, userID string, patch Patch) error {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if patch.Username != nil {
		args = append(args, *patch.Username)
		sets = append(sets, fmt.Sprintf("username = $%d", len(args)))
	}
	if patch.AvatarURL != nil {
		args = append(args, *patch.AvatarURL)
		sets = append(sets, fmt.Sprintf("avatar_url = $%d", len(args)))
	}
	if patch.FingerprintEnabled != nil {
		args = append(args, *patch.FingerprintEnabled)
		sets = append(sets, fmt.Sprintf("fingerprint_enabled = $%d", len(args)))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE user_id = $%d",
		strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}
