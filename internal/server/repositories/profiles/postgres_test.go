package profiles

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/proloapp/sparkle/internal/common"
	"github.com/proloapp/sparkle/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func profileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"user_id", "username", "email", "avatar_url", "fingerprint_enabled", "charms", "level",
	})
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+profiles\b`

	mock.ExpectExec(q).
		WithArgs("u1", "ann", "ann@example.com", "", false, 0, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Profile{
		UserID:   "u1",
		Username: "ann",
		Email:    "ann@example.com",
		Charms:   0,
		Level:    1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+profiles\b`).
		WithArgs("u1", "ann", "ann@example.com", "", false, 0, 1).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &models.Profile{
		UserID:   "u1",
		Username: "ann",
		Email:    "ann@example.com",
		Level:    1,
	})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected common.ErrorAlreadyExists, got %v", err)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+profiles\s+WHERE\s+username\s*=\s*\$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestFindByEmailOrUsername_MatchesBoth(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := profileRows().
		AddRow("u1", "ann", "ann@example.com", "", false, 0, 1).
		AddRow("u2", "bob", "bob@example.com", "", true, 5, 2)

	mock.ExpectQuery(`(?s)FROM\s+profiles\s+WHERE\s+email\s*=\s*\$1\s+OR\s+username\s*=\s*\$2`).
		WithArgs("ann@example.com", "bob").
		WillReturnRows(rows)

	got, err := repo.FindByEmailOrUsername(context.Background(), "ann@example.com", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].UserID != "u1" || got[1].UserID != "u2" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestFindByEmailOrUsername_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+profiles\s+WHERE\s+email\s*=\s*\$1\s+OR\s+username\s*=\s*\$2`).
		WithArgs("nope@example.com", "nobody").
		WillReturnRows(profileRows())

	got, err := repo.FindByEmailOrUsername(context.Background(), "nope@example.com", "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestUpdate_SingleField(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+profiles\s+SET\s+fingerprint_enabled\s*=\s*\$1\s+WHERE\s+user_id\s*=\s*\$2$`).
		WithArgs(true, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enabled := true
	err := repo.Update(context.Background(), "u1", Patch{FingerprintEnabled: &enabled})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdate_AllFields(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+profiles\s+SET\s+username\s*=\s*\$1,\s*avatar_url\s*=\s*\$2,\s*fingerprint_enabled\s*=\s*\$3\s+WHERE\s+user_id\s*=\s*\$4$`).
		WithArgs("ann", "http://s/a.png", false, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	username := "ann"
	avatar := "http://s/a.png"
	enabled := false
	err := repo.Update(context.Background(), "u1", Patch{
		Username:           &username,
		AvatarURL:          &avatar,
		FingerprintEnabled: &enabled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdate_UnknownUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+profiles\s+SET\s+username\s*=\s*\$1\s+WHERE\s+user_id\s*=\s*\$2$`).
		WithArgs("ann", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	username := "ann"
	err := repo.Update(context.Background(), "missing", Patch{Username: &username})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestUpdate_EmptyPatchIsNoop(t *testing.T) {
	repo, _, db := newRepoWithMock(t)
	defer db.Close()

	if err := repo.Update(context.Background(), "u1", Patch{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdate_UsernameCollision(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+profiles\s+SET\s+username\s*=\s*\$1\s+WHERE\s+user_id\s*=\s*\$2$`).
		WithArgs("taken", "u1").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	username := "taken"
	err := repo.Update(context.Background(), "u1", Patch{Username: &username})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected common.ErrorAlreadyExists, got %v", err)
	}
}
