package repomanager

import (
	"context"
	"database/sql"

	"github.com/proloapp/sparkle/internal/dbx"
	"github.com/proloapp/sparkle/internal/server/repositories/profiles"
	"github.com/proloapp/sparkle/internal/server/repositories/refreshtokens"
	"github.com/proloapp/sparkle/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
