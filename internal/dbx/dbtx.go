// Package dbx holds the database plumbing shared by the server repositories
// and the client preference store: the DBTX handle both run on, and a
// transaction wrapper used where several statements must land together (the
// refresh-token rotation being the main case).
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the execution surface repositories are written against. Both
// *sql.DB and *sql.Tx satisfy it, so the same repository code runs inside
// and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction: commit on success, rollback on error
// or panic (the panic is rethrown). fn receives the transactional handle as
// a DBTX, so repositories built from it stay transaction-agnostic.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
