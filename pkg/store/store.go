// Package store is the repository layer over cities, meetings, agenda
// items, matters, and matter appearances (the durable job queue lives in
// pkg/queue). It talks
// to Postgres directly through database/sql — no ORM — following the raw
// query shape pkg/database already uses for health checks and migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// queryer is the subset of *sql.DB / *sql.Tx that repository functions
// need. Implementing most logic against this interface lets Store and Tx
// share every query without duplicating it.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the top-level repository handle, backed by a connection pool.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle. Migrations are expected to have
// already been applied (pkg/database.NewClient does this on startup).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Tx is a Store scoped to a single transaction, handed to the callback of
// WithTx. SyncOrchestrator uses this to make one meeting's upserts,
// matter bookkeeping, and item writes atomic.
type Tx struct {
	tx *sql.Tx
}

// WithTx begins a transaction, invokes fn with a Tx bound to it, and
// commits on success or rolls back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			return
		}
		err = sqlTx.Commit()
	}()

	err = fn(&Tx{tx: sqlTx})
	return err
}
