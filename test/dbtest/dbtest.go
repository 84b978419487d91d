// Package dbtest wires test/util's schema-isolated database client into a
// ready-to-use *store.Store for store/queue/matter package tests.
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/test/util"
)

// NewStore spins up (or reuses) the shared test database, creates a fresh
// schema, applies migrations, and returns a Store bound to it. The schema
// is dropped on test cleanup.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(NewDB(t))
}

// NewDB returns the raw pooled connection backing a fresh, migrated,
// schema-isolated test database — for packages like pkg/queue that talk
// to Postgres directly rather than through *store.Store.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	return util.NewTestClient(t).DB()
}
