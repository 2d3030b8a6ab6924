// Package testutil provides test helpers for the smsledger project.
package testutil

import (
	"context"
	"testing"

	"github.com/karanved/smsledger/internal/storage"
)

// SetupTestDB creates a new in-memory test database with migrations applied.
// Cleanup is registered automatically.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
