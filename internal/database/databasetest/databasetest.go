// Package databasetest opens throwaway migrated stores for tests.
package databasetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgard/whatsdex/internal/database"
)

// NewStore returns a Store backed by a fresh SQLite file in t.TempDir.
func NewStore(t testing.TB) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}
