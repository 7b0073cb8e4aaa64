package testutils

import (
	"testing"
	"travel_tax/internal/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB opens a private in-memory SQLite database with the schema migrated.
// A single connection keeps every query on the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	gdb, err := db.OpenDialector(sqlite.Open(dsn), true)
	require.NoError(t, err, "Failed to open test database")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb), "Failed to migrate test database")
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}
