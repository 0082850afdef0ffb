package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SQLiteFile creates a database file in a test temp dir, runs ddl on it
// with the given driver and returns its path. The connection is closed so
// the caller can reopen the file with its own options.
func SQLiteFile(t testing.TB, driver, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open(driver, path)
	require.NoError(t, err)
	defer db.Close()

	if ddl != "" {
		_, err = db.Exec(ddl)
		require.NoError(t, err)
	}
	return path
}
