package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consigne/internal/catalog"
	"github.com/roach88/consigne/internal/codec"
	"github.com/roach88/consigne/internal/querysql"
	"github.com/roach88/consigne/internal/testutil"
)

const testDDL = `
CREATE TABLE users (
	user_id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_code INTEGER UNIQUE,
	user_name TEXT NOT NULL,
	last_provider_activity DATETIME
);
CREATE TABLE products (
	product_id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_name TEXT NOT NULL,
	tags JSONLIST,
	attributes JSON
);
CREATE TABLE deposits (
	deposit_id INTEGER PRIMARY KEY AUTOINCREMENT,
	receiver_id INTEGER NOT NULL REFERENCES users(user_id),
	provider_id INTEGER NOT NULL REFERENCES users(user_id),
	deposit_datetime DATETIME NOT NULL,
	closed BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE deposit_lines (
	deposit_line_id INTEGER PRIMARY KEY AUTOINCREMENT,
	deposit_id INTEGER NOT NULL REFERENCES deposits(deposit_id),
	product_id INTEGER NOT NULL REFERENCES products(product_id),
	canceled BOOLEAN NOT NULL DEFAULT 0
);
`

var drivers = []string{DriverCgo, DriverPure}

// createTestStore creates a database file with testDDL and opens a store on it.
func createTestStore(t *testing.T, driver string) *Store {
	t.Helper()
	path := testutil.SQLiteFile(t, driver, testDDL)

	s, err := Open(context.Background(), Options{Driver: driver, Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newMockStore wires a store over go-sqlmock with a catalog built in memory,
// so no reflection queries need to be expected.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.Build([]catalog.TableInfo{
		{Name: "users", Columns: []catalog.Field{
			{Name: "user_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "user_code", Type: "INTEGER"},
			{Name: "user_name", Type: "TEXT"},
		}},
	})
	require.NoError(t, err)

	return &Store{
		db:       db,
		catalog:  cat,
		compiler: querysql.NewCompiler(cat),
		codecs:   codec.NewRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, mock
}
