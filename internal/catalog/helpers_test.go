package catalog

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const depositDDL = `
CREATE TABLE users (
	user_id INTEGER PRIMARY KEY,
	user_code INTEGER UNIQUE,
	user_name TEXT
);
CREATE TABLE products (
	product_id INTEGER PRIMARY KEY,
	product_name TEXT NOT NULL
);
CREATE TABLE deposits (
	deposit_id INTEGER PRIMARY KEY,
	receiver_id INTEGER NOT NULL REFERENCES users(user_id),
	provider_id INTEGER NOT NULL REFERENCES users(user_id),
	closed BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE deposit_lines (
	deposit_line_id INTEGER PRIMARY KEY,
	deposit_id INTEGER NOT NULL REFERENCES deposits(deposit_id),
	product_id INTEGER NOT NULL REFERENCES products,
	canceled BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE audit (
	audit_id INTEGER PRIMARY KEY,
	note TEXT
);
`

// openTestDB creates a database file in a temp dir and applies ddl.
func openTestDB(t *testing.T, driver, ddl string) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open(driver, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if ddl != "" {
		_, err = db.Exec(ddl)
		require.NoError(t, err)
	}
	return db
}

// depositTables is the pure-metadata twin of depositDDL.
func depositTables() []TableInfo {
	return []TableInfo{
		{Name: "users", Columns: []Field{
			{Name: "user_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "user_code", Type: "INTEGER"},
			{Name: "user_name", Type: "TEXT"},
		}},
		{Name: "products", Columns: []Field{
			{Name: "product_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "product_name", Type: "TEXT", NotNull: true},
		}},
		{Name: "deposits", Columns: []Field{
			{Name: "deposit_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "receiver_id", Type: "INTEGER", NotNull: true},
			{Name: "provider_id", Type: "INTEGER", NotNull: true},
			{Name: "closed", Type: "BOOLEAN", NotNull: true},
		}, ForeignKeys: []FKRelation{
			{Column: "provider_id", RefTable: "users", RefColumn: "user_id"},
			{Column: "receiver_id", RefTable: "users", RefColumn: "user_id"},
		}},
		{Name: "deposit_lines", Columns: []Field{
			{Name: "deposit_line_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "deposit_id", Type: "INTEGER", NotNull: true},
			{Name: "product_id", Type: "INTEGER", NotNull: true},
			{Name: "canceled", Type: "BOOLEAN", NotNull: true},
		}, ForeignKeys: []FKRelation{
			{Column: "deposit_id", RefTable: "deposits", RefColumn: "deposit_id"},
			{Column: "product_id", RefTable: "products"},
		}},
		{Name: "audit", Columns: []Field{
			{Name: "audit_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "note", Type: "TEXT"},
		}},
	}
}
