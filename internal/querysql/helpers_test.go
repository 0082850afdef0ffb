package querysql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/consigne/internal/catalog"
)

// depositCompiler builds a compiler over the deposit tables plus a
// two-table component with no path to them.
func depositCompiler(t *testing.T) *Compiler {
	t.Helper()
	c, err := catalog.Build([]catalog.TableInfo{
		{Name: "users", Columns: []catalog.Field{
			{Name: "user_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "user_code", Type: "INTEGER"},
			{Name: "user_name", Type: "TEXT"},
		}},
		{Name: "products", Columns: []catalog.Field{
			{Name: "product_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "product_name", Type: "TEXT"},
		}},
		{Name: "deposits", Columns: []catalog.Field{
			{Name: "deposit_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "receiver_id", Type: "INTEGER"},
			{Name: "provider_id", Type: "INTEGER"},
			{Name: "closed", Type: "BOOLEAN"},
		}, ForeignKeys: []catalog.FKRelation{
			{Column: "receiver_id", RefTable: "users", RefColumn: "user_id"},
			{Column: "provider_id", RefTable: "users", RefColumn: "user_id"},
		}},
		{Name: "deposit_lines", Columns: []catalog.Field{
			{Name: "deposit_line_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "deposit_id", Type: "INTEGER"},
			{Name: "product_id", Type: "INTEGER"},
			{Name: "canceled", Type: "BOOLEAN"},
		}, ForeignKeys: []catalog.FKRelation{
			{Column: "deposit_id", RefTable: "deposits", RefColumn: "deposit_id"},
			{Column: "product_id", RefTable: "products", RefColumn: "product_id"},
		}},
		{Name: "audit", Columns: []catalog.Field{
			{Name: "audit_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "note", Type: "TEXT"},
		}},
		{Name: "audit_entries", Columns: []catalog.Field{
			{Name: "audit_entry_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "audit_id", Type: "INTEGER"},
			{Name: "payload", Type: "JSON"},
		}, ForeignKeys: []catalog.FKRelation{
			{Column: "audit_id", RefTable: "audit", RefColumn: "audit_id"},
		}},
	})
	require.NoError(t, err)
	return NewCompiler(c)
}
