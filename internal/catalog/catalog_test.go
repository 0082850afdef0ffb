package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consigne/internal/queryir"
)

func TestBuild_NoTables(t *testing.T) {
	_, err := Build(nil)
	require.Error(t, err)
	assert.True(t, queryir.IsSchemaNotFound(err))
}

func TestBuild_DuplicateTable(t *testing.T) {
	_, err := Build([]TableInfo{{Name: "a"}, {Name: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table")
}

func TestBuild_RelationsAreSymmetric(t *testing.T) {
	c, err := Build(depositTables())
	require.NoError(t, err)

	for _, name := range c.Tables() {
		s, _ := c.Table(name)
		for _, rel := range s.Relations() {
			other, ok := c.Table(rel.Other(name))
			require.True(t, ok)
			back, ok := other.Relation(name)
			require.True(t, ok, "%s -> %s not visible from %s", name, rel.Other(name), other.Name())
			assert.Equal(t, rel, back)
		}
	}

	assert.Equal(t, []string{"deposits", "products"}, c.Neighbors("deposit_lines"))
	assert.Equal(t, []string{"deposit_lines", "users"}, c.Neighbors("deposits"))
	assert.Empty(t, c.Neighbors("audit"))
}

func TestBuild_FirstDeclaredForeignKeyWinsPair(t *testing.T) {
	c, err := Build(depositTables())
	require.NoError(t, err)

	rel, ok := c.Relation("users", "deposits")
	require.True(t, ok)
	assert.Equal(t, "receiver_id", rel.Column)
	assert.True(t, c.IsForeignKey("deposits", "provider_id"))
}

func TestBuild_ImplicitReferencedColumn(t *testing.T) {
	c, err := Build(depositTables())
	require.NoError(t, err)

	rel, ok := c.Relation("deposit_lines", "products")
	require.True(t, ok)
	assert.Equal(t, "product_id", rel.RefColumn)
	assert.Equal(t,
		"JOIN products ON deposit_lines.product_id = products.product_id",
		rel.JoinClause("products"))
}

func TestBuild_DanglingForeignKey(t *testing.T) {
	c, err := Build([]TableInfo{
		{Name: "deposits", Columns: []Field{{Name: "deposit_id"}, {Name: "redeemed"}},
			ForeignKeys: []FKRelation{{Column: "redeemed", RefTable: "redeemed", RefColumn: "redeem_id"}}},
	})
	require.NoError(t, err)

	assert.True(t, c.IsForeignKey("deposits", "redeemed"))
	assert.Empty(t, c.Neighbors("deposits"))
}

func TestReflect_EmptyDatabase(t *testing.T) {
	db := openTestDB(t, "sqlite3", "")

	_, err := Reflect(context.Background(), db)
	require.Error(t, err)
	assert.True(t, queryir.IsSchemaNotFound(err))
}

func TestReflect_DepositSchema(t *testing.T) {
	db := openTestDB(t, "sqlite3", depositDDL)

	c, err := Reflect(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, []string{"users", "products", "deposits", "deposit_lines", "audit"}, c.Tables())

	deposits, ok := c.Table("deposits")
	require.True(t, ok)
	assert.Equal(t, []string{"deposit_id", "receiver_id", "provider_id", "closed"}, deposits.Columns())

	closed, ok := deposits.Field("closed")
	require.True(t, ok)
	assert.Equal(t, "BOOLEAN", closed.Type)
	assert.True(t, closed.NotNull)

	rel, ok := c.Relation("deposits", "users")
	require.True(t, ok)
	assert.Equal(t, "receiver_id", rel.Column)

	rel, ok = c.Relation("products", "deposit_lines")
	require.True(t, ok)
	assert.Equal(t, FKRelation{Table: "deposit_lines", Column: "product_id", RefTable: "products", RefColumn: "product_id"}, rel)
}

func TestReflect_DriversAgree(t *testing.T) {
	ctx := context.Background()

	viaCgo, err := Reflect(ctx, openTestDB(t, "sqlite3", depositDDL))
	require.NoError(t, err)
	viaPure, err := Reflect(ctx, openTestDB(t, "sqlite", depositDDL))
	require.NoError(t, err)

	assert.Equal(t, viaCgo.String(), viaPure.String())
	assert.Equal(t, viaCgo.Names(), viaPure.Names())
}

func TestCatalog_String(t *testing.T) {
	c, err := Build(depositTables())
	require.NoError(t, err)

	want := "users(user_id, user_code, user_name) -> deposits\n" +
		"products(product_id, product_name) -> deposit_lines\n" +
		"deposits(deposit_id, receiver_id, provider_id, closed) -> deposit_lines, users\n" +
		"deposit_lines(deposit_line_id, deposit_id, product_id, canceled) -> deposits, products\n" +
		"audit(audit_id, note)\n"
	assert.Equal(t, want, c.String())
}
