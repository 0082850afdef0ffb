package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"=", OpEq},
		{"glob", OpGlob},
		{"not in", OpNotIn},
		{"  NOT    IN ", OpNotIn},
		{"is not", OpIsNot},
		{"ilike", OpILike},
		{"!<", OpNotLt},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, err := ParseOperator(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, op)
		})
	}
}

func TestParseOperator_Unknown(t *testing.T) {
	for _, in := range []string{"==", "<>", "BETWEEN", ""} {
		_, err := ParseOperator(in)
		assert.True(t, IsUnknownOperator(err), "operator %q", in)
	}
}

func TestOperator_SQL(t *testing.T) {
	assert.Equal(t, "<=", OpNotGt.SQL())
	assert.Equal(t, ">=", OpNotLt.SQL())
	assert.Equal(t, "LIKE", OpILike.SQL())
	assert.Equal(t, "NOT IN", OpNotIn.SQL())
	assert.True(t, OpILike.FoldsCase())
	assert.False(t, OpLike.FoldsCase())
}

func TestOperator_IsMembership(t *testing.T) {
	assert.True(t, OpIn.IsMembership())
	assert.True(t, OpNotIn.IsMembership())
	assert.False(t, OpEq.IsMembership())
	assert.False(t, OpIs.IsMembership())
}

func TestParseOnConflict(t *testing.T) {
	for _, in := range []string{"update", "IGNORE", "Rollback", "abort", "fail", "replace", "none"} {
		p, err := ParseOnConflict(in)
		require.NoError(t, err, in)
		assert.True(t, p.Valid())
	}

	_, err := ParseOnConflict("merge")
	assert.True(t, IsInvalidConflictPolicy(err))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("read-many")
	require.NoError(t, err)
	assert.Equal(t, KindReadMany, k)

	_, err = ParseKind("upsert")
	assert.Error(t, err)

	assert.True(t, KindInsertMany.IsWrite())
	assert.False(t, KindReadOne.IsWrite())
}

func TestRequest_Direction(t *testing.T) {
	assert.Equal(t, Ascending, Request{}.Direction())
	assert.Equal(t, Descending, Request{Axis: AxisOf(Descending)}.Direction())
	assert.Equal(t, "DESC", Descending.SQL())
	assert.Equal(t, "ASC", Ascending.SQL())
}

func TestError_Message(t *testing.T) {
	err := NewUnjoinableSchemaError("deposit_lines", []string{"consigne", "redeem"})
	assert.Equal(t,
		"UNJOINABLE_SCHEMA: referenced tables cannot be joined to the target table (table=deposit_lines, tables=consigne,redeem)",
		err.Error())

	assert.Equal(t,
		"SCHEMA_NOT_FOUND: no tables found, the database has not been initialized",
		NewSchemaNotFoundError().Error())
}

func TestIsHelpers_SeeThroughWrapping(t *testing.T) {
	wrapped := wrap(NewUnknownFieldError("users", "nope"))
	assert.True(t, IsUnknownField(wrapped))
	assert.False(t, IsUnknownTable(wrapped))
	assert.Equal(t, ErrCodeUnknownField, CodeOf(wrapped))
	assert.False(t, IsUnknownField(nil))
}
