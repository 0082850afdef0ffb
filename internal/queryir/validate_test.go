package queryir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrap(err error) error {
	return fmt.Errorf("compile: %w", err)
}

func TestValidate_InsertOne(t *testing.T) {
	req := Request{
		Table:      "users",
		Fields:     []string{"user_code", "user_name"},
		Values:     []any{42, "Ada"},
		OnConflict: ConflictIgnore,
	}
	require.NoError(t, req.Validate(KindInsertOne))

	tests := []struct {
		name   string
		mutate func(*Request)
		check  func(error) bool
	}{
		{"no table", func(r *Request) { r.Table = "" }, IsMissingArguments},
		{"no fields", func(r *Request) { r.Fields = nil }, IsMissingArguments},
		{"no values", func(r *Request) { r.Values = nil }, IsMissingArguments},
		{"arity mismatch", func(r *Request) { r.Values = []any{42} }, IsMissingArguments},
		{"no conflict policy", func(r *Request) { r.OnConflict = "" }, IsMissingArguments},
		{"bad conflict policy", func(r *Request) { r.OnConflict = "merge" }, IsInvalidConflictPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := req
			tt.mutate(&r)
			err := r.Validate(KindInsertOne)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestValidate_InsertMany(t *testing.T) {
	req := Request{
		Table:      "products",
		Fields:     []string{"odoo_product_id", "product_name"},
		Rows:       [][]any{{1, "a"}, {2, "b"}},
		OnConflict: ConflictNone,
	}
	require.NoError(t, req.Validate(KindInsertMany))

	req.Rows = append(req.Rows, []any{3})
	err := req.Validate(KindInsertMany)
	assert.True(t, IsMissingArguments(err))
	assert.Contains(t, err.Error(), "row 2")

	req.Rows = nil
	assert.True(t, IsMissingArguments(req.Validate(KindInsertMany)))
}

func TestValidate_UpdateRequiresSetters(t *testing.T) {
	req := Request{Table: "users"}
	assert.True(t, IsMissingArguments(req.Validate(KindUpdate)))

	req.Setters = []Setter{Set("user_name", "Grace")}
	assert.NoError(t, req.Validate(KindUpdate))
}

func TestValidate_DeleteWithoutConditions(t *testing.T) {
	assert.NoError(t, Request{Table: "users"}.Validate(KindDelete))
}

func TestValidate_Axis(t *testing.T) {
	req := Request{Table: "users", OrderBy: []string{"user_code"}, Axis: AxisOf(2)}
	err := req.Validate(KindReadMany)
	assert.True(t, IsInvalidAxis(err))

	req.Axis = AxisOf(0)
	assert.NoError(t, req.Validate(KindReadOne))
}

func TestValidate_Conditions(t *testing.T) {
	req := Request{Table: "users", Conditions: []Condition{Where("user_code", "LIKEISH", 1)}}
	assert.True(t, IsUnknownOperator(req.Validate(KindReadOne)))

	req.Conditions = []Condition{Where("user_code", OpIn, 1)}
	assert.True(t, IsMissingArguments(req.Validate(KindReadOne)))

	req.Conditions = []Condition{Where("user_code", OpIn, []int{1, 2})}
	assert.NoError(t, req.Validate(KindReadOne))
}

func TestElements(t *testing.T) {
	got, ok := Elements([]int{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, []any{1, 2, 3}, got)

	got, ok = Elements([2]string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, got)

	_, ok = Elements([]byte("blob"))
	assert.False(t, ok)

	_, ok = Elements(7)
	assert.False(t, ok)
}
