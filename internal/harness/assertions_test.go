package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

func intp(n int) *int { return &n }

func TestValuesEqual(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, int64(1), false},
		{"yaml int vs int64", 3, int64(3), true},
		{"yaml int vs float", 3, float64(3), true},
		{"yaml int mismatch", 3, int64(4), false},
		{"float", 0.2, 0.2, true},
		{"bool vs bool", true, true, true},
		{"bool vs stored int", true, int64(1), true},
		{"bool vs stored zero", true, int64(0), false},
		{"bool vs string", true, "true", false},
		{"string", "Herbert", "Herbert", true},
		{"string vs time", "2024-03-01 10:00:00+00:00", at, true},
		{"bad time text", "yesterday", at, false},
		{"time vs time", at, at.In(time.FixedZone("CET", 3600)), true},
		{"string list", []any{"a", "b"}, []any{"a", "b"}, true},
		{"numeric list from json", []any{1, 2}, []any{float64(1), float64(2)}, true},
		{"map from json", map[string]any{"n": 1}, map[string]any{"n": float64(1)}, true},
		{"list order matters", []any{"b", "a"}, []any{"a", "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestMatchRecord_SubsetSemantics(t *testing.T) {
	rec := store.NewRecord([]string{"user_id", "user_name"}, []any{int64(1), "Ada"})

	assert.Empty(t, matchRecord(rec, map[string]any{"user_name": "Ada"}))
	assert.Empty(t, matchRecord(rec, map[string]any{}))

	msgs := matchRecord(rec, map[string]any{"user_name": "Bob", "email": "x"})
	require.Len(t, msgs, 2)
	assert.Equal(t, `record has no column "email"`, msgs[0])
	assert.Contains(t, msgs[1], `column "user_name": expected Bob, got Ada`)
}

func TestCheckStep(t *testing.T) {
	rec := store.NewRecord([]string{"n"}, []any{int64(2)})
	unknown := queryir.NewUnknownFieldError("books", "isbn")

	tests := []struct {
		name    string
		expect  *Expect
		event   TraceEvent
		records []store.Record
		err     error
		want    []string
	}{
		{
			name: "no expectation on success",
		},
		{
			name: "unexpected error",
			err:  errors.New("boom"),
			want: []string{"unexpected error: boom"},
		},
		{
			name:   "expected error matches",
			expect: &Expect{Error: "UNKNOWN_FIELD"},
			event:  TraceEvent{Error: "UNKNOWN_FIELD"},
			err:    unknown,
		},
		{
			name:   "expected error but succeeded",
			expect: &Expect{Error: "UNKNOWN_FIELD"},
			want:   []string{"expected error UNKNOWN_FIELD, got success"},
		},
		{
			name:   "row count mismatch",
			expect: &Expect{Rows: intp(5)},
			event:  TraceEvent{Rows: 1},
			want:   []string{"expected 5 rows, got 1"},
		},
		{
			name:    "record matches",
			expect:  &Expect{Rows: intp(1), Record: map[string]any{"n": 2}},
			event:   TraceEvent{Rows: 1},
			records: []store.Record{rec},
		},
		{
			name:   "record expected but none read",
			expect: &Expect{Record: map[string]any{"n": 2}},
			want:   []string{"expected a record, got none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkStep(Step{Expect: tt.expect}, tt.event, tt.records, tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckStep_WrongErrorCode(t *testing.T) {
	err := queryir.NewUnknownFieldError("books", "isbn")
	msgs := checkStep(Step{Expect: &Expect{Error: "UNJOINABLE_SCHEMA"}}, TraceEvent{Error: "UNKNOWN_FIELD"}, nil, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "expected error UNJOINABLE_SCHEMA, got UNKNOWN_FIELD")
}
