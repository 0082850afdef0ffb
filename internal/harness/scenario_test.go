package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consigne/internal/queryir"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/deposit_join.yaml")
	require.NoError(t, err)

	assert.Equal(t, "deposit_join", scenario.Name)
	assert.Empty(t, scenario.Schema, "deposit scenarios use the embedded schema")
	assert.Len(t, scenario.Steps, 9)

	first := scenario.Steps[0]
	assert.Equal(t, "insert_one", first.Op)
	assert.Equal(t, "users", first.Request.Table)
	assert.True(t, first.ShouldCommit())
}

func TestLoadScenario_ResolvesSchemaRelativeToFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/library_errors.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "schema", "library.sql"), scenario.Schema)
	assert.Equal(t, "sqlite", scenario.Driver)
	_, err = os.Stat(scenario.Schema)
	assert.NoError(t, err)
}

func TestLoadScenario_DecodesRequests(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/library_errors.yaml")
	require.NoError(t, err)

	read := scenario.Steps[3].Request
	require.Len(t, read.Conditions, 1)
	assert.Equal(t, "author_name", read.Conditions[0].Field)
	assert.Equal(t, []any{"Herbert", "Tolkien"}, read.Conditions[0].Value)

	ordered := scenario.Steps[len(scenario.Steps)-1].Request
	require.NotNil(t, ordered.Axis)
	assert.Equal(t, queryir.Descending, *ordered.Axis)
	assert.Equal(t, 1, ordered.Limit)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"missing_steps.yaml", "steps list is required"},
		{"typo.yaml", "field expects not found"},
		{"bad_op.yaml", "steps[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata", "invalid", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps:\n  - op: read_many\n    request: {table: users}\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsteps:\n  - op: read_many\n    request: {table: users}\n",
			want:    "description is required",
		},
		{
			name:    "unknown driver",
			content: "name: n\ndescription: d\ndriver: postgres\nsteps:\n  - op: read_many\n    request: {table: users}\n",
			want:    `unsupported driver "postgres"`,
		},
		{
			name:    "missing schema file",
			content: "name: n\ndescription: d\nschema: nope.sql\nsteps:\n  - op: read_many\n    request: {table: users}\n",
			want:    "schema file not found",
		},
		{
			name:    "missing op",
			content: "name: n\ndescription: d\nsteps:\n  - request: {table: users}\n",
			want:    "steps[0]: op is required",
		},
		{
			name:    "negative rows",
			content: "name: n\ndescription: d\nsteps:\n  - op: read_many\n    request: {table: users}\n    expect: {rows: -1}\n",
			want:    "rows must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"b.yaml":    "name: b\ndescription: d\nsteps:\n  - op: read_many\n    request: {table: users}\n",
		"a.yml":     "name: a\ndescription: d\nsteps:\n  - op: read_one\n    request: {table: users}\n",
		"notes.txt": "ignored",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)
}

func TestLoadScenarios_NamesFailingFile(t *testing.T) {
	_, err := LoadScenarios("testdata/invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_op.yaml")
}

func TestStep_ShouldCommit(t *testing.T) {
	no := false
	assert.True(t, Step{}.ShouldCommit())
	assert.False(t, Step{Commit: &no}.ShouldCommit())
}
