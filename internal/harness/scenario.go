package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

// Scenario is a sequence of statements with expectations.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Schema is a SQL file creating the tables. Relative paths are
	// resolved against the scenario file. Empty means the deposit-return
	// schema.
	Schema string `yaml:"schema,omitempty"`

	// Driver selects the SQLite driver. Empty means sqlite3.
	Driver string `yaml:"driver,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step compiles and executes one request.
type Step struct {
	// Op is the statement kind, e.g. read_many.
	Op string `yaml:"op"`

	Request queryir.Request `yaml:"request"`

	// Commit defaults to true.
	Commit *bool `yaml:"commit,omitempty"`

	// Expect is optional; without it the step only has to succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome of a step.
type Expect struct {
	// Rows is the number of records read, or rows affected by a write.
	Rows *int `yaml:"rows,omitempty"`

	// Error is the expected error code.
	Error string `yaml:"error,omitempty"`

	// Record is a subset match against the first record returned.
	Record map[string]any `yaml:"record,omitempty"`
}

// ShouldCommit reports whether the step commits.
func (s Step) ShouldCommit() bool {
	return s.Commit == nil || *s.Commit
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	switch s.Driver {
	case "", store.DriverCgo, store.DriverPure:
	default:
		return fmt.Errorf("unsupported driver %q", s.Driver)
	}

	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if _, err := queryir.ParseKind(step.Op); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Rows != nil && *step.Expect.Rows < 0 {
			return fmt.Errorf("steps[%d].expect: rows must be non-negative", i)
		}
	}

	return nil
}
