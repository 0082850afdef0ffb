package harness

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/roach88/consigne/internal/codec"
	"github.com/roach88/consigne/internal/store"
)

// checkStep compares a step outcome with its expect clause and returns one
// message per mismatch.
func checkStep(step Step, event TraceEvent, records []store.Record, err error) []string {
	exp := step.Expect
	if exp == nil {
		exp = &Expect{}
	}

	if exp.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error %s, got success", exp.Error)}
		}
		if event.Error != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %s: %v", exp.Error, event.Error, err)}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var msgs []string
	if exp.Rows != nil && int64(*exp.Rows) != event.Rows {
		msgs = append(msgs, fmt.Sprintf("expected %d rows, got %d", *exp.Rows, event.Rows))
	}
	if len(exp.Record) > 0 {
		if len(records) == 0 {
			msgs = append(msgs, "expected a record, got none")
		} else {
			msgs = append(msgs, matchRecord(records[0], exp.Record)...)
		}
	}
	return msgs
}

// matchRecord checks that actual contains every expected column with an
// equal value (subset match). Extra columns in actual are ignored.
func matchRecord(actual store.Record, expected map[string]any) []string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msgs []string
	for _, k := range keys {
		got, ok := actual.Get(k)
		if !ok {
			msgs = append(msgs, fmt.Sprintf("record has no column %q", k))
			continue
		}
		if !valuesEqual(expected[k], got) {
			msgs = append(msgs, fmt.Sprintf("column %q: expected %v, got %v", k, expected[k], got))
		}
	}
	return msgs
}

// valuesEqual compares a value written in YAML with a decoded column value.
// Handles the numeric widening and boolean storage of SQLite.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case int:
		return numberEquals(float64(exp), actual)
	case int64:
		return numberEquals(float64(exp), actual)
	case float64:
		return numberEquals(exp, actual)
	case bool:
		switch a := actual.(type) {
		case bool:
			return exp == a
		case int64:
			return exp == (a != 0)
		}
		return false
	case string:
		switch a := actual.(type) {
		case string:
			return exp == a
		case time.Time:
			t, err := codec.ParseTime(exp)
			return err == nil && t.Equal(a)
		}
		return false
	case time.Time:
		if a, ok := actual.(time.Time); ok {
			return exp.Equal(a)
		}
		return false
	}

	// Fallback to DeepEqual for JSON columns
	return reflect.DeepEqual(normalizeYAML(expected), actual)
}

func numberEquals(exp float64, actual any) bool {
	switch a := actual.(type) {
	case int64:
		return exp == float64(a)
	case float64:
		return exp == a
	}
	return false
}

// normalizeYAML widens YAML ints to float64 so they compare with values
// decoded from JSON columns.
func normalizeYAML(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeYAML(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeYAML(e)
		}
		return out
	}
	return v
}
