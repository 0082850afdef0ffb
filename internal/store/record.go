package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/consigne/internal/codec"
)

// Record is one result row: column names in projection order and their
// decoded values. Address fields by name, never by position.
type Record struct {
	columns []string
	values  []any
}

// NewRecord pairs columns with values. It panics on length mismatch.
func NewRecord(columns []string, values []any) Record {
	if len(columns) != len(values) {
		panic(fmt.Sprintf("store: %d columns for %d values", len(columns), len(values)))
	}
	return Record{columns: columns, values: values}
}

// Columns returns the column names in projection order.
func (r Record) Columns() []string { return append([]string(nil), r.columns...) }

// Len returns the number of columns.
func (r Record) Len() int { return len(r.columns) }

// Get returns the value of the first column called name.
func (r Record) Get(name string) (any, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Int64 returns an integer column. ok is false for NULL or other types.
func (r Record) Int64(name string) (int64, bool) {
	v, _ := r.Get(name)
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// Float64 returns a numeric column as float64.
func (r Record) Float64(name string) (float64, bool) {
	v, _ := r.Get(name)
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String returns a text column.
func (r Record) String(name string) (string, bool) {
	v, _ := r.Get(name)
	s, ok := v.(string)
	return s, ok
}

// Bool returns a boolean column.
func (r Record) Bool(name string) (bool, bool) {
	v, _ := r.Get(name)
	b, ok := v.(bool)
	return b, ok
}

// Time returns a timestamp column.
func (r Record) Time(name string) (time.Time, bool) {
	v, _ := r.Get(name)
	t, ok := v.(time.Time)
	return t, ok
}

// Map copies the record into a map. Duplicate names keep the first value.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		if _, dup := m[c]; !dup {
			m[c] = r.values[i]
		}
	}
	return m
}

// MarshalJSON renders the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", c, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeRows reads every row, decoding values by declared column type.
func decodeRows(rows *sql.Rows, codecs *codec.Registry) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	var out []Record
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		values := make([]any, len(cols))
		for i, v := range raw {
			dec, err := codecs.Decode(cols[i], types[i].DatabaseTypeName(), v)
			if err != nil {
				return nil, err
			}
			values[i] = dec
		}
		out = append(out, Record{columns: cols, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
