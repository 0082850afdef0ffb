// Package codec converts between Go values and SQLite column values.
//
// Columns are decoded by their declared type. Native affinities pass
// through; JSON, JSONLIST, DATETIME (and TIMESTAMP, DATE) and BOOLEAN are
// stored as text or integers and parsed back on read. A declared type with
// no registered codec fails with UNKNOWN_CODEC.
//
// Drivers already convert some declared types themselves (go-sqlite3 turns
// BOOLEAN into bool and DATETIME into time.Time), so every decoder accepts
// both the raw and the pre-converted form.
package codec

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/consigne/internal/queryir"
)

// Codec converts one logical column type.
type Codec interface {
	// Encode converts a Go value into a value the driver can bind.
	Encode(v any) (any, error)

	// Decode converts a scanned driver value into its Go form.
	Decode(v any) (any, error)
}

// Tags of the extra logical types.
const (
	TagJSON     = "JSON"
	TagJSONList = "JSONLIST"
	TagDateTime = "DATETIME"
	TagBoolean  = "BOOLEAN"
)

var nativeTags = []string{
	"", "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT",
	"TEXT", "VARCHAR", "CHAR", "NCHAR", "NVARCHAR", "CLOB",
	"REAL", "DOUBLE", "DOUBLE PRECISION", "FLOAT", "NUMERIC", "DECIMAL",
	"BLOB",
}

// Registry maps normalized declared types to codecs. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns a registry holding the native affinities and the
// JSON, JSONLIST, DATETIME and BOOLEAN codecs.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	for _, tag := range nativeTags {
		r.codecs[tag] = nativeCodec{text: isTextTag(tag)}
	}
	r.codecs[TagJSON] = jsonCodec{}
	r.codecs[TagJSONList] = jsonListCodec{}
	r.codecs[TagDateTime] = timeCodec{}
	r.codecs["TIMESTAMP"] = timeCodec{}
	r.codecs["DATE"] = timeCodec{}
	r.codecs[TagBoolean] = boolCodec{}
	r.codecs["BOOL"] = boolCodec{}
	return r
}

// Register adds or replaces the codec for tag.
func (r *Registry) Register(tag string, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[Normalize(tag)] = c
}

// Lookup returns the codec for a declared type.
func (r *Registry) Lookup(declType string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[Normalize(declType)]
	return c, ok
}

// Decode converts a scanned value of column with the given declared type.
func (r *Registry) Decode(column, declType string, v any) (any, error) {
	c, ok := r.Lookup(declType)
	if !ok {
		return nil, queryir.NewUnknownCodecError(column, declType)
	}
	if v == nil {
		return nil, nil
	}
	out, err := c.Decode(v)
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", column, Normalize(declType), err)
	}
	return out, nil
}

// Encode converts v through the codec registered for declType. Pointers
// are dereferenced; driver.Valuer values are left for the driver.
func (r *Registry) Encode(declType string, v any) (any, error) {
	c, ok := r.Lookup(declType)
	if !ok {
		return nil, queryir.NewUnknownCodecError("", declType)
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}
	v = indirect(v)
	if v == nil {
		return nil, nil
	}
	out, err := c.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode as %s: %w", Normalize(declType), err)
	}
	return out, nil
}

// EncodeParams converts statement parameters for binding. A parameter with
// a declared type in types goes through that type's codec, so a JSONLIST
// column rejects a map; the others are encoded by their Go type.
func (r *Registry) EncodeParams(types []string, vs []any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		var (
			enc any
			err error
		)
		if i < len(types) && types[i] != "" {
			enc, err = r.Encode(types[i], v)
		} else {
			enc, err = EncodeParam(v)
		}
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// Normalize upper-cases a declared type and strips its size parameters:
// "varchar(255)" becomes "VARCHAR".
func Normalize(declType string) string {
	t := declType
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return strings.Join(strings.Fields(strings.ToUpper(t)), " ")
}

func isTextTag(tag string) bool {
	switch tag {
	case "TEXT", "VARCHAR", "CHAR", "NCHAR", "NVARCHAR", "CLOB":
		return true
	}
	return false
}

type nativeCodec struct {
	text bool
}

func (nativeCodec) Encode(v any) (any, error) { return EncodeParam(v) }

func (c nativeCodec) Decode(v any) (any, error) {
	if b, ok := v.([]byte); ok && c.text {
		return string(b), nil
	}
	return v, nil
}

// marshalJSON renders v as compact JSON text without HTML escaping,
// normalized to NFC.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return norm.NFC.String(strings.TrimSuffix(buf.String(), "\n")), nil
}

func textOf(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

type jsonCodec struct{}

func (jsonCodec) Encode(v any) (any, error) {
	if s, ok := textOf(v); ok {
		return s, nil
	}
	return marshalJSON(v)
}

func (jsonCodec) Decode(v any) (any, error) {
	s, ok := textOf(v)
	if !ok {
		return nil, fmt.Errorf("expected JSON text, got %T", v)
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}
	return out, nil
}

type jsonListCodec struct{}

func (jsonListCodec) Encode(v any) (any, error) {
	if s, ok := textOf(v); ok {
		return s, nil
	}
	if _, ok := queryir.Elements(v); !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	return marshalJSON(v)
}

func (jsonListCodec) Decode(v any) (any, error) {
	s, ok := textOf(v)
	if !ok {
		return nil, fmt.Errorf("expected JSON text, got %T", v)
	}
	var out []any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("unmarshal json list: %w", err)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}
