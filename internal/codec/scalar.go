package codec

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// TimeFormat is how timestamps are written. go-sqlite3 parses it back into
// time.Time for DATETIME, TIMESTAMP and DATE columns.
const TimeFormat = "2006-01-02 15:04:05.999999999-07:00"

var timeLayouts = []string{
	TimeFormat,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses the textual timestamp forms SQLite applications use.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type timeCodec struct{}

func (timeCodec) Encode(v any) (any, error) {
	n, err := EncodeParam(v)
	if err != nil {
		return nil, err
	}
	switch x := n.(type) {
	case int64, float64:
		return x, nil
	case []byte:
		n = string(x)
	}
	if s, ok := n.(string); ok {
		if _, err := ParseTime(s); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("expected a timestamp, got %T", v)
}

func (timeCodec) Decode(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		sec := int64(t)
		return time.Unix(sec, int64((t-float64(sec))*1e9)).UTC(), nil
	}
	if s, ok := textOf(v); ok {
		return ParseTime(s)
	}
	return nil, fmt.Errorf("expected a timestamp, got %T", v)
}

type boolCodec struct{}

func (boolCodec) Encode(v any) (any, error) {
	n, err := EncodeParam(v)
	if err != nil {
		return nil, err
	}
	b, err := asBool(n)
	if err != nil {
		return nil, err
	}
	if b {
		return int64(1), nil
	}
	return int64(0), nil
}

func (boolCodec) Decode(v any) (any, error) {
	return asBool(v)
}

func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case float64:
		return b != 0, nil
	}
	if s, ok := textOf(v); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return false, fmt.Errorf("expected a boolean, got %q", s)
		}
		return parsed, nil
	}
	return false, fmt.Errorf("expected a boolean, got %T", v)
}

// EncodeParam converts a Go value into a bindable parameter by its type:
// timestamps become text, booleans integers, maps, structs and non-byte
// slices JSON text. Pointers are dereferenced; driver.Valuer values are
// left for the driver.
func EncodeParam(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case driver.Valuer:
		return x, nil
	case string, []byte, int64, float64:
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		return x.Format(TimeFormat), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return EncodeParam(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("cannot bind %T value %d: exceeds the SQLite integer range", v, u)
		}
		return int64(u), nil
	case reflect.Float32:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return EncodeParam(rv.Bool())
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		return marshalJSON(v)
	}
	return nil, fmt.Errorf("cannot bind parameter of type %T", v)
}

// EncodeParams applies EncodeParam to every value.
func EncodeParams(vs []any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		enc, err := EncodeParam(v)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}
