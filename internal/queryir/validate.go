package queryir

import (
	"fmt"
	"reflect"
)

// Validate checks the shape of r for the given kind without consulting a
// catalog. Field and table names are resolved later by the compiler.
//
// Validate is a pure function with no side effects.
func (r Request) Validate(kind Kind) error {
	if r.Table == "" {
		return NewMissingArgumentsError(kind, "", "table is required")
	}

	switch kind {
	case KindInsertOne:
		if err := r.validateInsertHead(kind); err != nil {
			return err
		}
		if len(r.Values) == 0 {
			return NewMissingArgumentsError(kind, r.Table, "values are required")
		}
		if len(r.Values) != len(r.Fields) {
			return NewMissingArgumentsError(kind, r.Table,
				fmt.Sprintf("%d values for %d fields", len(r.Values), len(r.Fields)))
		}
	case KindInsertMany:
		if err := r.validateInsertHead(kind); err != nil {
			return err
		}
		if len(r.Rows) == 0 {
			return NewMissingArgumentsError(kind, r.Table, "rows are required")
		}
		for i, row := range r.Rows {
			if len(row) != len(r.Fields) {
				return NewMissingArgumentsError(kind, r.Table,
					fmt.Sprintf("row %d has %d values for %d fields", i, len(row), len(r.Fields)))
			}
		}
	case KindUpdate:
		if len(r.Setters) == 0 {
			return NewMissingArgumentsError(kind, r.Table, "setters are required")
		}
	case KindDelete:
	case KindReadOne, KindReadMany:
		if r.Axis != nil && !r.Axis.Valid() {
			return NewInvalidAxisError(*r.Axis)
		}
	default:
		return fmt.Errorf("unknown statement kind %q", kind)
	}

	return r.validateConditions(kind)
}

func (r Request) validateInsertHead(kind Kind) error {
	if len(r.Fields) == 0 {
		return NewMissingArgumentsError(kind, r.Table, "fields are required")
	}
	if r.OnConflict == "" {
		return NewMissingArgumentsError(kind, r.Table, "conflict policy is required")
	}
	if !r.OnConflict.Valid() {
		return NewInvalidConflictPolicyError(string(r.OnConflict))
	}
	return nil
}

func (r Request) validateConditions(kind Kind) error {
	for _, c := range r.Conditions {
		if !c.Op.Valid() {
			return NewUnknownOperatorError(string(c.Op))
		}
		if c.Op.IsMembership() {
			if _, ok := Elements(c.Value); !ok {
				return NewMissingArgumentsError(kind, r.Table,
					fmt.Sprintf("%s on %q needs a list value, got %T", c.Op, c.Field, c.Value))
			}
		}
	}
	return nil
}

// Elements flattens a slice or array value into its elements. []byte is a
// scalar blob, not a collection.
func Elements(v any) ([]any, bool) {
	switch vs := v.(type) {
	case []any:
		return vs, true
	case []byte, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
