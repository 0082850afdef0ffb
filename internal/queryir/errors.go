package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes catalog, compile and execution failures.
type ErrorCode string

const (
	// ErrCodeSchemaNotFound indicates reflection found no user tables.
	ErrCodeSchemaNotFound ErrorCode = "SCHEMA_NOT_FOUND"

	// ErrCodeUnknownTable indicates a request targets a table the catalog lacks.
	ErrCodeUnknownTable ErrorCode = "UNKNOWN_TABLE"

	// ErrCodeUnknownField indicates a field name has no namespace entry.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeUnknownOperator indicates a condition operator outside the supported set.
	ErrCodeUnknownOperator ErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeInvalidAxis indicates an ordering axis other than 0 or 1.
	ErrCodeInvalidAxis ErrorCode = "INVALID_AXIS"

	// ErrCodeUnjoinableSchema indicates referenced tables have no FK path to the target.
	ErrCodeUnjoinableSchema ErrorCode = "UNJOINABLE_SCHEMA"

	// ErrCodeMissingArguments indicates a write-shaped request lacks required parts.
	ErrCodeMissingArguments ErrorCode = "MISSING_ARGUMENTS"

	// ErrCodeUnknownCodec indicates a stored column type has no registered codec.
	ErrCodeUnknownCodec ErrorCode = "UNKNOWN_CODEC"

	// ErrCodeNamespaceCollision indicates an unqualified name declared by several tables.
	ErrCodeNamespaceCollision ErrorCode = "NAMESPACE_COLLISION"

	// ErrCodeInvalidConflictPolicy indicates an insert conflict policy outside the enumeration.
	ErrCodeInvalidConflictPolicy ErrorCode = "INVALID_CONFLICT_POLICY"
)

// Error is the typed failure returned by this module.
//
// Table, Field and Tables carry enough context to diagnose a failing
// request without re-running it with tracing enabled.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Table is the target or owning table, when known.
	Table string

	// Field is the offending field or column, when known.
	Field string

	// Tables lists unreachable tables for UNJOINABLE_SCHEMA, or the
	// colliding tables for NAMESPACE_COLLISION.
	Tables []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var ctx []string
	if e.Table != "" {
		ctx = append(ctx, "table="+e.Table)
	}
	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}
	if len(e.Tables) > 0 {
		ctx = append(ctx, "tables="+strings.Join(e.Tables, ","))
	}
	if len(ctx) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(ctx, ", "))
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsSchemaNotFound returns true if err is a SCHEMA_NOT_FOUND error.
func IsSchemaNotFound(err error) bool { return hasCode(err, ErrCodeSchemaNotFound) }

// IsUnknownTable returns true if err is an UNKNOWN_TABLE error.
func IsUnknownTable(err error) bool { return hasCode(err, ErrCodeUnknownTable) }

// IsUnknownField returns true if err is an UNKNOWN_FIELD error.
func IsUnknownField(err error) bool { return hasCode(err, ErrCodeUnknownField) }

// IsUnknownOperator returns true if err is an UNKNOWN_OPERATOR error.
func IsUnknownOperator(err error) bool { return hasCode(err, ErrCodeUnknownOperator) }

// IsInvalidAxis returns true if err is an INVALID_AXIS error.
func IsInvalidAxis(err error) bool { return hasCode(err, ErrCodeInvalidAxis) }

// IsUnjoinableSchema returns true if err is an UNJOINABLE_SCHEMA error.
func IsUnjoinableSchema(err error) bool { return hasCode(err, ErrCodeUnjoinableSchema) }

// IsMissingArguments returns true if err is a MISSING_ARGUMENTS error.
func IsMissingArguments(err error) bool { return hasCode(err, ErrCodeMissingArguments) }

// IsUnknownCodec returns true if err is an UNKNOWN_CODEC error.
func IsUnknownCodec(err error) bool { return hasCode(err, ErrCodeUnknownCodec) }

// IsNamespaceCollision returns true if err is a NAMESPACE_COLLISION error.
func IsNamespaceCollision(err error) bool { return hasCode(err, ErrCodeNamespaceCollision) }

// IsInvalidConflictPolicy returns true if err is an INVALID_CONFLICT_POLICY error.
func IsInvalidConflictPolicy(err error) bool { return hasCode(err, ErrCodeInvalidConflictPolicy) }

// NewSchemaNotFoundError reports an uninitialized database.
func NewSchemaNotFoundError() *Error {
	return &Error{
		Code:    ErrCodeSchemaNotFound,
		Message: "no tables found, the database has not been initialized",
	}
}

// NewUnknownTableError reports a table absent from the catalog.
func NewUnknownTableError(table string) *Error {
	return &Error{
		Code:    ErrCodeUnknownTable,
		Message: fmt.Sprintf("unknown table %q", table),
		Table:   table,
	}
}

// NewUnknownFieldError reports a field that does not resolve. table is the
// request target and may be empty.
func NewUnknownFieldError(table, field string) *Error {
	return &Error{
		Code:    ErrCodeUnknownField,
		Message: fmt.Sprintf("unknown field %q", field),
		Table:   table,
		Field:   field,
	}
}

// NewUnknownOperatorError reports an unsupported condition operator.
func NewUnknownOperatorError(op string) *Error {
	return &Error{
		Code:    ErrCodeUnknownOperator,
		Message: fmt.Sprintf("unknown operator %q", op),
	}
}

// NewInvalidAxisError reports an ordering axis other than 0 or 1.
func NewInvalidAxisError(axis Axis) *Error {
	return &Error{
		Code:    ErrCodeInvalidAxis,
		Message: fmt.Sprintf("axis must be 1 (ascending) or 0 (descending), got %d", axis),
	}
}

// NewUnjoinableSchemaError reports tables with no FK path to target.
func NewUnjoinableSchemaError(target string, tables []string) *Error {
	return &Error{
		Code:    ErrCodeUnjoinableSchema,
		Message: "referenced tables cannot be joined to the target table",
		Table:   target,
		Tables:  tables,
	}
}

// NewMissingArgumentsError reports what a request of the given kind lacks.
func NewMissingArgumentsError(kind Kind, table, what string) *Error {
	return &Error{
		Code:    ErrCodeMissingArguments,
		Message: fmt.Sprintf("%s: %s", kind, what),
		Table:   table,
	}
}

// NewUnknownCodecError reports a declared column type with no codec.
func NewUnknownCodecError(column, tag string) *Error {
	return &Error{
		Code:    ErrCodeUnknownCodec,
		Message: fmt.Sprintf("unknown serialization format %q", tag),
		Field:   column,
	}
}

// NewNamespaceCollisionError reports a short field name declared by more
// than one table.
func NewNamespaceCollisionError(field string, tables []string) *Error {
	return &Error{
		Code:    ErrCodeNamespaceCollision,
		Message: fmt.Sprintf("field %q is ambiguous, qualify it as table.%s", field, field),
		Field:   field,
		Tables:  tables,
	}
}

// NewInvalidConflictPolicyError reports a policy outside the enumeration.
func NewInvalidConflictPolicyError(policy string) *Error {
	return &Error{
		Code:    ErrCodeInvalidConflictPolicy,
		Message: fmt.Sprintf("unknown conflict policy %q", policy),
	}
}
