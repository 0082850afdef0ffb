package queryir

import (
	"fmt"
	"strings"
)

// Kind identifies one of the six statement shapes.
type Kind string

const (
	KindInsertOne  Kind = "insert_one"
	KindInsertMany Kind = "insert_many"
	KindUpdate     Kind = "update"
	KindDelete     Kind = "delete"
	KindReadOne    Kind = "read_one"
	KindReadMany   Kind = "read_many"
)

// Kinds lists every statement shape in compile order.
var Kinds = []Kind{KindInsertOne, KindInsertMany, KindUpdate, KindDelete, KindReadOne, KindReadMany}

// ParseKind accepts the snake_case name of a statement shape.
// Dashes are tolerated so "read-many" works from the command line.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown statement kind %q", s)
}

// IsWrite reports whether the shape modifies rows.
func (k Kind) IsWrite() bool {
	switch k {
	case KindInsertOne, KindInsertMany, KindUpdate, KindDelete:
		return true
	}
	return false
}

// Operator is a comparison operator usable in a Condition.
type Operator string

const (
	OpEq    Operator = "="
	OpNe    Operator = "!="
	OpGlob  Operator = "GLOB"
	OpGt    Operator = ">"
	OpGe    Operator = ">="
	OpNotGt Operator = "!>"
	OpLt    Operator = "<"
	OpLe    Operator = "<="
	OpNotLt Operator = "!<"
	OpLike  Operator = "LIKE"
	OpILike Operator = "ILIKE"
	OpIn    Operator = "IN"
	OpNotIn Operator = "NOT IN"
	OpIs    Operator = "IS"
	OpIsNot Operator = "IS NOT"
)

var operators = map[Operator]bool{
	OpEq: true, OpNe: true, OpGlob: true, OpGt: true, OpGe: true, OpNotGt: true,
	OpLt: true, OpLe: true, OpNotLt: true, OpLike: true, OpILike: true,
	OpIn: true, OpNotIn: true, OpIs: true, OpIsNot: true,
}

// ParseOperator normalizes case and inner whitespace ("not   in" -> "NOT IN")
// and fails with UNKNOWN_OPERATOR outside the supported set.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.Join(strings.Fields(strings.ToUpper(s)), " "))
	if !operators[op] {
		return "", NewUnknownOperatorError(s)
	}
	return op, nil
}

// Valid reports whether op is in the supported set. Matching is exact.
func (op Operator) Valid() bool {
	return operators[op]
}

// IsMembership reports whether op takes a collection (IN, NOT IN).
func (op Operator) IsMembership() bool {
	return op == OpIn || op == OpNotIn
}

// FoldsCase reports whether both operands are lowered before comparing.
// case_sensitive_like is on for every connection, so ILIKE is emulated.
func (op Operator) FoldsCase() bool {
	return op == OpILike
}

// SQL returns the SQLite spelling of op. SQLite has no "!>", "!<" or
// ILIKE, so those map to their equivalents.
func (op Operator) SQL() string {
	switch op {
	case OpNotGt:
		return string(OpLe)
	case OpNotLt:
		return string(OpGe)
	case OpILike:
		return string(OpLike)
	}
	return string(op)
}

// OnConflict is the insert conflict policy.
type OnConflict string

const (
	ConflictUpdate   OnConflict = "update"
	ConflictIgnore   OnConflict = "ignore"
	ConflictRollback OnConflict = "rollback"
	ConflictAbort    OnConflict = "abort"
	ConflictFail     OnConflict = "fail"
	ConflictReplace  OnConflict = "replace"
	ConflictNone     OnConflict = "none"
)

// ParseOnConflict accepts a policy name in any case.
func ParseOnConflict(s string) (OnConflict, error) {
	p := OnConflict(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", NewInvalidConflictPolicyError(s)
	}
	return p, nil
}

// Valid reports whether p belongs to the closed policy enumeration.
func (p OnConflict) Valid() bool {
	switch p {
	case ConflictUpdate, ConflictIgnore, ConflictRollback, ConflictAbort,
		ConflictFail, ConflictReplace, ConflictNone:
		return true
	}
	return false
}

// Axis is the ordering direction shared by every ORDER BY field.
type Axis int

const (
	Descending Axis = 0
	Ascending  Axis = 1
)

// Valid reports whether a is 0 or 1.
func (a Axis) Valid() bool {
	return a == Ascending || a == Descending
}

// SQL returns ASC or DESC. Callers validate first.
func (a Axis) SQL() string {
	if a == Descending {
		return "DESC"
	}
	return "ASC"
}

// Condition is one term of the flat AND list of a WHERE clause.
//
// For IN and NOT IN, Value must be a slice or array; each element binds to
// its own placeholder in order.
type Condition struct {
	Field string   `json:"field" yaml:"field"`
	Op    Operator `json:"op" yaml:"op"`
	Value any      `json:"value" yaml:"value"`
}

// Where builds a Condition, keeping call sites short.
func Where(field string, op Operator, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// Setter assigns Value to Field in an UPDATE.
type Setter struct {
	Field string `json:"field" yaml:"field"`
	Value any    `json:"value" yaml:"value"`
}

// Set builds a Setter.
func Set(field string, value any) Setter {
	return Setter{Field: field, Value: value}
}

// Request describes one statement to compile.
//
// Which fields matter depends on the Kind it is compiled as:
//
//	insert_one   Table, Fields, Values, OnConflict, Returning
//	insert_many  Table, Fields, Rows, OnConflict, Returning
//	update       Table, Setters, Conditions
//	delete       Table, Conditions
//	read_one     Table, Fields, Conditions, OrderBy, Axis
//	read_many    Table, Fields, Conditions, OrderBy, Axis, Limit
//
// Axis nil means ascending. Limit <= 0 means no limit.
type Request struct {
	Table      string      `json:"table" yaml:"table"`
	Fields     []string    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Values     []any       `json:"values,omitempty" yaml:"values,omitempty"`
	Rows       [][]any     `json:"rows,omitempty" yaml:"rows,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Setters    []Setter    `json:"setters,omitempty" yaml:"setters,omitempty"`
	OrderBy    []string    `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Axis       *Axis       `json:"axis,omitempty" yaml:"axis,omitempty"`
	Limit      int         `json:"limit,omitempty" yaml:"limit,omitempty"`
	Returning  []string    `json:"returning,omitempty" yaml:"returning,omitempty"`
	OnConflict OnConflict  `json:"on_conflict,omitempty" yaml:"on_conflict,omitempty"`
}

// Direction returns the effective ordering axis.
func (r Request) Direction() Axis {
	if r.Axis == nil {
		return Ascending
	}
	return *r.Axis
}

// AxisOf returns a pointer suitable for Request.Axis.
func AxisOf(a Axis) *Axis {
	return &a
}

// Statement is a compiled request: SQL text and its positional parameters.
// len(Params) always equals the number of "?" placeholders in SQL.
type Statement struct {
	Kind   Kind   `json:"kind"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`

	// Types holds the declared type of the column each parameter writes,
	// "" for parameters that bind no column value. Nil encodes every
	// parameter by its Go type.
	Types []string `json:"-"`
}

// String renders the statement for logs and traces.
func (s Statement) String() string {
	return fmt.Sprintf("%s %v", s.SQL, s.Params)
}
