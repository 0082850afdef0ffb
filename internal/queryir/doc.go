// Package queryir defines the request IR consumed by the statement compiler.
//
// A Request is an ephemeral value describing one statement: the target
// table, an optional projection, a flat conjunction of conditions, setters
// for updates, ordering, a row limit, returned columns and an insert
// conflict policy. Requests never carry qualified names; field names are
// resolved against the catalog by the compiler.
//
// The compiler turns a Request into a Statement: SQL text with positional
// "?" placeholders and the ordered parameter list that binds them. Values
// never appear in SQL text.
//
// Every failure surfaced by the catalog, compiler and store is an *Error
// carrying an ErrorCode. Use the IsXxx helpers rather than comparing codes
// directly; they see through wrapped errors.
package queryir
