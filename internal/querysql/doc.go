// Package querysql compiles queryir requests into parameterized SQLite SQL.
//
// The compiler resolves every field name against the catalog, asks the join
// resolver for a join path covering all referenced tables, and emits one of
// six statement shapes. Identifiers in SQL text come only from the catalog;
// every value is bound through a "?" placeholder.
//
// A Compiler holds no mutable state. One instance may be shared by any
// number of goroutines.
package querysql
