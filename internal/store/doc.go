// Package store owns the SQLite connection and executes compiled statements.
//
// Open connects with either driver (go-sqlite3 as "sqlite3", modernc as
// "sqlite"), enables foreign keys and case-sensitive LIKE for the lifetime
// of the handle, and reflects the catalog once. The catalog is never
// reloaded; reconnect to pick up schema changes.
//
// # Sessions
//
// A Session runs statements in a transaction begun on first write. Each
// Execute call takes a commit flag: true commits right after the
// statement, false leaves the transaction open so several calls can be
// composed and committed together. Any failing statement rolls the
// transaction back before the error is returned. Nothing is retried.
//
// The pool holds a single connection, so an open transaction blocks other
// sessions until it commits or rolls back. SQLite's own locking is the only
// concurrency control.
//
// # Records
//
// Rows decode into Records: ordered column name to value mappings whose
// values pass through the codec registry by declared column type.
package store
