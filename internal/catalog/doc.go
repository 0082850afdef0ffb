// Package catalog reflects a SQLite database into an immutable in-memory
// description of its tables, columns and foreign keys, and resolves short
// field names to the table that owns them.
//
// # Catalog
//
// Reflect reads sqlite_master, pragma_table_info and
// pragma_foreign_key_list, then Build assembles the result in one pass:
// every table becomes a Schema, every foreign key becomes an FKRelation
// visible from both endpoint tables keyed by the other table's name. When a
// pair of tables is linked by several foreign keys, the one on the earliest
// declared column wins. Nothing is mutated after Build returns, so a
// Catalog may be shared by any number of goroutines.
//
// # Namespace
//
// Every column that is not a foreign key of its own table gets a global
// short name. Foreign-key columns are reached through joins or through the
// target table of a request. A short name declared by several tables is
// ambiguous: resolving it fails with NAMESPACE_COLLISION unless the name is
// a column of the request's target table or is qualified as table.column.
package catalog
