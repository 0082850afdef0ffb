package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const (
	tableNamesQuery = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`
	tableInfoQuery  = `SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`
	fkInfoQuery     = `SELECT "from", "table", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`
)

// Reflect reads every user table of the database and builds a Catalog.
// It fails with SCHEMA_NOT_FOUND when the database has no tables.
func Reflect(ctx context.Context, q Querier) (*Catalog, error) {
	names, err := tableNames(ctx, q)
	if err != nil {
		return nil, err
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		cols, err := tableColumns(ctx, q, name)
		if err != nil {
			return nil, err
		}
		fks, err := tableForeignKeys(ctx, q, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, TableInfo{Name: name, Columns: cols, ForeignKeys: fks})
	}

	return Build(tables)
}

func tableNames(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, tableNamesQuery)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

func tableColumns(ctx context.Context, q Querier, table string) ([]Field, error) {
	rows, err := q.QueryContext(ctx, tableInfoQuery, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		var (
			f       Field
			ctype   sql.NullString
			notnull int
			pk      int
		)
		if err := rows.Scan(&f.Name, &ctype, &notnull, &pk); err != nil {
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		f.Type = ctype.String
		f.NotNull = notnull != 0
		f.PrimaryKey = pk != 0
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns for %s: %w", table, err)
	}
	return fields, nil
}

func tableForeignKeys(ctx context.Context, q Querier, table string) ([]FKRelation, error) {
	rows, err := q.QueryContext(ctx, fkInfoQuery, table)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys for %s: %w", table, err)
	}
	defer rows.Close()

	var fks []FKRelation
	for rows.Next() {
		var from, ref, to sql.NullString
		if err := rows.Scan(&from, &ref, &to); err != nil {
			return nil, fmt.Errorf("scan foreign key for %s: %w", table, err)
		}
		if !from.Valid || !ref.Valid {
			continue
		}
		fks = append(fks, FKRelation{
			Table:     table,
			Column:    from.String,
			RefTable:  ref.String,
			RefColumn: to.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys for %s: %w", table, err)
	}
	return fks, nil
}
