package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/consigne/internal/catalog"
	"github.com/roach88/consigne/internal/queryir"
)

// Compiler compiles queryir requests to parameterized SQLite SQL.
type Compiler struct {
	catalog *catalog.Catalog
}

// NewCompiler creates a Compiler over an immutable catalog.
func NewCompiler(c *catalog.Catalog) *Compiler {
	return &Compiler{catalog: c}
}

// Catalog returns the catalog names are resolved against.
func (c *Compiler) Catalog() *catalog.Catalog {
	return c.catalog
}

// Compile dispatches on kind.
func (c *Compiler) Compile(kind queryir.Kind, req queryir.Request) (queryir.Statement, error) {
	switch kind {
	case queryir.KindInsertOne:
		return c.InsertOne(req)
	case queryir.KindInsertMany:
		return c.InsertMany(req)
	case queryir.KindUpdate:
		return c.Update(req)
	case queryir.KindDelete:
		return c.Delete(req)
	case queryir.KindReadOne:
		return c.ReadOne(req)
	case queryir.KindReadMany:
		return c.ReadMany(req)
	default:
		return queryir.Statement{}, fmt.Errorf("unsupported statement kind %q", kind)
	}
}

// InsertOne compiles
//
//	INSERT [OR <policy>] INTO t(a, b) VALUES(?,?) [ON CONFLICT DO UPDATE SET ...] [RETURNING ...]
func (c *Compiler) InsertOne(req queryir.Request) (queryir.Statement, error) {
	return c.insert(queryir.KindInsertOne, req, [][]any{req.Values})
}

// InsertMany compiles a single multi-row INSERT, one "(?,...)" group per
// row in input order, with the row values flattened into the parameters.
func (c *Compiler) InsertMany(req queryir.Request) (queryir.Statement, error) {
	return c.insert(queryir.KindInsertMany, req, req.Rows)
}

func (c *Compiler) insert(kind queryir.Kind, req queryir.Request, rows [][]any) (queryir.Statement, error) {
	if err := req.Validate(kind); err != nil {
		return queryir.Statement{}, err
	}
	schema, err := c.catalog.MustTable(req.Table)
	if err != nil {
		return queryir.Statement{}, err
	}

	cols, colTypes, err := ownColumns(schema, req.Fields)
	if err != nil {
		return queryir.Statement{}, fmt.Errorf("compile %s fields: %w", kind, err)
	}
	returning, _, err := ownColumns(schema, req.Returning)
	if err != nil {
		return queryir.Statement{}, fmt.Errorf("compile %s returning: %w", kind, err)
	}

	group := "(" + catalog.Placeholders(len(cols)) + ")"
	groups := make([]string, len(rows))
	params := make([]any, 0, len(rows)*len(cols))
	types := make([]string, 0, len(rows)*len(cols))
	for i, row := range rows {
		groups[i] = group
		params = append(params, row...)
		types = append(types, colTypes...)
	}

	var b strings.Builder
	b.WriteString("INSERT ")
	if p := req.OnConflict; p != queryir.ConflictNone && p != queryir.ConflictUpdate {
		b.WriteString("OR " + strings.ToUpper(string(p)) + " ")
	}
	fmt.Fprintf(&b, "INTO %s(%s) VALUES%s",
		catalog.QuoteIdent(schema.Name()),
		strings.Join(cols, ", "),
		strings.Join(groups, ", "))

	if req.OnConflict == queryir.ConflictUpdate {
		sets := make([]string, len(cols))
		for i, col := range cols {
			sets[i] = col + " = excluded." + col
		}
		b.WriteString(" ON CONFLICT DO UPDATE SET " + strings.Join(sets, ", "))
	}
	if len(returning) > 0 {
		b.WriteString(" RETURNING " + strings.Join(returning, ", "))
	}

	return queryir.Statement{Kind: kind, SQL: b.String(), Params: params, Types: types}, nil
}

// Update compiles
//
//	UPDATE t SET a = ?, b = ? [WHERE ...]
//
// Setter values bind before condition values. Without conditions every row
// is updated; nothing guards against it.
func (c *Compiler) Update(req queryir.Request) (queryir.Statement, error) {
	if err := req.Validate(queryir.KindUpdate); err != nil {
		return queryir.Statement{}, err
	}
	schema, err := c.catalog.MustTable(req.Table)
	if err != nil {
		return queryir.Statement{}, err
	}

	sets := make([]string, len(req.Setters))
	params := make([]any, 0, len(req.Setters)+len(req.Conditions))
	types := make([]string, 0, len(req.Setters)+len(req.Conditions))
	for i, s := range req.Setters {
		cols, colTypes, err := ownColumns(schema, []string{s.Field})
		if err != nil {
			return queryir.Statement{}, fmt.Errorf("compile update setters: %w", err)
		}
		sets[i] = cols[0] + " = ?"
		params = append(params, s.Value)
		types = append(types, colTypes[0])
	}

	where, whereParams, err := c.ownConditions(schema, req.Conditions)
	if err != nil {
		return queryir.Statement{}, fmt.Errorf("compile update conditions: %w", err)
	}
	params = append(params, whereParams...)
	types = append(types, make([]string, len(whereParams))...)

	sql := fmt.Sprintf("UPDATE %s SET %s%s", catalog.QuoteIdent(schema.Name()), strings.Join(sets, ", "), where)
	return queryir.Statement{Kind: queryir.KindUpdate, SQL: sql, Params: params, Types: types}, nil
}

// Delete compiles
//
//	DELETE FROM t [WHERE ...]
//
// Without conditions every row is deleted.
func (c *Compiler) Delete(req queryir.Request) (queryir.Statement, error) {
	if err := req.Validate(queryir.KindDelete); err != nil {
		return queryir.Statement{}, err
	}
	schema, err := c.catalog.MustTable(req.Table)
	if err != nil {
		return queryir.Statement{}, err
	}

	where, params, err := c.ownConditions(schema, req.Conditions)
	if err != nil {
		return queryir.Statement{}, fmt.Errorf("compile delete conditions: %w", err)
	}

	sql := "DELETE FROM " + catalog.QuoteIdent(schema.Name()) + where
	return queryir.Statement{Kind: queryir.KindDelete, SQL: sql, Params: params}, nil
}

// ReadOne compiles a SELECT without LIMIT; the caller keeps the first row.
func (c *Compiler) ReadOne(req queryir.Request) (queryir.Statement, error) {
	return c.read(queryir.KindReadOne, req)
}

// ReadMany compiles a SELECT, appending LIMIT when req.Limit > 0.
func (c *Compiler) ReadMany(req queryir.Request) (queryir.Statement, error) {
	return c.read(queryir.KindReadMany, req)
}

// read compiles
//
//	SELECT <fields> FROM t [JOIN ...] [WHERE ...] [ORDER BY ... ASC|DESC] [LIMIT n]
//
// Without fields, or with "*", every column of the target table is
// projected in declared order.
func (c *Compiler) read(kind queryir.Kind, req queryir.Request) (queryir.Statement, error) {
	if err := req.Validate(kind); err != nil {
		return queryir.Statement{}, err
	}
	schema, err := c.catalog.MustTable(req.Table)
	if err != nil {
		return queryir.Statement{}, err
	}
	target := schema.Name()

	var referenced []string

	fields, err := c.projection(schema, req.Fields)
	if err != nil {
		return queryir.Statement{}, fmt.Errorf("compile %s fields: %w", kind, err)
	}
	selects := make([]string, len(fields))
	for i, ns := range fields {
		selects[i] = ns.Select()
		referenced = append(referenced, ns.Table)
	}

	var (
		terms  []string
		params []any
	)
	for _, cond := range req.Conditions {
		ns, err := c.catalog.ResolveFor(target, cond.Field)
		if err != nil {
			return queryir.Statement{}, fmt.Errorf("compile %s conditions: %w", kind, err)
		}
		frag, vals, err := ns.Where(cond.Op, cond.Value)
		if err != nil {
			return queryir.Statement{}, fmt.Errorf("compile %s conditions: %w", kind, err)
		}
		terms = append(terms, frag)
		params = append(params, vals...)
		referenced = append(referenced, ns.Table)
	}

	order := make([]string, len(req.OrderBy))
	for i, name := range req.OrderBy {
		ns, err := c.catalog.ResolveFor(target, name)
		if err != nil {
			return queryir.Statement{}, fmt.Errorf("compile %s order: %w", kind, err)
		}
		order[i] = ns.Select()
		referenced = append(referenced, ns.Table)
	}

	joins, err := c.JoinPath(target, referenced)
	if err != nil {
		return queryir.Statement{}, err
	}

	parts := []string{"SELECT", strings.Join(selects, ", "), "FROM", catalog.QuoteIdent(target)}
	parts = append(parts, joins...)
	if len(terms) > 0 {
		parts = append(parts, "WHERE", strings.Join(terms, " AND "))
	}
	if len(order) > 0 {
		parts = append(parts, "ORDER BY", strings.Join(order, ", "), req.Direction().SQL())
	}
	if kind == queryir.KindReadMany && req.Limit > 0 {
		parts = append(parts, "LIMIT", strconv.Itoa(req.Limit))
	}

	return queryir.Statement{Kind: kind, SQL: strings.Join(parts, " "), Params: params}, nil
}

func (c *Compiler) projection(schema *catalog.Schema, fields []string) ([]catalog.Namespace, error) {
	var out []catalog.Namespace
	star := len(fields) == 0
	for _, f := range fields {
		if f == "*" {
			star = true
			continue
		}
		ns, err := c.catalog.ResolveFor(schema.Name(), f)
		if err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	if !star {
		return out, nil
	}
	all := make([]catalog.Namespace, 0, len(schema.Fields())+len(out))
	for _, f := range schema.Fields() {
		all = append(all, catalog.Namespace{Table: schema.Name(), Field: f.Name, Type: f.Type})
	}
	return append(all, out...), nil
}

// ownConditions renders a WHERE clause whose fields must all belong to the
// target table, as UPDATE and DELETE cannot join. Returns "" without
// conditions.
func (c *Compiler) ownConditions(schema *catalog.Schema, conds []queryir.Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	terms := make([]string, len(conds))
	var params []any
	for i, cond := range conds {
		ns, err := c.catalog.ResolveFor(schema.Name(), cond.Field)
		if err != nil {
			return "", nil, err
		}
		if ns.Table != schema.Name() {
			return "", nil, queryir.NewUnknownFieldError(schema.Name(), cond.Field)
		}
		frag, vals, err := ns.Where(cond.Op, cond.Value)
		if err != nil {
			return "", nil, err
		}
		terms[i] = frag
		params = append(params, vals...)
	}
	return " WHERE " + strings.Join(terms, " AND "), params, nil
}

// ownColumns maps names to bare column names of schema and their declared
// types. Qualified names must name schema itself.
func ownColumns(schema *catalog.Schema, names []string) (cols, types []string, err error) {
	cols = make([]string, len(names))
	types = make([]string, len(names))
	for i, name := range names {
		col := name
		if owner, rest, ok := strings.Cut(name, "."); ok {
			if owner != schema.Name() {
				return nil, nil, queryir.NewUnknownFieldError(schema.Name(), name)
			}
			col = rest
		}
		f, ok := schema.Field(col)
		if !ok {
			return nil, nil, queryir.NewUnknownFieldError(schema.Name(), name)
		}
		cols[i] = catalog.QuoteIdent(f.Name)
		types[i] = f.Type
	}
	return cols, types, nil
}
