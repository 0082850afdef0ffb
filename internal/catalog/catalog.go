package catalog

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/consigne/internal/queryir"
)

// Field is one physical column.
type Field struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

// FKRelation is one foreign-key edge: Table.Column references
// RefTable.RefColumn. Joinability is symmetric.
type FKRelation struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// Other returns the endpoint that is not table.
func (r FKRelation) Other(table string) string {
	if r.Table == table {
		return r.RefTable
	}
	return r.Table
}

// JoinClause renders the clause that brings joining into a statement whose
// FROM list already contains the other endpoint.
//
//	JOIN deposits ON deposit_lines.deposit_id = deposits.deposit_id
func (r FKRelation) JoinClause(joining string) string {
	return fmt.Sprintf("JOIN %s ON %s.%s = %s.%s",
		QuoteIdent(joining),
		QuoteIdent(r.Table), QuoteIdent(r.Column),
		QuoteIdent(r.RefTable), QuoteIdent(r.RefColumn))
}

// Schema describes one table. It is immutable once built.
type Schema struct {
	name      string
	fields    []Field
	index     map[string]int
	relations map[string]FKRelation
	fkColumns map[string]bool
}

// Name returns the table name.
func (s *Schema) Name() string { return s.name }

// Fields returns the columns in declared order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Columns returns the column names in declared order.
func (s *Schema) Columns() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Field looks up a column by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[norm.NFC.String(name)]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// IsForeignKey reports whether column references another table.
func (s *Schema) IsForeignKey(column string) bool {
	return s.fkColumns[norm.NFC.String(column)]
}

// Relation returns the FK edge linking this table and other, in either direction.
func (s *Schema) Relation(other string) (FKRelation, bool) {
	r, ok := s.relations[norm.NFC.String(other)]
	return r, ok
}

// Related returns the names of directly joinable tables, sorted.
func (s *Schema) Related() []string {
	out := make([]string, 0, len(s.relations))
	for name := range s.relations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Relations returns every FK edge touching this table, ordered by the other
// table's name.
func (s *Schema) Relations() []FKRelation {
	names := s.Related()
	out := make([]FKRelation, len(names))
	for i, n := range names {
		out[i] = s.relations[n]
	}
	return out
}

// TableInfo is the raw metadata of one table, as reflected.
type TableInfo struct {
	Name        string
	Columns     []Field
	ForeignKeys []FKRelation
}

// Catalog is the reflected database: schemas plus the namespace index.
type Catalog struct {
	order     []string
	schemas   map[string]*Schema
	forward   map[string]map[string]FKRelation
	reverse   map[string]map[string]FKRelation
	entries   map[string]Namespace
	ambiguous map[string][]string
}

// Build assembles a Catalog from reflected metadata in one pass. It fails
// with SCHEMA_NOT_FOUND when tables is empty.
//
// Foreign keys whose referenced table is absent are kept as FK columns but
// produce no relation. A foreign key without an explicit referenced column
// targets the referenced table's primary key.
func Build(tables []TableInfo) (*Catalog, error) {
	if len(tables) == 0 {
		return nil, queryir.NewSchemaNotFoundError()
	}

	c := &Catalog{
		schemas:   make(map[string]*Schema, len(tables)),
		forward:   make(map[string]map[string]FKRelation),
		reverse:   make(map[string]map[string]FKRelation),
		entries:   make(map[string]Namespace),
		ambiguous: make(map[string][]string),
	}

	for _, t := range tables {
		name := norm.NFC.String(t.Name)
		if _, dup := c.schemas[name]; dup {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}
		s := &Schema{
			name:      name,
			fields:    make([]Field, len(t.Columns)),
			index:     make(map[string]int, len(t.Columns)),
			relations: make(map[string]FKRelation),
			fkColumns: make(map[string]bool),
		}
		for i, f := range t.Columns {
			f.Name = norm.NFC.String(f.Name)
			s.fields[i] = f
			s.index[f.Name] = i
		}
		c.order = append(c.order, name)
		c.schemas[name] = s
	}

	for _, t := range tables {
		owner := c.schemas[norm.NFC.String(t.Name)]
		for _, fk := range sortedByColumn(owner, t.ForeignKeys) {
			fk.Table = owner.name
			fk.Column = norm.NFC.String(fk.Column)
			fk.RefTable = norm.NFC.String(fk.RefTable)
			owner.fkColumns[fk.Column] = true

			ref, ok := c.schemas[fk.RefTable]
			if !ok || ref == owner {
				continue
			}
			if fk.RefColumn == "" {
				fk.RefColumn = primaryKey(ref)
				if fk.RefColumn == "" {
					continue
				}
			}
			fk.RefColumn = norm.NFC.String(fk.RefColumn)
			c.link(owner, ref, fk)
		}
	}

	c.buildNamespace()
	return c, nil
}

// link records fk from both endpoints unless the pair is already linked.
func (c *Catalog) link(owner, ref *Schema, fk FKRelation) {
	if _, linked := owner.relations[ref.name]; linked {
		return
	}
	if c.forward[owner.name] == nil {
		c.forward[owner.name] = make(map[string]FKRelation)
	}
	if c.reverse[ref.name] == nil {
		c.reverse[ref.name] = make(map[string]FKRelation)
	}
	c.forward[owner.name][ref.name] = fk
	c.reverse[ref.name][owner.name] = fk
	owner.relations[ref.name] = fk
	ref.relations[owner.name] = fk
}

// sortedByColumn orders fks by the declared position of their column so
// the first-declared FK wins a table pair.
func sortedByColumn(s *Schema, fks []FKRelation) []FKRelation {
	out := make([]FKRelation, len(fks))
	copy(out, fks)
	pos := func(col string) int {
		if i, ok := s.index[norm.NFC.String(col)]; ok {
			return i
		}
		return len(s.fields)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return pos(out[i].Column) < pos(out[j].Column)
	})
	return out
}

func primaryKey(s *Schema) string {
	for _, f := range s.fields {
		if f.PrimaryKey {
			return f.Name
		}
	}
	return ""
}

// Table returns the schema for name.
func (c *Catalog) Table(name string) (*Schema, bool) {
	s, ok := c.schemas[norm.NFC.String(name)]
	return s, ok
}

// MustTable returns the schema for name or an UNKNOWN_TABLE error.
func (c *Catalog) MustTable(name string) (*Schema, error) {
	s, ok := c.Table(name)
	if !ok {
		return nil, queryir.NewUnknownTableError(name)
	}
	return s, nil
}

// Tables returns the table names in reflection order.
func (c *Catalog) Tables() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Relation returns the FK edge between a and b, whichever side owns it.
func (c *Catalog) Relation(a, b string) (FKRelation, bool) {
	a, b = norm.NFC.String(a), norm.NFC.String(b)
	if r, ok := c.forward[a][b]; ok {
		return r, true
	}
	r, ok := c.reverse[a][b]
	return r, ok
}

// Neighbors returns the tables directly joinable to name, sorted.
func (c *Catalog) Neighbors(name string) []string {
	s, ok := c.Table(name)
	if !ok {
		return nil
	}
	return s.Related()
}

// IsForeignKey reports whether table.column is a foreign-key column.
func (c *Catalog) IsForeignKey(table, column string) bool {
	s, ok := c.Table(table)
	return ok && s.IsForeignKey(column)
}

// String summarizes the catalog, one table per line.
func (c *Catalog) String() string {
	var b strings.Builder
	for _, name := range c.order {
		s := c.schemas[name]
		fmt.Fprintf(&b, "%s(%s)", name, strings.Join(s.Columns(), ", "))
		if rel := s.Related(); len(rel) > 0 {
			fmt.Fprintf(&b, " -> %s", strings.Join(rel, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
