package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/consigne/internal/queryir"
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QuoteIdent returns name unchanged when it is a plain identifier and
// double-quoted otherwise. Names only ever come from the catalog.
func QuoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Namespace binds a resolvable field name to its owning table and column.
type Namespace struct {
	Table string `json:"table"`
	Field string `json:"field"`
	Type  string `json:"type"`
}

// Select returns the qualified column reference, e.g. users.user_code.
func (n Namespace) Select() string {
	return QuoteIdent(n.Table) + "." + QuoteIdent(n.Field)
}

// Where renders one condition fragment and the values it binds.
//
// IN and NOT IN expand to one placeholder per element, in input order.
// Every other operator binds a single placeholder.
func (n Namespace) Where(op queryir.Operator, value any) (string, []any, error) {
	if !op.Valid() {
		return "", nil, queryir.NewUnknownOperatorError(string(op))
	}

	if op.IsMembership() {
		elems, ok := queryir.Elements(value)
		if !ok {
			return "", nil, queryir.NewMissingArgumentsError("", n.Table,
				fmt.Sprintf("%s on %q needs a list value, got %T", op, n.Field, value))
		}
		return fmt.Sprintf("%s %s (%s)", n.Select(), op.SQL(), Placeholders(len(elems))), elems, nil
	}

	if op.FoldsCase() {
		return fmt.Sprintf("lower(%s) %s lower(?)", n.Select(), op.SQL()), []any{value}, nil
	}
	return fmt.Sprintf("%s %s ?", n.Select(), op.SQL()), []any{value}, nil
}

// Placeholders returns n comma-separated "?" marks.
func Placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// buildNamespace registers every column name that is not a foreign key
// column on any table. A name used as an FK somewhere is reachable only
// through its target table or a qualified name.
func (c *Catalog) buildNamespace() {
	fkNames := make(map[string]bool)
	for _, name := range c.order {
		for col := range c.schemas[name].fkColumns {
			fkNames[col] = true
		}
	}
	for _, name := range c.order {
		s := c.schemas[name]
		for _, f := range s.fields {
			if fkNames[f.Name] {
				continue
			}
			if owners, dup := c.ambiguous[f.Name]; dup {
				c.ambiguous[f.Name] = append(owners, name)
				continue
			}
			if prev, taken := c.entries[f.Name]; taken {
				c.ambiguous[f.Name] = []string{prev.Table, name}
				delete(c.entries, f.Name)
				continue
			}
			c.entries[f.Name] = Namespace{Table: name, Field: f.Name, Type: f.Type}
		}
	}
}

// Resolve maps a short or qualified field name to its namespace without a
// target table.
func (c *Catalog) Resolve(name string) (Namespace, error) {
	return c.ResolveFor("", name)
}

// ResolveFor maps name to a namespace for a request targeting table.
//
// Resolution order: a qualified table.column name, then a column of the
// target table (foreign keys included), then the global namespace.
func (c *Catalog) ResolveFor(table, name string) (Namespace, error) {
	key := norm.NFC.String(strings.TrimSpace(name))

	if owner, col, ok := strings.Cut(key, "."); ok {
		s, found := c.Table(owner)
		if !found {
			return Namespace{}, queryir.NewUnknownTableError(owner)
		}
		f, found := s.Field(col)
		if !found {
			return Namespace{}, queryir.NewUnknownFieldError(s.name, name)
		}
		return Namespace{Table: s.name, Field: f.Name, Type: f.Type}, nil
	}

	if table != "" {
		if s, ok := c.Table(table); ok {
			if f, ok := s.Field(key); ok {
				return Namespace{Table: s.name, Field: f.Name, Type: f.Type}, nil
			}
		}
	}

	if ns, ok := c.entries[key]; ok {
		return ns, nil
	}
	if owners, ok := c.ambiguous[key]; ok {
		return Namespace{}, queryir.NewNamespaceCollisionError(name, append([]string(nil), owners...))
	}
	return Namespace{}, queryir.NewUnknownFieldError(table, name)
}

// Names returns every unambiguous short name, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.entries))
	for name := range c.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ambiguous returns short names declared by several tables, with their owners.
func (c *Catalog) Ambiguous() map[string][]string {
	out := make(map[string][]string, len(c.ambiguous))
	for name, owners := range c.ambiguous {
		out[name] = append([]string(nil), owners...)
	}
	return out
}
