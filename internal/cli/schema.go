package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/consigne/internal/catalog"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	DB DBOptions
}

// SchemaInfo is the reflected catalog as printed by the schema command.
type SchemaInfo struct {
	Driver    string               `json:"driver"`
	Tables    []TableInfo          `json:"tables"`
	Relations []catalog.FKRelation `json:"relations"`
	Namespace map[string]string    `json:"namespace"`
	Ambiguous map[string][]string  `json:"ambiguous,omitempty"`
}

// TableInfo lists the columns of one table.
type TableInfo struct {
	Name   string          `json:"name"`
	Fields []catalog.Field `json:"fields"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the reflected schema",
		Long: `Show the tables, foreign-key relations and field namespace of a database.

Bare field names in requests resolve through the namespace; names declared
by several tables are listed as ambiguous and need a table prefix.

Example:
  consigne schema --db ./consigne.db
  consigne schema --config consigne.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	addDBFlags(cmd, &opts.DB)
	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	st, err := openStore(cmd.Context(), opts.RootOptions, opts.DB, f)
	if err != nil {
		return err
	}
	defer st.Close()

	info := describeCatalog(st.Catalog())
	info.Driver = st.Driver()

	if f.Format == "json" {
		return f.Success(info)
	}
	writeSchemaText(f, info)
	return nil
}

func describeCatalog(cat *catalog.Catalog) SchemaInfo {
	info := SchemaInfo{
		Tables:    []TableInfo{},
		Relations: []catalog.FKRelation{},
		Namespace: map[string]string{},
		Ambiguous: cat.Ambiguous(),
	}

	for _, name := range cat.Tables() {
		s, _ := cat.Table(name)
		info.Tables = append(info.Tables, TableInfo{Name: name, Fields: s.Fields()})
		for _, rel := range s.Relations() {
			// Each edge is listed once, from its referencing side.
			if rel.Table == name {
				info.Relations = append(info.Relations, rel)
			}
		}
	}

	for _, name := range cat.Names() {
		if ns, err := cat.Resolve(name); err == nil {
			info.Namespace[name] = ns.Table + "." + ns.Field
		}
	}
	return info
}

func writeSchemaText(f *OutputFormatter, info SchemaInfo) {
	w := f.Writer
	fmt.Fprintf(w, "%s %d table(s), %d relation(s) [%s]\n\n", green("✓"), len(info.Tables), len(info.Relations), info.Driver)

	fmt.Fprintln(w, bold("Tables:"))
	for _, t := range info.Tables {
		cols := make([]string, len(t.Fields))
		for i, fld := range t.Fields {
			cols[i] = fld.Name
			if fld.Type != "" {
				cols[i] += " " + faint(fld.Type)
			}
		}
		fmt.Fprintf(w, "  %s(%s)\n", t.Name, strings.Join(cols, ", "))
	}

	if len(info.Relations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Relations:"))
		for _, r := range info.Relations {
			fmt.Fprintf(w, "  %s.%s → %s.%s\n", r.Table, r.Column, r.RefTable, r.RefColumn)
		}
	}

	if len(info.Ambiguous) > 0 {
		names := make([]string, 0, len(info.Ambiguous))
		for name := range info.Ambiguous {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Ambiguous:"))
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(info.Ambiguous[name], ", "))
		}
	}

	if f.Verbose {
		names := make([]string, 0, len(info.Namespace))
		for name := range info.Namespace {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Namespace:"))
		for _, name := range names {
			fmt.Fprintf(w, "  %s → %s\n", name, info.Namespace[name])
		}
	}
}
