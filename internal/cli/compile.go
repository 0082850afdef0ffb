package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/consigne/internal/queryir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	DB   DBOptions
	Kind string
}

// CompiledStatement is the output of the compile command. Params are
// encoded as they would be bound.
type CompiledStatement struct {
	Kind   queryir.Kind `json:"kind"`
	SQL    string       `json:"sql"`
	Params []any        `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request-file>",
		Short: "Compile a request to SQL without executing it",
		Long: `Compile a query request against the reflected schema and print the
SQL text with its parameters. Nothing is executed.

Request files may be YAML, JSON or CUE.

Example:
  consigne compile --db ./consigne.db --kind read_many lines.yaml
  consigne compile --db ./consigne.db --kind update cancel.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addDBFlags(cmd, &opts.DB)
	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", string(queryir.KindReadMany),
		"statement kind: insert_one, insert_many, update, delete, read_one, read_many")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	kind, err := queryir.ParseKind(opts.Kind)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid --kind", err)
	}

	req, err := LoadRequest(path)
	if err != nil {
		return failRequest(f, err)
	}
	f.VerboseLog("Loaded %s request for table %q from %s", kind, req.Table, path)

	st, err := openStore(cmd.Context(), opts.RootOptions, opts.DB, f)
	if err != nil {
		return err
	}
	defer st.Close()

	stmt, err := st.Compiler().Compile(kind, req)
	if err != nil {
		return failRequest(f, err)
	}
	params, err := st.Codecs().EncodeParams(stmt.Types, stmt.Params)
	if err != nil {
		return failRequest(f, err)
	}

	out := CompiledStatement{Kind: kind, SQL: stmt.SQL, Params: params}
	if params == nil {
		out.Params = []any{}
	}

	if f.Format == "json" {
		return f.Success(out)
	}
	fmt.Fprintln(f.Writer, out.SQL)
	fmt.Fprintf(f.Writer, "%s %v\n", faint("params:"), formatParams(out.Params))
	return nil
}

func formatParams(params []any) string {
	vals := make([]any, len(params))
	for i, p := range params {
		if s, ok := p.(string); ok {
			vals[i] = fmt.Sprintf("%q", s)
			continue
		}
		vals[i] = formatValue(p)
	}
	return fmt.Sprint(vals)
}
