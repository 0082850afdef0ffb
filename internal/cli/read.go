package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/consigne/internal/codec"
	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	DB   DBOptions
	Kind string
}

// ReadResult is the JSON payload of the read command.
type ReadResult struct {
	SQL     string         `json:"sql"`
	Count   int            `json:"count"`
	Records []store.Record `json:"records"`
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read <request-file>",
		Short: "Execute a read request and print the records",
		Long: `Compile a read request, execute it and print the decoded records.

read_one keeps the first matching row; read_many honours the request's
limit. Writes are refused.

Example:
  consigne read --db ./consigne.db lines.yaml
  consigne read --db ./consigne.db --kind read_one deposit.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(opts, args[0], cmd)
		},
	}

	addDBFlags(cmd, &opts.DB)
	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", string(queryir.KindReadMany), "read_one or read_many")

	return cmd
}

func runRead(opts *ReadOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	kind, err := queryir.ParseKind(opts.Kind)
	if err != nil || kind.IsWrite() {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput,
			fmt.Sprintf("--kind must be read_one or read_many, got %q", opts.Kind), nil)
	}

	req, err := LoadRequest(path)
	if err != nil {
		return failRequest(f, err)
	}

	st, err := openStore(cmd.Context(), opts.RootOptions, opts.DB, f)
	if err != nil {
		return err
	}
	defer st.Close()

	stmt, err := st.Compiler().Compile(kind, req)
	if err != nil {
		return failRequest(f, err)
	}
	f.VerboseLog("%s", stmt.SQL)

	session := st.Session()
	defer session.Close()

	res, err := session.Execute(cmd.Context(), stmt, false)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "read failed", err)
	}
	records := res.Records
	if kind == queryir.KindReadOne && len(records) > 1 {
		records = records[:1]
	}

	if f.Format == "json" {
		if records == nil {
			records = []store.Record{}
		}
		return f.Success(ReadResult{SQL: stmt.SQL, Count: len(records), Records: records})
	}
	writeRecords(f, records)
	return nil
}

// writeRecords prints records as an aligned table followed by a row count.
func writeRecords(f *OutputFormatter, records []store.Record) {
	if len(records) == 0 {
		fmt.Fprintln(f.Writer, faint("(no rows)"))
		return
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	cols := records[0].Columns()
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, rec := range records {
		cells := make([]string, len(cols))
		for i, c := range cols {
			v, _ := rec.Get(c)
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	fmt.Fprintln(f.Writer, faint(fmt.Sprintf("(%d row(s))", len(records))))
}

// formatValue renders a decoded column value for text output.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return fmt.Sprintf("x'%x'", x)
	case time.Time:
		return x.Format(codec.TimeFormat)
	case []any, map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}
