package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/consigne/internal/consigne"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	DB DBOptions
}

// InitResult is the JSON payload of the init command.
type InitResult struct {
	Path   string   `json:"path"`
	Driver string   `json:"driver"`
	Tables []string `json:"tables"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the deposit-return schema",
		Long: `Create the deposit-return tables in a database file.

The schema is only created when the database has no tables; an existing
database is opened and reflected unchanged.

Example:
  consigne init --db ./consigne.db
  consigne init --config consigne.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	addDBFlags(cmd, &opts.DB)
	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := loadConfig(opts.RootOptions, opts.DB)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	logger := newLogger(f.GetErrWriter(), opts.Verbose, cfg.Log)
	slog.SetDefault(logger)

	storeOpts := cfg.StoreOptions()
	storeOpts.Logger = logger

	db, err := consigne.Open(cmd.Context(), storeOpts, consigne.WithBootstrap(), consigne.WithLogger(logger))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeOpenFailed, "failed to initialize database", err)
	}
	defer db.Close()

	st := db.Store()
	result := InitResult{Path: cfg.Database.Path, Driver: st.Driver(), Tables: st.Catalog().Tables()}
	logger.Info("database ready", "path", result.Path, "tables", len(result.Tables))

	if f.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "%s Initialized %s (%d tables)\n", green("✓"), result.Path, len(result.Tables))
	return nil
}
