package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/consigne/internal/config"
	"github.com/roach88/consigne/internal/consigne"
	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

// DBOptions selects the database for commands that open one. Flags win
// over the database section of --config.
type DBOptions struct {
	Database string
	Driver   string
}

func addDBFlags(cmd *cobra.Command, o *DBOptions) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (overrides database.path)")
	cmd.Flags().StringVar(&o.Driver, "driver", "", "database driver: sqlite3 (cgo) or sqlite (pure Go)")
}

// loadConfig reads --config when given and applies the database flags.
func loadConfig(root *RootOptions, db DBOptions) (config.Config, error) {
	cfg := config.Default()
	if root.Config != "" {
		var err error
		if cfg, err = config.LoadFile(root.Config); err != nil {
			return config.Config{}, err
		}
	}
	if db.Database != "" {
		cfg.Database.Path = db.Database
	}
	if db.Driver != "" {
		cfg.Database.Driver = db.Driver
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore resolves the configuration, installs the logger and opens the
// store. Failures are rendered through f.
func openStore(ctx context.Context, root *RootOptions, db DBOptions, f *OutputFormatter) (*store.Store, error) {
	cfg, err := loadConfig(root, db)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	logger := newLogger(f.GetErrWriter(), root.Verbose, cfg.Log)
	slog.SetDefault(logger)

	opts := cfg.StoreOptions()
	opts.Logger = logger
	if cfg.Database.Bootstrap {
		opts.Prepare = consigne.Bootstrap
	}

	logger.Debug("opening database", "path", opts.Path, "driver", opts.Driver, "env", cfg.Env)
	st, err := store.Open(ctx, opts)
	if err != nil {
		if queryir.IsSchemaNotFound(err) {
			return nil, f.Fail(ExitCommandError, string(queryir.ErrCodeSchemaNotFound),
				fmt.Sprintf("database %s has no tables (run consigne init)", opts.Path), nil)
		}
		return nil, f.Fail(ExitCommandError, ErrCodeOpenFailed, "failed to open database", err)
	}
	logger.Debug("catalog reflected", "tables", len(st.Catalog().Tables()))
	return st, nil
}

// failRequest renders a request loading or compilation error. Query errors
// keep their code and exit with ExitFailure; file errors are command errors.
func failRequest(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = f.Error(loadErr.Code, loadErr.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load request", err)
	}
	if code := queryir.CodeOf(err); code != "" {
		_ = f.Error(string(code), err.Error(), nil)
		return WrapExitError(ExitFailure, "request rejected", err)
	}
	return f.Fail(ExitFailure, ErrCodeGeneric, "request failed", err)
}
