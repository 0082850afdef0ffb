package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/consigne/internal/catalog"
	"github.com/roach88/consigne/internal/codec"
	"github.com/roach88/consigne/internal/querysql"
)

// Driver names accepted by Open.
const (
	DriverCgo  = "sqlite3"
	DriverPure = "sqlite"
)

// DefaultTimeout is the busy timeout applied when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// DefaultMaxOpenConns is the pool size of a file database when
// Options.MaxOpenConns is zero. Readers then get their own connection while
// another session holds an open write transaction.
const DefaultMaxOpenConns = 4

// Options configures Open.
type Options struct {
	// Driver is DriverCgo (default) or DriverPure.
	Driver string

	// Path is the database file, or ":memory:". URI query parameters go in
	// Params; a '?' or '#' in Path is part of the file name.
	Path string

	// Timeout is how long a statement waits on a locked database.
	Timeout time.Duration

	// Params are extra DSN query parameters passed to the driver verbatim.
	Params map[string]string

	// MaxOpenConns caps the pool. Zero means DefaultMaxOpenConns for a
	// file and one connection for an in-memory database, which only lives
	// as long as its single connection.
	MaxOpenConns int

	// Logger receives debug logs of executed statements. Nil discards.
	Logger *slog.Logger

	// Codecs decodes columns by declared type. Nil uses codec.NewRegistry().
	Codecs *codec.Registry

	// Prepare runs after the pragmas and before reflection, e.g. to create
	// the schema of a fresh file.
	Prepare func(ctx context.Context, db *sql.DB) error
}

// Store is an open database handle with its reflected catalog.
type Store struct {
	db       *sql.DB
	driver   string
	catalog  *catalog.Catalog
	compiler *querysql.Compiler
	codecs   *codec.Registry
	logger   *slog.Logger
}

// Open connects to the database described by opts, applies the connection
// pragmas and reflects the catalog.
//
// It fails with SCHEMA_NOT_FOUND when the database has no tables; the
// schema must exist before reflection; Options.Prepare can create it.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Driver == "" {
		opts.Driver = DriverCgo
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("open database: path is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	dsn, err := buildDSN(opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxConns := opts.MaxOpenConns
	if maxConns <= 0 {
		maxConns = DefaultMaxOpenConns
		if isMemory(opts.Path) {
			maxConns = 1
		}
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := applyPragmas(ctx, db, opts.Timeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if opts.Prepare != nil {
		if err := opts.Prepare(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to prepare database: %w", err)
		}
	}

	s, err := OpenDB(ctx, db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.driver = opts.Driver
	return s, nil
}

// OpenDB wraps an already configured *sql.DB and reflects its catalog.
// Pragmas are the caller's responsibility.
func OpenDB(ctx context.Context, db *sql.DB, opts Options) (*Store, error) {
	cat, err := catalog.Reflect(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	codecs := opts.Codecs
	if codecs == nil {
		codecs = codec.NewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		db:       db,
		driver:   opts.Driver,
		catalog:  cat,
		compiler: querysql.NewCompiler(cat),
		codecs:   codecs,
		logger:   logger,
	}, nil
}

// buildDSN renders a file: URI with the connection pragmas encoded the way
// each driver expects, so pooled connections opened later inherit them.
func buildDSN(opts Options) (string, error) {
	q := url.Values{}
	ms := opts.Timeout.Milliseconds()

	switch opts.Driver {
	case DriverCgo:
		q.Set("_foreign_keys", "1")
		q.Set("_cslike", "1")
		q.Set("_busy_timeout", fmt.Sprint(ms))
	case DriverPure:
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", "case_sensitive_like(1)")
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", ms))
	default:
		return "", fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	// _pragma is repeatable; a user pragma joins the connection pragmas.
	for k, v := range opts.Params {
		if k == "_pragma" {
			q.Add(k, v)
			continue
		}
		q.Set(k, v)
	}

	path := uriPathEscaper.Replace(strings.TrimPrefix(opts.Path, "file:"))
	return "file:" + path + "?" + q.Encode(), nil
}

// uriPathEscaper escapes the characters that would end the path of a file:
// URI early. SQLite decodes %HH escapes in the path.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// isMemory reports whether path names an in-memory database.
func isMemory(path string) bool {
	return strings.TrimPrefix(path, "file:") == ":memory:"
}

// applyPragmas sets the connection-wide invariants.
func applyPragmas(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA case_sensitive_like = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", timeout.Milliseconds()),
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
// Use with caution - statements run through it bypass sessions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Catalog returns the catalog reflected at open.
func (s *Store) Catalog() *catalog.Catalog {
	return s.catalog
}

// Compiler returns the statement compiler bound to the catalog.
func (s *Store) Compiler() *querysql.Compiler {
	return s.compiler
}

// Codecs returns the codec registry used to decode rows.
func (s *Store) Codecs() *codec.Registry {
	return s.codecs
}

// WithSession runs fn in a new session, committing when fn succeeds and
// rolling back when it fails.
func (s *Store) WithSession(ctx context.Context, fn func(*Session) error) error {
	sess := s.Session()
	if err := fn(sess); err != nil {
		if rbErr := sess.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return sess.Commit()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(ctx context.Context, name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
