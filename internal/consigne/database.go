package consigne

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL Bootstrap applies.
func Schema() string { return schemaSQL }

// ErrNotFound is returned when an update targets a row that does not exist.
var ErrNotFound = errors.New("consigne: not found")

// Clock supplies the timestamps written to activity and datetime columns.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Database is the deposit-return application database.
type Database struct {
	store     *store.Store
	session   *store.Session
	clock     Clock
	logger    *slog.Logger
	bootstrap bool
}

// Option configures a Database.
type Option func(*Database)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(d *Database) { d.clock = c }
}

// WithLogger sets the logger for application events.
func WithLogger(l *slog.Logger) Option {
	return func(d *Database) { d.logger = l }
}

// WithBootstrap creates the schema when the database file has no tables.
func WithBootstrap() Option {
	return func(d *Database) { d.bootstrap = true }
}

// Open opens the store described by opts and wraps it.
func Open(ctx context.Context, opts store.Options, options ...Option) (*Database, error) {
	d := newDatabase(options)
	if d.bootstrap {
		prepare := opts.Prepare
		opts.Prepare = func(ctx context.Context, db *sql.DB) error {
			if prepare != nil {
				if err := prepare(ctx, db); err != nil {
					return err
				}
			}
			return Bootstrap(ctx, db)
		}
	}
	if opts.Logger == nil {
		opts.Logger = d.logger
	}

	st, err := store.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	d.store = st
	return d, nil
}

// New wraps an open store.
func New(st *store.Store, options ...Option) *Database {
	d := newDatabase(options)
	d.store = st
	return d
}

func newDatabase(options []Option) *Database {
	d := &Database{
		clock:  systemClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Bootstrap creates the deposit-return schema when db has no user tables.
// A database that already has tables is left untouched.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'").Scan(&n)
	if err != nil {
		return fmt.Errorf("count tables: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Store returns the underlying store.
func (d *Database) Store() *store.Store { return d.store }

// Close closes the underlying store.
func (d *Database) Close() error { return d.store.Close() }

// Tx runs fn with a Database bound to one session. Every call made through
// tx joins the same transaction, which commits when fn returns nil and rolls
// back otherwise. Reads through tx see its uncommitted writes. Calling Tx on
// a bound Database runs fn in the enclosing transaction.
func (d *Database) Tx(ctx context.Context, fn func(tx *Database) error) error {
	if d.session != nil {
		return fn(d)
	}
	return d.store.WithSession(ctx, func(s *store.Session) error {
		bound := *d
		bound.session = s
		return fn(&bound)
	})
}

// exec runs fn in a committed session, or in the bound session of Tx.
func (d *Database) exec(ctx context.Context, fn func(*store.Session) error) error {
	if d.session != nil {
		return fn(d.session)
	}
	return d.store.WithSession(ctx, fn)
}

// readOne runs a read outside any transaction unless d is bound by Tx.
func (d *Database) readOne(ctx context.Context, req queryir.Request) (store.Record, bool, error) {
	if d.session != nil {
		return d.session.ReadOne(ctx, req)
	}
	sess := d.store.Session()
	defer sess.Close()
	return sess.ReadOne(ctx, req)
}

func (d *Database) readMany(ctx context.Context, req queryir.Request) ([]store.Record, error) {
	if d.session != nil {
		return d.session.ReadMany(ctx, req)
	}
	sess := d.store.Session()
	defer sess.Close()
	return sess.ReadMany(ctx, req)
}

// mustAffect turns a zero-row write into ErrNotFound.
func mustAffect(res store.Result, what string) error {
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
