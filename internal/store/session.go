package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/consigne/internal/codec"
	"github.com/roach88/consigne/internal/queryir"
)

// Result is the outcome of one Execute or ExecuteMany call.
type Result struct {
	// Records holds rows produced by SELECT or RETURNING.
	Records []Record

	// RowsAffected counts rows changed by a write, or rows returned when
	// the statement produces rows.
	RowsAffected int64

	// LastInsertID is the rowid of the last inserted row, when known.
	LastInsertID int64
}

// Session is a unit of work against the store. It is not safe for
// concurrent use; open one session per goroutine.
type Session struct {
	id    string
	store *Store
	tx    *sql.Tx
}

// Session opens a new session. No transaction starts until the first write.
func (s *Store) Session() *Session {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Session{id: id.String(), store: s}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// InTx reports whether a transaction is pending.
func (s *Session) InTx() bool { return s.tx != nil }

// Execute runs stmt. With commit, the pending transaction commits after
// the statement succeeds. Reads outside a transaction run directly on the
// pool. On failure the transaction is rolled back.
func (s *Session) Execute(ctx context.Context, stmt queryir.Statement, commit bool) (Result, error) {
	params, err := s.store.codecs.EncodeParams(stmt.Types, stmt.Params)
	if err != nil {
		return Result{}, fmt.Errorf("execute %s: %w", stmt.Kind, err)
	}

	s.store.logger.Debug("execute",
		"session", s.id,
		"kind", stmt.Kind,
		"sql", stmt.SQL,
		"params", len(params),
		"commit", commit)

	var q querier = s.store.db
	if stmt.Kind.IsWrite() || s.tx != nil {
		tx, err := s.begin(ctx)
		if err != nil {
			return Result{}, err
		}
		q = tx
	}

	res, err := run(ctx, q, s.store.codecs, stmt.SQL, params)
	if err != nil {
		return Result{}, s.abort(fmt.Errorf("execute %s: %w", stmt.Kind, err))
	}

	if commit {
		if err := s.Commit(); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// ExecuteMany runs stmt once per parameter row inside the session
// transaction, preparing it once. Rows are encoded with stmt.Types; the
// statement's own Params are ignored. Records and affected rows accumulate.
func (s *Session) ExecuteMany(ctx context.Context, stmt queryir.Statement, rows [][]any, commit bool) (Result, error) {
	query := stmt.SQL
	s.store.logger.Debug("execute many",
		"session", s.id,
		"sql", query,
		"rows", len(rows),
		"commit", commit)

	tx, err := s.begin(ctx)
	if err != nil {
		return Result{}, err
	}

	prepared, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return Result{}, s.abort(fmt.Errorf("prepare: %w", err))
	}
	defer prepared.Close()

	var total Result
	for i, row := range rows {
		params, err := s.store.codecs.EncodeParams(stmt.Types, row)
		if err != nil {
			return Result{}, s.abort(fmt.Errorf("row %d: %w", i, err))
		}
		res, err := run(ctx, stmtQuerier{prepared}, s.store.codecs, query, params)
		if err != nil {
			return Result{}, s.abort(fmt.Errorf("execute many row %d: %w", i, err))
		}
		total.Records = append(total.Records, res.Records...)
		total.RowsAffected += res.RowsAffected
		if res.LastInsertID != 0 {
			total.LastInsertID = res.LastInsertID
		}
	}

	if commit {
		if err := s.Commit(); err != nil {
			return Result{}, err
		}
	}
	return total, nil
}

// Commit commits the pending transaction, if any.
func (s *Session) Commit() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.store.logger.Debug("commit", "session", s.id)
	return nil
}

// Rollback discards the pending transaction, if any.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	s.store.logger.Debug("rollback", "session", s.id)
	return nil
}

// Close rolls back anything left uncommitted.
func (s *Session) Close() error {
	return s.Rollback()
}

func (s *Session) begin(ctx context.Context) (*sql.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	return tx, nil
}

// abort rolls back after a failed statement and returns err.
func (s *Session) abort(err error) error {
	if rbErr := s.Rollback(); rbErr != nil {
		return fmt.Errorf("%w (%v)", err, rbErr)
	}
	return err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// stmtQuerier adapts a prepared statement to querier; the query text is
// already bound.
type stmtQuerier struct {
	stmt *sql.Stmt
}

func (q stmtQuerier) QueryContext(ctx context.Context, _ string, args ...any) (*sql.Rows, error) {
	return q.stmt.QueryContext(ctx, args...)
}

func (q stmtQuerier) ExecContext(ctx context.Context, _ string, args ...any) (sql.Result, error) {
	return q.stmt.ExecContext(ctx, args...)
}

// returnsRows reports whether query produces a result set.
func returnsRows(query string) bool {
	head := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(head, "SELECT") ||
		strings.HasPrefix(head, "WITH") ||
		strings.HasPrefix(head, "PRAGMA") ||
		strings.Contains(" "+head+" ", " RETURNING ")
}

func run(ctx context.Context, q querier, codecs *codec.Registry, query string, params []any) (Result, error) {
	if returnsRows(query) {
		rows, err := q.QueryContext(ctx, query, params...)
		if err != nil {
			return Result{}, err
		}
		defer rows.Close()
		records, err := decodeRows(rows, codecs)
		if err != nil {
			return Result{}, err
		}
		return Result{Records: records, RowsAffected: int64(len(records))}, nil
	}

	res, err := q.ExecContext(ctx, query, params...)
	if err != nil {
		return Result{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, fmt.Errorf("rows affected: %w", err)
	}
	lastID, _ := res.LastInsertId()
	return Result{RowsAffected: affected, LastInsertID: lastID}, nil
}
