package harness

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/consigne/internal/consigne"
	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

// ErrCodeExecution tags step failures that carry no query error code,
// such as constraint violations.
const ErrCodeExecution = "EXECUTION"

// Harness is the scenario execution engine. It holds the per-scenario
// store and session.
type Harness struct {
	store    *store.Store
	session  *store.Session
	logger   *slog.Logger
	scenario string
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sends per-step debug logs, and the store's statement logs, to
// l. Without it Run logs nothing.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create the database and its schema
// 2. For each step: normalize, compile, execute, check expectations
// 3. Return result with pass/fail, trace, and errors
//
// The returned error is reserved for infrastructure failures; expectation
// mismatches are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	ddl := consigne.Schema()
	if scenario.Schema != "" {
		data, err := os.ReadFile(scenario.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		ddl = string(data)
	}

	st, err := store.Open(ctx, store.Options{
		Driver: scenario.Driver,
		Path:   ":memory:",
		Logger: h.logger,
		Prepare: func(ctx context.Context, db *sql.DB) error {
			_, err := db.ExecContext(ctx, ddl)
			return err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h.store = st
	h.session = st.Session()
	h.scenario = scenario.Name
	defer h.session.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i+1, step, result)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) {
	event := TraceEvent{Step: n, Op: step.Op}
	records, err := h.run(ctx, step, &event)
	if err != nil {
		event.Error = errorCode(err)
	}
	result.Trace = append(result.Trace, event)

	h.logger.Debug("step", "scenario", h.scenario, "n", n, "op", step.Op, "sql", event.SQL, "rows", event.Rows, "error", event.Error)

	for _, msg := range checkStep(step, event, records, err) {
		result.AddError(fmt.Sprintf("step %d (%s): %s", n, step.Op, msg))
	}
}

// run compiles and executes one step, filling the trace event as it goes.
func (h *Harness) run(ctx context.Context, step Step, event *TraceEvent) ([]store.Record, error) {
	kind, err := queryir.ParseKind(step.Op)
	if err != nil {
		return nil, err
	}
	req, err := NormalizeRequest(step.Request)
	if err != nil {
		return nil, err
	}

	stmt, err := h.store.Compiler().Compile(kind, req)
	if err != nil {
		return nil, err
	}
	event.SQL = stmt.SQL
	if event.Params, err = h.store.Codecs().EncodeParams(stmt.Types, stmt.Params); err != nil {
		return nil, err
	}

	res, err := h.session.Execute(ctx, stmt, step.ShouldCommit())
	if err != nil {
		return nil, err
	}
	event.Rows = res.RowsAffected
	return res.Records, nil
}

// NormalizeRequest canonicalizes the textual parts of a request loaded
// from a file: operator spelling and conflict policy case.
func NormalizeRequest(req queryir.Request) (queryir.Request, error) {
	if len(req.Conditions) > 0 {
		conds := make([]queryir.Condition, len(req.Conditions))
		for i, c := range req.Conditions {
			op, err := queryir.ParseOperator(string(c.Op))
			if err != nil {
				return req, err
			}
			c.Op = op
			conds[i] = c
		}
		req.Conditions = conds
	}
	if req.OnConflict != "" {
		p, err := queryir.ParseOnConflict(string(req.OnConflict))
		if err != nil {
			return req, err
		}
		req.OnConflict = p
	}
	return req, nil
}

func errorCode(err error) string {
	if code := queryir.CodeOf(err); code != "" {
		return string(code)
	}
	return ErrCodeExecution
}
