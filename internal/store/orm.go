package store

import (
	"context"

	"github.com/roach88/consigne/internal/queryir"
)

// InsertOne compiles and executes a single-row insert.
func (s *Session) InsertOne(ctx context.Context, req queryir.Request, commit bool) (Result, error) {
	stmt, err := s.store.compiler.InsertOne(req)
	if err != nil {
		return Result{}, err
	}
	return s.Execute(ctx, stmt, commit)
}

// InsertMany compiles req.Rows into one multi-row insert and executes it.
func (s *Session) InsertMany(ctx context.Context, req queryir.Request, commit bool) (Result, error) {
	stmt, err := s.store.compiler.InsertMany(req)
	if err != nil {
		return Result{}, err
	}
	return s.Execute(ctx, stmt, commit)
}

// InsertEach compiles a single-row insert from req.Fields and executes it
// once per entry of req.Rows through a prepared statement.
func (s *Session) InsertEach(ctx context.Context, req queryir.Request, commit bool) (Result, error) {
	if err := req.Validate(queryir.KindInsertMany); err != nil {
		return Result{}, err
	}
	one := req
	one.Values = req.Rows[0]
	one.Rows = nil
	stmt, err := s.store.compiler.InsertOne(one)
	if err != nil {
		return Result{}, err
	}
	return s.ExecuteMany(ctx, stmt, req.Rows, commit)
}

// Update compiles and executes an update. Without conditions every row of
// the table is updated.
func (s *Session) Update(ctx context.Context, req queryir.Request, commit bool) (Result, error) {
	stmt, err := s.store.compiler.Update(req)
	if err != nil {
		return Result{}, err
	}
	return s.Execute(ctx, stmt, commit)
}

// Delete compiles and executes a delete. Without conditions every row of
// the table is deleted.
func (s *Session) Delete(ctx context.Context, req queryir.Request, commit bool) (Result, error) {
	stmt, err := s.store.compiler.Delete(req)
	if err != nil {
		return Result{}, err
	}
	return s.Execute(ctx, stmt, commit)
}

// ReadOne returns the first matching record. found is false when no row
// matches.
func (s *Session) ReadOne(ctx context.Context, req queryir.Request) (rec Record, found bool, err error) {
	stmt, err := s.store.compiler.ReadOne(req)
	if err != nil {
		return Record{}, false, err
	}
	res, err := s.Execute(ctx, stmt, false)
	if err != nil {
		return Record{}, false, err
	}
	if len(res.Records) == 0 {
		return Record{}, false, nil
	}
	return res.Records[0], true, nil
}

// ReadMany returns every matching record, up to req.Limit when set.
func (s *Session) ReadMany(ctx context.Context, req queryir.Request) ([]Record, error) {
	stmt, err := s.store.compiler.ReadMany(req)
	if err != nil {
		return nil, err
	}
	res, err := s.Execute(ctx, stmt, false)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run compiles req as kind and executes it.
func (s *Session) Run(ctx context.Context, kind queryir.Kind, req queryir.Request, commit bool) (Result, error) {
	stmt, err := s.store.compiler.Compile(kind, req)
	if err != nil {
		return Result{}, err
	}
	return s.Execute(ctx, stmt, commit)
}
