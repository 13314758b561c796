package recon

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect"
)

// Querier is the subset of *sql.DB the core needs. Connection establishment
// and pooling stay with the caller.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Side binds one engine's connection to its SQL dialect. Name tags chunk
// results and report rows ("ORA", "PG").
type Side struct {
	Name    string
	DB      Querier
	Dialect dialect.Dialect
	Timeout time.Duration
	Log     *zap.SugaredLogger
}

func (s *Side) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// Count runs the cheap exact row count probe.
func (s *Side) Count(ctx context.Context, schema, table string) (int64, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var n int64
	err := s.DB.QueryRowContext(ctx, s.Dialect.CountQuery(schema, table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count %s.%s on %s: %v", ErrQuery, schema, table, s.Name, err)
	}
	return n, nil
}

// Columns fetches the table's column metadata in ordinal order.
func (s *Side) Columns(ctx context.Context, schema, table string) ([]dialect.Column, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	q, args := s.Dialect.ColumnsQuery(schema, table)
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: columns of %s.%s on %s: %v", ErrQuery, schema, table, s.Name, err)
	}
	defer rows.Close()

	var cols []dialect.Column
	for rows.Next() {
		var c dialect.Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, fmt.Errorf("%w: scan columns of %s.%s on %s: %v", ErrQuery, schema, table, s.Name, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: columns of %s.%s on %s: %v", ErrQuery, schema, table, s.Name, err)
	}
	return cols, nil
}

// ChunkSums computes the ordered set of chunk results for the table on this
// side: column metadata, canonical expression, then the chunked checksum
// query. An empty table yields zero results.
func (s *Side) ChunkSums(ctx context.Context, schema, table, pk string, chunks int) ([]ChunkResult, error) {
	cols, err := s.Columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	expr, err := s.Dialect.CanonicalExpr(cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s on %s: %v", ErrSchemaMismatch, schema, table, s.Name, err)
	}
	if s.Log != nil {
		s.Log.Debugw("canonical expression built", "side", s.Name, "schema", schema, "table", table, "columns", len(cols))
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	q := s.Dialect.ChunkSumQuery(schema, table, pk, chunks, expr)
	rows, err := s.DB.QueryContext(qctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk sums of %s.%s on %s: %v", ErrQuery, schema, table, s.Name, err)
	}
	defer rows.Close()

	var out []ChunkResult
	for rows.Next() {
		var (
			id      int
			sum     int64
			inChunk int64
		)
		if err := rows.Scan(&id, &sum, &inChunk); err != nil {
			return nil, fmt.Errorf("%w: scan chunk sums of %s.%s on %s: %v", ErrQuery, schema, table, s.Name, err)
		}
		out = append(out, ChunkResult{
			Side:    s.Name,
			Schema:  schema,
			Table:   table,
			ChunkID: id,
			Sum:     uint64(sum),
			Rows:    inChunk,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: chunk sums of %s.%s on %s: %v", ErrQuery, schema, table, s.Name, err)
	}
	return out, nil
}

// Reset clears any aborted transaction state a failed statement left on the
// connection, for engines that need it. Errors are logged, not returned; a
// reset failure surfaces on the next table's queries anyway.
func (s *Side) Reset(ctx context.Context) {
	r, ok := s.Dialect.(dialect.TxResetter)
	if !ok {
		return
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if _, err := s.DB.ExecContext(ctx, r.ResetQuery()); err != nil && s.Log != nil {
		s.Log.Warnw("transaction reset failed", "side", s.Name, "error", err)
	}
}
