package recon

// Test harness: an in-memory sqlite engine stands in for a real side. A
// registered hash32 SQL function mirrors the production fingerprint (first
// 32 bits of MD5, unsigned), so the executor and orchestrator run the real
// query path end to end without Oracle or Postgres.

import (
	"context"
	"crypto/md5"
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"

	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect"
)

var registerHashOnce sync.Once

func registerHash32() {
	registerHashOnce.Do(func() {
		_ = sqlite.RegisterDeterministicScalarFunction("hash32", 1, hash32Impl)
	})
}

func hash32Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("hash32: expected 1 argument, got %d", len(args))
	}
	var s string
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil, fmt.Errorf("hash32: unsupported argument type %T", args[0])
	}
	sum := md5.Sum([]byte(s))
	return int64(binary.BigEndian.Uint32(sum[:4])), nil
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) ColumnsQuery(schema, table string) (string, []any) {
	return `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, []any{table}
}

func (sqliteDialect) CountQuery(schema, table string) string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM %s."%s"`, schema, table)
}

func (sqliteDialect) CanonicalExpr(cols []dialect.Column) (string, error) {
	if len(cols) == 0 {
		return "", dialect.ErrNoColumns
	}
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf(`coalesce(CAST("%s" AS TEXT),'%s')`, c.Name, dialect.NullSentinel))
	}
	return strings.Join(parts, " || '"+dialect.Separator+"' || "), nil
}

func (sqliteDialect) ChunkSumQuery(schema, table, pk string, chunks int, canonicalExpr string) string {
	return fmt.Sprintf(`WITH records AS (
  SELECT NTILE(%d) OVER (ORDER BY "%s") AS chunk_id,
         hash32(%s) AS row_hash
  FROM %s."%s"
)
SELECT chunk_id, SUM(row_hash) AS chunk_sum, COUNT(*) AS rows_in_chunk
FROM records
GROUP BY chunk_id
ORDER BY chunk_id`, chunks, pk, canonicalExpr, schema, table)
}

// resetLogDialect additionally records every transaction reset into a table,
// so tests can observe the orchestrator's recovery behavior.
type resetLogDialect struct {
	sqliteDialect
}

func (resetLogDialect) ResetQuery() string {
	return `INSERT INTO reset_log(n) VALUES (1)`
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	registerHash32()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// in-memory sqlite is per-connection; keep the pool to one
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSide(t *testing.T, name string, d dialect.Dialect) *Side {
	t.Helper()
	return &Side{
		Name:    name,
		DB:      openTestDB(t),
		Dialect: d,
		Log:     zap.NewNop().Sugar(),
	}
}

// seedOrders creates an ORDERS-like table with n rows (id 1..n) and a status
// column derived from the id.
func seedOrders(t *testing.T, db Querier, table string, n int) {
	t.Helper()
	mustExec(t, db, fmt.Sprintf(
		`CREATE TABLE "%s" (order_id INTEGER PRIMARY KEY, status TEXT, amount REAL)`, table))
	for i := 1; i <= n; i++ {
		mustExec(t, db, fmt.Sprintf(
			`INSERT INTO "%s" (order_id, status, amount) VALUES (%d, 'status-%d', %d.5)`, table, i, i%5, i))
	}
}

func mustExec(t *testing.T, db Querier, stmt string) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), stmt)
	require.NoError(t, err)
}
