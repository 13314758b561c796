package dialect

import "errors"

// NullSentinel replaces NULL in canonical row strings. It must be a value no
// column legitimately encodes, otherwise a NULL and that value fingerprint
// identically. Both engines must use the same sentinel.
const NullSentinel = "∅"

// Separator joins per-column canonical values in ordinal order.
const Separator = "|"

// ErrNoColumns is returned when a canonical expression is requested for a
// table with zero introspectable columns.
var ErrNoColumns = errors.New("no columns to build canonical expression from")

// Column is one table column as reported by engine metadata. Slices of Column
// are always in ordinal position order; that order is the concatenation order
// and must match across engines for the same table.
type Column struct {
	Name     string
	DataType string
}

// Category buckets a declared column type for canonicalization.
type Category int

const (
	CategoryTemporal Category = iota
	CategoryNumeric
	CategoryText
	CategoryOther
)

// Dialect generates the engine-specific SQL consumed by the reconciliation
// core. Canonical expressions from two dialects must evaluate to byte-equal
// strings for equal logical values, or chunk fingerprints are not comparable.
type Dialect interface {
	Name() string

	// ColumnsQuery lists a table's columns in ordinal order as
	// (column_name, data_type) rows.
	ColumnsQuery(schema, table string) (query string, args []any)

	// CountQuery returns an exact row count query for the table.
	CountQuery(schema, table string) string

	// CanonicalExpr builds the one-text-value-per-row concatenation
	// expression for the given columns. Returns ErrNoColumns when cols is
	// empty; never returns a partial expression.
	CanonicalExpr(cols []Column) (string, error)

	// ChunkSumQuery returns a query emitting one
	// (chunk_id, chunk_sum, rows_in_chunk) row per non-empty chunk, with
	// chunk membership assigned by an NTILE partition over the primary
	// key's native ordering and chunk_sum the 64-bit sum of unsigned
	// 32-bit row fingerprints of canonicalExpr.
	ChunkSumQuery(schema, table, pk string, chunks int, canonicalExpr string) string
}

// TxResetter is implemented by dialects whose engine leaves a connection's
// transaction aborted after a failed statement until it is explicitly rolled
// back. The core runs ResetQuery after any failed statement on such engines
// so the connection stays usable for the next table.
type TxResetter interface {
	ResetQuery() string
}
