package postgres

import (
	"fmt"
	"strings"

	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect"
)

// numericFormat matches the Oracle dialect's number format model. Postgres
// to_char is modeled on Oracle's, so the same model yields byte-equal output.
const numericFormat = "FM999999999999999990D999999999"

// temporalFormat is the Postgres spelling of millisecond precision; Oracle
// uses FF3 for the same three digits.
const temporalFormat = `YYYY-MM-DD"T"HH24:MI:SS.MS`

type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) ColumnsQuery(schema, table string) (string, []any) {
	q := `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
	return q, []any{schema, table}
}

func (Dialect) CountQuery(schema, table string) string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM %s."%s"`, schema, table)
}

// Classify buckets a Postgres declared type (information_schema spelling)
// for canonicalization.
func Classify(dataType string) dialect.Category {
	dt := strings.ToLower(dataType)
	switch {
	case dt == "date" || strings.Contains(dt, "timestamp"):
		return dialect.CategoryTemporal
	case dt == "numeric" || dt == "integer" || dt == "bigint" || dt == "smallint" ||
		dt == "real" || dt == "double precision" || dt == "money":
		return dialect.CategoryNumeric
	case strings.Contains(dt, "char") || dt == "text":
		return dialect.CategoryText
	default:
		return dialect.CategoryOther
	}
}

func (Dialect) CanonicalExpr(cols []dialect.Column) (string, error) {
	if len(cols) == 0 {
		return "", dialect.ErrNoColumns
	}
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, columnExpr(c))
	}
	return strings.Join(parts, " || '"+dialect.Separator+"' || "), nil
}

func columnExpr(c dialect.Column) string {
	col := `"` + c.Name + `"`
	switch Classify(c.DataType) {
	case dialect.CategoryTemporal:
		return fmt.Sprintf("coalesce(to_char(%s::timestamp, '%s'), '%s')", col, temporalFormat, dialect.NullSentinel)
	case dialect.CategoryNumeric:
		return fmt.Sprintf("coalesce(to_char(%s::numeric, '%s'), '%s')", col, numericFormat, dialect.NullSentinel)
	case dialect.CategoryText:
		return fmt.Sprintf("coalesce(rtrim(%s::text), '%s')", col, dialect.NullSentinel)
	default:
		return fmt.Sprintf("coalesce(%s::text, '%s')", col, dialect.NullSentinel)
	}
}

// ChunkSumQuery mirrors the Oracle dialect: NTILE over the primary key's
// native order, per-row fingerprint from the first 8 hex characters of md5.
// bit(32)::bigint zero-extends, so the fingerprint is read unsigned.
func (Dialect) ChunkSumQuery(schema, table, pk string, chunks int, canonicalExpr string) string {
	return fmt.Sprintf(`WITH records AS (
  SELECT ntile(%d) OVER (ORDER BY "%s") AS chunk_id,
         ('x'||substr(md5(%s),1,8))::bit(32)::bigint AS row_hash
  FROM %s."%s"
)
SELECT chunk_id, sum(row_hash)::bigint AS chunk_sum, count(*) AS rows_in_chunk
FROM records
GROUP BY chunk_id
ORDER BY chunk_id`, chunks, pk, canonicalExpr, schema, table)
}

// ResetQuery rolls back the aborted transaction a failed statement leaves
// behind on a Postgres connection; subsequent statements error until then.
func (Dialect) ResetQuery() string { return "ROLLBACK" }

// FKOrphanSQLQuery returns the catalog query that yields one executable
// orphan-count statement per single-column foreign key in a schema ($1).
// Each generated statement returns (fk_name, orphan_rows).
func (Dialect) FKOrphanSQLQuery() string {
	return `WITH fks AS (
  SELECT conname,
         nsp.nspname AS child_schema,  rel.relname AS child_table,
         nspp.nspname AS parent_schema, relp.relname AS parent_table,
         a.attname   AS child_col,
         ap.attname  AS parent_col
  FROM pg_constraint c
  JOIN pg_class rel      ON rel.oid  = c.conrelid
  JOIN pg_namespace nsp  ON nsp.oid  = rel.relnamespace
  JOIN pg_class relp     ON relp.oid = c.confrelid
  JOIN pg_namespace nspp ON nspp.oid = relp.relnamespace
  JOIN LATERAL unnest(c.conkey)  WITH ORDINALITY AS ck(attnum, ord) ON true
  JOIN LATERAL unnest(c.confkey) WITH ORDINALITY AS pk(attnum, ord) ON pk.ord = ck.ord
  JOIN pg_attribute a  ON a.attrelid  = rel.oid  AND a.attnum  = ck.attnum
  JOIN pg_attribute ap ON ap.attrelid = relp.oid AND ap.attnum = pk.attnum
  WHERE c.contype = 'f' AND nsp.nspname = $1
)
SELECT format(
  $$SELECT '%s' AS fk_name, count(*) AS orphan_rows
    FROM %I.%I c
    LEFT JOIN %I.%I p ON c.%I = p.%I
    WHERE p.%I IS NULL AND c.%I IS NOT NULL$$,
  conname, child_schema, child_table, parent_schema, parent_table, child_col, parent_col, parent_col, child_col)
FROM fks`
}
