package oracle

import (
	"fmt"
	"strings"

	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect"
)

// numericFormat is the Oracle number format model shared with the Postgres
// dialect: no grouping, no exponent, leading zero before the decimal point,
// trailing zeros suppressed by FM. Postgres to_char implements the same model,
// which is what makes the two sides' numeric output byte-equal.
const numericFormat = "FM999999999999999990D999999999"

// temporalFormat renders temporal values at millisecond precision. DATE
// columns are cast to TIMESTAMP first so FF3 is legal and yields ".000",
// matching the Postgres side's ".MS" output.
const temporalFormat = `YYYY-MM-DD"T"HH24:MI:SS.FF3`

type Dialect struct{}

func (Dialect) Name() string { return "oracle" }

func (Dialect) ColumnsQuery(schema, table string) (string, []any) {
	q := `SELECT column_name, data_type
FROM all_tab_columns
WHERE owner = :1 AND table_name = :2
ORDER BY column_id`
	return q, []any{strings.ToUpper(schema), strings.ToUpper(table)}
}

func (Dialect) CountQuery(schema, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", schema, table)
}

// Classify buckets an Oracle declared type for canonicalization.
func Classify(dataType string) dialect.Category {
	dt := strings.ToUpper(dataType)
	switch {
	case dt == "DATE" || strings.HasPrefix(dt, "TIMESTAMP"):
		return dialect.CategoryTemporal
	case dt == "NUMBER" || dt == "FLOAT" || dt == "BINARY_FLOAT" || dt == "BINARY_DOUBLE":
		return dialect.CategoryNumeric
	case strings.Contains(dt, "CHAR") || dt == "CLOB" || dt == "NCLOB" || dt == "LONG":
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
	return strings.Join(parts, "||'"+dialect.Separator+"'||"), nil
}

func columnExpr(c dialect.Column) string {
	switch Classify(c.DataType) {
	case dialect.CategoryTemporal:
		return fmt.Sprintf("NVL(TO_CHAR(CAST(%s AS TIMESTAMP),'%s'),'%s')", c.Name, temporalFormat, dialect.NullSentinel)
	case dialect.CategoryNumeric:
		return fmt.Sprintf("NVL(TO_CHAR(%s,'%s'),'%s')", c.Name, numericFormat, dialect.NullSentinel)
	case dialect.CategoryText:
		return fmt.Sprintf("NVL(RTRIM(%s),'%s')", c.Name, dialect.NullSentinel)
	default:
		return fmt.Sprintf("NVL(TO_CHAR(%s),'%s')", c.Name, dialect.NullSentinel)
	}
}

// ChunkSumQuery partitions the table into `chunks` contiguous groups over the
// primary key's native order and sums per-row fingerprints per group. The row
// fingerprint is the first 8 hex characters of MD5 of the canonical string,
// read as an unsigned 32-bit integer, so it is comparable with the Postgres
// side's md5-prefix fingerprint.
func (Dialect) ChunkSumQuery(schema, table, pk string, chunks int, canonicalExpr string) string {
	return fmt.Sprintf(`WITH records AS (
  SELECT NTILE(%d) OVER (ORDER BY %s) AS chunk_id,
         TO_NUMBER(SUBSTR(STANDARD_HASH(%s, 'MD5'), 1, 8), 'XXXXXXXX') AS row_hash
  FROM %s.%s
)
SELECT chunk_id, CAST(SUM(row_hash) AS NUMBER(20)) AS chunk_sum, COUNT(*) AS rows_in_chunk
FROM records
GROUP BY chunk_id
ORDER BY chunk_id`, chunks, pk, canonicalExpr, schema, table)
}

// TableSpecsQuery lists every table in an owner schema together with its
// primary key column, from the source-engine constraint catalog. Bind :1 is
// the upper-cased owner.
func (Dialect) TableSpecsQuery() string {
	return `SELECT t.owner, t.table_name, c.column_name
FROM all_tables t
JOIN all_cons_columns c ON t.owner = c.owner AND t.table_name = c.table_name
JOIN all_constraints k ON c.owner = k.owner AND c.table_name = k.table_name AND c.constraint_name = k.constraint_name
WHERE k.constraint_type = 'P' AND t.owner = :1
ORDER BY t.table_name`
}
