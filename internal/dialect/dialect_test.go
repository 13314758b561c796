package dialect_test

// Cross-engine canonical equivalence: for one logical column the two
// dialects must agree on the null sentinel, the separator, and the number
// format model, otherwise identical data fingerprints differently.

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect"
	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect/oracle"
	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect/postgres"
)

func TestNumericFormatModelsAgree(t *testing.T) {
	oraExpr, err := oracle.Dialect{}.CanonicalExpr([]dialect.Column{{Name: "N", DataType: "NUMBER"}})
	require.NoError(t, err)
	pgExpr, err := postgres.Dialect{}.CanonicalExpr([]dialect.Column{{Name: "n", DataType: "numeric"}})
	require.NoError(t, err)

	format := extractFormat(t, oraExpr)
	require.Equal(t, format, extractFormat(t, pgExpr))
	require.True(t, strings.HasPrefix(format, "FM"), "exponent/grouping suppression requires an FM model")
}

func TestTemporalFormatsAgreeOnMilliseconds(t *testing.T) {
	oraExpr, err := oracle.Dialect{}.CanonicalExpr([]dialect.Column{{Name: "TS", DataType: "TIMESTAMP(6)"}})
	require.NoError(t, err)
	pgExpr, err := postgres.Dialect{}.CanonicalExpr([]dialect.Column{{Name: "ts", DataType: "timestamp without time zone"}})
	require.NoError(t, err)

	// FF3 and MS are the two engines' spellings of the same three digits
	oraFmt := extractFormat(t, oraExpr)
	pgFmt := extractFormat(t, pgExpr)
	require.Equal(t, `YYYY-MM-DD"T"HH24:MI:SS.FF3`, oraFmt)
	require.Equal(t, `YYYY-MM-DD"T"HH24:MI:SS.MS`, pgFmt)
	require.Equal(t, strings.TrimSuffix(oraFmt, "FF3"), strings.TrimSuffix(pgFmt, "MS"))
}

func TestNullSentinelShared(t *testing.T) {
	for _, dt := range []struct{ ora, pg string }{
		{"NUMBER", "numeric"},
		{"DATE", "date"},
		{"VARCHAR2", "text"},
		{"RAW", "bytea"},
	} {
		oraExpr, err := oracle.Dialect{}.CanonicalExpr([]dialect.Column{{Name: "C", DataType: dt.ora}})
		require.NoError(t, err)
		pgExpr, err := postgres.Dialect{}.CanonicalExpr([]dialect.Column{{Name: "c", DataType: dt.pg}})
		require.NoError(t, err)
		require.Contains(t, oraExpr, "'"+dialect.NullSentinel+"'")
		require.Contains(t, pgExpr, "'"+dialect.NullSentinel+"'")
	}
}

func TestSeparatorShared(t *testing.T) {
	cols := func(a, b string) []dialect.Column {
		return []dialect.Column{{Name: "A", DataType: a}, {Name: "B", DataType: b}}
	}
	oraExpr, err := oracle.Dialect{}.CanonicalExpr(cols("NUMBER", "VARCHAR2"))
	require.NoError(t, err)
	pgExpr, err := postgres.Dialect{}.CanonicalExpr(cols("numeric", "text"))
	require.NoError(t, err)
	require.Contains(t, oraExpr, "'"+dialect.Separator+"'")
	require.Contains(t, pgExpr, "'"+dialect.Separator+"'")
}

// extractFormat pulls the TO_CHAR format model out of a single-column
// canonical expression; it is the first single-quoted literal in both
// dialects' output.
func extractFormat(t *testing.T, expr string) string {
	t.Helper()
	start := strings.Index(expr, "'")
	require.GreaterOrEqual(t, start, 0, "no format literal in %q", expr)
	rest := expr[start+1:]
	end := strings.Index(rest, "'")
	require.Greater(t, end, 0, "unterminated format literal in %q", expr)
	return rest[:end]
}
