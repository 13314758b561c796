package report

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderjulianmartinez/recon-watch/internal/fkcheck"
	"github.com/alexanderjulianmartinez/recon-watch/internal/recon"
)

func sampleRun() *recon.RunResult {
	spec := recon.TableSpec{
		SourceSchema: "APP", SourceTable: "ORDERS",
		TargetSchema: "public", TargetTable: "orders",
		PK: "ORDER_ID", Chunks: 4,
	}
	failedSpec := recon.TableSpec{
		SourceSchema: "APP", SourceTable: "BROKEN",
		TargetSchema: "public", TargetTable: "broken",
		PK: "ID", Chunks: 4,
	}
	return &recon.RunResult{
		RunID: "test-run",
		Outcomes: []recon.TableOutcome{
			{
				Spec:        spec,
				State:       recon.StateDone,
				SourceCount: 40, TargetCount: 40, Counted: true,
				SourceChunks: []recon.ChunkResult{
					{Side: "ORA", Schema: "APP", Table: "ORDERS", ChunkID: 1, Sum: 111, Rows: 20},
					{Side: "ORA", Schema: "APP", Table: "ORDERS", ChunkID: 2, Sum: 222, Rows: 20},
				},
				TargetChunks: []recon.ChunkResult{
					{Side: "PG", Schema: "public", Table: "orders", ChunkID: 1, Sum: 111, Rows: 20},
					{Side: "PG", Schema: "public", Table: "orders", ChunkID: 2, Sum: 999, Rows: 20},
				},
				Mismatches: []recon.MismatchRecord{
					{
						Schema: "APP", Table: "ORDERS", ChunkID: 2,
						SourceSum: 222, TargetSum: 999,
						SourceRows: 20, TargetRows: 20,
						SourcePresent: true, TargetPresent: true,
					},
				},
			},
			{
				Spec:  failedSpec,
				State: recon.StateFailed,
				Err:   errors.New("count failed: table missing"),
			},
		},
	}
}

func readCSV(t *testing.T, dir, name string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSink_WritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	sink := &CSVSink{Dir: filepath.Join(dir, "out")}
	require.NoError(t, sink.Write(sampleRun()))

	summary := readCSV(t, sink.Dir, SummaryFile)
	require.Equal(t, []string{"side", "schema", "table", "rows_exact", "state"}, summary[0])
	// only the counted table appears, one row per side
	require.Len(t, summary, 3)
	require.Equal(t, []string{"SRC", "APP", "ORDERS", "40", "DONE"}, summary[1])
	require.Equal(t, []string{"TGT", "public", "orders", "40", "DONE"}, summary[2])

	chunks := readCSV(t, sink.Dir, ChunksFile)
	require.Len(t, chunks, 5) // header + 2 per side

	mismatches := readCSV(t, sink.Dir, MismatchesFile)
	require.Len(t, mismatches, 2)
	require.Equal(t, []string{"APP", "ORDERS", "2", "222", "999", "20", "20"}, mismatches[1])

	failures := readCSV(t, sink.Dir, FailuresFile)
	require.Len(t, failures, 2)
	require.Equal(t, []string{"APP", "BROKEN", "count failed: table missing"}, failures[1])
}

func TestCSVSink_EmptyRunStillWritesHeaders(t *testing.T) {
	sink := &CSVSink{Dir: t.TempDir()}
	require.NoError(t, sink.Write(&recon.RunResult{}))

	for _, name := range []string{SummaryFile, ChunksFile, MismatchesFile, FailuresFile} {
		rows := readCSV(t, sink.Dir, name)
		require.Len(t, rows, 1, "expected header-only %s", name)
	}
}

func TestCSVSink_OneSidedMismatchLeavesBlanks(t *testing.T) {
	res := &recon.RunResult{
		Outcomes: []recon.TableOutcome{{
			Spec:  recon.TableSpec{SourceSchema: "APP", SourceTable: "ORDERS"},
			State: recon.StateDone,
			Mismatches: []recon.MismatchRecord{{
				Schema: "APP", Table: "ORDERS", ChunkID: 3,
				SourceSum: 7, SourceRows: 2, SourcePresent: true,
			}},
		}},
	}
	sink := &CSVSink{Dir: t.TempDir()}
	require.NoError(t, sink.Write(res))

	rows := readCSV(t, sink.Dir, MismatchesFile)
	require.Equal(t, []string{"APP", "ORDERS", "3", "7", "", "2", ""}, rows[1])
}

func TestCSVSink_FKOrphans(t *testing.T) {
	sink := &CSVSink{Dir: t.TempDir()}
	results := []fkcheck.Result{
		{FKName: "fk_orders_customer", OrphanRows: 0},
		{FKName: "fk_items_order", OrphanRows: 3},
	}
	require.NoError(t, sink.WriteFKOrphans("public", results))

	rows := readCSV(t, sink.Dir, FKOrphansFile("public"))
	require.Len(t, rows, 3)
	require.Equal(t, []string{"fk_items_order", "3"}, rows[2])
}
