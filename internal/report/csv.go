// Package report persists a run's accumulated result collections. The CSV
// sink owns all file formats and locations; the core only hands it outcomes.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alexanderjulianmartinez/recon-watch/internal/fkcheck"
	"github.com/alexanderjulianmartinez/recon-watch/internal/recon"
)

const (
	SummaryFile    = "recon_summary.csv"
	ChunksFile     = "recon_chunks.csv"
	MismatchesFile = "mismatched_chunks.csv"
	FailuresFile   = "failed_tables.csv"
)

// CSVSink writes the run artifacts under Dir, creating it if needed. Every
// artifact is written even when empty (header-only), so a run always produces
// its full output set.
type CSVSink struct {
	Dir string
}

func (s *CSVSink) Write(res *recon.RunResult) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := s.writeSummary(res); err != nil {
		return err
	}
	if err := s.writeChunks(res); err != nil {
		return err
	}
	if err := s.writeMismatches(res); err != nil {
		return err
	}
	return s.writeFailures(res)
}

func (s *CSVSink) writeSummary(res *recon.RunResult) error {
	rows := [][]string{{"side", "schema", "table", "rows_exact", "state"}}
	for _, o := range res.Outcomes {
		if !o.Counted {
			continue
		}
		rows = append(rows,
			[]string{"SRC", o.Spec.SourceSchema, o.Spec.SourceTable, strconv.FormatInt(o.SourceCount, 10), string(o.State)},
			[]string{"TGT", o.Spec.TargetSchema, o.Spec.TargetTable, strconv.FormatInt(o.TargetCount, 10), string(o.State)},
		)
	}
	return s.writeFile(SummaryFile, rows)
}

func (s *CSVSink) writeChunks(res *recon.RunResult) error {
	rows := [][]string{{"side", "schema", "table", "chunk_id", "chunk_sum", "rows_in_chunk"}}
	for _, c := range res.Chunks() {
		rows = append(rows, []string{
			c.Side, c.Schema, c.Table,
			strconv.Itoa(c.ChunkID),
			strconv.FormatUint(c.Sum, 10),
			strconv.FormatInt(c.Rows, 10),
		})
	}
	return s.writeFile(ChunksFile, rows)
}

func (s *CSVSink) writeMismatches(res *recon.RunResult) error {
	rows := [][]string{{"schema", "table", "chunk_id", "chunk_sum_src", "chunk_sum_tgt", "rows_in_chunk_src", "rows_in_chunk_tgt"}}
	for _, m := range res.Mismatches() {
		src, tgt := "", ""
		srcRows, tgtRows := "", ""
		if m.SourcePresent {
			src = strconv.FormatUint(m.SourceSum, 10)
			srcRows = strconv.FormatInt(m.SourceRows, 10)
		}
		if m.TargetPresent {
			tgt = strconv.FormatUint(m.TargetSum, 10)
			tgtRows = strconv.FormatInt(m.TargetRows, 10)
		}
		rows = append(rows, []string{m.Schema, m.Table, strconv.Itoa(m.ChunkID), src, tgt, srcRows, tgtRows})
	}
	return s.writeFile(MismatchesFile, rows)
}

func (s *CSVSink) writeFailures(res *recon.RunResult) error {
	rows := [][]string{{"schema", "table", "error"}}
	for _, o := range res.Failures() {
		msg := ""
		if o.Err != nil {
			msg = o.Err.Error()
		}
		rows = append(rows, []string{o.Spec.SourceSchema, o.Spec.SourceTable, msg})
	}
	return s.writeFile(FailuresFile, rows)
}

// WriteFKOrphans writes one row per foreign key checked on the target.
func (s *CSVSink) WriteFKOrphans(schema string, results []fkcheck.Result) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	rows := [][]string{{"fk_name", "orphan_rows"}}
	for _, r := range results {
		rows = append(rows, []string{r.FKName, strconv.FormatInt(r.OrphanRows, 10)})
	}
	return s.writeFile(FKOrphansFile(schema), rows)
}

func FKOrphansFile(schema string) string {
	return fmt.Sprintf("fk_orphans_%s.csv", schema)
}

func (s *CSVSink) writeFile(name string, rows [][]string) error {
	path := filepath.Join(s.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}
