package recon

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderjulianmartinez/recon-watch/pkg/types"
)

var (
	// ErrQuery marks a count or checksum statement failure; recoverable at
	// table granularity.
	ErrQuery = errors.New("query failed")
	// ErrSchemaMismatch marks a table for which no canonical expression
	// can be built; recoverable at table granularity.
	ErrSchemaMismatch = errors.New("cannot build canonical expression")
)

// TableSpec is one reconciliation unit. The primary key must be non-null and
// ordered identically on both engines, or chunk membership diverges and
// produces spurious mismatches; text keys under differing collations are the
// known hazard.
type TableSpec struct {
	SourceSchema string
	SourceTable  string
	TargetSchema string
	TargetTable  string
	PK           string
	// TargetPK is the target-side spelling of the primary key column;
	// empty means same as PK.
	TargetPK string
	Chunks   int
}

func (s TableSpec) targetPK() string {
	if s.TargetPK != "" {
		return s.TargetPK
	}
	return s.PK
}

func (s TableSpec) Validate() error {
	if s.SourceTable == "" || s.TargetTable == "" {
		return errors.New("table spec requires source and target table names")
	}
	if s.PK == "" {
		return fmt.Errorf("table %s has no primary key column", s.SourceTable)
	}
	if s.Chunks < 1 {
		return fmt.Errorf("table %s: chunk count must be >= 1, got %d", s.SourceTable, s.Chunks)
	}
	return nil
}

// ChunkResult is the aggregate fingerprint of one chunk on one side.
// Sum accumulates unsigned 32-bit row fingerprints in 64 bits.
type ChunkResult struct {
	Side    string
	Schema  string
	Table   string
	ChunkID int
	Sum     uint64
	Rows    int64
}

// MismatchRecord reports one chunk whose two sides disagree, or a chunk
// present on only one side.
type MismatchRecord struct {
	Schema        string
	Table         string
	ChunkID       int
	SourceSum     uint64
	TargetSum     uint64
	SourceRows    int64
	TargetRows    int64
	SourcePresent bool
	TargetPresent bool
}

// State of a table's processing; Done, SkippedLarge and Failed are terminal.
type State string

const (
	StatePending      State = "PENDING"
	StateCounting     State = "COUNTING"
	StateChecksumming State = "CHECKSUMMING"
	StateSkippedLarge State = "SKIPPED_LARGE"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// TableOutcome is the finalized result of one table's processing. Counts
// gathered before a later failure are retained.
type TableOutcome struct {
	Spec         TableSpec
	State        State
	SourceCount  int64
	TargetCount  int64
	Counted      bool
	SourceChunks []ChunkResult
	TargetChunks []ChunkResult
	Mismatches   []MismatchRecord
	Err          error
}

// RunResult accumulates every table's outcome for one reconciliation pass.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []TableOutcome
}

func newRunResult(n int) *RunResult {
	return &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Outcomes:  make([]TableOutcome, n),
	}
}

// Chunks returns both sides' chunk results across all tables.
func (r *RunResult) Chunks() []ChunkResult {
	var out []ChunkResult
	for _, o := range r.Outcomes {
		out = append(out, o.SourceChunks...)
		out = append(out, o.TargetChunks...)
	}
	return out
}

// Mismatches returns every mismatch record across all tables.
func (r *RunResult) Mismatches() []MismatchRecord {
	var out []MismatchRecord
	for _, o := range r.Outcomes {
		out = append(out, o.Mismatches...)
	}
	return out
}

// Failures returns the outcomes that terminated in StateFailed.
func (r *RunResult) Failures() []TableOutcome {
	var out []TableOutcome
	for _, o := range r.Outcomes {
		if o.State == StateFailed {
			out = append(out, o)
		}
	}
	return out
}

// Summary condenses the run for callers and the report sink.
func (r *RunResult) Summary() types.RunSummary {
	s := types.RunSummary{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Tables:     len(r.Outcomes),
	}
	for _, o := range r.Outcomes {
		switch o.State {
		case StateDone:
			s.Done++
			if len(o.Mismatches) > 0 {
				s.Mismatched++
			}
		case StateSkippedLarge:
			s.SkippedLarge++
		case StateFailed:
			s.Failed++
		}
	}
	return s
}
