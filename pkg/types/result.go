package types

import "time"

// RunSummary is the per-run rollup handed back to callers alongside the
// written report files.
type RunSummary struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Tables       int
	Done         int
	SkippedLarge int
	Failed       int
	Mismatched   int
}
