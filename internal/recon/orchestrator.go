package recon

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Orchestrator drives one reconciliation pass over a table list. Per-table
// failures are isolated: a failed table is recorded and the run continues.
type Orchestrator struct {
	Source *Side
	Target *Side

	// SizeThreshold is the row count above which a table's checksumming is
	// skipped and only counts are reported. Zero means no limit.
	SizeThreshold int64

	// Workers bounds concurrent table processing. Values below 1 mean the
	// baseline sequential model.
	Workers int

	Log *zap.SugaredLogger
}

// Run processes every table and returns the accumulated outcomes. Outcomes
// keep the order of specs. Run itself only fails on an invalid argument; all
// engine-level errors end up inside per-table outcomes.
func (o *Orchestrator) Run(ctx context.Context, specs []TableSpec) *RunResult {
	res := newRunResult(len(specs))

	workers := o.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			res.Outcomes[i] = o.processTable(gctx, spec)
			return nil
		})
	}
	// Workers never return errors; outcomes carry them.
	_ = g.Wait()

	res.FinishedAt = time.Now().UTC()
	return res
}

// processTable walks one table through the per-table state machine:
// PENDING -> COUNTING -> (CHECKSUMMING | SKIPPED_LARGE) -> DONE, with FAILED
// terminal from any state. Counts gathered before a checksum failure are
// retained in the outcome.
func (o *Orchestrator) processTable(ctx context.Context, spec TableSpec) TableOutcome {
	out := TableOutcome{Spec: spec, State: StatePending}
	log := o.Log.With(
		"source", spec.SourceSchema+"."+spec.SourceTable,
		"target", spec.TargetSchema+"."+spec.TargetTable,
		"pk", spec.PK,
		"chunks", spec.Chunks,
	)

	if err := spec.Validate(); err != nil {
		log.Errorw("invalid table spec", "error", err)
		out.State = StateFailed
		out.Err = err
		return out
	}

	out.State = StateCounting
	srcCount, err := o.Source.Count(ctx, spec.SourceSchema, spec.SourceTable)
	if err != nil {
		log.Errorw("source count failed", "error", err)
		out.State = StateFailed
		out.Err = err
		return out
	}
	tgtCount, err := o.Target.Count(ctx, spec.TargetSchema, spec.TargetTable)
	if err != nil {
		log.Errorw("target count failed", "error", err)
		o.Target.Reset(ctx)
		out.State = StateFailed
		out.Err = err
		return out
	}
	out.SourceCount = srcCount
	out.TargetCount = tgtCount
	out.Counted = true
	log.Infow("row counts", "source_rows", srcCount, "target_rows", tgtCount, "match", srcCount == tgtCount)

	if o.SizeThreshold > 0 && (srcCount > o.SizeThreshold || tgtCount > o.SizeThreshold) {
		log.Infow("table exceeds size threshold, skipping checksum", "threshold", o.SizeThreshold)
		out.State = StateSkippedLarge
		return out
	}

	out.State = StateChecksumming
	var srcChunks, tgtChunks []ChunkResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		srcChunks, err = o.Source.ChunkSums(gctx, spec.SourceSchema, spec.SourceTable, spec.PK, spec.Chunks)
		return err
	})
	g.Go(func() error {
		var err error
		tgtChunks, err = o.Target.ChunkSums(gctx, spec.TargetSchema, spec.TargetTable, spec.targetPK(), spec.Chunks)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Errorw("chunked checksum failed", "error", err)
		o.Target.Reset(ctx)
		out.State = StateFailed
		out.Err = err
		return out
	}

	out.SourceChunks = srcChunks
	out.TargetChunks = tgtChunks
	out.Mismatches = Compare(spec, srcChunks, tgtChunks)
	out.State = StateDone
	if len(out.Mismatches) > 0 {
		log.Warnw("chunk mismatches found", "mismatched_chunks", len(out.Mismatches))
	} else {
		log.Infow("chunk checksums match")
	}
	return out
}
