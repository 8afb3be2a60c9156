package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"taxi-warehouse-pipeline/internal/config"
	"taxi-warehouse-pipeline/internal/model"
	"taxi-warehouse-pipeline/internal/store"
)

// Run executes the full pipeline for one staged extract: extract →
// validate → transform → load, in strict order. Every stage writes one
// audit record; the run stops at the first stage that reports failure
// instead of cascading. Returns an error when any stage failed or the
// rejection-rate guard tripped.
func Run(ctx context.Context, st *store.Store, cfg config.Config, runID, source string) error {
	start := time.Now()
	sourceFile := SourceFileName(source)
	log.Printf("🚀 run %s: starting pipeline for %s", runID, sourceFile)

	rec, err := runStage(ctx, st, runID, model.StageExtract, sourceFile, func(rc *RunContext) ([]model.Rejection, error) {
		return ExtractTrips(ctx, rc, st, source)
	})
	if err != nil {
		return fmt.Errorf("extract stage failed: %w", err)
	}
	if err := checkRejectionRate(cfg, rec); err != nil {
		return err
	}

	var outcomes []model.ValidationOutcome
	rec, err = runStage(ctx, st, runID, model.StageValidate, sourceFile, func(rc *RunContext) ([]model.Rejection, error) {
		raws, err := st.StagedTrips(ctx, sourceFile)
		if err != nil {
			// Whole batch unreadable: fatal, no rows processed.
			return nil, fmt.Errorf("read staged batch: %w", err)
		}
		outcomes = ValidateTrips(rc, raws)
		return rejectionsOf(outcomes), nil
	})
	if err != nil {
		return fmt.Errorf("validate stage failed: %w", err)
	}
	if err := checkRejectionRate(cfg, rec); err != nil {
		return err
	}

	var facts []model.FactTripRecord
	rec, err = runStage(ctx, st, runID, model.StageTransform, sourceFile, func(rc *RunContext) ([]model.Rejection, error) {
		dims, err := st.DimensionSnapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("load dimension snapshot: %w", err)
		}
		var rejects []model.Rejection
		facts, rejects = NewTransformer(dims, cfg.UnknownPolicy).TransformTrips(rc, acceptedTrips(outcomes))
		return rejects, nil
	})
	if err != nil {
		return fmt.Errorf("transform stage failed: %w", err)
	}
	if err := checkRejectionRate(cfg, rec); err != nil {
		return err
	}

	// No rejection-rate guard on load: re-running a file rejects every
	// row as duplicate_natural_key, and that is the idempotency working,
	// not a data-quality problem.
	_, err = runStage(ctx, st, runID, model.StageLoad, sourceFile, func(rc *RunContext) ([]model.Rejection, error) {
		return LoadFacts(ctx, rc, st, facts)
	})
	if err != nil {
		return fmt.Errorf("load stage failed: %w", err)
	}

	log.Printf("🏁 run %s: pipeline completed for %s in %v", runID, sourceFile, time.Since(start))
	return nil
}

// RunStage executes a single stage independently, recording only that
// stage's audit row. Upstream stages run as unrecorded preparation where
// their output is needed (validate feeds transform, transform feeds
// load); the staging table makes that cheap and deterministic.
func RunStage(ctx context.Context, st *store.Store, cfg config.Config, runID string, stage model.Stage, source string) (model.PipelineRunRecord, error) {
	sourceFile := SourceFileName(source)
	switch stage {
	case model.StageExtract:
		return runStage(ctx, st, runID, stage, sourceFile, func(rc *RunContext) ([]model.Rejection, error) {
			return ExtractTrips(ctx, rc, st, source)
		})
	case model.StageValidate:
		return runStage(ctx, st, runID, stage, sourceFile, func(rc *RunContext) ([]model.Rejection, error) {
			raws, err := st.StagedTrips(ctx, sourceFile)
			if err != nil {
				return nil, fmt.Errorf("read staged batch: %w", err)
			}
			return rejectionsOf(ValidateTrips(rc, raws)), nil
		})
	case model.StageTransform:
		return runStage(ctx, st, runID, stage, sourceFile, func(rc *RunContext) ([]model.Rejection, error) {
			trips, err := preparedTrips(ctx, st, sourceFile)
			if err != nil {
				return nil, err
			}
			dims, err := st.DimensionSnapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("load dimension snapshot: %w", err)
			}
			_, rejects := NewTransformer(dims, cfg.UnknownPolicy).TransformTrips(rc, trips)
			return rejects, nil
		})
	case model.StageLoad:
		return runStage(ctx, st, runID, stage, sourceFile, func(rc *RunContext) ([]model.Rejection, error) {
			trips, err := preparedTrips(ctx, st, sourceFile)
			if err != nil {
				return nil, err
			}
			dims, err := st.DimensionSnapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("load dimension snapshot: %w", err)
			}
			prep := &RunContext{RunID: runID, Stage: model.StageTransform, SourceFile: sourceFile}
			facts, _ := NewTransformer(dims, cfg.UnknownPolicy).TransformTrips(prep, trips)
			return LoadFacts(ctx, rc, st, facts)
		})
	default:
		return model.PipelineRunRecord{}, fmt.Errorf("unknown pipeline stage: %q", stage)
	}
}

// preparedTrips re-validates the staged batch without recording an audit
// row, for single-stage invocations downstream of validate.
func preparedTrips(ctx context.Context, st *store.Store, sourceFile string) ([]model.TypedTripRecord, error) {
	raws, err := st.StagedTrips(ctx, sourceFile)
	if err != nil {
		return nil, fmt.Errorf("read staged batch: %w", err)
	}
	prep := &RunContext{Stage: model.StageValidate, SourceFile: sourceFile}
	return acceptedTrips(ValidateTrips(prep, raws)), nil
}

func acceptedTrips(outcomes []model.ValidationOutcome) []model.TypedTripRecord {
	trips := make([]model.TypedTripRecord, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Accepted() {
			trips = append(trips, *o.Trip)
		}
	}
	return trips
}

func rejectionsOf(outcomes []model.ValidationOutcome) []model.Rejection {
	var rejects []model.Rejection
	for _, o := range outcomes {
		if o.Reject != nil {
			rejects = append(rejects, *o.Reject)
		}
	}
	return rejects
}

// checkRejectionRate fails the overall run when a stage rejected more
// than the configured share of its input. The stage's own audit record
// keeps the status it earned; this guard is a pipeline-level decision.
func checkRejectionRate(cfg config.Config, rec model.PipelineRunRecord) error {
	if rec.RowsProcessed == 0 || cfg.MaxRejectedPct <= 0 {
		return nil
	}
	pct := float64(rec.RowsRejected) / float64(rec.RowsProcessed) * 100
	if pct > cfg.MaxRejectedPct {
		return fmt.Errorf("stage %s rejected %.1f%% of rows (limit %.1f%%)", rec.Stage, pct, cfg.MaxRejectedPct)
	}
	return nil
}
