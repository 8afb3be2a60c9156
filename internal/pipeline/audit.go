package pipeline

import (
	"context"
	"log"
	"time"

	"taxi-warehouse-pipeline/internal/model"
	"taxi-warehouse-pipeline/internal/store"
)

// RunContext accumulates the accounting for one stage invocation. It is
// created by runStage, threaded through the stage, and finalized exactly
// once into a PipelineRunRecord.
type RunContext struct {
	RunID      string
	Stage      model.Stage
	SourceFile string

	startedAt time.Time
	processed int
	passed    int
	rejected  int
	partial   bool
}

// RowPassed counts one row that cleared the stage.
func (rc *RunContext) RowPassed() {
	rc.processed++
	rc.passed++
}

// RowRejected counts one row diverted to the rejection stream.
func (rc *RunContext) RowRejected() {
	rc.processed++
	rc.rejected++
}

// MarkPartial flags that the stage stopped after handling only part of
// its input without a fatal error.
func (rc *RunContext) MarkPartial() { rc.partial = true }

// Processed returns rows handled so far (passed + rejected).
func (rc *RunContext) Processed() int { return rc.processed }

// Rejected returns rows rejected so far.
func (rc *RunContext) Rejected() int { return rc.rejected }

// stageFunc is the body of one stage. It returns the rows it rejected
// (persisted by runStage) and a fatal error, if any. Per-row problems are
// rejections, never errors.
type stageFunc func(rc *RunContext) ([]model.Rejection, error)

// runStage brackets one stage invocation: captures the start timestamp,
// runs fn, persists the stage's rejections and writes exactly one audit
// record on every exit path. The record write is deferred so a fault
// raised inside fn still leaves a definite audit trail.
func runStage(ctx context.Context, st *store.Store, runID string, stage model.Stage, sourceFile string, fn stageFunc) (rec model.PipelineRunRecord, err error) {
	rc := &RunContext{
		RunID:      runID,
		Stage:      stage,
		SourceFile: sourceFile,
		startedAt:  time.Now().UTC(),
	}

	var rejects []model.Rejection
	defer func() {
		status := model.StatusSuccess
		errMsg := ""
		switch {
		case err != nil:
			status = model.StatusFailure
			errMsg = err.Error()
		case rc.partial:
			status = model.StatusPartial
		}

		rec = model.PipelineRunRecord{
			RunID:         runID,
			Stage:         stage,
			SourceFile:    sourceFile,
			RowsProcessed: rc.processed,
			RowsPassed:    rc.passed,
			RowsRejected:  rc.rejected,
			Status:        status,
			ErrorMessage:  errMsg,
			StartedAt:     rc.startedAt,
			CompletedAt:   time.Now().UTC(),
		}

		// The audit record must land even when the stage was cancelled.
		auditCtx := context.WithoutCancel(ctx)
		if saveErr := st.SaveRejections(auditCtx, runID, rejects); saveErr != nil {
			log.Printf("⚠️ run %s: persisting %s rejections failed: %v", runID, stage, saveErr)
		}
		if saveErr := st.SaveRunRecord(auditCtx, rec); saveErr != nil {
			log.Printf("⚠️ run %s: persisting %s audit record failed: %v", runID, stage, saveErr)
			if err == nil {
				err = saveErr
			}
		}

		log.Printf("📋 run %s: stage %s %s (processed=%d passed=%d rejected=%d in %v)",
			runID, stage, status, rc.processed, rc.passed, rc.rejected, rec.CompletedAt.Sub(rec.StartedAt))
	}()

	rejects, err = fn(rc)
	return rec, err
}
