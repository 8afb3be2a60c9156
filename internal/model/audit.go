package model

import "time"

// Stage identifies one pipeline stage in audit records.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageValidate  Stage = "validate"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// RunStatus is the outcome of one stage invocation.
type RunStatus string

const (
	// StatusSuccess: every processed row either passed or was cleanly
	// rejected. Row rejections alone never downgrade the status.
	StatusSuccess RunStatus = "success"
	// StatusPartial: the stage stopped after handling only a subset of
	// its input, without a full fatal error.
	StatusPartial RunStatus = "partial"
	// StatusFailure: the stage could not complete (unreadable input,
	// storage unavailable, caller timeout). ErrorMessage is populated.
	StatusFailure RunStatus = "failure"
)

// PipelineRunRecord is one immutable audit entry per stage invocation.
// It is written exactly once, at stage end, with the start timestamp
// captured when the stage began; it is never updated afterwards.
type PipelineRunRecord struct {
	RunID         string    `json:"run_id"`
	Stage         Stage     `json:"pipeline_stage"`
	SourceFile    string    `json:"source_file,omitempty"`
	RowsProcessed int       `json:"rows_processed"`
	RowsPassed    int       `json:"rows_passed"`
	RowsRejected  int       `json:"rows_rejected"`
	Status        RunStatus `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
}
