package store

import (
	"context"
	"database/sql"
	"fmt"

	"taxi-warehouse-pipeline/internal/model"
)

// SaveRunRecord writes one immutable audit row for a stage invocation.
// Records are only ever inserted, never updated.
func (s *Store) SaveRunRecord(ctx context.Context, rec model.PipelineRunRecord) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO pipeline_run (
			run_id, pipeline_stage, source_file,
			rows_processed, rows_passed, rows_rejected,
			status, error_message, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.RunID, string(rec.Stage), rec.SourceFile,
		rec.RowsProcessed, rec.RowsPassed, rec.RowsRejected,
		string(rec.Status), rec.ErrorMessage, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save run record: %w", err)
	}
	return nil
}

// ListRunRecords returns audit rows newest first.
func (s *Store) ListRunRecords(ctx context.Context, limit int) ([]model.PipelineRunRecord, error) {
	return s.queryRunRecords(ctx,
		s.rebind("SELECT run_id, pipeline_stage, source_file, rows_processed, rows_passed, rows_rejected, status, error_message, started_at, completed_at FROM pipeline_run ORDER BY started_at DESC, id DESC LIMIT ?"),
		limit)
}

// RunRecords returns the stage rows of one pipeline run in invocation
// order.
func (s *Store) RunRecords(ctx context.Context, runID string) ([]model.PipelineRunRecord, error) {
	return s.queryRunRecords(ctx,
		s.rebind("SELECT run_id, pipeline_stage, source_file, rows_processed, rows_passed, rows_rejected, status, error_message, started_at, completed_at FROM pipeline_run WHERE run_id = ? ORDER BY id"),
		runID)
}

func (s *Store) queryRunRecords(ctx context.Context, query string, args ...interface{}) ([]model.PipelineRunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run records: %w", err)
	}
	defer rows.Close()

	var out []model.PipelineRunRecord
	for rows.Next() {
		var (
			rec        model.PipelineRunRecord
			stage      string
			status     string
			sourceFile sql.NullString
			errMsg     sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &stage, &sourceFile,
			&rec.RowsProcessed, &rec.RowsPassed, &rec.RowsRejected,
			&status, &errMsg, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		rec.Stage = model.Stage(stage)
		rec.Status = model.RunStatus(status)
		rec.SourceFile = sourceFile.String
		rec.ErrorMessage = errMsg.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
