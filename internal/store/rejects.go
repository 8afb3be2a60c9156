package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"taxi-warehouse-pipeline/internal/model"
)

// RejectedTrip is one persisted rejection, with the offending row kept as
// JSON for replay and debugging.
type RejectedTrip struct {
	RunID      string          `json:"run_id"`
	Stage      model.Stage     `json:"pipeline_stage"`
	Reason     string          `json:"reason"`
	Field      string          `json:"field,omitempty"`
	Record     json.RawMessage `json:"record"`
	SourceFile string          `json:"source_file,omitempty"`
	RejectedAt time.Time       `json:"rejected_at"`
}

// SaveRejections persists a stage's rejected rows under the run that
// produced them.
func (s *Store) SaveRejections(ctx context.Context, runID string, rejects []model.Rejection) error {
	if len(rejects) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rejects tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		"INSERT INTO rejected_trips (run_id, pipeline_stage, reason, field, record, source_file, rejected_at) VALUES (?, ?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("prepare rejects insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rej := range rejects {
		record, err := json.Marshal(rej.Record)
		if err != nil {
			return fmt.Errorf("marshal rejected row: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, string(rej.Stage), string(rej.Reason),
			rej.Field, string(record), rej.SourceFile, now); err != nil {
			return fmt.Errorf("save rejected row: %w", err)
		}
	}
	return tx.Commit()
}

// Rejections returns the rejected rows of one run, oldest first.
func (s *Store) Rejections(ctx context.Context, runID string, limit int) ([]RejectedTrip, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT run_id, pipeline_stage, reason, field, record, source_file, rejected_at FROM rejected_trips WHERE run_id = ? ORDER BY id LIMIT ?"),
		runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query rejections: %w", err)
	}
	defer rows.Close()

	var out []RejectedTrip
	for rows.Next() {
		var (
			rt         RejectedTrip
			stage      string
			field      sql.NullString
			record     string
			sourceFile sql.NullString
		)
		if err := rows.Scan(&rt.RunID, &stage, &rt.Reason, &field, &record, &sourceFile, &rt.RejectedAt); err != nil {
			return nil, fmt.Errorf("scan rejection: %w", err)
		}
		rt.Stage = model.Stage(stage)
		rt.Field = field.String
		rt.SourceFile = sourceFile.String
		rt.Record = json.RawMessage(record)
		out = append(out, rt)
	}
	return out, rows.Err()
}
