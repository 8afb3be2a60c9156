package pipeline

import (
	"context"
	"fmt"

	"taxi-warehouse-pipeline/internal/model"
	"taxi-warehouse-pipeline/internal/store"
)

// LoadFacts commits fact records into the warehouse. The natural-key
// uniqueness constraint is the only dedup and concurrency control: a
// conflicting row is counted as duplicate_natural_key and skipped, never
// treated as an error. A storage fault aborts the remaining rows; rows
// already committed stay committed, which makes a retry run resume
// safely (the retry's duplicates are exactly the rows the failed run got
// through).
func LoadFacts(ctx context.Context, rc *RunContext, st *store.Store, facts []model.FactTripRecord) ([]model.Rejection, error) {
	var rejects []model.Rejection
	for _, fact := range facts {
		select {
		case <-ctx.Done():
			// Caller timeout/cancellation is a fatal infrastructure
			// failure; committed rows are retained.
			return rejects, fmt.Errorf("load aborted after %d rows: %w", rc.Processed(), ctx.Err())
		default:
		}

		inserted, err := st.InsertFact(ctx, fact)
		if err != nil {
			return rejects, fmt.Errorf("storage unavailable after %d rows: %w", rc.Processed(), err)
		}
		if !inserted {
			rc.RowRejected()
			rejects = append(rejects, model.Rejection{
				Stage:      model.StageLoad,
				Reason:     model.ReasonDuplicateNaturalKey,
				SourceFile: fact.SourceFile,
				Record:     fact,
			})
			continue
		}
		rc.RowPassed()
	}
	return rejects, nil
}
