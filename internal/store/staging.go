package store

import (
	"context"
	"fmt"

	"taxi-warehouse-pipeline/internal/model"
)

const stagingColumns = `vendorid, tpep_pickup_datetime, tpep_dropoff_datetime,
	passenger_count, trip_distance, ratecodeid, store_and_fwd_flag,
	pulocationid, dolocationid, payment_type, fare_amount, extra, mta_tax,
	tip_amount, tolls_amount, improvement_surcharge, total_amount,
	congestion_surcharge, source_file, loaded_at`

// ReplaceStagedTrips lands a batch of raw rows for one source file,
// replacing any rows previously staged for the same file. That makes the
// extract stage re-runnable without duplicating staging rows.
func (s *Store) ReplaceStagedTrips(ctx context.Context, sourceFile string, rows []model.RawTripRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin staging tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM staging_trips WHERE source_file = ?"), sourceFile); err != nil {
		return 0, fmt.Errorf("clear staged rows for %s: %w", sourceFile, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		"INSERT INTO staging_trips ("+stagingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return 0, fmt.Errorf("prepare staging insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.VendorID, r.PickupDatetime, r.DropoffDatetime,
			r.PassengerCount, r.TripDistance, r.RateCodeID, r.StoreAndFwdFlag,
			r.PULocationID, r.DOLocationID, r.PaymentType, r.FareAmount, r.Extra, r.MTATax,
			r.TipAmount, r.TollsAmount, r.ImprovementSurcharge, r.TotalAmount,
			r.CongestionSurcharge, r.SourceFile, r.LoadedAt,
		); err != nil {
			return inserted, fmt.Errorf("stage row: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit staging tx: %w", err)
	}
	return inserted, nil
}

// StagedTrips returns the raw rows landed for one source file, in the
// order they were staged.
func (s *Store) StagedTrips(ctx context.Context, sourceFile string) ([]model.RawTripRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT "+stagingColumns+" FROM staging_trips WHERE source_file = ? ORDER BY id"), sourceFile)
	if err != nil {
		return nil, fmt.Errorf("query staged rows: %w", err)
	}
	defer rows.Close()

	var out []model.RawTripRecord
	for rows.Next() {
		var r model.RawTripRecord
		if err := rows.Scan(
			&r.VendorID, &r.PickupDatetime, &r.DropoffDatetime,
			&r.PassengerCount, &r.TripDistance, &r.RateCodeID, &r.StoreAndFwdFlag,
			&r.PULocationID, &r.DOLocationID, &r.PaymentType, &r.FareAmount, &r.Extra, &r.MTATax,
			&r.TipAmount, &r.TollsAmount, &r.ImprovementSurcharge, &r.TotalAmount,
			&r.CongestionSurcharge, &r.SourceFile, &r.LoadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan staged row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
