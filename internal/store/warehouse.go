package store

import (
	"context"
	"fmt"

	"taxi-warehouse-pipeline/internal/model"
)

// DimensionSnapshot loads the code→surrogate-key maps for all three
// dimensions. Called once per batch at transform start; the returned
// snapshot is never written to afterwards.
func (s *Store) DimensionSnapshot(ctx context.Context) (*model.DimensionSnapshot, error) {
	snap := &model.DimensionSnapshot{
		Vendors:      make(map[int]int64),
		RateCodes:    make(map[int]int64),
		PaymentTypes: make(map[int]int64),
	}

	load := func(query string, dst map[int]int64) error {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var code int
			var key int64
			if err := rows.Scan(&code, &key); err != nil {
				return err
			}
			dst[code] = key
		}
		return rows.Err()
	}

	if err := load("SELECT vendor_id, vendor_key FROM dim_vendor", snap.Vendors); err != nil {
		return nil, fmt.Errorf("load dim_vendor: %w", err)
	}
	if err := load("SELECT rate_code_id, rate_code_key FROM dim_rate_code", snap.RateCodes); err != nil {
		return nil, fmt.Errorf("load dim_rate_code: %w", err)
	}
	if err := load("SELECT payment_type_id, payment_type_key FROM dim_payment_type", snap.PaymentTypes); err != nil {
		return nil, fmt.Errorf("load dim_payment_type: %w", err)
	}
	return snap, nil
}

// InsertFact commits one fact row. A conflict on the natural key
// (vendor_key, pickup_datetime, dropoff_datetime, pickup_location_id)
// means the trip was already loaded: the insert is skipped and inserted
// is false. Any returned error is an infrastructure fault, not a
// duplicate.
func (s *Store) InsertFact(ctx context.Context, f model.FactTripRecord) (inserted bool, err error) {
	query := `INSERT INTO fact_trip (
		vendor_key, rate_code_key, payment_type_key,
		pickup_datetime, dropoff_datetime, pickup_location_id, dropoff_location_id,
		passenger_count, trip_distance, store_and_fwd_flag,
		fare_amount, extra, mta_tax, tip_amount, tolls_amount,
		improvement_surcharge, total_amount, congestion_surcharge,
		trip_duration_minutes, trip_date, source_file, loaded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if s.driver == "postgres" {
		query += " ON CONFLICT (vendor_key, pickup_datetime, dropoff_datetime, pickup_location_id) DO NOTHING"
	} else {
		query = "INSERT OR IGNORE" + query[len("INSERT"):]
	}

	res, err := s.db.ExecContext(ctx, s.rebind(query),
		f.VendorKey, f.RateCodeKey, f.PaymentTypeKey,
		f.PickupDatetime, f.DropoffDatetime, f.PULocationID, f.DOLocationID,
		f.PassengerCount, f.TripDistance, f.StoreAndFwdFlag,
		f.FareAmount, f.Extra, f.MTATax, f.TipAmount, f.TollsAmount,
		f.ImprovementSurcharge, f.TotalAmount, f.CongestionSurcharge,
		f.TripDurationMinutes, f.TripDate, f.SourceFile, f.LoadedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert fact rows affected: %w", err)
	}
	return n > 0, nil
}

// FactCount returns the number of committed fact rows, optionally
// restricted to one source file (pass "" for all).
func (s *Store) FactCount(ctx context.Context, sourceFile string) (int, error) {
	var (
		count int
		err   error
	)
	if sourceFile == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fact_trip").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			s.rebind("SELECT COUNT(*) FROM fact_trip WHERE source_file = ?"), sourceFile).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return count, nil
}
