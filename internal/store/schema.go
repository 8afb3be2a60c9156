package store

import (
	"context"
	"fmt"

	"taxi-warehouse-pipeline/internal/model"
)

// sqlite and postgres disagree on autoincrement and timestamp types;
// everything else is shared.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS staging_trips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vendorid TEXT,
		tpep_pickup_datetime TEXT,
		tpep_dropoff_datetime TEXT,
		passenger_count TEXT,
		trip_distance TEXT,
		ratecodeid TEXT,
		store_and_fwd_flag TEXT,
		pulocationid TEXT,
		dolocationid TEXT,
		payment_type TEXT,
		fare_amount TEXT,
		extra TEXT,
		mta_tax TEXT,
		tip_amount TEXT,
		tolls_amount TEXT,
		improvement_surcharge TEXT,
		total_amount TEXT,
		congestion_surcharge TEXT,
		source_file TEXT NOT NULL,
		loaded_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_vendor (
		vendor_key INTEGER PRIMARY KEY AUTOINCREMENT,
		vendor_id INTEGER NOT NULL UNIQUE,
		vendor_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_rate_code (
		rate_code_key INTEGER PRIMARY KEY AUTOINCREMENT,
		rate_code_id INTEGER NOT NULL UNIQUE,
		rate_code_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_payment_type (
		payment_type_key INTEGER PRIMARY KEY AUTOINCREMENT,
		payment_type_id INTEGER NOT NULL UNIQUE,
		payment_type_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fact_trip (
		trip_key INTEGER PRIMARY KEY AUTOINCREMENT,
		vendor_key INTEGER NOT NULL REFERENCES dim_vendor(vendor_key),
		rate_code_key INTEGER NOT NULL REFERENCES dim_rate_code(rate_code_key),
		payment_type_key INTEGER NOT NULL REFERENCES dim_payment_type(payment_type_key),
		pickup_datetime DATETIME NOT NULL,
		dropoff_datetime DATETIME NOT NULL,
		pickup_location_id INTEGER NOT NULL,
		dropoff_location_id INTEGER NOT NULL,
		passenger_count INTEGER NOT NULL,
		trip_distance REAL NOT NULL,
		store_and_fwd_flag TEXT,
		fare_amount REAL,
		extra REAL,
		mta_tax REAL,
		tip_amount REAL,
		tolls_amount REAL,
		improvement_surcharge REAL,
		total_amount REAL,
		congestion_surcharge REAL,
		trip_duration_minutes INTEGER NOT NULL,
		trip_date TEXT NOT NULL,
		source_file TEXT NOT NULL,
		loaded_at DATETIME NOT NULL,
		UNIQUE (vendor_key, pickup_datetime, dropoff_datetime, pickup_location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_run (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		pipeline_stage TEXT NOT NULL,
		source_file TEXT,
		rows_processed INTEGER NOT NULL,
		rows_passed INTEGER NOT NULL,
		rows_rejected INTEGER NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rejected_trips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		pipeline_stage TEXT NOT NULL,
		reason TEXT NOT NULL,
		field TEXT,
		record TEXT NOT NULL,
		source_file TEXT,
		rejected_at DATETIME NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS staging_trips (
		id BIGSERIAL PRIMARY KEY,
		vendorid TEXT,
		tpep_pickup_datetime TEXT,
		tpep_dropoff_datetime TEXT,
		passenger_count TEXT,
		trip_distance TEXT,
		ratecodeid TEXT,
		store_and_fwd_flag TEXT,
		pulocationid TEXT,
		dolocationid TEXT,
		payment_type TEXT,
		fare_amount TEXT,
		extra TEXT,
		mta_tax TEXT,
		tip_amount TEXT,
		tolls_amount TEXT,
		improvement_surcharge TEXT,
		total_amount TEXT,
		congestion_surcharge TEXT,
		source_file TEXT NOT NULL,
		loaded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_vendor (
		vendor_key BIGSERIAL PRIMARY KEY,
		vendor_id INTEGER NOT NULL UNIQUE,
		vendor_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_rate_code (
		rate_code_key BIGSERIAL PRIMARY KEY,
		rate_code_id INTEGER NOT NULL UNIQUE,
		rate_code_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_payment_type (
		payment_type_key BIGSERIAL PRIMARY KEY,
		payment_type_id INTEGER NOT NULL UNIQUE,
		payment_type_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fact_trip (
		trip_key BIGSERIAL PRIMARY KEY,
		vendor_key BIGINT NOT NULL REFERENCES dim_vendor(vendor_key),
		rate_code_key BIGINT NOT NULL REFERENCES dim_rate_code(rate_code_key),
		payment_type_key BIGINT NOT NULL REFERENCES dim_payment_type(payment_type_key),
		pickup_datetime TIMESTAMPTZ NOT NULL,
		dropoff_datetime TIMESTAMPTZ NOT NULL,
		pickup_location_id INTEGER NOT NULL,
		dropoff_location_id INTEGER NOT NULL,
		passenger_count INTEGER NOT NULL,
		trip_distance DOUBLE PRECISION NOT NULL,
		store_and_fwd_flag TEXT,
		fare_amount DOUBLE PRECISION,
		extra DOUBLE PRECISION,
		mta_tax DOUBLE PRECISION,
		tip_amount DOUBLE PRECISION,
		tolls_amount DOUBLE PRECISION,
		improvement_surcharge DOUBLE PRECISION,
		total_amount DOUBLE PRECISION,
		congestion_surcharge DOUBLE PRECISION,
		trip_duration_minutes INTEGER NOT NULL,
		trip_date TEXT NOT NULL,
		source_file TEXT NOT NULL,
		loaded_at TIMESTAMPTZ NOT NULL,
		UNIQUE (vendor_key, pickup_datetime, dropoff_datetime, pickup_location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_run (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		pipeline_stage TEXT NOT NULL,
		source_file TEXT,
		rows_processed INTEGER NOT NULL,
		rows_passed INTEGER NOT NULL,
		rows_rejected INTEGER NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rejected_trips (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		pipeline_stage TEXT NOT NULL,
		reason TEXT NOT NULL,
		field TEXT,
		record TEXT NOT NULL,
		source_file TEXT,
		rejected_at TIMESTAMPTZ NOT NULL
	)`,
}

// seedDimensions holds the pre-seeded reference data. Code 0 is the
// reserved Unknown member every dimension carries for the map-to-unknown
// policy.
var seedVendors = []model.DimensionEntry{
	{Code: model.UnknownCode, Name: "Unknown"},
	{Code: 1, Name: "Creative Mobile Technologies"},
	{Code: 2, Name: "VeriFone"},
}

var seedRateCodes = []model.DimensionEntry{
	{Code: model.UnknownCode, Name: "Unknown"},
	{Code: 1, Name: "Standard rate"},
	{Code: 2, Name: "JFK"},
	{Code: 3, Name: "Newark"},
	{Code: 4, Name: "Nassau or Westchester"},
	{Code: 5, Name: "Negotiated fare"},
	{Code: 6, Name: "Group ride"},
}

var seedPaymentTypes = []model.DimensionEntry{
	{Code: model.UnknownCode, Name: "Unknown"},
	{Code: 1, Name: "Credit card"},
	{Code: 2, Name: "Cash"},
	{Code: 3, Name: "No charge"},
	{Code: 4, Name: "Dispute"},
	{Code: 5, Name: "Unknown source code"},
	{Code: 6, Name: "Voided trip"},
}

// Init creates the warehouse tables if they do not exist and seeds the
// three dimensions. Safe to call on every startup.
func (s *Store) Init(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == "postgres" {
		schema = postgresSchema
	}
	for _, ddl := range schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if err := s.seedDimension(ctx, "dim_vendor", "vendor_id", "vendor_name", seedVendors); err != nil {
		return err
	}
	if err := s.seedDimension(ctx, "dim_rate_code", "rate_code_id", "rate_code_name", seedRateCodes); err != nil {
		return err
	}
	return s.seedDimension(ctx, "dim_payment_type", "payment_type_id", "payment_type_name", seedPaymentTypes)
}

func (s *Store) seedDimension(ctx context.Context, table, codeCol, nameCol string, entries []model.DimensionEntry) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, codeCol, nameCol)
	if s.driver == "postgres" {
		query += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", codeCol)
	} else {
		query = "INSERT OR IGNORE" + query[len("INSERT"):]
	}
	query = s.rebind(query)

	for _, e := range entries {
		if _, err := s.db.ExecContext(ctx, query, e.Code, e.Name); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}
	return nil
}
