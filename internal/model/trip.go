package model

import "time"

// RawTripRecord is one staged row. Every source column is held as text
// exactly as it arrived; nothing is trusted at this point. The extract
// stage produces these, the rest of the pipeline only reads them.
type RawTripRecord struct {
	VendorID             string `json:"vendorid"`
	PickupDatetime       string `json:"tpep_pickup_datetime"`
	DropoffDatetime      string `json:"tpep_dropoff_datetime"`
	PassengerCount       string `json:"passenger_count"`
	TripDistance         string `json:"trip_distance"`
	RateCodeID           string `json:"ratecodeid"`
	StoreAndFwdFlag      string `json:"store_and_fwd_flag"`
	PULocationID         string `json:"pulocationid"`
	DOLocationID         string `json:"dolocationid"`
	PaymentType          string `json:"payment_type"`
	FareAmount           string `json:"fare_amount"`
	Extra                string `json:"extra"`
	MTATax               string `json:"mta_tax"`
	TipAmount            string `json:"tip_amount"`
	TollsAmount          string `json:"tolls_amount"`
	ImprovementSurcharge string `json:"improvement_surcharge"`
	TotalAmount          string `json:"total_amount"`
	CongestionSurcharge  string `json:"congestion_surcharge"`

	// Lineage, set by the extract stage.
	SourceFile string    `json:"source_file"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// TypedTripRecord is a RawTripRecord with every field parsed into its
// semantic type and range-checked by the validator.
type TypedTripRecord struct {
	VendorID             int       `json:"vendorid"`
	PickupDatetime       time.Time `json:"tpep_pickup_datetime"`
	DropoffDatetime      time.Time `json:"tpep_dropoff_datetime"`
	PassengerCount       int       `json:"passenger_count"`
	TripDistance         float64   `json:"trip_distance"`
	RateCodeID           int       `json:"ratecodeid"`
	StoreAndFwdFlag      string    `json:"store_and_fwd_flag"`
	PULocationID         int       `json:"pulocationid"`
	DOLocationID         int       `json:"dolocationid"`
	PaymentType          int       `json:"payment_type"`
	FareAmount           float64   `json:"fare_amount"`
	Extra                float64   `json:"extra"`
	MTATax               float64   `json:"mta_tax"`
	TipAmount            float64   `json:"tip_amount"`
	TollsAmount          float64   `json:"tolls_amount"`
	ImprovementSurcharge float64   `json:"improvement_surcharge"`
	TotalAmount          float64   `json:"total_amount"`
	CongestionSurcharge  float64   `json:"congestion_surcharge"`

	SourceFile string    `json:"source_file"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// FactTripRecord is a TypedTripRecord enriched with resolved dimension
// surrogate keys and derived metrics, ready for the warehouse fact table.
//
// Natural key: (VendorKey, PickupDatetime, DropoffDatetime, PULocationID).
// The fact table is unique on it; that uniqueness is the deduplication
// guarantee for re-runs and concurrent loads.
type FactTripRecord struct {
	VendorKey      int64 `json:"vendor_key"`
	RateCodeKey    int64 `json:"rate_code_key"`
	PaymentTypeKey int64 `json:"payment_type_key"`

	PickupDatetime  time.Time `json:"pickup_datetime"`
	DropoffDatetime time.Time `json:"dropoff_datetime"`
	PULocationID    int       `json:"pickup_location_id"`
	DOLocationID    int       `json:"dropoff_location_id"`
	PassengerCount  int       `json:"passenger_count"`
	TripDistance    float64   `json:"trip_distance"`
	StoreAndFwdFlag string    `json:"store_and_fwd_flag"`

	FareAmount           float64 `json:"fare_amount"`
	Extra                float64 `json:"extra"`
	MTATax               float64 `json:"mta_tax"`
	TipAmount            float64 `json:"tip_amount"`
	TollsAmount          float64 `json:"tolls_amount"`
	ImprovementSurcharge float64 `json:"improvement_surcharge"`
	TotalAmount          float64 `json:"total_amount"`
	CongestionSurcharge  float64 `json:"congestion_surcharge"`

	// Derived by the transformer.
	TripDurationMinutes int    `json:"trip_duration_minutes"`
	TripDate            string `json:"trip_date"` // calendar date of pickup, YYYY-MM-DD

	SourceFile string    `json:"source_file"`
	LoadedAt   time.Time `json:"loaded_at"`
}
