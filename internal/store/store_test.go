package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-warehouse-pipeline/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open("sqlite3", filepath.Join(t.TempDir(), "warehouse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Init(context.Background()))
	return st
}

func sampleFact() model.FactTripRecord {
	return model.FactTripRecord{
		VendorKey:            2,
		RateCodeKey:          2,
		PaymentTypeKey:       2,
		PickupDatetime:       time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		DropoffDatetime:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		PULocationID:         100,
		DOLocationID:         200,
		PassengerCount:       2,
		TripDistance:         5.5,
		StoreAndFwdFlag:      "N",
		FareAmount:           15,
		Extra:                0.5,
		MTATax:               0.5,
		TipAmount:            3,
		TollsAmount:          0,
		ImprovementSurcharge: 0.3,
		TotalAmount:          19.3,
		CongestionSurcharge:  2.5,
		TripDurationMinutes:  30,
		TripDate:             "2024-01-15",
		SourceFile:           "yellow_tripdata_2024-01.csv",
		LoadedAt:             time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	require.Error(t, err)
}

func TestInitIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	// A second Init must neither fail nor duplicate seed rows.
	require.NoError(t, st.Init(ctx))

	snap, err := st.DimensionSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Vendors, 3)
	assert.Len(t, snap.RateCodes, 7)
	assert.Len(t, snap.PaymentTypes, 7)
}

func TestDimensionSnapshotCarriesReservedUnknown(t *testing.T) {
	st := openTestStore(t)

	snap, err := st.DimensionSnapshot(context.Background())
	require.NoError(t, err)

	for name, m := range map[string]map[int]int64{
		"vendors":       snap.Vendors,
		"rate codes":    snap.RateCodes,
		"payment types": snap.PaymentTypes,
	} {
		key, ok := m[model.UnknownCode]
		assert.True(t, ok, "%s must seed the reserved Unknown member", name)
		assert.Greater(t, key, int64(0))
	}

	// Known codes resolve through the snapshot helpers.
	_, ok := snap.VendorKey(1)
	assert.True(t, ok)
	_, ok = snap.VendorKey(99)
	assert.False(t, ok)
}

func TestInsertFactSkipsNaturalKeyDuplicates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	inserted, err := st.InsertFact(ctx, sampleFact())
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same natural key, different measures: still a duplicate.
	dup := sampleFact()
	dup.TotalAmount = 99.99
	inserted, err = st.InsertFact(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	// A different pickup time is a new trip.
	other := sampleFact()
	other.PickupDatetime = other.PickupDatetime.Add(time.Hour)
	inserted, err = st.InsertFact(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted)

	count, err := st.FactCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFactCountBySourceFile(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	a := sampleFact()
	b := sampleFact()
	b.PickupDatetime = b.PickupDatetime.Add(time.Hour)
	b.SourceFile = "yellow_tripdata_2024-02.csv"
	for _, f := range []model.FactTripRecord{a, b} {
		_, err := st.InsertFact(ctx, f)
		require.NoError(t, err)
	}

	count, err := st.FactCount(ctx, "yellow_tripdata_2024-01.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = st.FactCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReplaceStagedTrips(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	raw := model.RawTripRecord{
		VendorID:        "1",
		PickupDatetime:  "2024-01-15 10:00:00",
		DropoffDatetime: "2024-01-15 10:30:00",
		SourceFile:      "trips.csv",
		LoadedAt:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	n, err := st.ReplaceStagedTrips(ctx, "trips.csv", []model.RawTripRecord{raw, raw, raw})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Re-staging the same file replaces, never appends.
	n, err = st.ReplaceStagedTrips(ctx, "trips.csv", []model.RawTripRecord{raw})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := st.StagedTrips(ctx, "trips.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].VendorID)
	assert.Equal(t, "2024-01-15 10:00:00", rows[0].PickupDatetime)

	// Other files are untouched.
	other := raw
	other.SourceFile = "other.csv"
	_, err = st.ReplaceStagedTrips(ctx, "other.csv", []model.RawTripRecord{other})
	require.NoError(t, err)
	_, err = st.ReplaceStagedTrips(ctx, "trips.csv", nil)
	require.NoError(t, err)

	rows, err = st.StagedTrips(ctx, "other.csv")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRunRecordRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	stages := []model.Stage{model.StageExtract, model.StageValidate, model.StageTransform, model.StageLoad}
	for i, stage := range stages {
		require.NoError(t, st.SaveRunRecord(ctx, model.PipelineRunRecord{
			RunID:         "run-1",
			Stage:         stage,
			SourceFile:    "trips.csv",
			RowsProcessed: 10,
			RowsPassed:    9,
			RowsRejected:  1,
			Status:        model.StatusSuccess,
			StartedAt:     base.Add(time.Duration(i) * time.Minute),
			CompletedAt:   base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		}))
	}
	require.NoError(t, st.SaveRunRecord(ctx, model.PipelineRunRecord{
		RunID:        "run-2",
		Stage:        model.StageExtract,
		Status:       model.StatusFailure,
		ErrorMessage: "open extract file: no such file",
		StartedAt:    base.Add(time.Hour),
		CompletedAt:  base.Add(time.Hour),
	}))

	// Per-run lookup preserves invocation order.
	records, err := st.RunRecords(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 4)
	for i, rec := range records {
		assert.Equal(t, stages[i], rec.Stage)
		assert.Equal(t, "trips.csv", rec.SourceFile)
		assert.Equal(t, 10, rec.RowsProcessed)
	}

	// Listing returns newest first across runs.
	all, err := st.ListRunRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "run-2", all[0].RunID)
	assert.Equal(t, model.StatusFailure, all[0].Status)
	assert.Equal(t, "open extract file: no such file", all[0].ErrorMessage)

	limited, err := st.ListRunRecords(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRejectionsRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	rejects := []model.Rejection{
		{
			Stage:      model.StageValidate,
			Reason:     model.ReasonOutOfRange,
			Field:      "passenger_count",
			SourceFile: "trips.csv",
			Record:     map[string]interface{}{"passenger_count": "10"},
		},
		{
			Stage:      model.StageLoad,
			Reason:     model.ReasonDuplicateNaturalKey,
			SourceFile: "trips.csv",
			Record:     map[string]interface{}{"vendor_key": 2},
		},
	}
	require.NoError(t, st.SaveRejections(ctx, "run-1", rejects))
	require.NoError(t, st.SaveRejections(ctx, "run-1", nil))

	saved, err := st.Rejections(ctx, "run-1", 10)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, model.StageValidate, saved[0].Stage)
	assert.Equal(t, string(model.ReasonOutOfRange), saved[0].Reason)
	assert.Equal(t, "passenger_count", saved[0].Field)
	assert.JSONEq(t, `{"passenger_count":"10"}`, string(saved[0].Record))
	assert.False(t, saved[0].RejectedAt.IsZero())

	assert.Equal(t, model.StageLoad, saved[1].Stage)
	assert.Equal(t, string(model.ReasonDuplicateNaturalKey), saved[1].Reason)

	none, err := st.Rejections(ctx, "run-9", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRebindForPostgres(t *testing.T) {
	s := &Store{driver: "postgres"}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	s = &Store{driver: "sqlite3"}
	assert.Equal(t, "SELECT * FROM t WHERE a = ?", s.rebind("SELECT * FROM t WHERE a = ?"))
}
