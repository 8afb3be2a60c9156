package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-warehouse-pipeline/internal/config"
	"taxi-warehouse-pipeline/internal/model"
)

const extractHeader = "VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,passenger_count," +
	"trip_distance,RatecodeID,store_and_fwd_flag,PULocationID,DOLocationID,payment_type," +
	"fare_amount,extra,mta_tax,tip_amount,tolls_amount,improvement_surcharge,total_amount,congestion_surcharge"

func writeExtract(t *testing.T, name string, lines ...string) string {
	t.Helper()
	content := extractHeader + "\n"
	for _, l := range lines {
		content += l + "\n"
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func tripLine(pickup, dropoff string) string {
	return "1," + pickup + "," + dropoff + ",2,5.5,1,N,100,200,1,15.00,0.50,0.50,3.00,0.00,0.30,19.30,2.50"
}

func testConfig() config.Config {
	return config.Config{
		WarehouseDriver: "sqlite3",
		UnknownPolicy:   config.PolicyMapToUnknown,
		MaxRejectedPct:  5,
	}
}

func TestExtractStagesAllColumnsAsText(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	source := writeExtract(t, "yellow_tripdata_2024-01.csv",
		tripLine("2024-01-15 10:00:00", "2024-01-15 10:30:00"))

	rec, err := RunStage(ctx, st, testConfig(), "run-x", model.StageExtract, source)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, rec.Status)
	assert.Equal(t, 1, rec.RowsProcessed)

	raws, err := st.StagedTrips(ctx, "yellow_tripdata_2024-01.csv")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "1", raws[0].VendorID)
	assert.Equal(t, "2024-01-15 10:00:00", raws[0].PickupDatetime)
	assert.Equal(t, "19.30", raws[0].TotalAmount)
	assert.Equal(t, "yellow_tripdata_2024-01.csv", raws[0].SourceFile)
	assert.False(t, raws[0].LoadedAt.IsZero())
}

func TestExtractRerunReplacesStagedRows(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	source := writeExtract(t, "trips.csv",
		tripLine("2024-01-15 10:00:00", "2024-01-15 10:30:00"),
		tripLine("2024-01-15 11:00:00", "2024-01-15 11:30:00"))

	for i := 0; i < 2; i++ {
		_, err := RunStage(ctx, st, testConfig(), "run-x", model.StageExtract, source)
		require.NoError(t, err)
	}

	raws, err := st.StagedTrips(ctx, "trips.csv")
	require.NoError(t, err)
	assert.Len(t, raws, 2, "re-extracting the same file must not duplicate staging rows")
}

func TestExtractUnreadableSourceIsFatal(t *testing.T) {
	st := newTestStore(t)

	rec, err := RunStage(context.Background(), st, testConfig(), "run-x", model.StageExtract,
		filepath.Join(t.TempDir(), "no-such-file.csv"))
	require.Error(t, err)
	assert.Equal(t, model.StatusFailure, rec.Status)
	assert.Equal(t, 0, rec.RowsProcessed)
	assert.NotEmpty(t, rec.ErrorMessage)
}

func TestRunFullPipeline(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	source := writeExtract(t, "yellow_tripdata_2024-01.csv",
		tripLine("2024-01-15 10:00:00", "2024-01-15 10:30:00"),
		tripLine("2024-01-15 11:00:00", "2024-01-15 11:45:00"),
		tripLine("2024-01-15 12:00:00", "2024-01-15 12:05:00"))

	require.NoError(t, Run(ctx, st, testConfig(), "run-1", source))

	count, err := st.FactCount(ctx, "yellow_tripdata_2024-01.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Four stage records, strict order, all success, balanced counts.
	records, err := st.RunRecords(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 4)
	wantStages := []model.Stage{model.StageExtract, model.StageValidate, model.StageTransform, model.StageLoad}
	for i, rec := range records {
		assert.Equal(t, wantStages[i], rec.Stage)
		assert.Equal(t, model.StatusSuccess, rec.Status)
		assert.Equal(t, rec.RowsProcessed, rec.RowsPassed+rec.RowsRejected)
		assert.Equal(t, 3, rec.RowsProcessed)
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	source := writeExtract(t, "trips.csv",
		tripLine("2024-01-15 10:00:00", "2024-01-15 10:30:00"),
		tripLine("2024-01-15 11:00:00", "2024-01-15 11:45:00"))

	require.NoError(t, Run(ctx, st, testConfig(), "run-1", source))
	require.NoError(t, Run(ctx, st, testConfig(), "run-2", source))

	count, err := st.FactCount(ctx, "trips.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "loading the same file twice yields the same fact content as once")

	records, err := st.RunRecords(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, records, 4)
	load := records[3]
	require.Equal(t, model.StageLoad, load.Stage)
	assert.Equal(t, model.StatusSuccess, load.Status)
	assert.Equal(t, 2, load.RowsRejected, "second run rejects every row the first run committed")
	assert.Equal(t, 0, load.RowsPassed)
}

func TestRunStopsWhenRejectionRateExceeded(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// One of two rows is invalid: 50% > the 5% limit.
	bad := "1,2024-01-15 10:00:00,2024-01-15 10:30:00,10,5.5,1,N,100,200,1,15.00,0.50,0.50,3.00,0.00,0.30,19.30,2.50"
	source := writeExtract(t, "trips.csv",
		tripLine("2024-01-15 10:00:00", "2024-01-15 10:30:00"),
		bad)

	err := Run(ctx, st, testConfig(), "run-1", source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")

	// The validate stage itself completed cleanly and was audited; the
	// pipeline just refused to carry on.
	records, err := st.RunRecords(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.StageValidate, records[1].Stage)
	assert.Equal(t, model.StatusSuccess, records[1].Status)
	assert.Equal(t, 1, records[1].RowsRejected)

	count, err := st.FactCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "load must not run after the guard trips")
}

func TestRunPersistsRejections(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.MaxRejectedPct = 100 // let the run finish

	bad := "1,2024-01-15 10:00:00,2024-01-15 10:30:00,2,-3.5,1,N,100,200,1,15.00,0.50,0.50,3.00,0.00,0.30,19.30,2.50"
	source := writeExtract(t, "trips.csv",
		tripLine("2024-01-15 10:00:00", "2024-01-15 10:30:00"),
		bad)

	require.NoError(t, Run(ctx, st, cfg, "run-1", source))

	rejects, err := st.Rejections(ctx, "run-1", 10)
	require.NoError(t, err)
	require.Len(t, rejects, 1)
	assert.Equal(t, model.StageValidate, rejects[0].Stage)
	assert.Equal(t, string(model.ReasonOutOfRange), rejects[0].Reason)
	assert.Equal(t, "trip_distance", rejects[0].Field)
	assert.NotEmpty(t, rejects[0].Record)
}

func TestSingleStageInvocations(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()

	source := writeExtract(t, "trips.csv",
		tripLine("2024-01-15 10:00:00", "2024-01-15 10:30:00"))

	// Each stage runs independently and is safely re-runnable.
	for _, stage := range []model.Stage{model.StageExtract, model.StageValidate, model.StageTransform, model.StageLoad} {
		rec, err := RunStage(ctx, st, cfg, "run-"+string(stage), stage, source)
		require.NoError(t, err, "stage %s", stage)
		assert.Equal(t, model.StatusSuccess, rec.Status)
		assert.Equal(t, 1, rec.RowsProcessed)
	}

	count, err := st.FactCount(ctx, "trips.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Re-running load alone finds only duplicates.
	rec, err := RunStage(ctx, st, cfg, "run-reload", model.StageLoad, source)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.RowsRejected)
}

func TestSourceFileName(t *testing.T) {
	assert.Equal(t, "yellow_tripdata_2024-01.csv",
		SourceFileName("/data/staging/yellow_tripdata_2024-01.csv"))
	assert.Equal(t, "yellow_tripdata_2024-01.csv",
		SourceFileName("https://example.com/trip-data/yellow_tripdata_2024-01.csv?token=abc"))
}
