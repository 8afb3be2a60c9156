package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"taxi-warehouse-pipeline/internal/model"
	"taxi-warehouse-pipeline/internal/store"
)

// ExtractTrips lands a delimited trip extract (local path or HTTP URL)
// into the staging table, every column as text. Re-running the same file
// replaces its previously staged rows, so extract is idempotent per
// source file. An unreadable source or header is fatal; a malformed CSV
// line is a per-row rejection.
func ExtractTrips(ctx context.Context, rc *RunContext, st *store.Store, source string) ([]model.Rejection, error) {
	reader, closeFn, err := openSource(ctx, source)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	cr := csv.NewReader(reader)
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read extract header: %w", err)
	}
	cols := make(map[string]int, len(headers))
	for i, h := range headers {
		cols[normalizeHeader(h)] = i
	}

	loadedAt := time.Now().UTC()
	var (
		rows    []model.RawTripRecord
		rejects []model.Rejection
		lineNo  int
	)
	for {
		select {
		case <-ctx.Done():
			return rejects, fmt.Errorf("extract aborted: %w", ctx.Err())
		default:
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			rc.RowRejected()
			rejects = append(rejects, model.Rejection{
				Stage:      model.StageExtract,
				Reason:     model.ReasonMalformedValue,
				SourceFile: rc.SourceFile,
				Record:     map[string]interface{}{"line": lineNo, "error": err.Error()},
			})
			continue
		}
		rows = append(rows, rawFromRecord(record, cols, rc.SourceFile, loadedAt))
		rc.RowPassed()
	}

	if _, err := st.ReplaceStagedTrips(ctx, rc.SourceFile, rows); err != nil {
		return rejects, fmt.Errorf("stage extract rows: %w", err)
	}
	return rejects, nil
}

// openSource opens the extract from a local path or over HTTP, the way
// staged files arrive from the upstream publisher.
func openSource(ctx context.Context, source string) (io.Reader, func(), error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("build extract request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("download extract: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, nil, fmt.Errorf("download extract: HTTP %d", resp.StatusCode)
		}
		return resp.Body, func() { resp.Body.Close() }, nil
	}

	file, err := os.Open(source)
	if err != nil {
		return nil, nil, fmt.Errorf("open extract file: %w", err)
	}
	return file, func() { file.Close() }, nil
}

// SourceFileName derives the lineage source_file value from a path or
// URL.
func SourceFileName(source string) string {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if i := strings.IndexAny(source, "?#"); i >= 0 {
			source = source[:i]
		}
		return path.Base(source)
	}
	return filepath.Base(source)
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, `"`, "")
	return strings.ToLower(h)
}

func rawFromRecord(record []string, cols map[string]int, sourceFile string, loadedAt time.Time) model.RawTripRecord {
	col := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	return model.RawTripRecord{
		VendorID:             col(fieldVendorID),
		PickupDatetime:       col(fieldPickupDatetime),
		DropoffDatetime:      col(fieldDropoffDatetime),
		PassengerCount:       col(fieldPassengerCount),
		TripDistance:         col(fieldTripDistance),
		RateCodeID:           col(fieldRateCodeID),
		StoreAndFwdFlag:      col(fieldStoreAndFwdFlag),
		PULocationID:         col(fieldPULocationID),
		DOLocationID:         col(fieldDOLocationID),
		PaymentType:          col(fieldPaymentType),
		FareAmount:           col(fieldFareAmount),
		Extra:                col(fieldExtra),
		MTATax:               col(fieldMTATax),
		TipAmount:            col(fieldTipAmount),
		TollsAmount:          col(fieldTollsAmount),
		ImprovementSurcharge: col(fieldImprovementSurcharge),
		TotalAmount:          col(fieldTotalAmount),
		CongestionSurcharge:  col(fieldCongestionSurcharge),
		SourceFile:           sourceFile,
		LoadedAt:             loadedAt,
	}
}
