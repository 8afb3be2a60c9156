package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"taxi-warehouse-pipeline/internal/config"
	"taxi-warehouse-pipeline/internal/pipeline"
	"taxi-warehouse-pipeline/internal/store"
)

var (
	st  *store.Store
	cfg config.Config
)

// Init wires the handlers to the warehouse store and pipeline config.
// Must be called before any route is served.
func Init(s *store.Store, c config.Config) {
	st = s
	cfg = c
}

// CreateRunRequest is the body of POST /runs.
type CreateRunRequest struct {
	// Source is a local path or HTTP URL of the staged extract file.
	Source string `json:"source"`
}

// CreateRun starts a pipeline run for one staged extract
// @Summary Start a pipeline run
// @Description Runs extract, validate, transform and load for the given staged extract file, asynchronously
// @Tags runs
// @Accept json
// @Produce json
// @Param run body CreateRunRequest true "Run request"
// @Success 202 {object} map[string]interface{} "Run accepted"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Router /runs [post]
func CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()

	// Independent extracts may run concurrently; the fact table's
	// natural-key constraint arbitrates any overlap.
	go func() {
		if err := pipeline.Run(context.Background(), st, cfg, runID, req.Source); err != nil {
			log.Printf("❌ run %s: %v", runID, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":     runID,
		"source":     req.Source,
		"status":     "started",
		"created_at": time.Now().UTC(),
	})
}

// ListRuns returns audit records
// @Summary List stage audit records
// @Description Returns pipeline_run audit rows, newest first
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum rows returned" default(50)
// @Success 200 {object} map[string]interface{} "Audit records"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func ListRuns(w http.ResponseWriter, r *http.Request) {
	records, err := st.ListRunRecords(r.Context(), queryLimit(r, 50))
	if err != nil {
		http.Error(w, "Failed to fetch run records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runs":  records,
		"count": len(records),
	})
}

// GetRun returns the stage records of one run
// @Summary Get one run
// @Description Returns the per-stage audit records of a single pipeline run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Stage records"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func GetRun(w http.ResponseWriter, r *http.Request) {
	runID := pathParam(r.URL.Path, "")
	if runID == "" {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	records, err := st.RunRecords(r.Context(), runID)
	if err != nil {
		http.Error(w, "Failed to fetch run records", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"stages": records,
	})
}

// GetRunRejects returns the rejected rows of one run
// @Summary Get run rejections
// @Description Returns the rows a run rejected, with reason, field and the original record
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Param limit query int false "Maximum rows returned" default(100)
// @Success 200 {object} map[string]interface{} "Rejected rows"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/rejects [get]
func GetRunRejects(w http.ResponseWriter, r *http.Request) {
	runID := pathParam(r.URL.Path, "/rejects")
	if runID == "" {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	rejects, err := st.Rejections(r.Context(), runID, queryLimit(r, 100))
	if err != nil {
		http.Error(w, "Failed to fetch rejections", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":  runID,
		"rejects": rejects,
		"count":   len(rejects),
	})
}

// pathParam pulls the run ID out of /api/v1/runs/{id}<suffix>.
func pathParam(path, suffix string) string {
	const prefix = "/api/v1/runs/"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}

func queryLimit(r *http.Request, fallback int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
