package main

import (
	"context"
	"flag"
	"log"

	"github.com/google/uuid"

	"taxi-warehouse-pipeline/internal/config"
	"taxi-warehouse-pipeline/internal/model"
	"taxi-warehouse-pipeline/internal/pipeline"
	"taxi-warehouse-pipeline/internal/store"
)

func main() {
	var (
		source = flag.String("source", "", "path or URL of the staged trip extract")
		stage  = flag.String("stage", "all", "stage to run: all, extract, validate, transform or load")
	)
	flag.Parse()

	if *source == "" {
		log.Fatal("-source is required")
	}

	cfg := config.Load()
	st, err := store.Open(cfg.WarehouseDriver, cfg.WarehouseDSN)
	if err != nil {
		log.Fatalf("open warehouse: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Init(ctx); err != nil {
		log.Fatalf("init warehouse schema: %v", err)
	}

	runID := uuid.New().String()
	if *stage == "all" {
		if err := pipeline.Run(ctx, st, cfg, runID, *source); err != nil {
			log.Fatalf("pipeline run %s: %v", runID, err)
		}
		return
	}

	rec, err := pipeline.RunStage(ctx, st, cfg, runID, model.Stage(*stage), *source)
	if err != nil {
		log.Fatalf("stage %s run %s: %v", *stage, runID, err)
	}
	log.Printf("stage %s: %s (processed=%d passed=%d rejected=%d)",
		rec.Stage, rec.Status, rec.RowsProcessed, rec.RowsPassed, rec.RowsRejected)
}
