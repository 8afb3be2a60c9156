package main

import (
	"context"
	"log"

	"taxi-warehouse-pipeline/internal/api"
	"taxi-warehouse-pipeline/internal/api/handler"
	"taxi-warehouse-pipeline/internal/config"
	"taxi-warehouse-pipeline/internal/store"
	"taxi-warehouse-pipeline/pkg/router"

	_ "taxi-warehouse-pipeline/docs"
)

// @title Taxi Warehouse Pipeline API
// @version 1.0
// @description Trigger and inspect trip-warehouse pipeline runs
// @BasePath /api/v1
func main() {
	cfg := config.Load()

	st, err := store.Open(cfg.WarehouseDriver, cfg.WarehouseDSN)
	if err != nil {
		log.Fatalf("open warehouse: %v", err)
	}
	defer st.Close()

	if err := st.Init(context.Background()); err != nil {
		log.Fatalf("init warehouse schema: %v", err)
	}

	handler.Init(st, cfg)

	r := router.New()
	api.RegisterRoutes(r)
	log.Fatal(r.Start(cfg.APIAddr))
}
