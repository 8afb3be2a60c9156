package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	"taxi-warehouse-pipeline/internal/api/handler"
	"taxi-warehouse-pipeline/pkg/router"
)

// RegisterRoutes mounts the pipeline API. More specific routes first;
// the router tries them in registration order.
func RegisterRoutes(r *router.Router) {
	r.GET("/api/v1/runs/*/rejects", handler.GetRunRejects)
	r.GET("/api/v1/runs/*", handler.GetRun)
	r.GET("/api/v1/runs", handler.ListRuns)
	r.POST("/api/v1/runs", handler.CreateRun)

	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.WrapHandler))
}
