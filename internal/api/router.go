package api

import (
	"health-export-pipeline/internal/api/handler"
	"health-export-pipeline/pkg/router"

	_ "health-export-pipeline/internal/api/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func RegisterRoutes(r *router.Router, h *handler.PayloadHandler) {
	r.POST("/api/v1/payloads", h.CreatePayload)
	r.GET("/api/v1/runs", h.ListRuns)
	// More specific routes win over the trailing wildcard
	r.GET("/api/v1/runs/*/files", h.GetRunFiles)
	r.GET("/api/v1/runs/*/payload", h.GetRunPayload)
	r.GET("/api/v1/runs/*/summary", h.GetRunSummary)
	r.GET("/api/v1/runs/*", h.GetRun)
	r.GET("/api/v1/summaries", h.ListSummaries)
	r.GET("/api/v1/download/*/*", h.DownloadFile)

	r.Mount("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
