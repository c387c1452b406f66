package main

import (
	"net/http"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/handler"
	"github.com/yumyai/bgcselect/pkg/middle"
)

func NewRouter(app *handler.AppContext) http.Handler {
	mux := http.NewServeMux()

	// Error route
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	// Pages
	mux.HandleFunc("GET /runs/{run_id}", app.RunPage)

	// API routes
	mux.HandleFunc("GET /api/v1/health", handler.HealthCheck)
	mux.HandleFunc("POST /api/v1/analyze", app.AnalyzeRecord)
	mux.HandleFunc("POST /api/v1/runs", app.StartRun)
	mux.HandleFunc("GET /api/v1/runs", app.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{run_id}", app.GetRun)
	mux.HandleFunc("GET /api/v1/runs/{run_id}/clusters", app.ListClusters)

	mux.Handle("GET /metrics", app.Metrics.Handler())

	log := logger.L()
	return middle.Chain(mux,
		middle.RequestIDMiddleware(log),
		app.Metrics.CountRequests,
		middle.LoggingMiddleware(log),
	)
}
