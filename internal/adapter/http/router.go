package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/gorecon/internal/adapter/http/handler"
	"github.com/iho/gorecon/internal/adapter/http/middleware"
	"github.com/iho/gorecon/internal/infrastructure/metrics"
)

// RouterConfig holds the dependencies the router needs.
type RouterConfig struct {
	ReconcileHandler *handler.ReconcileHandler
	HealthHandler    *handler.HealthHandler
	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
}

// NewRouter builds the chi router with the full middleware chain and
// all API routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", cfg.ReconcileHandler.Create)
			r.Get("/", cfg.ReconcileHandler.List)
			r.Get("/{id}", cfg.ReconcileHandler.Get)
			r.Get("/{id}/report", cfg.ReconcileHandler.Report)
			r.Get("/{id}/exceptions", cfg.ReconcileHandler.Exceptions)
			r.Patch("/{id}/exceptions/{recordID}", cfg.ReconcileHandler.ReviewException)
		})
	})

	return r
}
