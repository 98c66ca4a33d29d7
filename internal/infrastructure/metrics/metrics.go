package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsFinalized prometheus.Counter
	SessionErrors     *prometheus.CounterVec
	SessionDuration   prometheus.Histogram
	MatchRate         prometheus.Histogram

	// Stage metrics
	StageDuration *prometheus.HistogramVec

	// Matching metrics
	MatchesTotal     *prometheus.CounterVec
	SuggestionsTotal prometheus.Counter
	ExceptionsTotal  *prometheus.CounterVec
	RecordsRejected  prometheus.Counter
	FuzzyComparisons prometheus.Counter
	Overflows        prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gorecon_sessions_started_total",
			Help: "Total number of reconciliation sessions started",
		}),
		SessionsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gorecon_sessions_finalized_total",
			Help: "Total number of reconciliation sessions finalized",
		}),
		SessionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gorecon_session_errors_total",
				Help: "Total number of session errors by type",
			},
			[]string{"error_type"},
		),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gorecon_session_duration_seconds",
			Help:    "Duration of full reconciliation runs",
			Buckets: prometheus.DefBuckets,
		}),
		MatchRate: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gorecon_session_match_rate",
			Help:    "Fraction of records matched per session",
			Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1},
		}),

		// Stage metrics
		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gorecon_stage_duration_seconds",
				Help:    "Duration of each matching stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		// Matching metrics
		MatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gorecon_matches_total",
				Help: "Total matches by rule",
			},
			[]string{"rule"},
		),
		SuggestionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gorecon_suggestions_total",
			Help: "Total fuzzy suggestions emitted",
		}),
		ExceptionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gorecon_exceptions_total",
				Help: "Total exceptions by category",
			},
			[]string{"category"},
		),
		RecordsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gorecon_records_rejected_total",
			Help: "Total records rejected for shape errors",
		}),
		FuzzyComparisons: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gorecon_fuzzy_comparisons_total",
			Help: "Total fuzzy candidate pairs scored",
		}),
		Overflows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gorecon_comparison_overflows_total",
			Help: "Total fuzzy comparison overflow conditions",
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gorecon_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gorecon_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}
