package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_insight_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_insight_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	analysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_insight_analysis_runs_total",
			Help: "Pipeline runs by source and result.",
		},
		[]string{"source", "result"},
	)

	analysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_insight_analysis_duration_seconds",
			Help:    "Pipeline wall time.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	analysisRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sales_insight_analysis_rows",
			Help:    "Rows per analysed dataset.",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	engineOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_insight_engine_outcomes_total",
			Help: "Engine results by engine and status.",
		},
		[]string{"engine", "status"},
	)
)

func ObserveHTTPRequest(method, route, statusCode string, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveAnalysis records one pipeline run. result is "ok" or "error".
func ObserveAnalysis(source, result string, rows int, d time.Duration) {
	analysisRunsTotal.WithLabelValues(source, result).Inc()
	analysisDuration.WithLabelValues(source).Observe(d.Seconds())
	if result == "ok" {
		analysisRows.Observe(float64(rows))
	}
}

func ObserveOutcome(engine, status string) {
	engineOutcomes.WithLabelValues(engine, status).Inc()
}
