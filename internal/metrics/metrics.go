package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analytics API.
type Metrics struct {
	// Query execution metrics
	Queries          *prometheus.CounterVec
	QueryDuration    *prometheus.HistogramVec
	ExecutorFallback *prometheus.CounterVec
	UnsupportedPlans *prometheus.CounterVec
	DegradedLookups  *prometheus.CounterVec

	// Table API metrics
	TableAPICalls   *prometheus.CounterVec
	TableAPILatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	RateLimitHits   *prometheus.CounterVec
	ResponseCacheOp *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Queries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total analytical queries executed",
			},
			[]string{"template", "executor", "status"},
		),
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Query execution latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"template", "executor"},
		),
		ExecutorFallback: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executor_fallback_total",
				Help:      "Queries rerouted from the preferred executor",
			},
			[]string{"from", "to", "reason"},
		),
		UnsupportedPlans: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unsupported_plans_total",
				Help:      "Plans the emulated executor refused",
			},
			[]string{"template"},
		),
		DegradedLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degraded_lookups_total",
				Help:      "Dimension lookups that failed and were treated as no matches",
			},
			[]string{"table"},
		),
		TableAPICalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "table_api_calls_total",
				Help:      "Calls issued to the table API backend",
			},
			[]string{"table", "status"},
		),
		TableAPILatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "table_api_latency_seconds",
				Help:      "Table API round-trip latency in seconds",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"table"},
		),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served",
			},
			[]string{"path", "method", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"path", "method"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by rate limiting",
			},
			[]string{"path"},
		),
		ResponseCacheOp: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_cache_total",
				Help:      "Response cache hits and misses",
			},
			[]string{"result"},
		),
	}
}

// ObserveQuery records the outcome of one query execution.
func (m *Metrics) ObserveQuery(template, executor, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(template, executor, status).Inc()
	m.QueryDuration.WithLabelValues(template, executor).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
