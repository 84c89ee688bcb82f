package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and fusion Prometheus metrics.
var (
	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "homelens",
			Name:      "retrieval_duration_seconds",
			Help:      "Per-strategy retrieval duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"strategy"},
	)

	RetrievalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homelens",
			Name:      "retrieval_errors_total",
			Help:      "Retrieval strategy failures (query degraded, not failed)",
		},
		[]string{"strategy"},
	)

	DegradedQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homelens",
			Name:      "degraded_queries_total",
			Help:      "Queries answered with at least one retrieval strategy missing",
		},
		[]string{"strategies_down"},
	)

	TagDivergenceTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "homelens",
			Name:      "tag_divergence_total",
			Help:      "Listings whose structured tag field diverged from the detected-feature list",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalErrorsTotal)
	prometheus.MustRegister(DegradedQueriesTotal)
	prometheus.MustRegister(TagDivergenceTotal)
	retrievalMetricsRegistered = true
}
