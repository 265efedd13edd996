package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recall pipeline metrics. Registered explicitly from the composition root
// (no init()) so tests can construct pipeline components freely.
var (
	RecallRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "requests_total",
			Help:      "Total recall requests by outcome",
		},
		[]string{"outcome"},
	)

	RecallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "recall",
			Name:      "request_duration_seconds",
			Help:      "End-to-end recall duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	RewriteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "rewrite_requests_total",
			Help:      "Rewrite provider attempts by provider, model, and status",
		},
		[]string{"provider", "model", "status"},
	)

	RewriteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recall",
			Name:      "rewrite_request_duration_seconds",
			Help:      "Rewrite provider call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "model"},
	)

	RewriteStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "rewrite_strategy_total",
			Help:      "Recall requests by final rewrite strategy",
		},
		[]string{"strategy"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "embedding_requests_total",
			Help:      "Query embedding requests by provider, model, and status",
		},
		[]string{"provider", "model", "status"},
	)

	DroppedHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "dropped_hits_total",
			Help:      "Hits rejected by the trust pass, by reason",
		},
		[]string{"reason"},
	)

	RetrievalFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "retrieval_fallbacks_total",
			Help:      "Retrieval degradations by kind (category_filter, keyword_only)",
		},
		[]string{"kind"},
	)
)

// RegisterRecallMetrics registers the recall pipeline metrics.
func RegisterRecallMetrics() {
	prometheus.MustRegister(
		RecallRequestsTotal,
		RecallDuration,
		RewriteRequestsTotal,
		RewriteRequestDuration,
		RewriteStrategyTotal,
		EmbeddingRequestsTotal,
		DroppedHitsTotal,
		RetrievalFallbacksTotal,
	)
}
