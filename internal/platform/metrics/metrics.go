// Package metrics exposes Prometheus counters/histograms for the
// dependency calls the graph engine makes (spec §5 suspension points).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "graphmeta"

var (
	EmbeddingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_requests_total",
		Help:      "Embedding provider calls by outcome.",
	}, []string{"status"})

	EmbeddingRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "embedding_request_duration_seconds",
		Help:      "Embedding provider call latency.",
	}, []string{"status"})

	VectorizationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vectorization_failures_total",
		Help:      "Edge vectorization side-channel failures by stage.",
	}, []string{"stage"})

	DependencyCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dependency_call_duration_seconds",
		Help:      "Per-dependency call latency (DS, KV, OS, EP, VX).",
	}, []string{"dependency", "operation"})

	CacheResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_cache_results_total",
		Help:      "Node read cache outcomes (HIT/MISS).",
	}, []string{"result"})
)
