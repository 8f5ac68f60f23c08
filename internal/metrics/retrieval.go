package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfagent",
			Name:      "llm_requests_total",
			Help:      "Total number of reasoning-process requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nfagent",
			Name:      "llm_request_duration_seconds",
			Help:      "Reasoning-process request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfagent",
			Name:      "llm_tokens_total",
			Help:      "Total reasoning-process tokens consumed",
		},
		[]string{"model", "type"},
	)

	SearchCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfagent",
			Name:      "search_calls_total",
			Help:      "Total search capability invocations",
		},
		[]string{"status"},
	)

	SearchCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nfagent",
			Name:      "search_call_duration_seconds",
			Help:      "Search capability call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{},
	)

	OrchestrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfagent",
			Name:      "orchestrations_total",
			Help:      "Completed orchestration turns by outcome",
		},
		[]string{"outcome"}, // "ok" / "dependency" / "timeout" / "orchestration" / "error"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(SearchCallsTotal)
	prometheus.MustRegister(SearchCallDuration)
	prometheus.MustRegister(OrchestrationsTotal)
	retrievalMetricsRegistered = true
}
