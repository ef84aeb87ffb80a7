package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat Prometheus metrics.
var (
	ChatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yogachat",
			Name:      "chat_turns_total",
			Help:      "Total number of chat turns",
		},
		[]string{"status"}, // "answered" / "generation_error" / "not_ready" / "blocked"
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yogachat",
			Name:      "generation_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	GenerationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yogachat",
			Name:      "generation_errors_total",
			Help:      "Total generation errors",
		},
		[]string{"model"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yogachat",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yogachat",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	RetrievalCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "yogachat",
			Name:      "retrieval_candidates",
			Help:      "Candidate pool size returned by the similarity search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	QuotaBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yogachat",
			Name:      "quota_blocks_total",
			Help:      "Turns rejected because the daily quota was exhausted",
		},
		[]string{"identity_kind"}, // "anonymous" / "authenticated"
	)
)

var chatMetricsRegistered bool

// RegisterChatMetrics registers Prometheus chat metrics. Must be called once from main.
func RegisterChatMetrics() {
	if chatMetricsRegistered {
		return
	}
	prometheus.MustRegister(ChatTurnsTotal)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(GenerationErrorsTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(RetrievalCandidates)
	prometheus.MustRegister(QuotaBlocksTotal)
	chatMetricsRegistered = true
}
