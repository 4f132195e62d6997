package matcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports matching engine metrics in Prometheus format. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	passLatency        prometheus.Histogram
	passMatches        prometheus.Histogram
	passOutcomes       *prometheus.CounterVec
	embeddingCalls     prometheus.Counter
	embeddingCacheHits prometheus.Counter
}

// NewMetrics creates matcher metrics registered on the given registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		passLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "campusfind",
			Subsystem: "matcher",
			Name:      "pass_latency_seconds",
			Help:      "Matching pass latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		passMatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "campusfind",
			Subsystem: "matcher",
			Name:      "pass_matches",
			Help:      "Matches persisted per completed pass",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		passOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusfind",
			Subsystem: "matcher",
			Name:      "pass_outcomes_total",
			Help:      "Matching pass outcomes by trigger and result",
		}, []string{"trigger", "outcome"}),
		embeddingCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campusfind",
			Subsystem: "matcher",
			Name:      "embedding_calls_total",
			Help:      "Embedding provider calls",
		}),
		embeddingCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campusfind",
			Subsystem: "matcher",
			Name:      "embedding_cache_hits_total",
			Help:      "Embeddings served from the stored vector",
		}),
	}

	registerer.MustRegister(
		m.passLatency,
		m.passMatches,
		m.passOutcomes,
		m.embeddingCalls,
		m.embeddingCacheHits,
	)
	return m
}

func (m *Metrics) passCompleted(latency time.Duration, matches int) {
	if m == nil {
		return
	}
	m.passLatency.Observe(latency.Seconds())
	m.passMatches.Observe(float64(matches))
}

func (m *Metrics) passOutcome(trigger, outcome string) {
	if m == nil {
		return
	}
	m.passOutcomes.WithLabelValues(trigger, outcome).Inc()
}

func (m *Metrics) embeddingCall() {
	if m == nil {
		return
	}
	m.embeddingCalls.Inc()
}

func (m *Metrics) embeddingCacheHit() {
	if m == nil {
		return
	}
	m.embeddingCacheHits.Inc()
}
