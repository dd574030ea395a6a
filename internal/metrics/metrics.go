// Package metrics exposes Prometheus collectors for ingestion and question
// answering. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "menu_rag"

type Metrics struct {
	chunksIndexed     *prometheus.CounterVec
	questions         *prometheus.CounterVec
	ruleHits          *prometheus.CounterVec
	retrievalSeconds  prometheus.Histogram
	generationSeconds prometheus.Histogram
	retrievedChunks   prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chunksIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks written to the vector store, by document type.",
		}, []string{"type"}),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions received, by outcome.",
		}, []string{"outcome"}),
		ruleHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_rule_hits_total",
			Help:      "Heuristic retrieval rules that changed the result set.",
		}, []string{"rule"}),
		retrievalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Time spent in hybrid retrieval.",
			Buckets:   prometheus.DefBuckets,
		}),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent waiting for the language model.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		retrievedChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_chunks",
			Help:      "Number of chunks handed to the language model.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
	}
	reg.MustRegister(m.chunksIndexed, m.questions, m.ruleHits, m.retrievalSeconds, m.generationSeconds, m.retrievedChunks)
	return m
}

func (m *Metrics) ChunksIndexed(docType string, n int) {
	if m == nil {
		return
	}
	m.chunksIndexed.WithLabelValues(docType).Add(float64(n))
}

// Question counts one question; outcome is "answered", "error" or "empty".
func (m *Metrics) Question(outcome string) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RuleHit(rule string) {
	if m == nil {
		return
	}
	m.ruleHits.WithLabelValues(rule).Inc()
}

func (m *Metrics) Retrieval(started time.Time, chunks int) {
	if m == nil {
		return
	}
	m.retrievalSeconds.Observe(time.Since(started).Seconds())
	m.retrievedChunks.Observe(float64(chunks))
}

func (m *Metrics) Generation(started time.Time) {
	if m == nil {
		return
	}
	m.generationSeconds.Observe(time.Since(started).Seconds())
}
