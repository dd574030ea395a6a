package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ChunksIndexed("menu", 9)
	m.ChunksIndexed("allergens", 4)
	m.ChunksIndexed("menu", 1)
	m.Question("answered")
	m.Question("answered")
	m.Question("error")
	m.RuleHit("forced:margherita-di-bufala")
	m.Retrieval(time.Now(), 8)
	m.Generation(time.Now())

	assert.Equal(t, 10.0, testutil.ToFloat64(m.chunksIndexed.WithLabelValues("menu")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.chunksIndexed.WithLabelValues("allergens")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.questions.WithLabelValues("answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ruleHits.WithLabelValues("forced:margherita-di-bufala")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.retrievalSeconds))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ChunksIndexed("menu", 1)
		m.Question("answered")
		m.RuleHit("keyword")
		m.Retrieval(time.Now(), 1)
		m.Generation(time.Now())
	})
}
