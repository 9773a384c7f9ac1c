package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// TestNilMetricsIsNoop проверяет, что nil-метрики не паникуют.
func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveUpstreamCall("groq", 0.1, nil)
		m.IncRetry()
		m.IncLimiterWait()
		m.ObserveCache("plan", true)
		m.IncRenegotiation()
		m.ObserveOptimization("bulk_purchase", true)
		m.ObservePlan("under")
	})
}

// TestMetricsCounters проверяет инкремент счетчиков.
func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveUpstreamCall("groq", 0.2, nil)
	m.ObserveUpstreamCall("groq", 0.3, errors.New("boom"))
	m.ObserveCache("plan", true)
	m.ObserveCache("plan", false)
	m.ObserveCache("plan", false)
	m.IncRetry()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("groq", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("groq", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("plan", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries))
}
