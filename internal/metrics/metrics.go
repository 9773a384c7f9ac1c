package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mealplanner"

// Metrics holds the planner's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	retries         prometheus.Counter
	limiterWaits    prometheus.Counter
	cacheLookups    *prometheus.CounterVec
	renegotiations  prometheus.Counter
	optimizations   *prometheus.CounterVec
	generatedPlans  *prometheus.CounterVec
}

// New регистрирует коллекторы в переданном реестре.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Upstream LLM calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Latency of upstream LLM calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"provider"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_retries_total",
			Help:      "Retried upstream LLM calls.",
		}),
		limiterWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limiter_waits_total",
			Help:      "Calls delayed by the sliding-window rate limiter.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_lookups_total",
			Help:      "Response cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		renegotiations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_renegotiations_total",
			Help:      "Plan regenerations triggered by an over-budget result.",
		}),
		optimizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizations_applied_total",
			Help:      "Applied optimization suggestions by type and outcome.",
		}, []string{"type", "outcome"}),
		generatedPlans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meal_plans_generated_total",
			Help:      "Generated meal plans by final budget status.",
		}, []string{"budget_status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.upstreamCalls,
			m.upstreamLatency,
			m.retries,
			m.limiterWaits,
			m.cacheLookups,
			m.renegotiations,
			m.optimizations,
			m.generatedPlans,
		)
	}

	return m
}

// ObserveUpstreamCall учитывает вызов LLM и его длительность.
func (m *Metrics) ObserveUpstreamCall(provider string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.upstreamCalls.WithLabelValues(provider, outcome).Inc()
	m.upstreamLatency.WithLabelValues(provider).Observe(seconds)
}

// IncRetry учитывает повторную попытку вызова.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// IncLimiterWait учитывает ожидание в rate limiter.
func (m *Metrics) IncLimiterWait() {
	if m == nil {
		return
	}
	m.limiterWaits.Inc()
}

// ObserveCache учитывает попадание или промах кэша.
func (m *Metrics) ObserveCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// IncRenegotiation учитывает повторную генерацию плана из-за бюджета.
func (m *Metrics) IncRenegotiation() {
	if m == nil {
		return
	}
	m.renegotiations.Inc()
}

// ObserveOptimization учитывает применение предложения по экономии.
func (m *Metrics) ObserveOptimization(suggestionType string, applied bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !applied {
		outcome = "skipped"
	}
	m.optimizations.WithLabelValues(suggestionType, outcome).Inc()
}

// ObservePlan учитывает сгенерированный план.
func (m *Metrics) ObservePlan(status string) {
	if m == nil {
		return
	}
	m.generatedPlans.WithLabelValues(status).Inc()
}
