// Package metrics wires the Manager's optional observability surface
// (SPEC_FULL.md §11.2) onto github.com/prometheus/client_golang, in the
// same shape l0p7-PassCtrl/internal/metrics/metrics.go registers its
// CounterVec/HistogramVec pairs against a package-level *prometheus.Registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is nil-safe: every method no-ops on a nil receiver, so the
// Manager can hold a *Metrics field that is simply absent when the caller
// does not opt in.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	retryAttempts     *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	promiseEnlisted   *prometheus.CounterVec
	promiseCompleted  *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// New builds a Metrics registered against reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkbridge_requests_total",
			Help: "Requests completed, by business and outcome.",
		}, []string{"business", "outcome"}),
		retryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkbridge_retry_attempts_total",
			Help: "Retry attempts scheduled, by business.",
		}, []string{"business"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkbridge_cache_hits_total",
			Help: "Cache reads that found a live entry, by business.",
		}, []string{"business"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkbridge_cache_misses_total",
			Help: "Cache reads that found no live entry, by business.",
		}, []string{"business"}),
		promiseEnlisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkbridge_promise_enlisted_total",
			Help: "Requests enlisted into the promise store, by business.",
		}, []string{"business"}),
		promiseCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkbridge_promise_completed_total",
			Help: "Promise records cleared on successful completion, by business.",
		}, []string{"business"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkbridge_request_duration_seconds",
			Help:    "End-to-end request lifecycle duration, by business.",
			Buckets: prometheus.DefBuckets,
		}, []string{"business"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.requestsTotal, m.retryAttempts, m.cacheHits, m.cacheMisses,
			m.promiseEnlisted, m.promiseCompleted, m.requestDuration,
		)
	}
	return m
}

func (m *Metrics) RequestCompleted(business, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(business, outcome).Inc()
	m.requestDuration.WithLabelValues(business).Observe(durationSeconds)
}

func (m *Metrics) RetryAttempt(business string) {
	if m == nil {
		return
	}
	m.retryAttempts.WithLabelValues(business).Inc()
}

func (m *Metrics) CacheHit(business string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(business).Inc()
}

func (m *Metrics) CacheMiss(business string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(business).Inc()
}

func (m *Metrics) PromiseEnlisted(business string) {
	if m == nil {
		return
	}
	m.promiseEnlisted.WithLabelValues(business).Inc()
}

func (m *Metrics) PromiseCompleted(business string) {
	if m == nil {
		return
	}
	m.promiseCompleted.WithLabelValues(business).Inc()
}
