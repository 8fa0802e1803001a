// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expense_tracker"

// Metrics owns a private registry so tests can create as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	chatIntents      *prometheus.CounterVec
	oracleDuration   *prometheus.HistogramVec
	actionFailures   *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	overridesExpired prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_intents_total",
			Help:      "Chat messages handled, by resolved intent and pipeline path.",
		}, []string{"intent", "path"}),
		oracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_oracle_duration_seconds",
			Help:      "Latency of generative oracle calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"call", "outcome"}),
		actionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_action_failures_total",
			Help:      "Chat mutations that failed to reach the record store.",
		}, []string{"intent"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		overridesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overrides_expired_total",
			Help:      "Manual stat overrides cleared by the scheduler.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.chatIntents,
		m.oracleDuration,
		m.actionFailures,
		m.httpRequests,
		m.httpDuration,
		m.overridesExpired,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IntentHandled(intent, path string) {
	if m == nil {
		return
	}
	m.chatIntents.WithLabelValues(intent, path).Inc()
}

// OracleObserved records one oracle call. outcome is "ok" or an error kind.
func (m *Metrics) OracleObserved(call, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.oracleDuration.WithLabelValues(call, outcome).Observe(d.Seconds())
}

func (m *Metrics) ActionFailed(intent string) {
	if m == nil {
		return
	}
	m.actionFailures.WithLabelValues(intent).Inc()
}

func (m *Metrics) RequestServed(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) OverridesExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.overridesExpired.Add(float64(n))
}
