// Package metrics exposes Prometheus instruments for the duty and request
// engines. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yachtcrew"

type Metrics struct {
	registry       *prometheus.Registry
	transitions    *prometheus.CounterVec
	reaped         *prometheus.CounterVec
	dutyRecomputes prometheus.Counter
	activeRequests prometheus.Gauge
	buttonPresses  *prometheus.CounterVec
	publishErrors  *prometheus.CounterVec
}

// New registers all instruments on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_request_transitions_total",
			Help:      "Applied service request transitions by resulting status.",
		}, []string{"status"}),
		reaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_requests_removed_total",
			Help:      "Requests dropped from the active set, by reason.",
		}, []string{"reason"}),
		dutyRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duty_recomputations_total",
			Help:      "Duty status resolutions.",
		}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_service_requests",
			Help:      "Requests currently in the active set.",
		}),
		buttonPresses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "button_presses_total",
			Help:      "Button presses received by press type.",
		}, []string{"press_type"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifier_publish_errors_total",
			Help:      "Realtime publish failures by sink.",
		}, []string{"sink"}),
	}
	m.registry.MustRegister(
		m.transitions,
		m.reaped,
		m.dutyRecomputes,
		m.activeRequests,
		m.buttonPresses,
		m.publishErrors,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry underlying registry, for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RequestTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RequestRemoved(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reaped.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) ActiveRequests(n int) {
	if m == nil {
		return
	}
	m.activeRequests.Set(float64(n))
}

func (m *Metrics) DutyRecomputed() {
	if m == nil {
		return
	}
	m.dutyRecomputes.Inc()
}

func (m *Metrics) ButtonPress(pressType string) {
	if m == nil {
		return
	}
	m.buttonPresses.WithLabelValues(pressType).Inc()
}

func (m *Metrics) PublishError(sink string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(sink).Inc()
}
