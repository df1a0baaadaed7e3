// Package metrics owns the Prometheus collectors for warden.
//
// Collectors live on a private registry so tests can build independent
// instances. All recording methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warden"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics groups warden's collectors.
type Metrics struct {
	reg *prometheus.Registry

	authOutcomes      *prometheus.CounterVec
	notifyAttempts    *prometheus.CounterVec
	notifyDelivered   *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	revocationsPurged prometheus.Counter
}

// New registers all collectors, plus Go runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Credential and session operations by operation and result kind.",
		}, []string{"operation", "result"}),
		notifyAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_attempts_total",
			Help:      "Welcome notification delivery attempts by outcome.",
		}, []string{"outcome"}),
		notifyDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Welcome notifications by final outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status_class"}),
		revocationsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocations_purged_total",
			Help:      "Expired revocation entries removed by purge runs.",
		}),
	}

	m.reg.MustRegister(
		m.authOutcomes,
		m.notifyAttempts,
		m.notifyDelivered,
		m.httpDuration,
		m.revocationsPurged,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (for tests and extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// AuthOutcome counts one register/login/logout result. result is "success" or an error kind.
func (m *Metrics) AuthOutcome(operation, result string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(operation, result).Inc()
}

// NotifyAttempt counts one delivery attempt.
func (m *Metrics) NotifyAttempt(ok bool) {
	if m == nil {
		return
	}
	m.notifyAttempts.WithLabelValues(outcome(ok)).Inc()
}

// NotifyResult counts the final outcome of a dispatch.
func (m *Metrics) NotifyResult(ok bool) {
	if m == nil {
		return
	}
	m.notifyDelivered.WithLabelValues(outcome(ok)).Inc()
}

// ObserveHTTP records request latency.
func (m *Metrics) ObserveHTTP(route, statusClass string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, statusClass).Observe(d.Seconds())
}

// RevocationsPurged adds n to the purge counter.
func (m *Metrics) RevocationsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.revocationsPurged.Add(float64(n))
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
