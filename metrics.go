package adminkit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Authorization decisions by outcome (allowed, access_denied, permission_denied, internal)
	DecisionsTotal *prometheus.CounterVec

	// Role-management operations by operation and error kind ("ok" on success)
	MutationsTotal   *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec

	// Audit entries appended by action
	AuditEntriesTotal *prometheus.CounterVec

	// Admin record lookups on the request path
	LookupDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adminkit_authorization_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"outcome"},
		),
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adminkit_mutations_total",
				Help: "Total number of admin record mutations",
			},
			[]string{"operation", "result"},
		),
		MutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adminkit_mutation_duration_seconds",
				Help:    "Admin record mutation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		AuditEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adminkit_audit_entries_total",
				Help: "Total number of audit entries appended",
			},
			[]string{"action"},
		),
		LookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adminkit_lookup_duration_seconds",
				Help:    "Admin record lookup duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"result"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.DecisionsTotal,
			m.MutationsTotal,
			m.MutationDuration,
			m.AuditEntriesTotal,
			m.LookupDuration,
		)
	}
	return m
}

func (m *Metrics) recordDecision(d Decision) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !d.Allowed {
		outcome = string(d.Reason)
	}
	m.DecisionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordMutation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(KindOf(err))
	}
	m.MutationsTotal.WithLabelValues(operation, result).Inc()
	m.MutationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) recordAuditEntry(action AuditAction) {
	if m == nil {
		return
	}
	m.AuditEntriesTotal.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) recordLookup(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LookupDuration.WithLabelValues(result).Observe(duration.Seconds())
}
