package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the report core
type Metrics struct {
	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec

	// Lifecycle metrics
	TransitionsTotal *prometheus.CounterVec

	// Audit metrics
	AuditEntriesTotal       *prometheus.CounterVec
	AuditWriteFailuresTotal prometheus.Counter
	AuditEntriesPurgedTotal prometheus.Counter

	// Scope cache metrics
	ScopeCacheHitsTotal   *prometheus.CounterVec
	ScopeCacheMissesTotal *prometheus.CounterVec

	// Store metrics
	StoreErrorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcard_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"action", "role", "outcome"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcard_report_transitions_total",
				Help: "Total number of report lifecycle transition attempts",
			},
			[]string{"transition", "outcome"},
		),
		AuditEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcard_audit_entries_total",
				Help: "Total number of audit entries written",
			},
			[]string{"action"},
		),
		AuditWriteFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reportcard_audit_write_failures_total",
				Help: "Total number of audit writes that were dropped",
			},
		),
		AuditEntriesPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reportcard_audit_entries_purged_total",
				Help: "Total number of audit entries removed by retention sweeps",
			},
		),
		ScopeCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcard_scope_cache_hits_total",
				Help: "Total number of scope cache hits",
			},
			[]string{"tier"},
		),
		ScopeCacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcard_scope_cache_misses_total",
				Help: "Total number of scope cache misses",
			},
			[]string{"tier"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reportcard_store_errors_total",
				Help: "Total number of persistent store errors",
			},
			[]string{"operation"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.AuthzDecisionsTotal,
		m.TransitionsTotal,
		m.AuditEntriesTotal,
		m.AuditWriteFailuresTotal,
		m.AuditEntriesPurgedTotal,
		m.ScopeCacheHitsTotal,
		m.ScopeCacheMissesTotal,
		m.StoreErrorsTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry, for the
// operator-facing metrics port.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
