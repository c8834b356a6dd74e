// Package metrics holds the Prometheus collectors for the client core and
// the sandbox backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moneytransfer"

// Metrics groups the collectors so each component can be given its own
// registry in tests.
type Metrics struct {
	Registry *prometheus.Registry

	transferOutcomes *prometheus.CounterVec
	transferAttempts prometheus.Counter
	snapshotFetches  *prometheus.CounterVec
	gatewayDuration  *prometheus.HistogramVec
	sessionChanges   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transferOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transfer",
				Name:      "submissions_total",
				Help:      "Transfer submissions by terminal state.",
			},
			[]string{"state"},
		),
		transferAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transfer",
				Name:      "attempts_total",
				Help:      "Network attempts made for transfer submissions, retries included.",
			},
		),
		snapshotFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "account",
				Name:      "snapshot_fetches_total",
				Help:      "Account snapshot reads by source (cache or backend) and result.",
			},
			[]string{"source", "result"},
		),
		gatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Duration of backend gateway requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"operation", "status"},
		),
		sessionChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "transitions_total",
				Help:      "Session state transitions.",
			},
			[]string{"kind"},
		),
	}

	m.Registry.MustRegister(
		m.transferOutcomes,
		m.transferAttempts,
		m.snapshotFetches,
		m.gatewayDuration,
		m.sessionChanges,
	)

	return m
}

func (m *Metrics) ObserveTransferOutcome(state string) {
	if m == nil {
		return
	}
	m.transferOutcomes.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveTransferAttempt() {
	if m == nil {
		return
	}
	m.transferAttempts.Inc()
}

func (m *Metrics) ObserveSnapshotFetch(source, result string) {
	if m == nil {
		return
	}
	m.snapshotFetches.WithLabelValues(source, result).Inc()
}

func (m *Metrics) ObserveGatewayRequest(operation, status string, started time.Time) {
	if m == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveSessionChange(kind string) {
	if m == nil {
		return
	}
	m.sessionChanges.WithLabelValues(kind).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// TransferOutcomes exposes the outcome counter for assertions.
func (m *Metrics) TransferOutcomes() *prometheus.CounterVec {
	return m.transferOutcomes
}

// TransferAttempts exposes the attempt counter for assertions.
func (m *Metrics) TransferAttempts() prometheus.Counter {
	return m.transferAttempts
}

// SnapshotFetches exposes the snapshot counter for assertions.
func (m *Metrics) SnapshotFetches() *prometheus.CounterVec {
	return m.snapshotFetches
}
