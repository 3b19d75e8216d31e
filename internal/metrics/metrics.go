// Package metrics defines the Prometheus collectors for the ledger core.
// All methods are nil-receiver safe so components can run unmetered.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for the event log, the persistence bridge
// and the storage layer. It implements pebblestore.MetricsHook.
type Metrics struct {
	Appends        *prometheus.CounterVec
	UnkeyedAppends prometheus.Counter
	EventsInLog    prometheus.Gauge
	PersistWrites  *prometheus.CounterVec
	PersistQueue   prometheus.Gauge
	HydratedEvents prometheus.Counter
	CommitLatency  prometheus.Histogram
	GetLatency     prometheus.Histogram
}

// New registers the ledger collectors with reg. Pass a fresh
// prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Appends: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "eventlog",
			Name:      "appends_total",
			Help:      "Append outcomes by result.",
		}, []string{"result"}), // result: created, deduped, conflict, invalid, rejected
		UnkeyedAppends: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "eventlog",
			Name:      "unkeyed_appends_total",
			Help:      "Appends accepted without an idempotency key.",
		}),
		EventsInLog: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "eventlog",
			Name:      "events",
			Help:      "Number of events currently held in the in-memory log.",
		}),
		PersistWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "persist",
			Name:      "writes_total",
			Help:      "Durable write outcomes by status.",
		}, []string{"status"}), // status: ok, error, dropped
		PersistQueue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "persist",
			Name:      "queue_depth",
			Help:      "Events waiting in the bridge write queue.",
		}),
		HydratedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "persist",
			Name:      "hydrated_events_total",
			Help:      "Events replayed from durable storage at startup.",
		}),
		CommitLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "storage",
			Name:      "commit_seconds",
			Help:      "Batch commit latency of the storage backend.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		GetLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "storage",
			Name:      "get_seconds",
			Help:      "Point read latency of the storage backend.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
	}
}

// IncAppend counts one append outcome.
func (m *Metrics) IncAppend(result string) {
	if m == nil {
		return
	}
	m.Appends.WithLabelValues(result).Inc()
}

// IncUnkeyedAppend counts one append accepted without a key.
func (m *Metrics) IncUnkeyedAppend() {
	if m == nil {
		return
	}
	m.UnkeyedAppends.Inc()
}

// SetEvents records the in-memory log size.
func (m *Metrics) SetEvents(n int) {
	if m == nil {
		return
	}
	m.EventsInLog.Set(float64(n))
}

// IncPersist counts one durable write outcome.
func (m *Metrics) IncPersist(status string) {
	if m == nil {
		return
	}
	m.PersistWrites.WithLabelValues(status).Inc()
}

// SetQueueDepth records the bridge queue depth.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.PersistQueue.Set(float64(n))
}

// AddHydrated counts events replayed at startup.
func (m *Metrics) AddHydrated(n int) {
	if m == nil {
		return
	}
	m.HydratedEvents.Add(float64(n))
}

// ObserveCommit implements pebblestore.MetricsHook.
func (m *Metrics) ObserveCommit(elapsed time.Duration, _ int) {
	if m == nil {
		return
	}
	m.CommitLatency.Observe(elapsed.Seconds())
}

// ObserveGet implements pebblestore.MetricsHook.
func (m *Metrics) ObserveGet(elapsed time.Duration, _ int) {
	if m == nil {
		return
	}
	m.GetLatency.Observe(elapsed.Seconds())
}
