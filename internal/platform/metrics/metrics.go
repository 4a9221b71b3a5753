package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the loader.
type Metrics struct {
	LoadsTotal    *prometheus.CounterVec
	RowsAccepted  *prometheus.CounterVec
	RowsRejected  *prometheus.CounterVec
	RetryAttempts prometheus.Counter
	LoadDuration  *prometheus.HistogramVec
	ItemChanges   *prometheus.CounterVec
}

// New creates and registers all loader metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sstload_loads_total",
			Help: "Load outcomes by document kind and status.",
		}, []string{"kind", "status"}),
		RowsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sstload_rows_accepted_total",
			Help: "Accepted item rows by document kind.",
		}, []string{"kind"}),
		RowsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sstload_rows_rejected_total",
			Help: "Rejected records by document kind.",
		}, []string{"kind"}),
		RetryAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "sstload_commit_retries_total",
			Help: "Transient commit failures that were retried.",
		}),
		LoadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sstload_load_duration_seconds",
			Help:    "Wall time per load attempt by document kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		ItemChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sstload_item_changes_total",
			Help: "Diff classifications by document kind and change type.",
		}, []string{"kind", "change"}),
	}
}

// ObserveLoad records one finished load. Nil-safe so the loader can run
// without metrics wired.
func (m *Metrics) ObserveLoad(kind, status string, seconds float64) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(kind, status).Inc()
	m.LoadDuration.WithLabelValues(kind).Observe(seconds)
}

// ObserveRows records accepted and rejected row counts. Nil-safe.
func (m *Metrics) ObserveRows(kind string, accepted, rejected int) {
	if m == nil {
		return
	}
	m.RowsAccepted.WithLabelValues(kind).Add(float64(accepted))
	m.RowsRejected.WithLabelValues(kind).Add(float64(rejected))
}

// ObserveRetry records one retried transient failure. Nil-safe.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.RetryAttempts.Inc()
}

// ObserveChanges records a diff's classification counts. Nil-safe.
func (m *Metrics) ObserveChanges(kind string, summary ChangeCounts) {
	if m == nil {
		return
	}
	m.ItemChanges.WithLabelValues(kind, "added").Add(float64(summary.Added))
	m.ItemChanges.WithLabelValues(kind, "modified").Add(float64(summary.Modified))
	m.ItemChanges.WithLabelValues(kind, "removed").Add(float64(summary.Removed))
	m.ItemChanges.WithLabelValues(kind, "unchanged").Add(float64(summary.Unchanged))
}

// ChangeCounts mirrors a diff summary without importing the loader models.
type ChangeCounts struct {
	Added, Modified, Removed, Unchanged int
}
