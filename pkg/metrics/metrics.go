package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_nodes_total",
			Help: "Total number of in-use node records.",
		},
	)

	RelsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_relationships_total",
			Help: "Total number of in-use relationship records.",
		},
	)

	LabelCardinality = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexus_label_cardinality",
			Help: "Number of nodes carrying each label.",
		},
		[]string{"label"},
	)

	RecordStoreBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_record_store_bytes",
			Help: "Size of the mapped node/relationship record file in bytes.",
		},
	)

	PropertyStoreBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_property_store_bytes",
			Help: "Size of the mapped property bag file in bytes.",
		},
	)

	TxCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_tx_commits_total",
			Help: "Total number of committed transactions.",
		},
	)

	TxAbortsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_tx_aborts_total",
			Help: "Total number of aborted transactions.",
		},
	)

	TxCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_tx_commit_duration_seconds",
			Help:    "Time taken to apply and durably commit a transaction's write set.",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_query_duration_seconds",
			Help:    "End-to-end query execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	QueryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_query_rows_returned",
			Help:    "Number of result rows returned per query.",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
	)

	ProcedureInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_procedure_invocations_total",
			Help: "Total number of procedure invocations by name and outcome.",
		},
		[]string{"procedure", "outcome"},
	)

	ProcedureDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_procedure_duration_seconds",
			Help:    "Procedure execution duration in seconds by name.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)

	CatalogLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_catalog_lookups_total",
			Help: "Catalog name<->id lookups by namespace and cache outcome.",
		},
		[]string{"namespace", "outcome"},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_catalog_reconciliation_duration_seconds",
			Help:    "Time taken for a catalog statistics reconciliation pass.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_catalog_reconciliation_cycles_total",
			Help: "Total number of catalog statistics reconciliation passes completed.",
		},
	)
)

// Registry bundles every collector above into one prometheus.Registry for
// an embedding program to scrape. The engine never binds an HTTP listener
// itself; exposition is the embedder's responsibility.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NodesTotal, RelsTotal, LabelCardinality,
		RecordStoreBytes, PropertyStoreBytes,
		TxCommitsTotal, TxAbortsTotal, TxCommitDuration,
		QueryDuration, QueryRowsReturned,
		ProcedureInvocationsTotal, ProcedureDuration,
		CatalogLookupsTotal,
		ReconciliationDuration, ReconciliationCyclesTotal,
	)
	return reg
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
