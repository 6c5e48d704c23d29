/*
Package metrics defines and registers the engine's Prometheus instrumentation
and its internal component health aggregator.

The engine never binds an HTTP listener; Registry returns a
*prometheus.Registry an embedding program can expose however it likes
(network transport is outside this package's scope). A Collector polls a
StatsSource (satisfied by the graph package's adapter over the catalog
and the record and property stores) on an interval and
republishes its counts as gauges.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │  Collector.Start() — ticks every 15s        │          │
	│  │       │                                      │          │
	│  │       ▼                                      │          │
	│  │  StatsSource.Stats() / RecordStoreSize() /   │          │
	│  │               PropertyStoreSize()            │          │
	│  │       │                                      │          │
	│  │       ▼                                      │          │
	│  │  Gauges: nexus_nodes_total,                  │          │
	│  │          nexus_relationships_total,          │          │
	│  │          nexus_label_cardinality{label}      │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  Histograms: tx_commit_duration, query_duration,          │
	│              procedure_duration, reconciliation_duration   │
	│                                                            │
	│  HealthChecker: component name -> healthy/unhealthy,       │
	│  aggregated by GetHealth()                                 │
	└────────────────────────────────────────────────────────────┘
*/
package metrics
