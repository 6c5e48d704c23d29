/*
Package catalog implements the catalog (C3): durable name<->id mappings for
labels, relationship types, and property keys; per-label/per-type
statistics; and the schema-object registry (constraints, UDFs, custom
procedure bookkeeping).

# Architecture

	┌──────────────────── CATALOG (bbolt) ───────────────────────┐
	│                                                             │
	│  ┌────────────────────────────┐  ┌───────────────────────┐│
	│  │ label_name_to_id            │  │ nameIDCache (labels)   ││
	│  │ label_id_to_name            │◄─┤ sync.RWMutex over maps ││
	│  │ type_name_to_id/id_to_name  │  │ (no lock-free map in   ││
	│  │ key_name_to_id/id_to_name   │  │  the ecosystem stack)  ││
	│  └────────────────────────────┘  └───────────────────────┘│
	│                                                             │
	│  get_or_create: cache hit -> return                         │
	│                 cache miss -> writeMu -> double-check ->    │
	│                 bbolt write txn -> allocate from counter -> │
	│                 cache.set -> return                         │
	│                                                             │
	│  statistics bucket: node/rel counts, per-label/per-type     │
	│  cardinality, eventually consistent, corrected by           │
	│  ReconcileStats from a live record-store scan.              │
	│                                                             │
	│  constraints / udfs / procedures buckets: schema-object      │
	│  bookkeeping, durable in bbolt and read on demand (List*).   │
	└─────────────────────────────────────────────────────────────┘

Namespace id counters are reseeded from max(existing id)+1 (0 for an empty
namespace) on every Open,
scanning the id->name bucket rather than trusting a persisted counter, so a
crash between allocating an id and persisting the counter can never hand
out a duplicate id after restart.
*/
package catalog
