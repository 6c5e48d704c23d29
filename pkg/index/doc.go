/*
Package index implements the index set (C4): in-memory postings lists for
label and relationship-type membership, and per-property-key value indexes
for equality and range lookups.

# Architecture

	┌──────────────────────── INDEX SET ─────────────────────────┐
	│                                                             │
	│  labelToNodes: LabelID -> set of NodeID                     │
	│  typeToRels:   TypeID  -> set of RelID                      │
	│  propToEntries: KeyID -> [](NodeID, Value)                  │
	│                                                             │
	│  LookupEq:    linear filter over one key's entries           │
	│  LookupRange: linear filter over one key's entries,          │
	│               bounded by that property's own selectivity    │
	│               rather than by graph size                     │
	└─────────────────────────────────────────────────────────────┘

The index set holds no durable state of its own; it is rebuilt from the
record and property stores whenever a graph is opened, and kept live
thereafter by the transaction coordinator calling its mutation methods as
it applies each write, and again to revert that write on abort.
*/
package index
