/*
Package types defines the core data structures shared throughout the engine.

This package contains the fundamental value types that every other package
builds on: node and relationship records, property bags, the tagged runtime
Value used by the expression engine, result rows, and catalog statistics.
These types carry no behavior of their own; they are the vocabulary the
record store, property store, catalog, executor, and procedure registry all
speak.

# Architecture

	┌──────────────────────── TYPES ────────────────────────────┐
	│                                                            │
	│  ┌────────────────────┐   ┌─────────────────────────┐    │
	│  │   NodeRecord        │   │   RelRecord              │    │
	│  │   - LabelBits       │   │   - TypeID               │    │
	│  │   - FirstRelPtr     │   │   - SrcNode / DstNode    │    │
	│  │   - PropPtr         │   │   - NextSrcPtr/DstPtr    │    │
	│  └────────────────────┘   └─────────────────────────┘    │
	│                                                            │
	│  ┌────────────────────────────────────────────────────┐  │
	│  │   Value (tagged union: null/bool/number/string/     │  │
	│  │          list/map/node-ref/rel-ref)                 │  │
	│  └────────────────────────────────────────────────────┘  │
	│                                                            │
	│  ┌────────────────────┐   ┌─────────────────────────┐    │
	│  │   Row               │   │   CatalogStats           │    │
	│  └────────────────────┘   └─────────────────────────┘    │
	└────────────────────────────────────────────────────────────┘

NodeID, RelID, LabelID, TypeID and KeyID are distinct integer types so the
compiler catches a label id accidentally passed where a node id belongs.
*/
package types
