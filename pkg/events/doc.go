/*
Package events provides an in-memory event broker the engine publishes
structured lifecycle events to.

The events package implements a lightweight, topic-agnostic event bus.
Every subscriber receives every event; filtering, if wanted, happens on the
subscriber's side. This package does not itself audit or log anything — it
is the emission point an external audit/observability collaborator attaches
to by calling Subscribe.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  Publisher → Event Channel (buffer: 256)                  │
	│       ↓                                                    │
	│  Broadcast Loop                                            │
	│       ↓                                                    │
	│  Subscriber Channels (buffer: 64 each, drop when full)    │
	│                                                            │
	│  Event Types:                                              │
	│    tx.begin / tx.committed / tx.aborted                    │
	│    record.written / record.deleted                         │
	│    catalog.mutated                                         │
	│    procedure.invoked                                       │
	│    query.parse_failed                                      │
	└────────────────────────────────────────────────────────────┘
*/
package events
