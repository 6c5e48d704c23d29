/*
Package propstore implements the property bag store (C2): an append/overflow
log of JSON-valued property maps, memory-mapped for read speed and addressed
by the opaque offsets ("prop_ptr") stored on node and relationship records.

# Architecture

	┌──────────────────── PROPERTY STORE ───────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │  No header: byte 0 is the reserved NoProps   │          │
	│  │  offset; entries start at offset 1           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │  Entry: entity_id:u64 | kind:u8 | size:u32  │          │
	│  │         | data:bytes (JSON)                 │          │
	│  │                                              │          │
	│  │  kind's high bit marks a tombstone, written  │          │
	│  │  by Delete so RebuildIndex does not          │          │
	│  │  resurrect a deleted bag after a crash.      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │  In-memory index: (entity_id,kind) -> offset │          │
	│  │  Update: in-place if it fits, else relocate  │          │
	│  │  and orphan the old slot.                    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

Growth is 1.5x with a 2MB floor. Offset zero is never returned by Store,
which is what lets node/relationship records use zero as their "no
properties" sentinel.
*/
package propstore
