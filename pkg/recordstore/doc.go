/*
Package recordstore implements the record store (C1): fixed-width node and
relationship records, memory-mapped for direct id-addressed access, linked
into per-node relationship chains.

# Architecture

	┌──────────────────── RECORD STORE ─────────────────────────┐
	│                                                            │
	│  nodes.db: [inUse|labelBits|firstRelPtr|propPtr] * N       │
	│                                                            │
	│  rels.db:  [inUse|typeID|src|dst|nextSrcPtr|nextDstPtr|    │
	│             propPtr] * N                                   │
	│                                                            │
	│  No header: record id starts at byte id * recordSize.      │
	│                                                            │
	│  Node.FirstRelPtr -> Rel -> (NextSrcPtr if src==node else   │
	│                              NextDstPtr) -> Rel -> ...      │
	│                              until NoChain (all-ones)       │
	│                                                            │
	│  Delete flips the in-use byte only. Ids are never reused.  │
	└────────────────────────────────────────────────────────────┘

RelationshipsOf performs the chain walk a caller needs to find every
relationship touching a node, choosing the src or dst side's next pointer
at each hop depending on which side the node is on.
*/
package recordstore
