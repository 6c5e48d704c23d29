/*
Package executor implements the query executor (C7): it walks a parsed
cypher.Query against a txn.Tx and produces a result table.

# Architecture

	┌────────────── plan ───────────────┐   ┌──────────── evaluate ────────────┐
	│ pick scan variable:                │   │ per-row WHERE filter (3VL)        │
	│   cheapest labeled node (by live   │-->│ RETURN projection                 │
	│   catalog count) -> index scan,    │   │ aggregation (count/sum/avg/...)   │
	│   else full node scan              │   │ DISTINCT -> ORDER BY -> SKIP      │
	│ walk pattern chain outward via     │   │ -> LIMIT                          │
	│ RelationshipsOf, direction-checked │   │                                    │
	└─────────────────────────────────────┘   └────────────────────────────────────┘

There is no join reordering beyond scan-variable selection: once the
cheapest labeled node pattern is chosen as the anchor, the rest of the
pattern is matched by extending outward through each (relationship,
node) pair, walking the current binding's incident relationships and
filtering by type and direction. Quantified relationships (`*`, `+`,
`{n,m}`) are expanded by repeated single-hop extension up to a fixed
depth cap (boundedHopCap) when the pattern leaves the upper bound
unbounded.

Expression evaluation follows SQL-style three-valued logic: a NULL
operand makes AND/OR/comparisons/arithmetic produce NULL rather than
panicking or defaulting to false, and only a row whose WHERE expression
evaluates to the literal boolean true survives the filter.

types.Value keeps signed 64-bit integers and IEEE-754 doubles distinct
(the IsFloat tag on ValueNumber) rather than collapsing both onto
float64. Arithmetic between two integer operands runs as native int64
math, which wraps in two's complement on overflow exactly as the
specification requires; an operand of either kind being a float promotes
the whole expression to float64, matching Cypher's usual mixed-type
rules.
*/
package executor
