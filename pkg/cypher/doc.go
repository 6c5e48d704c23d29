/*
Package cypher implements the parser (C6): a hand-written lexer and
recursive-descent parser over the query-execution surface's Cypher subset.

# Architecture

	┌──────────────── lexer ────────────────┐     ┌────────── Parser ──────────┐
	│ rune stream -> token stream            │ --> │ clause loop:                │
	│ tracks line/column for syntax errors   │     │   MATCH WHERE RETURN        │
	└─────────────────────────────────────────┘     │   ORDER BY SKIP LIMIT       │
	                                                 │ expression precedence:      │
	                                                 │   or > and > not >          │
	                                                 │   comparison > additive >   │
	                                                 │   multiplicative > power >  │
	                                                 │   unary > primary           │
	                                                 └──────────────────────────────┘

Patterns are node-and-relationship chains: a NodePattern, then zero or more
(RelationshipPattern, NodePattern) pairs appended in source order. A
relationship's direction is read off the arrow shape surrounding its
brackets (`-[...]->`, `<-[...]-`, or `-[...]-`), and its optional quantifier
(`*`, `+`, `?`, `{n}`, `{n,m}`) is disambiguated from a following property
map by one token of lookahead: a `{` followed by an integer is a
quantifier, a `{` followed by an identifier is a property map.

Every syntax error carries the 1-based line and column the lexer was at
when it failed, via nexuserr.Syntax.
*/
package cypher
