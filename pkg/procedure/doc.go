/*
Package procedure implements the procedure registry (C8): named,
signature-checked graph algorithms invoked by the engine façade's Call /
CallStreaming entry points rather than by Cypher syntax.

A Procedure is a textual name, a parameter list with types and optional
defaults, an output-column list, and an Execute entry point that runs
against a read-only transaction and returns fixed-shape rows. Procedures
whose name starts with the built-in prefix ("gds.") are registered at
construction and cannot be unregistered; everything else is a
caller-supplied custom procedure persisted in the catalog by signature
only; the running function itself is never durable, so a restarted
process must re-register a custom procedure's implementation before it
can be called again, even though its name and yields remain visible.

Streaming exists to bound memory on algorithms that can produce large
row sets (PageRank on a large node set, for instance). The default
implementation of ExecuteStreaming collects every row from Execute and
replays it to the callback; a procedure that wants true streaming
implements StreamingProcedure directly and emits rows as they're
produced. A callback returning an error stops execution immediately.

Built-in procedures operate over an in-memory adjacency snapshot taken
from the transaction at call time (buildSnapshot in graph.go): they do not
hold a running view across calls, so each invocation sees a consistent
point-in-time copy of the relevant nodes and relationships.
*/
package procedure
