/*
Package graph is the engine façade: the single type an embedder opens to
get a running database out of the lower-level record store, property
store, catalog, index set, transaction coordinator, parser, executor, and
procedure registry.

Open wires every subsystem the way pkg/manager wires a cluster node:
construct each store in turn, fail fast with a wrapped error if any of
them can't be opened, then bring up the pieces that depend on all of them
(the index set, which is rebuilt from a live scan since it carries no
durable state of its own, and a background statistics reconciler).

Graph exposes four surfaces:

  - Query execution: Execute and ExecuteStream run a parsed Cypher query
    under an auto-commit transaction, read-only or read-write depending on
    the requested Mode.
  - Direct CRUD: CreateNode, GetNode, UpdateNode, DeleteNode, and their
    relationship equivalents; each write runs in its own auto-commit write
    transaction and each read in its own read-only transaction.
  - Catalog: Labels, RelTypes, PropertyKeys, CreateLabel, CreateRelType,
    Statistics.
  - Procedures: Call, CallStream, Register, Unregister, thin wrappers over
    pkg/procedure.Registry.

A Graph does not open a network listener or manage authentication; it is
the library an HTTP, MCP, or CLI surface embeds.
*/
package graph
