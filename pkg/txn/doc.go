/*
Package txn implements the transaction coordinator (C5).

# Architecture

	┌─────────────────────── COORDINATOR ────────────────────────┐
	│                                                             │
	│  writeMu   single-writer lock, held for a write Tx's        │
	│            entire Begin..Commit/Abort lifetime               │
	│  epoch     incremented on every write commit                 │
	│                                                             │
	│  Begin(readOnly) -> *Tx                                     │
	│      write Tx:  acquire writeMu                             │
	│      read Tx:   never blocks                                │
	│                                                             │
	│  Tx.<mutate>()  apply directly to the stores, push an undo   │
	│                 closure onto the Tx's LIFO undo stack        │
	│  Tx.Commit()    drop the undo stack, bump epoch, unlock      │
	│  Tx.Abort()     run the undo stack back to front, unlock     │
	└─────────────────────────────────────────────────────────────┘

Lock scope: the writer lock is held across a write transaction's whole
lifetime. The record store's per-file lock, the catalog's write lock, and
the property store's lock are each taken by the store itself for the
duration of one call and released before that call returns, so a Tx's
methods never hold two of them at once.

Mutations are applied to the record store, property store, catalog, and
index set immediately rather than buffered until commit; what commit and
abort control is whether those mutations are kept or unwound, not when
they become visible to the (single) writer. This trades true snapshot
isolation for simplicity, appropriate to a single-writer model where no
other write transaction can observe the in-flight state. Read transactions
capture the commit epoch at Begin as a staleness signal, not a true
point-in-time snapshot, since the underlying stores are mutated in place.

Schema growth — new label, relationship type, and property key
registrations in the catalog — is never rolled back on abort, matching
the catalog's monotonic id allocation: an aborted transaction may leave
behind a label that was never used, the same way a SQL database's
sequence does not rewind on a failed insert.
*/
package txn
