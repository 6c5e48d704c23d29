// Package catalog implements the catalog (C3): durable, bidirectional
// name<->id mappings for labels, relationship types, and property keys,
// backed by an embedded bbolt environment, with sync.RWMutex-guarded
// in-memory caches layered on top and linearizable get-or-create semantics.
// Cache reads take the read lock; they are not lock-free.
package catalog

import (
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

var (
	bucketLabelNameToID = []byte("label_name_to_id")
	bucketLabelIDToName = []byte("label_id_to_name")
	bucketTypeNameToID  = []byte("type_name_to_id")
	bucketTypeIDToName  = []byte("type_id_to_name")
	bucketKeyNameToID   = []byte("key_name_to_id")
	bucketKeyIDToName   = []byte("key_id_to_name")
	bucketMetadata      = []byte("metadata")
	bucketStatistics    = []byte("statistics")
	bucketConstraints   = []byte("constraints")
	bucketUDFs          = []byte("udfs")
	bucketProcedures    = []byte("procedures")

	allBuckets = [][]byte{
		bucketLabelNameToID, bucketLabelIDToName,
		bucketTypeNameToID, bucketTypeIDToName,
		bucketKeyNameToID, bucketKeyIDToName,
		bucketMetadata, bucketStatistics,
		bucketConstraints, bucketUDFs, bucketProcedures,
	}

	keyNextLabelID = []byte("next_label_id")
	keyNextTypeID  = []byte("next_type_id")
	keyNextKeyID   = []byte("next_key_id")
)

// nameIDCache is the in-memory cache for one namespace's bidirectional
// name<->id mapping. Reads take the read side of a sync.RWMutex, so they
// are not lock-free. It stands in for the original reference's DashMap: Go
// has no off-the-shelf lock-free concurrent map in the ecosystem the teacher
// and pack pull from, so sync.RWMutex over plain maps is the idiomatic
// substitute (documented in DESIGN.md).
type nameIDCache struct {
	mu       sync.RWMutex
	byName   map[string]uint32
	byID     map[uint32]string
}

func newNameIDCache() *nameIDCache {
	return &nameIDCache{byName: make(map[string]uint32), byID: make(map[uint32]string)}
}

func (c *nameIDCache) lookup(name string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	return id, ok
}

func (c *nameIDCache) reverse(id uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byID[id]
	return name, ok
}

func (c *nameIDCache) set(name string, id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[name] = id
	c.byID[id] = name
}

// Catalog is the durable, cached name<->id registry plus the schema-object
// registry (constraints, UDFs, custom procedure metadata).
type Catalog struct {
	db *bolt.DB

	// writeMu serializes get-or-create allocation across namespaces,
	// matching §5's fixed lock ordering: catalog write lock is acquired
	// after the write-tx lock and before the property-store write lock.
	writeMu sync.Mutex

	labels *nameIDCache
	types_ *nameIDCache
	keys   *nameIDCache

	nextLabelID uint32
	nextTypeID  uint32
	nextKeyID   uint32

	statsMu sync.RWMutex
	stats   types.CatalogStats
}

// Open opens or creates the bbolt environment at path and reseeds the
// per-namespace id counters from max(existing id)+1.
func Open(path string) (*Catalog, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "open catalog %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "initialize catalog buckets")
	}

	c := &Catalog{
		db:     db,
		labels: newNameIDCache(),
		types_: newNameIDCache(),
		keys:   newNameIDCache(),
		stats:  types.CatalogStats{LabelCounts: map[types.LabelID]uint64{}, TypeCounts: map[types.TypeID]uint64{}},
	}

	if err := c.loadCounters(); err != nil {
		db.Close()
		return nil, err
	}
	if err := c.loadStatistics(); err != nil {
		db.Close()
		return nil, err
	}

	log.WithComponent("catalog").Debug().
		Uint32("next_label_id", c.nextLabelID).
		Uint32("next_type_id", c.nextTypeID).
		Uint32("next_key_id", c.nextKeyID).
		Msg("opened catalog")
	return c, nil
}

func (c *Catalog) loadCounters() error {
	return c.db.View(func(tx *bolt.Tx) error {
		c.nextLabelID = nextID(tx.Bucket(bucketLabelIDToName))
		c.nextTypeID = nextID(tx.Bucket(bucketTypeIDToName))
		c.nextKeyID = nextID(tx.Bucket(bucketKeyIDToName))
		return nil
	})
}

// nextID scans an id->name bucket and returns one past the highest
// existing id, or 0 for an empty bucket, so ids are dense from 0. Reseeding
// from a live scan (rather than trusting a persisted counter) means a
// crash between "allocate id" and "persist counter" can never cause two
// different names to be assigned the same id after reopen.
func nextID(b *bolt.Bucket) uint32 {
	var next uint32
	if b == nil {
		return 0
	}
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		if id := binary.BigEndian.Uint32(k) + 1; id > next {
			next = id
		}
	}
	return next
}

func idKey(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}

// getOrCreate implements the cache-first, double-checked-locking,
// durable-write, cache-refill sequence common to labels, types, and keys.
func (c *Catalog) getOrCreate(cache *nameIDCache, nameToID, idToName []byte, counter *uint32, name string) (uint32, error) {
	if id, ok := cache.lookup(name); ok {
		return id, nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if id, ok := cache.lookup(name); ok {
		return id, nil
	}

	var id uint32
	err := c.db.Update(func(tx *bolt.Tx) error {
		n2i := tx.Bucket(nameToID)
		if existing := n2i.Get([]byte(name)); existing != nil {
			id = binary.BigEndian.Uint32(existing)
			return nil
		}

		id = *counter
		*counter++

		if err := n2i.Put([]byte(name), idKey(id)); err != nil {
			return err
		}
		return tx.Bucket(idToName).Put(idKey(id), []byte(name))
	})
	if err != nil {
		return 0, nexuserr.Wrap(nexuserr.KindStorageError, err, "get-or-create %q", name)
	}

	cache.set(name, id)
	return id, nil
}

// GetOrCreateLabel resolves name to a LabelID, allocating a new dense id if
// the label has never been seen before.
func (c *Catalog) GetOrCreateLabel(name string) (types.LabelID, error) {
	id, err := c.getOrCreate(c.labels, bucketLabelNameToID, bucketLabelIDToName, &c.nextLabelID, name)
	return types.LabelID(id), err
}

// BatchGetOrCreateLabels resolves many label names in a single write
// transaction, amortizing its cost across a bulk load. Supplements the
// spec's single-name contract, grounded in the original catalog's
// batch_get_or_create_labels.
func (c *Catalog) BatchGetOrCreateLabels(names []string) (map[string]types.LabelID, error) {
	out := make(map[string]types.LabelID, len(names))
	var toCreate []string
	for _, n := range names {
		if id, ok := c.labels.lookup(n); ok {
			out[n] = types.LabelID(id)
		} else {
			toCreate = append(toCreate, n)
		}
	}
	if len(toCreate) == 0 {
		return out, nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	err := c.db.Update(func(tx *bolt.Tx) error {
		n2i := tx.Bucket(bucketLabelNameToID)
		i2n := tx.Bucket(bucketLabelIDToName)
		for _, n := range toCreate {
			if id, ok := c.labels.lookup(n); ok {
				out[n] = types.LabelID(id)
				continue
			}
			if existing := n2i.Get([]byte(n)); existing != nil {
				id := binary.BigEndian.Uint32(existing)
				c.labels.set(n, id)
				out[n] = types.LabelID(id)
				continue
			}
			id := c.nextLabelID
			c.nextLabelID++
			if err := n2i.Put([]byte(n), idKey(id)); err != nil {
				return err
			}
			if err := i2n.Put(idKey(id), []byte(n)); err != nil {
				return err
			}
			c.labels.set(n, id)
			out[n] = types.LabelID(id)
		}
		return nil
	})
	if err != nil {
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "batch get-or-create labels")
	}
	return out, nil
}

// GetOrCreateType resolves name to a TypeID.
func (c *Catalog) GetOrCreateType(name string) (types.TypeID, error) {
	id, err := c.getOrCreate(c.types_, bucketTypeNameToID, bucketTypeIDToName, &c.nextTypeID, name)
	return types.TypeID(id), err
}

// GetOrCreateKey resolves name to a KeyID.
func (c *Catalog) GetOrCreateKey(name string) (types.KeyID, error) {
	id, err := c.getOrCreate(c.keys, bucketKeyNameToID, bucketKeyIDToName, &c.nextKeyID, name)
	return types.KeyID(id), err
}

// forwardLookup resolves name to an id without ever allocating one, for
// query-time predicates that must treat an unknown label/type/key as
// "matches nothing" rather than silently registering it.
func (c *Catalog) forwardLookup(cache *nameIDCache, bucket []byte, name string) (uint32, bool) {
	if id, ok := cache.lookup(name); ok {
		return id, true
	}

	var id uint32
	var found bool
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(name)); v != nil {
			id = binary.BigEndian.Uint32(v)
			found = true
		}
		return nil
	})
	if found {
		cache.set(name, id)
	}
	return id, found
}

// LookupLabel resolves name to a LabelID without creating it.
func (c *Catalog) LookupLabel(name string) (types.LabelID, bool) {
	id, ok := c.forwardLookup(c.labels, bucketLabelNameToID, name)
	return types.LabelID(id), ok
}

// LookupType resolves name to a TypeID without creating it.
func (c *Catalog) LookupType(name string) (types.TypeID, bool) {
	id, ok := c.forwardLookup(c.types_, bucketTypeNameToID, name)
	return types.TypeID(id), ok
}

// LookupKey resolves name to a KeyID without creating it.
func (c *Catalog) LookupKey(name string) (types.KeyID, bool) {
	id, ok := c.forwardLookup(c.keys, bucketKeyNameToID, name)
	return types.KeyID(id), ok
}

func (c *Catalog) reverseLookup(cache *nameIDCache, bucket []byte, id uint32) (string, bool) {
	if name, ok := cache.reverse(id); ok {
		return name, true
	}

	var name string
	var found bool
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get(idKey(id)); v != nil {
			name = string(v)
			found = true
		}
		return nil
	})
	if found {
		cache.set(name, id)
	}
	return name, found
}

// LabelName resolves a LabelID back to its name.
func (c *Catalog) LabelName(id types.LabelID) (string, bool) {
	return c.reverseLookup(c.labels, bucketLabelIDToName, uint32(id))
}

// TypeName resolves a TypeID back to its name.
func (c *Catalog) TypeName(id types.TypeID) (string, bool) {
	return c.reverseLookup(c.types_, bucketTypeIDToName, uint32(id))
}

// KeyName resolves a KeyID back to its name.
func (c *Catalog) KeyName(id types.KeyID) (string, bool) {
	return c.reverseLookup(c.keys, bucketKeyIDToName, uint32(id))
}

// NamedID pairs a dense namespace id with its registered name, returned by
// the List* namespace enumerations.
type NamedID struct {
	ID   uint32
	Name string
}

func listAll(db *bolt.DB, bucket []byte) ([]NamedID, error) {
	var out []NamedID
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			out = append(out, NamedID{ID: binary.BigEndian.Uint32(k), Name: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "list %s", bucket)
	}
	return out, nil
}

// ListLabels returns every known label as (id, name) pairs.
func (c *Catalog) ListLabels() ([]NamedID, error) {
	return listAll(c.db, bucketLabelIDToName)
}

// ListTypes returns every known relationship type as (id, name) pairs.
func (c *Catalog) ListTypes() ([]NamedID, error) {
	return listAll(c.db, bucketTypeIDToName)
}

// ListKeys returns every known property key as (id, name) pairs.
func (c *Catalog) ListKeys() ([]NamedID, error) {
	return listAll(c.db, bucketKeyIDToName)
}

// --- statistics ---

func (c *Catalog) loadStatistics() error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStatistics)
		if v := b.Get([]byte("snapshot")); v != nil {
			return json.Unmarshal(v, &c.stats)
		}
		return nil
	})
}

func (c *Catalog) persistStatisticsLocked() error {
	body, err := json.Marshal(c.stats)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStatistics).Put([]byte("snapshot"), body)
	})
}

// IncrementNodeCount adjusts the live node count and the per-label
// cardinality at transaction commit time. Statistics are eventually
// consistent: ReconcileStats corrects any drift a crash left behind.
func (c *Catalog) IncrementNodeCount(label types.LabelID, delta int64) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.NodeCount = addClamped(c.stats.NodeCount, delta)
	c.stats.LabelCounts[label] = addClamped(c.stats.LabelCounts[label], delta)
	_ = c.persistStatisticsLocked()
}

// IncrementRelCount adjusts the live relationship count and per-type
// cardinality.
func (c *Catalog) IncrementRelCount(typeID types.TypeID, delta int64) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.RelCount = addClamped(c.stats.RelCount, delta)
	c.stats.TypeCounts[typeID] = addClamped(c.stats.TypeCounts[typeID], delta)
	_ = c.persistStatisticsLocked()
}

func addClamped(cur uint64, delta int64) uint64 {
	if delta >= 0 {
		return cur + uint64(delta)
	}
	d := uint64(-delta)
	if d > cur {
		return 0
	}
	return cur - d
}

// Stats returns a snapshot of the current statistics.
func (c *Catalog) Stats() types.CatalogStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()

	snapshot := types.CatalogStats{
		NodeCount:      c.stats.NodeCount,
		RelCount:       c.stats.RelCount,
		LastReconciled: c.stats.LastReconciled,
		LabelCounts:    make(map[types.LabelID]uint64, len(c.stats.LabelCounts)),
		TypeCounts:     make(map[types.TypeID]uint64, len(c.stats.TypeCounts)),
	}
	for k, v := range c.stats.LabelCounts {
		snapshot.LabelCounts[k] = v
	}
	for k, v := range c.stats.TypeCounts {
		snapshot.TypeCounts[k] = v
	}
	return snapshot
}

// ReconcileStats recomputes node and relationship counts from a live scan
// (supplied by the caller to avoid a dependency on the record store) and
// overwrites the cached statistics, correcting any drift a crash left
// between a commit and its counter update.
func (c *Catalog) ReconcileStats(scan func() (types.CatalogStats, error)) error {
	fresh, err := scan()
	if err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "reconcile catalog statistics")
	}
	fresh.LastReconciled = time.Now()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats = fresh
	return c.persistStatisticsLocked()
}

// Close closes the bbolt environment.
func (c *Catalog) Close() error {
	return c.db.Close()
}
