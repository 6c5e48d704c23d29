// Package txn implements the transaction coordinator (C5): a single-writer,
// multi-reader concurrency boundary around the record store, property
// store, catalog, and index set. Each write method of Tx applies its
// mutation directly to the local stores and pushes an undo closure that
// Abort runs.
package txn

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/metrics"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/propstore"
	"github.com/cuemby/nexus/pkg/recordstore"
	"github.com/cuemby/nexus/pkg/types"
)

// Coordinator owns the single-writer lock and applies write transactions'
// mutations to the record store, property store, catalog, and index set. One Coordinator
// is created per open graph.
type Coordinator struct {
	// writeMu is the single-writer lock: exactly one write transaction may
	// be active at a time. Readers never take it.
	writeMu sync.Mutex

	records *recordstore.Store
	props   *propstore.Store
	cat     *catalog.Catalog
	idx     *index.Set
	broker  *events.Broker

	nextTxID uint64 // atomic

	// epoch increments on every commit. A read transaction's snapshot is
	// the epoch it observed at Begin; since stores are mutated in place
	// rather than copy-on-write, this is a visibility hint for callers
	// (e.g. "has anything changed since I began") rather than true MVCC
	// isolation.
	epoch uint64 // atomic
}

// New wires a Coordinator around already-open stores.
func New(records *recordstore.Store, props *propstore.Store, cat *catalog.Catalog, idx *index.Set, broker *events.Broker) *Coordinator {
	return &Coordinator{
		records: records,
		props:   props,
		cat:     cat,
		idx:     idx,
		broker:  broker,
	}
}

// Epoch returns the current commit epoch.
func (c *Coordinator) Epoch() uint64 {
	return atomic.LoadUint64(&c.epoch)
}

// Tx is a transaction handle. A read-only Tx never blocks on the writer
// lock; a write Tx holds it for its entire lifetime, from Begin to
// Commit/Abort.
type Tx struct {
	id       uint64
	coord    *Coordinator
	readOnly bool
	state    types.TxState
	snapshot uint64

	// undo is a LIFO stack of inverse actions pushed after each successful
	// mutation. Abort runs it back to front. Commit discards it.
	undo []func()
}

// Begin starts a transaction. A write transaction acquires the coordinator's
// single-writer lock for its entire lifetime, ordered ahead of the record
// store's own growth lock, the catalog's write lock, and the property
// store's write lock, and released in the reverse (LIFO) order by
// Commit/Abort returning.
func (c *Coordinator) Begin(readOnly bool) *Tx {
	if !readOnly {
		c.writeMu.Lock()
	}

	id := atomic.AddUint64(&c.nextTxID, 1)
	tx := &Tx{
		id:       id,
		coord:    c,
		readOnly: readOnly,
		state:    types.TxActive,
		snapshot: atomic.LoadUint64(&c.epoch),
	}

	c.broker.Publish(&events.Event{
		Type:    events.EventTxBegin,
		Message: "transaction started",
		Metadata: map[string]string{
			"tx_id":     uint64ToString(id),
			"read_only": boolToString(readOnly),
		},
	})
	return tx
}

// ID returns the transaction's id, used for log correlation.
func (tx *Tx) ID() uint64 { return tx.id }

// ReadOnly reports whether the transaction holds the writer lock.
func (tx *Tx) ReadOnly() bool { return tx.readOnly }

func (tx *Tx) requireActive() error {
	if tx.state != types.TxActive {
		return nexuserr.New(nexuserr.KindInvalidInput, "transaction %d is no longer active", tx.id)
	}
	return nil
}

func (tx *Tx) requireWritable() error {
	if err := tx.requireActive(); err != nil {
		return err
	}
	if tx.readOnly {
		return nexuserr.New(nexuserr.KindInvalidInput, "transaction %d is read-only", tx.id)
	}
	return nil
}

// --- node operations ---

// CreateNode allocates a node carrying the given labels, registering any
// label name seen for the first time in the catalog.
func (tx *Tx) CreateNode(labels ...string) (types.NodeID, error) {
	if err := tx.requireWritable(); err != nil {
		return 0, err
	}

	var labelBits uint64
	labelIDs := make([]types.LabelID, 0, len(labels))
	for _, name := range labels {
		id, err := tx.coord.cat.GetOrCreateLabel(name)
		if err != nil {
			return 0, err
		}
		if uint32(id) >= types.MaxLabels {
			return 0, nexuserr.New(nexuserr.KindInvalidInput, "label %q exceeds the %d simultaneously assignable labels per node", name, types.MaxLabels)
		}
		labelIDs = append(labelIDs, id)
		labelBits |= 1 << uint32(id)
	}

	nodeID, err := tx.coord.records.CreateNode(labelBits)
	if err != nil {
		return 0, err
	}

	for _, lid := range labelIDs {
		tx.coord.idx.AddNodeLabel(nodeID, lid)
		tx.coord.cat.IncrementNodeCount(lid, 1)
	}

	tx.pushUndo(func() {
		for _, lid := range labelIDs {
			tx.coord.idx.RemoveNodeLabel(nodeID, lid)
			tx.coord.cat.IncrementNodeCount(lid, -1)
		}
		_ = tx.coord.records.DeleteNode(nodeID)
	})

	tx.publishRecordWritten("node", nodeID)
	return nodeID, nil
}

// DeleteNode tombstones a node and retracts its label memberships from the
// index. It does not cascade to incident relationships; callers must
// delete those first.
func (tx *Tx) DeleteNode(id types.NodeID) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}

	rec, err := tx.coord.records.GetNode(id)
	if err != nil {
		return err
	}
	if !rec.InUse {
		return nexuserr.New(nexuserr.KindNotFound, "node %d does not exist", id)
	}

	if err := tx.coord.records.DeleteNode(id); err != nil {
		return err
	}

	var touched []types.LabelID
	for lid := uint32(0); lid < types.MaxLabels; lid++ {
		if rec.LabelBits&(1<<lid) == 0 {
			continue
		}
		label := types.LabelID(lid)
		touched = append(touched, label)
		tx.coord.idx.RemoveNodeLabel(id, label)
		tx.coord.cat.IncrementNodeCount(label, -1)
	}

	tx.pushUndo(func() {
		_ = tx.coord.records.RestoreNode(id)
		for _, label := range touched {
			tx.coord.idx.AddNodeLabel(id, label)
			tx.coord.cat.IncrementNodeCount(label, 1)
		}
	})

	tx.publishEvent(events.EventRecordDeleted, "node", id)
	return nil
}

// AddLabel adds label to an existing node, registering it in the catalog if
// new.
func (tx *Tx) AddLabel(id types.NodeID, label string) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}
	lid, err := tx.coord.cat.GetOrCreateLabel(label)
	if err != nil {
		return err
	}

	var already bool
	err = tx.coord.records.UpdateNode(id, func(r *types.NodeRecord) {
		already = r.LabelBits&(1<<uint32(lid)) != 0
		r.LabelBits |= 1 << uint32(lid)
	})
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	tx.coord.idx.AddNodeLabel(id, lid)
	tx.coord.cat.IncrementNodeCount(lid, 1)
	tx.pushUndo(func() {
		tx.coord.idx.RemoveNodeLabel(id, lid)
		tx.coord.cat.IncrementNodeCount(lid, -1)
		_ = tx.coord.records.UpdateNode(id, func(r *types.NodeRecord) { r.LabelBits &^= 1 << uint32(lid) })
	})
	tx.publishRecordWritten("node", id)
	return nil
}

// SetNodeProperties replaces node id's property bag.
func (tx *Tx) SetNodeProperties(id types.NodeID, props types.PropertyBag) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}

	rec, err := tx.coord.records.GetNode(id)
	if err != nil {
		return err
	}
	if !rec.InUse {
		return nexuserr.New(nexuserr.KindNotFound, "node %d does not exist", id)
	}

	oldProps, err := tx.coord.props.Load(rec.PropPtr)
	if err != nil {
		return err
	}

	newOffset, err := tx.coord.props.Update(rec.PropPtr, uint64(id), types.EntityNode, props)
	if err != nil {
		return err
	}
	if err := tx.coord.records.UpdateNode(id, func(r *types.NodeRecord) { r.PropPtr = newOffset }); err != nil {
		return err
	}

	if err := tx.reindexProperties(id, oldProps, props); err != nil {
		return err
	}

	tx.pushUndo(func() {
		revert, _ := tx.coord.props.Update(newOffset, uint64(id), types.EntityNode, oldProps)
		_ = tx.coord.records.UpdateNode(id, func(r *types.NodeRecord) { r.PropPtr = revert })
		_ = tx.reindexProperties(id, props, oldProps)
	})

	tx.publishRecordWritten("node", id)
	return nil
}

func (tx *Tx) reindexProperties(id types.NodeID, oldProps, newProps types.PropertyBag) error {
	for key := range oldProps {
		if _, stillPresent := newProps[key]; stillPresent {
			continue
		}
		kid, err := tx.coord.cat.GetOrCreateKey(key)
		if err != nil {
			return err
		}
		tx.coord.idx.ClearNodeProperty(id, kid)
	}
	for key, val := range newProps {
		kid, err := tx.coord.cat.GetOrCreateKey(key)
		if err != nil {
			return err
		}
		tx.coord.idx.SetNodeProperty(id, kid, toIndexValue(val))
	}
	return nil
}

// --- relationship operations ---

// CreateRelationship links src to dst with the given relationship type,
// registering the type name in the catalog if new.
func (tx *Tx) CreateRelationship(src, dst types.NodeID, relType string) (types.RelID, error) {
	if err := tx.requireWritable(); err != nil {
		return 0, err
	}

	typeID, err := tx.coord.cat.GetOrCreateType(relType)
	if err != nil {
		return 0, err
	}

	relID, err := tx.coord.records.CreateRelationship(src, dst, typeID)
	if err != nil {
		return 0, err
	}

	tx.coord.idx.AddRelType(relID, typeID)
	tx.coord.cat.IncrementRelCount(typeID, 1)

	tx.pushUndo(func() {
		tx.coord.idx.RemoveRelType(relID, typeID)
		tx.coord.cat.IncrementRelCount(typeID, -1)
		_ = tx.coord.records.DeleteRelationship(relID)
	})

	tx.publishRecordWritten("relationship", relID)
	return relID, nil
}

// DeleteRelationship tombstones a relationship and retracts its type
// membership from the index.
func (tx *Tx) DeleteRelationship(id types.RelID) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}

	rel, err := tx.coord.records.GetRelationship(id)
	if err != nil {
		return err
	}
	if !rel.InUse {
		return nexuserr.New(nexuserr.KindNotFound, "relationship %d does not exist", id)
	}

	if err := tx.coord.records.DeleteRelationship(id); err != nil {
		return err
	}
	tx.coord.idx.RemoveRelType(id, rel.TypeID)
	tx.coord.cat.IncrementRelCount(rel.TypeID, -1)

	tx.pushUndo(func() {
		_ = tx.coord.records.RestoreRelationship(id)
		tx.coord.idx.AddRelType(id, rel.TypeID)
		tx.coord.cat.IncrementRelCount(rel.TypeID, 1)
	})

	tx.publishEvent(events.EventRecordDeleted, "relationship", id)
	return nil
}

// SetRelProperties replaces relationship id's property bag.
func (tx *Tx) SetRelProperties(id types.RelID, props types.PropertyBag) error {
	if err := tx.requireWritable(); err != nil {
		return err
	}

	rel, err := tx.coord.records.GetRelationship(id)
	if err != nil {
		return err
	}
	if !rel.InUse {
		return nexuserr.New(nexuserr.KindNotFound, "relationship %d does not exist", id)
	}

	oldProps, err := tx.coord.props.Load(rel.PropPtr)
	if err != nil {
		return err
	}
	newOffset, err := tx.coord.props.Update(rel.PropPtr, uint64(id), types.EntityRel, props)
	if err != nil {
		return err
	}
	if err := tx.coord.records.UpdateRelationship(id, func(r *types.RelRecord) { r.PropPtr = newOffset }); err != nil {
		return err
	}

	tx.pushUndo(func() {
		revert, _ := tx.coord.props.Update(newOffset, uint64(id), types.EntityRel, oldProps)
		_ = tx.coord.records.UpdateRelationship(id, func(r *types.RelRecord) { r.PropPtr = revert })
	})

	tx.publishRecordWritten("relationship", id)
	return nil
}

// --- lifecycle ---

// pushUndo records revert as part of this transaction's undo stack. revert
// is run, in LIFO order, only if the transaction is aborted.
func (tx *Tx) pushUndo(revert func()) {
	tx.undo = append(tx.undo, revert)
}

// Commit finalizes the transaction, keeping its writes (already applied to
// the stores) and releasing the single-writer lock if held.
func (tx *Tx) Commit() error {
	if err := tx.requireActive(); err != nil {
		return err
	}

	timer := metrics.NewTimer()
	tx.state = types.TxCommitted
	tx.undo = nil

	if !tx.readOnly {
		atomic.AddUint64(&tx.coord.epoch, 1)
		tx.coord.writeMu.Unlock()
		metrics.TxCommitsTotal.Inc()
		timer.ObserveDuration(metrics.TxCommitDuration)
	}

	tx.coord.broker.Publish(&events.Event{
		Type:    events.EventTxCommitted,
		Message: "transaction committed",
		Metadata: map[string]string{"tx_id": uint64ToString(tx.id)},
	})
	log.WithTxID(tx.id).Debug().Bool("read_only", tx.readOnly).Msg("committed")
	return nil
}

// Abort unwinds every mutation performed by this transaction, in reverse
// order, and releases the single-writer lock if held. Abort on a read-only
// transaction is a no-op beyond state bookkeeping.
func (tx *Tx) Abort() error {
	if err := tx.requireActive(); err != nil {
		return err
	}

	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.state = types.TxAborted

	if !tx.readOnly {
		tx.coord.writeMu.Unlock()
		metrics.TxAbortsTotal.Inc()
	}

	tx.coord.broker.Publish(&events.Event{
		Type:    events.EventTxAborted,
		Message: "transaction aborted",
		Metadata: map[string]string{"tx_id": uint64ToString(tx.id)},
	})
	log.WithTxID(tx.id).Debug().Bool("read_only", tx.readOnly).Msg("aborted")
	return nil
}

// --- read-only accessors, usable from either a read-only or write Tx ---

func (tx *Tx) GetNode(id types.NodeID) (types.NodeRecord, error) {
	return tx.coord.records.GetNode(id)
}

func (tx *Tx) GetRelationship(id types.RelID) (types.RelRecord, error) {
	return tx.coord.records.GetRelationship(id)
}

func (tx *Tx) NodeProperties(ptr uint64) (types.PropertyBag, error) {
	return tx.coord.props.Load(ptr)
}

func (tx *Tx) RelationshipsOf(id types.NodeID) ([]types.RelRecord, error) {
	return tx.coord.records.RelationshipsOf(id)
}

func (tx *Tx) NodesWithLabel(label types.LabelID) []types.NodeID {
	return tx.coord.idx.NodesWithLabel(label)
}

// AllRelIDs returns every in-use relationship id, for statistics
// reconciliation scans.
func (tx *Tx) AllRelIDs() ([]types.RelID, error) {
	return tx.coord.records.AllRelIDs()
}

// AllNodeIDs returns every in-use node id. The executor falls back to it
// when a scan variable carries no label constraint to narrow the index
// lookup.
func (tx *Tx) AllNodeIDs() ([]types.NodeID, error) {
	return tx.coord.records.AllNodeIDs()
}

func (tx *Tx) RelsWithType(typ types.TypeID) []types.RelID {
	return tx.coord.idx.RelsWithType(typ)
}

func (tx *Tx) LabelCardinality(label types.LabelID) int {
	return tx.coord.idx.LabelCardinality(label)
}

func (tx *Tx) LookupEq(key types.KeyID, value types.Value) []types.NodeID {
	return tx.coord.idx.LookupEq(key, value)
}

func (tx *Tx) LookupRange(key types.KeyID, lo, hi *float64) []types.NodeID {
	return tx.coord.idx.LookupRange(key, lo, hi)
}

func (tx *Tx) Catalog() *catalog.Catalog { return tx.coord.cat }

func (tx *Tx) publishRecordWritten(kind string, id any) {
	tx.publishEvent(events.EventRecordWritten, kind, id)
}

func (tx *Tx) publishEvent(t events.EventType, kind string, id any) {
	tx.coord.broker.Publish(&events.Event{
		Type:    t,
		Message: "record " + string(t),
		Metadata: map[string]string{
			"tx_id": uint64ToString(tx.id),
			"kind":  kind,
			"id":    idToString(id),
		},
	})
}

func toIndexValue(v any) types.Value {
	switch val := v.(type) {
	case nil:
		return types.Value{Kind: types.ValueNull}
	case bool:
		return types.Value{Kind: types.ValueBool, Bool: val}
	case float64:
		return types.Value{Kind: types.ValueNumber, IsFloat: true, Num: val}
	case int64:
		return types.Value{Kind: types.ValueNumber, Int: val}
	case string:
		return types.Value{Kind: types.ValueString, Str: val}
	default:
		return types.Value{Kind: types.ValueNull}
	}
}

func uint64ToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func boolToString(b bool) string {
	return strconv.FormatBool(b)
}

func idToString(id any) string {
	switch v := id.(type) {
	case types.NodeID:
		return strconv.FormatUint(uint64(v), 10)
	case types.RelID:
		return strconv.FormatUint(uint64(v), 10)
	default:
		return ""
	}
}
