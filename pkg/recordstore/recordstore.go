// Package recordstore implements the record store (C1): fixed-width,
// memory-mapped node and relationship records addressed directly by id
// (id * record size = byte offset), with per-node relationship chains and
// tombstone deletion.
//
// Entity ids are dense, monotonic, and never reused: deleting a record
// flips its in-use flag but never returns the id to a free list and never
// rewrites the rest of the record's bytes.
package recordstore

import (
	"encoding/binary"
	"os"
	"sync"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

const (
	nodeRecordSize = 1 + 8 + 8 + 8 // inUse + labelBits + firstRelPtr + propPtr
	relRecordSize  = 1 + 4 + 8 + 8 + 8 + 8 + 8
)

// fixedLog is a generic append-growable array of fixed-width records backed
// by a memory-mapped file. It knows nothing about node/relationship shape;
// Store wraps it twice, once per record kind. There is no header: record 0
// starts at byte 0, and the allocated record count is always
// len(file) / recordSize, recovered from the file's size alone on reopen —
// the file is truncated to exactly that many records' worth of bytes on
// every allocation, trading the efficiency of batch-growth slack for a
// record layout that is bit-exact with id * recordSize.
type fixedLog struct {
	mu         sync.RWMutex
	file       *os.File
	data       mmap.MMap
	recordSize int
	count      uint64 // number of allocated (ever-created) records
}

func openFixedLog(path string, recordSize int) (*fixedLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "open record file %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "stat record file %s", path)
	}
	count := uint64(info.Size()) / uint64(recordSize)
	size := int64(count) * int64(recordSize)
	if size == 0 {
		// mmap requires a non-empty file; start with room for one record.
		size = int64(recordSize)
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "grow record file %s", path)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "mmap record file %s", path)
	}

	return &fixedLog{file: f, data: data, recordSize: recordSize, count: count}, nil
}

func (fl *fixedLog) offsetOf(id uint64) int64 {
	return int64(id) * int64(fl.recordSize)
}

// grow extends the file to hold exactly n records, remapping the mmap
// region to match.
func (fl *fixedLog) grow(n uint64) error {
	need := int64(n) * int64(fl.recordSize)
	if need <= int64(len(fl.data)) {
		return nil
	}
	if err := fl.data.Unmap(); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "unmap before grow")
	}
	if err := fl.file.Truncate(need); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "truncate record file")
	}
	data, err := mmap.Map(fl.file, mmap.RDWR, 0)
	if err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "remap record file")
	}
	fl.data = data
	return nil
}

// allocate reserves the next sequential id and returns the byte slice the
// caller should populate in place.
func (fl *fixedLog) allocate() (uint64, []byte, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	id := fl.count
	if err := fl.grow(id + 1); err != nil {
		return 0, nil, err
	}
	fl.count++

	off := fl.offsetOf(id)
	return id, fl.data[off : off+int64(fl.recordSize)], nil
}

func (fl *fixedLog) record(id uint64) ([]byte, error) {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	if id >= fl.count {
		return nil, nexuserr.New(nexuserr.KindNotFound, "record %d does not exist", id)
	}
	off := fl.offsetOf(id)
	return fl.data[off : off+int64(fl.recordSize)], nil
}

func (fl *fixedLog) withRecord(id uint64, fn func(buf []byte) error) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if id >= fl.count {
		return nexuserr.New(nexuserr.KindNotFound, "record %d does not exist", id)
	}
	off := fl.offsetOf(id)
	return fn(fl.data[off : off+int64(fl.recordSize)])
}

func (fl *fixedLog) flush() error {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if err := fl.data.Flush(); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "flush record mmap")
	}
	return fl.file.Sync()
}

func (fl *fixedLog) size() int64 {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return int64(len(fl.data))
}

func (fl *fixedLog) close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if err := fl.data.Unmap(); err != nil {
		return err
	}
	return fl.file.Close()
}

// Store is the combined node + relationship record store.
type Store struct {
	nodes *fixedLog
	rels  *fixedLog
}

// Open opens (creating if necessary) the node and relationship record
// files at nodesPath and relsPath.
func Open(nodesPath, relsPath string) (*Store, error) {
	nodes, err := openFixedLog(nodesPath, nodeRecordSize)
	if err != nil {
		return nil, err
	}
	rels, err := openFixedLog(relsPath, relRecordSize)
	if err != nil {
		nodes.close()
		return nil, err
	}
	log.WithComponent("recordstore").Debug().
		Uint64("nodes", nodes.count).Uint64("rels", rels.count).
		Msg("opened record store")
	return &Store{nodes: nodes, rels: rels}, nil
}

// --- node records ---

func encodeNode(buf []byte, r types.NodeRecord) {
	if r.InUse {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	binary.LittleEndian.PutUint64(buf[1:9], r.LabelBits)
	binary.LittleEndian.PutUint64(buf[9:17], r.FirstRelPtr)
	binary.LittleEndian.PutUint64(buf[17:25], r.PropPtr)
}

func decodeNode(id uint64, buf []byte) types.NodeRecord {
	return types.NodeRecord{
		ID:          types.NodeID(id),
		InUse:       buf[0] != 0,
		LabelBits:   binary.LittleEndian.Uint64(buf[1:9]),
		FirstRelPtr: binary.LittleEndian.Uint64(buf[9:17]),
		PropPtr:     binary.LittleEndian.Uint64(buf[17:25]),
	}
}

// CreateNode allocates a new node record with the given label bitmask and
// no properties or relationships yet.
func (s *Store) CreateNode(labelBits uint64) (types.NodeID, error) {
	id, buf, err := s.nodes.allocate()
	if err != nil {
		return 0, err
	}
	encodeNode(buf, types.NodeRecord{
		InUse:       true,
		LabelBits:   labelBits,
		FirstRelPtr: types.NoChain,
		PropPtr:     types.NoProps,
	})
	return types.NodeID(id), nil
}

// GetNode reads the node record for id. Returns NotFound if id was never
// allocated, and the record's InUse flag reflects whether it was deleted.
func (s *Store) GetNode(id types.NodeID) (types.NodeRecord, error) {
	buf, err := s.nodes.record(uint64(id))
	if err != nil {
		return types.NodeRecord{}, err
	}
	return decodeNode(uint64(id), buf), nil
}

// UpdateNode applies mutate to the current record and writes it back.
// Fields the caller doesn't touch are preserved automatically since mutate
// receives the record already populated with its current values.
func (s *Store) UpdateNode(id types.NodeID, mutate func(*types.NodeRecord)) error {
	return s.nodes.withRecord(uint64(id), func(buf []byte) error {
		rec := decodeNode(uint64(id), buf)
		if !rec.InUse {
			return nexuserr.New(nexuserr.KindNotFound, "node %d is deleted", id)
		}
		mutate(&rec)
		encodeNode(buf, rec)
		return nil
	})
}

// DeleteNode tombstones a node: the in-use flag is cleared, no other bytes
// are rewritten, and the id is never reused.
func (s *Store) DeleteNode(id types.NodeID) error {
	return s.nodes.withRecord(uint64(id), func(buf []byte) error {
		if buf[0] == 0 {
			return nexuserr.New(nexuserr.KindNotFound, "node %d is already deleted", id)
		}
		buf[0] = 0
		return nil
	})
}

// NodeCount returns the number of node ids ever allocated (including
// tombstoned ones).
func (s *Store) NodeCount() uint64 {
	s.nodes.mu.RLock()
	defer s.nodes.mu.RUnlock()
	return s.nodes.count
}

// AllNodeIDs returns every in-use node id, for the executor's full-scan
// fallback when a MATCH pattern's scan variable carries no label
// constraint.
func (s *Store) AllNodeIDs() ([]types.NodeID, error) {
	count := s.NodeCount()
	out := make([]types.NodeID, 0, count)
	for id := uint64(0); id < count; id++ {
		rec, err := s.GetNode(types.NodeID(id))
		if err != nil {
			return nil, err
		}
		if rec.InUse {
			out = append(out, types.NodeID(id))
		}
	}
	return out, nil
}

// --- relationship records ---

func encodeRel(buf []byte, r types.RelRecord) {
	if r.InUse {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(r.TypeID))
	binary.LittleEndian.PutUint64(buf[5:13], uint64(r.SrcNode))
	binary.LittleEndian.PutUint64(buf[13:21], uint64(r.DstNode))
	binary.LittleEndian.PutUint64(buf[21:29], r.NextSrcPtr)
	binary.LittleEndian.PutUint64(buf[29:37], r.NextDstPtr)
	binary.LittleEndian.PutUint64(buf[37:45], r.PropPtr)
}

func decodeRel(id uint64, buf []byte) types.RelRecord {
	return types.RelRecord{
		ID:         types.RelID(id),
		InUse:      buf[0] != 0,
		TypeID:     types.TypeID(binary.LittleEndian.Uint32(buf[1:5])),
		SrcNode:    types.NodeID(binary.LittleEndian.Uint64(buf[5:13])),
		DstNode:    types.NodeID(binary.LittleEndian.Uint64(buf[13:21])),
		NextSrcPtr: binary.LittleEndian.Uint64(buf[21:29]),
		NextDstPtr: binary.LittleEndian.Uint64(buf[29:37]),
		PropPtr:    binary.LittleEndian.Uint64(buf[37:45]),
	}
}

// CreateRelationship allocates a new relationship record between src and
// dst and splices it onto the head of both nodes' relationship chains.
// This is the real implementation of the chain-linkage the original
// reference left as a stub; see DESIGN.md.
func (s *Store) CreateRelationship(src, dst types.NodeID, typeID types.TypeID) (types.RelID, error) {
	srcRec, err := s.GetNode(src)
	if err != nil {
		return 0, err
	}
	if !srcRec.InUse {
		return 0, nexuserr.New(nexuserr.KindNotFound, "source node %d is deleted", src)
	}
	dstRec, err := s.GetNode(dst)
	if err != nil {
		return 0, err
	}
	if !dstRec.InUse {
		return 0, nexuserr.New(nexuserr.KindNotFound, "destination node %d is deleted", dst)
	}

	id, buf, err := s.rels.allocate()
	if err != nil {
		return 0, err
	}
	encodeRel(buf, types.RelRecord{
		InUse:      true,
		TypeID:     typeID,
		SrcNode:    src,
		DstNode:    dst,
		NextSrcPtr: srcRec.FirstRelPtr,
		NextDstPtr: dstRec.FirstRelPtr,
		PropPtr:    types.NoProps,
	})

	if err := s.UpdateNode(src, func(r *types.NodeRecord) { r.FirstRelPtr = id }); err != nil {
		return 0, err
	}
	if dst != src {
		if err := s.UpdateNode(dst, func(r *types.NodeRecord) { r.FirstRelPtr = id }); err != nil {
			return 0, err
		}
	}
	return types.RelID(id), nil
}

// GetRelationship reads the relationship record for id.
func (s *Store) GetRelationship(id types.RelID) (types.RelRecord, error) {
	buf, err := s.rels.record(uint64(id))
	if err != nil {
		return types.RelRecord{}, err
	}
	return decodeRel(uint64(id), buf), nil
}

// UpdateRelationship applies mutate to the current record and writes it
// back.
func (s *Store) UpdateRelationship(id types.RelID, mutate func(*types.RelRecord)) error {
	return s.rels.withRecord(uint64(id), func(buf []byte) error {
		rec := decodeRel(uint64(id), buf)
		if !rec.InUse {
			return nexuserr.New(nexuserr.KindNotFound, "relationship %d is deleted", id)
		}
		mutate(&rec)
		encodeRel(buf, rec)
		return nil
	})
}

// DeleteRelationship tombstones a relationship. The chain pointers of its
// neighbors are left untouched: traversal skips tombstoned records rather
// than requiring an eager unlink, matching the record store's
// no-byte-rewrite-on-delete contract.
func (s *Store) DeleteRelationship(id types.RelID) error {
	return s.rels.withRecord(uint64(id), func(buf []byte) error {
		if buf[0] == 0 {
			return nexuserr.New(nexuserr.KindNotFound, "relationship %d is already deleted", id)
		}
		buf[0] = 0
		return nil
	})
}

// RestoreNode flips a tombstoned node's in-use flag back on. It exists
// solely to let the transaction coordinator undo a delete within the same
// transaction that performed it, while the single-writer lock is still
// held; it is not part of the public graph API.
func (s *Store) RestoreNode(id types.NodeID) error {
	return s.nodes.withRecord(uint64(id), func(buf []byte) error {
		buf[0] = 1
		return nil
	})
}

// RestoreRelationship is RestoreNode's relationship-store counterpart.
func (s *Store) RestoreRelationship(id types.RelID) error {
	return s.rels.withRecord(uint64(id), func(buf []byte) error {
		buf[0] = 1
		return nil
	})
}

// RelCount returns the number of relationship ids ever allocated.
func (s *Store) RelCount() uint64 {
	s.rels.mu.RLock()
	defer s.rels.mu.RUnlock()
	return s.rels.count
}

// AllRelIDs returns every in-use relationship id, for statistics
// reconciliation scans that need the full relationship set rather than
// one node's incident chain.
func (s *Store) AllRelIDs() ([]types.RelID, error) {
	count := s.RelCount()
	out := make([]types.RelID, 0, count)
	for id := uint64(0); id < count; id++ {
		rec, err := s.GetRelationship(types.RelID(id))
		if err != nil {
			return nil, err
		}
		if rec.InUse {
			out = append(out, types.RelID(id))
		}
	}
	return out, nil
}

// RelationshipsOf walks node id's relationship chain from FirstRelPtr,
// following NextSrcPtr when the node is the relationship's source side and
// NextDstPtr when it is the destination side, and returns every
// non-tombstoned relationship found. This is the traversal the original
// reference's get_first_relationship stub never actually performed.
func (s *Store) RelationshipsOf(id types.NodeID) ([]types.RelRecord, error) {
	node, err := s.GetNode(id)
	if err != nil {
		return nil, err
	}
	if !node.InUse {
		return nil, nexuserr.New(nexuserr.KindNotFound, "node %d is deleted", id)
	}

	var out []types.RelRecord
	cursor := node.FirstRelPtr
	seen := make(map[uint64]bool)
	for cursor != types.NoChain {
		if seen[cursor] {
			return nil, nexuserr.New(nexuserr.KindStorageError, "cycle detected in relationship chain for node %d", id)
		}
		seen[cursor] = true

		rel, err := s.GetRelationship(types.RelID(cursor))
		if err != nil {
			return nil, err
		}

		var next uint64
		if rel.SrcNode == id {
			next = rel.NextSrcPtr
		} else if rel.DstNode == id {
			next = rel.NextDstPtr
		} else {
			return nil, nexuserr.New(nexuserr.KindStorageError, "relationship %d in node %d's chain references neither side", cursor, id)
		}

		if rel.InUse {
			out = append(out, rel)
		}
		cursor = next
	}
	return out, nil
}

// Flush syncs both mapped files to stable storage.
func (s *Store) Flush() error {
	if err := s.nodes.flush(); err != nil {
		return err
	}
	return s.rels.flush()
}

// Size returns the (node file size, relationship file size) in bytes.
func (s *Store) Size() (nodeBytes, relBytes int64) {
	return s.nodes.size(), s.rels.size()
}

// Close unmaps and closes both underlying files.
func (s *Store) Close() error {
	if err := s.nodes.close(); err != nil {
		return err
	}
	return s.rels.close()
}
