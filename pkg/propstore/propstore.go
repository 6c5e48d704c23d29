// Package propstore implements the append/overflow property bag store (C2):
// a memory-mapped, append-only log of JSON-valued property bags addressed by
// opaque 64-bit offsets ("prop_ptr" in the record store).
//
// There is no header. Entries are concatenated starting at byte offset 1,
// not 0: offset 0 is reserved as the "no properties" sentinel
// (types.NoProps) on NodeRecord/RelRecord.PropPtr, so the first entry ever
// written must land at a nonzero offset. The log's append cursor
// (nextOffset) is never persisted; every Open rebuilds it by scanning the
// file forward from offset 1, decoding entry headers until it reaches one
// that is entirely zero — bytes that were never written, because a
// pre-grown file is always zero-filled. That position is both the recovered
// nextOffset and the point past which the file holds nothing meaningful.
//
// Entry layout: entity_id:u64 LE | entity_kind:u8 | data_size:u32 LE | data:bytes
//
// entity_kind's high bit (0x80) marks a tombstone: a zero-length entry
// written by Delete so that the rebuild scan, walking the file forward after
// an unclean shutdown, does not resurrect a deleted bag.
package propstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/cuemby/nexus/pkg/log"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

const (
	// firstOffset is the first byte entries may occupy. Offset 0 is never
	// written: it is reserved as types.NoProps, the "no properties" sentinel.
	firstOffset     = 1
	initialFileSize = 1 << 20 // 1MB
	minGrowth       = 2 << 20 // 2MB floor per growth step
	growthFactor    = 1.5

	entryHeaderSize = 8 + 1 + 4 // entity_id + entity_kind + data_size
	tombstoneBit    = 0x80
	entityKindMask  = 0x7f
)

// jsonFloat wraps a float64 property value so it always marshals with a
// decimal point or exponent, even when its value is mathematically a whole
// number. Plain encoding/json renders float64(25) as the bare token "25",
// indistinguishable on a later decode from an int64 property value; this
// type guarantees the disambiguating '.'/'e'/'E' is present, matching the
// original's ryu-backed float formatting.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// normalizeForEncode walks a decoded property value tree ahead of
// json.Marshal, rewriting every float64 leaf into a jsonFloat so the
// encoded bytes always disambiguate floats from int64s.
func normalizeForEncode(v any) any {
	switch val := v.(type) {
	case float64:
		return jsonFloat(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeForEncode(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeForEncode(e)
		}
		return out
	default:
		return val
	}
}

// normalizeForDecode walks a value tree decoded with UseNumber set,
// converting each json.Number into an int64 (when its text carries no
// '.', 'e', or 'E') or a float64 (otherwise) — the inverse of
// normalizeForEncode.
func normalizeForDecode(v any) any {
	switch val := v.(type) {
	case json.Number:
		s := val.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := val.Int64(); err == nil {
				return n
			}
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, e := range val {
			val[k] = normalizeForDecode(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = normalizeForDecode(e)
		}
		return val
	default:
		return val
	}
}

type indexKey struct {
	id   uint64
	kind types.EntityKind
}

type indexEntry struct {
	offset uint64
	size   uint32 // allocated data capacity at this offset (for in-place update fit checks)
}

// Store is the memory-mapped property bag log.
type Store struct {
	mu   sync.RWMutex
	path string
	file *os.File
	data mmap.MMap

	nextOffset uint64
	index      map[indexKey]indexEntry
}

// Open opens or creates the property store file at path.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "open property store %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "stat property store %s", path)
	}
	if info.Size() < initialFileSize {
		if err := f.Truncate(initialFileSize); err != nil {
			f.Close()
			return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "grow property store %s", path)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "mmap property store %s", path)
	}

	s := &Store{
		path:       path,
		file:       f,
		data:       data,
		nextOffset: firstOffset,
		index:      make(map[indexKey]indexEntry),
	}

	if err := s.rebuildIndex(); err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}

	log.WithComponent("propstore").Debug().Str("path", path).Uint64("next_offset", s.nextOffset).Msg("opened property store")
	return s, nil
}

// rebuildIndex scans the log forward from firstOffset, reconstructing the
// in-memory index and recovering nextOffset — there is no persisted cursor
// to trust. The scan stops at the first entry header that is entirely zero:
// a position the log never wrote to, whether because the log is empty or
// because a prior run ended cleanly right before it. Later entries for the
// same (entity_id, kind) key override earlier ones, including tombstones,
// because the scan walks the file in write order.
func (s *Store) rebuildIndex() error {
	s.index = make(map[indexKey]indexEntry)
	offset := uint64(firstOffset)
	for {
		if offset+entryHeaderSize > uint64(len(s.data)) {
			break
		}
		entityID := binary.LittleEndian.Uint64(s.data[offset : offset+8])
		kindByte := s.data[offset+8]
		dataSize := binary.LittleEndian.Uint32(s.data[offset+9 : offset+13])

		if entityID == 0 && kindByte == 0 && dataSize == 0 {
			break
		}

		entrySize := entryHeaderSize + uint64(dataSize)
		if offset+entrySize > uint64(len(s.data)) {
			return nexuserr.New(nexuserr.KindStorageError, "property store truncated at offset %d", offset)
		}

		key := indexKey{id: entityID, kind: types.EntityKind(kindByte & entityKindMask)}
		if kindByte&tombstoneBit != 0 {
			delete(s.index, key)
		} else {
			s.index[key] = indexEntry{offset: offset, size: dataSize}
		}

		offset += entrySize
	}
	s.nextOffset = offset
	return nil
}

// ensureCapacity grows the mapped file so that at least `need` more bytes
// are available past nextOffset, using 1.5x growth with a 2MB floor.
func (s *Store) ensureCapacity(need uint64) error {
	cur := uint64(len(s.data))
	if s.nextOffset+need <= cur {
		return nil
	}

	growth := uint64(float64(cur) * (growthFactor - 1))
	if growth < minGrowth {
		growth = minGrowth
	}
	newSize := cur + growth
	for s.nextOffset+need > newSize {
		newSize += minGrowth
	}

	if err := s.data.Unmap(); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "unmap before grow")
	}
	if err := s.file.Truncate(int64(newSize)); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "truncate property store")
	}
	data, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "remap after grow")
	}
	s.data = data
	return nil
}

// Store appends a new property bag and returns its offset (never zero).
func (s *Store) Store(entityID uint64, kind types.EntityKind, props types.PropertyBag) (uint64, error) {
	body, err := json.Marshal(normalizeForEncode(map[string]any(props)))
	if err != nil {
		return 0, nexuserr.Wrap(nexuserr.KindInvalidInput, err, "marshal property bag")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCapacity(entryHeaderSize + uint64(len(body))); err != nil {
		return 0, err
	}

	offset := s.nextOffset
	s.writeEntry(offset, entityID, kind, body)
	s.nextOffset = offset + entryHeaderSize + uint64(len(body))

	s.index[indexKey{id: entityID, kind: kind}] = indexEntry{offset: offset, size: uint32(len(body))}
	return offset, nil
}

func (s *Store) writeEntry(offset uint64, entityID uint64, kind types.EntityKind, body []byte) {
	binary.LittleEndian.PutUint64(s.data[offset:offset+8], entityID)
	s.data[offset+8] = byte(kind) & entityKindMask
	binary.LittleEndian.PutUint32(s.data[offset+9:offset+13], uint32(len(body)))
	copy(s.data[offset+entryHeaderSize:], body)
}

// Load decodes the property bag stored at offset. Callers must treat
// types.NoProps (zero) as "no properties" and never call Load with it.
func (s *Store) Load(offset uint64) (types.PropertyBag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset == types.NoProps {
		return types.PropertyBag{}, nil
	}
	if offset+entryHeaderSize > uint64(len(s.data)) {
		return nil, nexuserr.New(nexuserr.KindStorageError, "property offset %d out of range", offset)
	}
	dataSize := binary.LittleEndian.Uint32(s.data[offset+9 : offset+13])
	body := s.data[offset+entryHeaderSize : offset+entryHeaderSize+uint64(dataSize)]

	props := make(map[string]any)
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return nil, nexuserr.Wrap(nexuserr.KindStorageError, err, "decode property bag at offset %d", offset)
	}
	return types.PropertyBag(normalizeForDecode(props).(map[string]any)), nil
}

// Update rewrites the property bag for (entityID, kind). If the new
// encoding fits within the originally allocated slot it is written in
// place at the same offset; otherwise a new entry is appended and the old
// slot is orphaned (its bytes remain in the file, unreachable from the
// index, until a future compaction). Returns the (possibly unchanged)
// offset the caller must store back into the owning record.
func (s *Store) Update(offset uint64, entityID uint64, kind types.EntityKind, props types.PropertyBag) (uint64, error) {
	body, err := json.Marshal(normalizeForEncode(map[string]any(props)))
	if err != nil {
		return 0, nexuserr.Wrap(nexuserr.KindInvalidInput, err, "marshal property bag")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := indexKey{id: entityID, kind: kind}
	existing, ok := s.index[key]
	if ok && existing.offset == offset && uint64(len(body)) <= uint64(existing.size) {
		binary.LittleEndian.PutUint32(s.data[offset+9:offset+13], uint32(len(body)))
		copy(s.data[offset+entryHeaderSize:], body)
		s.index[key] = indexEntry{offset: offset, size: uint32(len(body))}
		return offset, nil
	}

	if err := s.ensureCapacity(entryHeaderSize + uint64(len(body))); err != nil {
		return 0, err
	}
	newOffset := s.nextOffset
	s.writeEntry(newOffset, entityID, kind, body)
	s.nextOffset = newOffset + entryHeaderSize + uint64(len(body))
	s.index[key] = indexEntry{offset: newOffset, size: uint32(len(body))}
	return newOffset, nil
}

// Delete removes (entityID, kind) from the index and appends a tombstone
// record so the deletion survives a RebuildIndex after an unclean shutdown.
// The original bag's bytes are never rewritten.
func (s *Store) Delete(entityID uint64, kind types.EntityKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := indexKey{id: entityID, kind: kind}
	if _, ok := s.index[key]; !ok {
		return nil
	}
	if err := s.ensureCapacity(entryHeaderSize); err != nil {
		return err
	}
	offset := s.nextOffset
	binary.LittleEndian.PutUint64(s.data[offset:offset+8], entityID)
	s.data[offset+8] = byte(kind)&entityKindMask | tombstoneBit
	binary.LittleEndian.PutUint32(s.data[offset+9:offset+13], 0)
	s.nextOffset = offset + entryHeaderSize

	delete(s.index, key)
	return nil
}

// ClearAll truncates the store back to an empty log. Used only by the
// offline rebuild tool and by tests.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.data.Unmap(); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "unmap before clear")
	}
	if err := s.file.Truncate(initialFileSize); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "truncate during clear")
	}
	data, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "remap during clear")
	}
	s.data = data
	s.nextOffset = firstOffset
	s.index = make(map[indexKey]indexEntry)
	return nil
}

// Flush syncs the mapped region and the underlying file to stable storage.
func (s *Store) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.data.Flush(); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "flush property store mmap")
	}
	if err := s.file.Sync(); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "fsync property store")
	}
	return nil
}

// HealthCheck reports whether the store's file and mapping are still
// reachable.
func (s *Store) HealthCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.file.Stat(); err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "property store file unreachable")
	}
	if len(s.data) < firstOffset {
		return nexuserr.New(nexuserr.KindStorageError, "property store mapping too small")
	}
	return nil
}

// Size returns the current size in bytes of the mapped file.
func (s *Store) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data))
}

// Close unmaps and closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.data.Unmap(); err != nil {
		return fmt.Errorf("unmap property store: %w", err)
	}
	return s.file.Close()
}
