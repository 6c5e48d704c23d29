package propstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "props.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	props := types.PropertyBag{"name": "alice", "age": float64(30)}
	offset, err := s.Store(1, types.EntityNode, props)
	require.NoError(t, err)
	require.NotZero(t, offset, "Store must never hand out offset zero")

	got, err := s.Load(offset)
	require.NoError(t, err)
	require.Equal(t, "alice", got["name"])
	require.Equal(t, float64(30), got["age"])
}

func TestLoadNoPropsSentinel(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Load(types.NoProps)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUpdateInPlaceWhenSmaller(t *testing.T) {
	s := openTestStore(t)

	offset, err := s.Store(5, types.EntityNode, types.PropertyBag{"bio": "a very long biography indeed"})
	require.NoError(t, err)

	newOffset, err := s.Update(offset, 5, types.EntityNode, types.PropertyBag{"bio": "short"})
	require.NoError(t, err)
	require.Equal(t, offset, newOffset, "update that fits must stay at the same offset")

	got, err := s.Load(newOffset)
	require.NoError(t, err)
	require.Equal(t, "short", got["bio"])
}

func TestUpdateRelocatesWhenLarger(t *testing.T) {
	s := openTestStore(t)

	offset, err := s.Store(7, types.EntityNode, types.PropertyBag{"bio": "x"})
	require.NoError(t, err)

	newOffset, err := s.Update(offset, 7, types.EntityNode, types.PropertyBag{"bio": "a much longer biography that cannot fit in the old slot"})
	require.NoError(t, err)
	require.NotEqual(t, offset, newOffset, "update that no longer fits must relocate")

	got, err := s.Load(newOffset)
	require.NoError(t, err)
	require.Contains(t, got["bio"], "longer biography")
}

func TestDeleteRemovesFromIndexWithoutRewritingBytes(t *testing.T) {
	s := openTestStore(t)

	offset, err := s.Store(9, types.EntityNode, types.PropertyBag{"k": "v"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(9, types.EntityNode))

	_, ok := s.index[indexKey{id: 9, kind: types.EntityNode}]
	require.False(t, ok)

	// the old bytes are untouched; loading the stale offset directly
	// still decodes the original bag (callers must not do this once
	// the owning record's prop_ptr has been cleared).
	got, err := s.Load(offset)
	require.NoError(t, err)
	require.Equal(t, "v", got["k"])
}

func TestRebuildIndexAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "props.db")

	s, err := Open(path)
	require.NoError(t, err)

	off1, err := s.Store(1, types.EntityNode, types.PropertyBag{"a": float64(1)})
	require.NoError(t, err)
	_, err = s.Store(2, types.EntityNode, types.PropertyBag{"b": float64(2)})
	require.NoError(t, err)
	require.NoError(t, s.Delete(2, types.EntityNode))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(off1)
	require.NoError(t, err)
	require.Equal(t, float64(1), got["a"])

	_, ok := reopened.index[indexKey{id: 2, kind: types.EntityNode}]
	require.False(t, ok, "tombstoned entry must not reappear after rebuild")
}

func TestClearAllResetsLog(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Store(1, types.EntityNode, types.PropertyBag{"a": float64(1)})
	require.NoError(t, err)

	require.NoError(t, s.ClearAll())
	require.Equal(t, uint64(firstOffset), s.nextOffset)
	require.Empty(t, s.index)

	offset, err := s.Store(1, types.EntityNode, types.PropertyBag{"a": float64(1)})
	require.NoError(t, err)
	require.Equal(t, uint64(firstOffset), offset, "first store after clear reuses the base offset")
}

// TestIntAndFloatSurviveRoundTrip pins the property store's on-disk JSON
// encoding to distinguish a whole-number float from an int64: plain
// encoding/json renders float64(25) and int64(25) identically as the bare
// token "25", which would make them indistinguishable again once decoded.
func TestIntAndFloatSurviveRoundTrip(t *testing.T) {
	s := openTestStore(t)

	offset, err := s.Store(1, types.EntityNode, types.PropertyBag{
		"age":    int64(25),
		"weight": float64(25),
	})
	require.NoError(t, err)

	got, err := s.Load(offset)
	require.NoError(t, err)
	require.Equal(t, int64(25), got["age"], "whole-number int property must decode back as int64")
	require.Equal(t, float64(25), got["weight"], "whole-number float property must decode back as float64")
}

func TestHealthCheck(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.HealthCheck())
}

// TestFirstEntryStartsAtOffsetOne pins the log layout to spec: offset 0 is
// the NoProps sentinel and is never written to, so the first entry must
// land at byte 1.
func TestFirstEntryStartsAtOffsetOne(t *testing.T) {
	s := openTestStore(t)

	offset, err := s.Store(1, types.EntityNode, types.PropertyBag{"a": float64(1)})
	require.NoError(t, err)
	require.Equal(t, uint64(firstOffset), offset)
	require.Zero(t, s.data[0], "byte 0 must never be written")
}

// TestRebuildIndexScansToAllZeroHeader simulates an unclean shutdown: there
// is no persisted cursor, so reopening a store must recover nextOffset by
// scanning the log until it finds an entry header that was never written
// (all zero), not by trusting any value left over from the previous run.
func TestRebuildIndexScansToAllZeroHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "props.db")

	s, err := Open(path)
	require.NoError(t, err)

	off1, err := s.Store(1, types.EntityNode, types.PropertyBag{"a": float64(1)})
	require.NoError(t, err)
	off2, err := s.Store(2, types.EntityNode, types.PropertyBag{"b": float64(2)})
	require.NoError(t, err)
	wantNext := s.nextOffset
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, wantNext, reopened.nextOffset, "nextOffset must be recovered purely from the scan")

	got1, err := reopened.Load(off1)
	require.NoError(t, err)
	require.Equal(t, float64(1), got1["a"])
	got2, err := reopened.Load(off2)
	require.NoError(t, err)
	require.Equal(t, float64(2), got2["b"])

	nextAppend, err := reopened.Store(3, types.EntityNode, types.PropertyBag{"c": float64(3)})
	require.NoError(t, err)
	require.Equal(t, wantNext, nextAppend, "append after rebuild must continue exactly where the scan stopped")
}
