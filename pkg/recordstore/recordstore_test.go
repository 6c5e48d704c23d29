package recordstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "nodes.db"), filepath.Join(dir, "rels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetNode(t *testing.T) {
	s := openTestStore(t)

	id, err := s.CreateNode(1 << 3)
	require.NoError(t, err)

	rec, err := s.GetNode(id)
	require.NoError(t, err)
	require.True(t, rec.InUse)
	require.Equal(t, uint64(1<<3), rec.LabelBits)
	require.Equal(t, types.NoChain, rec.FirstRelPtr)
	require.Equal(t, types.NoProps, rec.PropPtr)
}

func TestNodeIDsAreMonotonicAndNeverReused(t *testing.T) {
	s := openTestStore(t)

	a, err := s.CreateNode(0)
	require.NoError(t, err)
	b, err := s.CreateNode(0)
	require.NoError(t, err)
	require.Equal(t, a+1, b)

	require.NoError(t, s.DeleteNode(a))
	c, err := s.CreateNode(0)
	require.NoError(t, err)
	require.NotEqual(t, a, c, "deleted id must never be reused")
	require.Equal(t, b+1, c)
}

func TestDeleteNodeTombstonesOnly(t *testing.T) {
	s := openTestStore(t)

	id, err := s.CreateNode(7)
	require.NoError(t, err)
	require.NoError(t, s.DeleteNode(id))

	rec, err := s.GetNode(id)
	require.NoError(t, err)
	require.False(t, rec.InUse)
	require.Equal(t, uint64(7), rec.LabelBits, "tombstone must not clear other fields")
}

func TestGetNodeNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetNode(999)
	require.Error(t, err)
}

func TestCreateRelationshipLinksBothChains(t *testing.T) {
	s := openTestStore(t)

	a, err := s.CreateNode(0)
	require.NoError(t, err)
	b, err := s.CreateNode(0)
	require.NoError(t, err)

	r1, err := s.CreateRelationship(a, b, 1)
	require.NoError(t, err)

	aRec, err := s.GetNode(a)
	require.NoError(t, err)
	require.Equal(t, uint64(r1), aRec.FirstRelPtr)

	bRec, err := s.GetNode(b)
	require.NoError(t, err)
	require.Equal(t, uint64(r1), bRec.FirstRelPtr)

	r2, err := s.CreateRelationship(a, b, 2)
	require.NoError(t, err)

	aRels, err := s.RelationshipsOf(a)
	require.NoError(t, err)
	require.Len(t, aRels, 2)

	ids := []types.RelID{aRels[0].ID, aRels[1].ID}
	require.Contains(t, ids, r1)
	require.Contains(t, ids, r2)
}

func TestRelationshipsOfSkipsDeleted(t *testing.T) {
	s := openTestStore(t)

	a, _ := s.CreateNode(0)
	b, _ := s.CreateNode(0)
	r1, _ := s.CreateRelationship(a, b, 1)
	r2, err := s.CreateRelationship(a, b, 2)
	require.NoError(t, err)

	require.NoError(t, s.DeleteRelationship(r1))

	rels, err := s.RelationshipsOf(a)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, r2, rels[0].ID)
}

func TestSelfLoopRelationship(t *testing.T) {
	s := openTestStore(t)

	a, _ := s.CreateNode(0)
	r, err := s.CreateRelationship(a, a, 1)
	require.NoError(t, err)

	rels, err := s.RelationshipsOf(a)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, r, rels[0].ID)
}

func TestUpdateNodePreservesUntouchedFields(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.CreateNode(1)

	require.NoError(t, s.UpdateNode(id, func(r *types.NodeRecord) {
		r.PropPtr = 42
	}))

	rec, err := s.GetNode(id)
	require.NoError(t, err)
	require.Equal(t, uint64(42), rec.PropPtr)
	require.Equal(t, uint64(1), rec.LabelBits)
}

func TestGrowthAcrossManyNodes(t *testing.T) {
	s := openTestStore(t)

	const n = 2005
	var last types.NodeID
	for i := 0; i < n; i++ {
		id, err := s.CreateNode(0)
		require.NoError(t, err)
		last = id
	}

	rec, err := s.GetNode(last)
	require.NoError(t, err)
	require.True(t, rec.InUse)
	require.Equal(t, uint64(n), s.NodeCount())
}

// TestRecordOffsetIsBitExact pins the record file layout to id * recordSize
// with no leading header: record 0 starts at byte 0, and the file's size
// after n allocations is exactly n * recordSize.
func TestRecordOffsetIsBitExact(t *testing.T) {
	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.db")
	s, err := Open(nodesPath, filepath.Join(dir, "rels.db"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.CreateNode(uint64(i))
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	info, err := os.Stat(nodesPath)
	require.NoError(t, err)
	require.Equal(t, int64(3*nodeRecordSize), info.Size())

	raw, err := os.ReadFile(nodesPath)
	require.NoError(t, err)
	require.Equal(t, byte(1), raw[0], "record 0's in-use byte sits at file offset 0")
}

// TestRecordCountRecoveredFromFileSize confirms a reopened store derives
// its allocated count from len(file)/recordSize rather than a persisted
// header field.
func TestRecordCountRecoveredFromFileSize(t *testing.T) {
	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.db")
	relsPath := filepath.Join(dir, "rels.db")

	s, err := Open(nodesPath, relsPath)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.CreateNode(0)
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	s2, err := Open(nodesPath, relsPath)
	require.NoError(t, err)
	defer s2.Close()
	require.Equal(t, uint64(5), s2.NodeCount())
}
