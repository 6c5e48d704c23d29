package txn

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/propstore"
	"github.com/cuemby/nexus/pkg/recordstore"
	"github.com/cuemby/nexus/pkg/types"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	dir := t.TempDir()

	records, err := recordstore.Open(filepath.Join(dir, "nodes.db"), filepath.Join(dir, "rels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = records.Close() })

	props, err := propstore.Open(filepath.Join(dir, "props.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = props.Close() })

	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	idx := index.New()
	broker := events.NewBroker()

	return New(records, props, cat, idx, broker)
}

func TestCreateNodeCommitPersists(t *testing.T) {
	coord := newTestCoordinator(t)

	tx := coord.Begin(false)
	id, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	rtx := coord.Begin(true)
	rec, err := rtx.GetNode(id)
	require.NoError(t, err)
	require.True(t, rec.InUse)
	require.NoError(t, rtx.Commit())

	person, err := coord.cat.GetOrCreateLabel("Person")
	require.NoError(t, err)
	require.Contains(t, rtx.NodesWithLabel(person), id)
}

func TestCreateNodeAbortUndoesEverything(t *testing.T) {
	coord := newTestCoordinator(t)

	tx := coord.Begin(false)
	id, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.Abort())

	person, err := coord.cat.GetOrCreateLabel("Person")
	require.NoError(t, err)
	require.NotContains(t, coord.idx.NodesWithLabel(person), id)
	require.Zero(t, coord.cat.Stats().LabelCounts[person])

	rtx := coord.Begin(true)
	rec, err := rtx.GetNode(id)
	require.NoError(t, err)
	require.False(t, rec.InUse, "aborted create must leave the record tombstoned")
	require.NoError(t, rtx.Commit())
}

func TestDeleteNodeAbortRestoresLabelsAndStats(t *testing.T) {
	coord := newTestCoordinator(t)

	tx := coord.Begin(false)
	id, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	person, _ := coord.cat.GetOrCreateLabel("Person")
	require.EqualValues(t, 1, coord.cat.Stats().LabelCounts[person])

	tx2 := coord.Begin(false)
	require.NoError(t, tx2.DeleteNode(id))
	require.NoError(t, tx2.Abort())

	require.EqualValues(t, 1, coord.cat.Stats().LabelCounts[person])
	require.Contains(t, coord.idx.NodesWithLabel(person), id)

	rtx := coord.Begin(true)
	rec, err := rtx.GetNode(id)
	require.NoError(t, err)
	require.True(t, rec.InUse)
	require.NoError(t, rtx.Commit())
}

func TestCreateRelationshipAndTraverse(t *testing.T) {
	coord := newTestCoordinator(t)

	tx := coord.Begin(false)
	a, err := tx.CreateNode("Person")
	require.NoError(t, err)
	b, err := tx.CreateNode("Person")
	require.NoError(t, err)
	relID, err := tx.CreateRelationship(a, b, "KNOWS")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	rtx := coord.Begin(true)
	rels, err := rtx.RelationshipsOf(a)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, relID, rels[0].ID)
	require.NoError(t, rtx.Commit())
}

func TestSetNodePropertiesIndexesAndUnindexes(t *testing.T) {
	coord := newTestCoordinator(t)

	tx := coord.Begin(false)
	id, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(id, types.PropertyBag{"name": "alice", "age": float64(30)}))
	require.NoError(t, tx.Commit())

	nameKey, _ := coord.cat.GetOrCreateKey("name")
	require.Contains(t, coord.idx.LookupEq(nameKey, types.Value{Kind: types.ValueString, Str: "alice"}), id)

	tx2 := coord.Begin(false)
	require.NoError(t, tx2.SetNodeProperties(id, types.PropertyBag{"age": float64(31)}))
	require.NoError(t, tx2.Commit())

	require.Empty(t, coord.idx.LookupEq(nameKey, types.Value{Kind: types.ValueString, Str: "alice"}))
}

func TestSetNodePropertiesAbortRestoresOldValue(t *testing.T) {
	coord := newTestCoordinator(t)

	tx := coord.Begin(false)
	id, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(id, types.PropertyBag{"name": "alice"}))
	require.NoError(t, tx.Commit())

	tx2 := coord.Begin(false)
	require.NoError(t, tx2.SetNodeProperties(id, types.PropertyBag{"name": "bob"}))
	require.NoError(t, tx2.Abort())

	nameKey, _ := coord.cat.GetOrCreateKey("name")
	require.Contains(t, coord.idx.LookupEq(nameKey, types.Value{Kind: types.ValueString, Str: "alice"}), id)
	require.Empty(t, coord.idx.LookupEq(nameKey, types.Value{Kind: types.ValueString, Str: "bob"}))
}

func TestWriteTransactionsAreSerialized(t *testing.T) {
	coord := newTestCoordinator(t)

	tx1 := coord.Begin(false)

	done := make(chan struct{})
	go func() {
		tx2 := coord.Begin(false)
		_, _ = tx2.CreateNode("Company")
		_ = tx2.Commit()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second write transaction must block until the first releases the writer lock")
	default:
	}

	_, err := tx1.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx1.Commit())

	<-done
}

func TestCommitOnAlreadyFinishedTxErrors(t *testing.T) {
	coord := newTestCoordinator(t)

	tx := coord.Begin(true)
	require.NoError(t, tx.Commit())
	require.Error(t, tx.Commit())
}

func TestReadOnlyTxRejectsWrites(t *testing.T) {
	coord := newTestCoordinator(t)

	tx := coord.Begin(true)
	_, err := tx.CreateNode("Person")
	require.Error(t, err)
	require.NoError(t, tx.Commit())
}
