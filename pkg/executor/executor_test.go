package executor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/cypher"
	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/propstore"
	"github.com/cuemby/nexus/pkg/recordstore"
	"github.com/cuemby/nexus/pkg/txn"
	"github.com/cuemby/nexus/pkg/types"
)

func newTestTx(t *testing.T) *txn.Tx {
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

	coord := txn.New(records, props, cat, index.New(), events.NewBroker())
	return coord.Begin(false)
}

func seedSocialGraph(t *testing.T, tx *txn.Tx) (alice, bob, carol types.NodeID) {
	t.Helper()
	var err error
	alice, err = tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(alice, types.PropertyBag{"name": "alice", "age": 30.0}))

	bob, err = tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(bob, types.PropertyBag{"name": "bob", "age": 25.0}))

	carol, err = tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(carol, types.PropertyBag{"name": "carol", "age": 40.0}))

	_, err = tx.CreateRelationship(alice, bob, "KNOWS")
	require.NoError(t, err)
	_, err = tx.CreateRelationship(bob, carol, "KNOWS")
	require.NoError(t, err)
	return alice, bob, carol
}

func runQuery(t *testing.T, tx *txn.Tx, src string, params map[string]any) *Result {
	t.Helper()
	q, err := cypher.Parse(src, params)
	require.NoError(t, err)
	res, err := Execute(tx, q)
	require.NoError(t, err)
	return res
}

func TestExecuteLabelScanAndProjection(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (p:Person) RETURN p.name ORDER BY p.name`, nil)
	require.Equal(t, []string{"p.name"}, res.Columns)
	require.Len(t, res.Rows, 3)
	require.Equal(t, "alice", res.Rows[0][0].Str)
	require.Equal(t, "bob", res.Rows[1][0].Str)
	require.Equal(t, "carol", res.Rows[2][0].Str)
}

func TestExecuteWhereFilter(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (p:Person) WHERE p.age > 28 RETURN p.name ORDER BY p.name`, nil)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "alice", res.Rows[0][0].Str)
	require.Equal(t, "carol", res.Rows[1][0].Str)
}

func TestExecuteRelationshipTraversal(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (a:Person)-[:KNOWS]->(b:Person) RETURN a.name, b.name ORDER BY a.name`, nil)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "alice", res.Rows[0][0].Str)
	require.Equal(t, "bob", res.Rows[0][1].Str)
	require.Equal(t, "bob", res.Rows[1][0].Str)
	require.Equal(t, "carol", res.Rows[1][1].Str)
}

func TestExecuteIncomingDirection(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (a:Person)<-[:KNOWS]-(b:Person) RETURN a.name, b.name ORDER BY a.name`, nil)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "bob", res.Rows[0][0].Str)
	require.Equal(t, "alice", res.Rows[0][1].Str)
}

func TestExecuteCountAggregate(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (p:Person) RETURN count(p) AS n`, nil)
	require.Len(t, res.Rows, 1)
	require.Equal(t, []string{"n"}, res.Columns)
	require.False(t, res.Rows[0][0].IsFloat, "count() must yield an integer")
	require.Equal(t, int64(3), res.Rows[0][0].Int)
}

func TestExecuteOrderByDescSkipLimit(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (p:Person) RETURN p.name AS n ORDER BY p.age DESC SKIP 1 LIMIT 1`, nil)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "alice", res.Rows[0][0].Str)
}

func TestExecuteDistinct(t *testing.T) {
	tx := newTestTx(t)
	alice, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(alice, types.PropertyBag{"city": "nyc"}))
	bob, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(bob, types.PropertyBag{"city": "nyc"}))

	res := runQuery(t, tx, `MATCH (p:Person) RETURN DISTINCT p.city`, nil)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "nyc", res.Rows[0][0].Str)
}

func TestExecuteParameterInWhere(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (p:Person) WHERE p.name = $name RETURN p.name`, map[string]any{"name": "bob"})
	require.Len(t, res.Rows, 1)
	require.Equal(t, "bob", res.Rows[0][0].Str)
}

func TestExecuteUnknownLabelMatchesNothing(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (p:Robot) RETURN p.name`, nil)
	require.Empty(t, res.Rows)
}

func TestExecutePropertyMapFilter(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (p:Person {name: "bob"}) RETURN p.age`, nil)
	require.Len(t, res.Rows, 1)
	require.Equal(t, float64(25), res.Rows[0][0].Num)
}

func TestExecuteNullComparisonIsNotTrue(t *testing.T) {
	tx := newTestTx(t)
	id, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(id, types.PropertyBag{"name": "noage"}))

	res := runQuery(t, tx, `MATCH (p:Person) WHERE p.age > 10 RETURN p.name`, nil)
	require.Empty(t, res.Rows)
}

func TestExecuteMultiHopPattern(t *testing.T) {
	tx := newTestTx(t)
	seedSocialGraph(t, tx)

	res := runQuery(t, tx, `MATCH (a:Person)-[:KNOWS]->(b:Person)-[:KNOWS]->(c:Person) RETURN a.name, c.name`, nil)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "alice", res.Rows[0][0].Str)
	require.Equal(t, "carol", res.Rows[0][1].Str)
}
