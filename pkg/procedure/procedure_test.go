package procedure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/events"
	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/propstore"
	"github.com/cuemby/nexus/pkg/recordstore"
	"github.com/cuemby/nexus/pkg/txn"
	"github.com/cuemby/nexus/pkg/types"
)

func newTestTx(t *testing.T) (*txn.Tx, *catalog.Catalog) {
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
	return coord.Begin(false), cat
}

// chain builds source -> a -> b -> target, each edge weighted 1, plus a
// direct source -> target edge weighted 10, so Dijkstra must prefer the
// three-hop route.
func chain(t *testing.T, tx *txn.Tx) (source, a, b, target types.NodeID) {
	t.Helper()
	var err error
	source, err = tx.CreateNode("Node")
	require.NoError(t, err)
	a, err = tx.CreateNode("Node")
	require.NoError(t, err)
	b, err = tx.CreateNode("Node")
	require.NoError(t, err)
	target, err = tx.CreateNode("Node")
	require.NoError(t, err)

	mustWeightedEdge(t, tx, source, a, 1)
	mustWeightedEdge(t, tx, a, b, 1)
	mustWeightedEdge(t, tx, b, target, 1)
	mustWeightedEdge(t, tx, source, target, 10)
	return source, a, b, target
}

func mustWeightedEdge(t *testing.T, tx *txn.Tx, src, dst types.NodeID, weight float64) {
	t.Helper()
	id, err := tx.CreateRelationship(src, dst, "LINK")
	require.NoError(t, err)
	require.NoError(t, tx.SetRelProperties(id, types.PropertyBag{"weight": weight}))
}

func TestRegistryBuiltinsPresent(t *testing.T) {
	_, cat := newTestTx(t)
	r := New(cat)
	_, ok := r.Get("gds.shortestPath.dijkstra")
	require.True(t, ok)
	_, ok = r.Get("gds.centrality.pagerank")
	require.True(t, ok)
	_, ok = r.Get("gds.community.louvain")
	require.True(t, ok)
	_, ok = r.Get("gds.spatial.withinBBox")
	require.True(t, ok)
	_, ok = r.Get("nonexistent")
	require.False(t, ok)
}

func TestRegistryCannotUnregisterBuiltin(t *testing.T) {
	_, cat := newTestTx(t)
	r := New(cat)
	err := r.Unregister("gds.shortestPath.dijkstra")
	require.Error(t, err)
}

func TestRegistryCustomProcedureRoundtrip(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)

	sig := types.ProcedureSignature{
		Params: []types.ProcedureParameter{
			{Name: "a", Type: types.ParamNumber},
			{Name: "b", Type: types.ParamNumber},
		},
		Yields: []string{"sum"},
	}
	err := r.Register("custom.add", sig, func(_ Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
		return []types.ProcedureResult{{Values: map[string]types.Value{
			"sum": numberValue(args["a"].Num + args["b"].Num),
		}}}, nil
	})
	require.NoError(t, err)

	rows, err := r.Call(tx, "custom.add", map[string]types.Value{"a": numberValue(10), "b": numberValue(20)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, float64(30), rows[0].Values["sum"].Num)

	// Duplicate registration is an error.
	err = r.Register("custom.add", sig, func(_ Tx, _ map[string]types.Value) ([]types.ProcedureResult, error) {
		return nil, nil
	})
	require.Error(t, err)

	require.NoError(t, r.Unregister("custom.add"))
	_, ok := r.Get("custom.add")
	require.False(t, ok)
}

func TestRegistryCannotRegisterBuiltinPrefix(t *testing.T) {
	_, cat := newTestTx(t)
	r := New(cat)
	err := r.Register("gds.fake", types.ProcedureSignature{}, func(_ Tx, _ map[string]types.Value) ([]types.ProcedureResult, error) {
		return nil, nil
	})
	require.Error(t, err)
}

func TestDijkstraPrefersCheaperPath(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	source, _, _, target := chain(t, tx)

	rows, err := r.Call(tx, "gds.shortestPath.dijkstra", map[string]types.Value{
		"sourceNode": nodeIDValue(source),
		"targetNode": nodeIDValue(target),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, float64(3), rows[0].Values["cost"].Num)
	require.Len(t, rows[0].Values["path"].List, 4)
}

func TestDijkstraMissingSourceErrors(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	_, err := r.Call(tx, "gds.shortestPath.dijkstra", map[string]types.Value{})
	require.Error(t, err)
}

func TestBellmanFordMatchesDijkstraOnPositiveWeights(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	source, _, _, target := chain(t, tx)

	rows, err := r.Call(tx, "gds.shortestPath.bellmanFord", map[string]types.Value{
		"sourceNode": nodeIDValue(source),
	})
	require.NoError(t, err)

	var targetDistance float64
	var found bool
	for _, row := range rows {
		if types.NodeID(row.Values["node"].Num) == target {
			targetDistance = row.Values["distance"].Num
			found = true
		}
		require.False(t, row.Values["hasNegativeCycle"].Bool)
	}
	require.True(t, found)
	require.Equal(t, float64(3), targetDistance)
}

func TestDegreeCentrality(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	hub, err := tx.CreateNode("Node")
	require.NoError(t, err)
	leaf1, err := tx.CreateNode("Node")
	require.NoError(t, err)
	leaf2, err := tx.CreateNode("Node")
	require.NoError(t, err)
	mustWeightedEdge(t, tx, hub, leaf1, 1)
	mustWeightedEdge(t, tx, hub, leaf2, 1)

	rows, err := r.Call(tx, "gds.centrality.degree", nil)
	require.NoError(t, err)
	found := map[types.NodeID]float64{}
	for _, row := range rows {
		found[types.NodeID(row.Values["node"].Num)] = row.Values["score"].Num
	}
	require.Equal(t, float64(2), found[hub])
	require.Equal(t, float64(1), found[leaf1])
}

func TestWeaklyConnectedComponents(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	a, err := tx.CreateNode("Node")
	require.NoError(t, err)
	b, err := tx.CreateNode("Node")
	require.NoError(t, err)
	mustWeightedEdge(t, tx, a, b, 1)
	isolated, err := tx.CreateNode("Node")
	require.NoError(t, err)

	rows, err := r.Call(tx, "gds.community.weaklyConnectedComponents", nil)
	require.NoError(t, err)
	component := map[types.NodeID]float64{}
	for _, row := range rows {
		component[types.NodeID(row.Values["node"].Num)] = row.Values["component"].Num
	}
	require.Equal(t, component[a], component[b])
	require.NotEqual(t, component[a], component[isolated])
}

func TestJaccardSimilarity(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	a, err := tx.CreateNode("Node")
	require.NoError(t, err)
	b, err := tx.CreateNode("Node")
	require.NoError(t, err)
	shared, err := tx.CreateNode("Node")
	require.NoError(t, err)
	mustWeightedEdge(t, tx, a, shared, 1)
	mustWeightedEdge(t, tx, b, shared, 1)

	rows, err := r.Call(tx, "gds.similarity.jaccard", map[string]types.Value{
		"node1": nodeIDValue(a),
		"node2": nodeIDValue(b),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, float64(1), rows[0].Values["similarity"].Num)
}

func TestWithinBBox(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	inside, err := tx.CreateNode("Place")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(inside, types.PropertyBag{"lat": 40.0, "lon": -74.0}))
	outside, err := tx.CreateNode("Place")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(outside, types.PropertyBag{"lat": 51.5, "lon": -0.1}))

	rows, err := r.Call(tx, "gds.spatial.withinBBox", map[string]types.Value{
		"minLat": numberValue(39), "minLon": numberValue(-75),
		"maxLat": numberValue(41), "maxLon": numberValue(-73),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, float64(inside), rows[0].Values["node"].Num)
}

func TestWithinDistance(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	nyc, err := tx.CreateNode("Place")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(nyc, types.PropertyBag{"lat": 40.7128, "lon": -74.0060}))
	london, err := tx.CreateNode("Place")
	require.NoError(t, err)
	require.NoError(t, tx.SetNodeProperties(london, types.PropertyBag{"lat": 51.5074, "lon": -0.1278}))

	rows, err := r.Call(tx, "gds.spatial.withinDistance", map[string]types.Value{
		"lat": numberValue(40.7), "lon": numberValue(-74.0), "distanceKm": numberValue(100),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, float64(nyc), rows[0].Values["node"].Num)
}

func TestCallStreamingFallsBackToExecute(t *testing.T) {
	tx, cat := newTestTx(t)
	r := New(cat)
	source, _, _, target := chain(t, tx)

	var collected int
	err := r.CallStreaming(tx, "gds.shortestPath.dijkstra", map[string]types.Value{
		"sourceNode": nodeIDValue(source),
		"targetNode": nodeIDValue(target),
	}, func(types.ProcedureResult) error {
		collected++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, collected)
}
