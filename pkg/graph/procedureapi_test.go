package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/procedure"
	"github.com/cuemby/nexus/pkg/types"
)

func seedChain(t *testing.T, g *Graph) (source, target types.NodeID) {
	t.Helper()
	a, err := g.CreateNode([]string{"Node"})
	require.NoError(t, err)
	b, err := g.CreateNode([]string{"Node"})
	require.NoError(t, err)
	_, err = g.CreateRelationship(a, b, "LINK")
	require.NoError(t, err)
	require.NotEmpty(t, g.Procedures(), "builtins should be registered")
	return a, b
}

func TestCallBuiltinDijkstra(t *testing.T) {
	g := openTestGraph(t)
	source, target := seedChain(t, g)

	rows, err := g.Call("gds.shortestPath.dijkstra", map[string]types.Value{
		"sourceNode": {Kind: types.ValueNumber, IsFloat: true, Num: float64(source)},
		"targetNode": {Kind: types.ValueNumber, IsFloat: true, Num: float64(target)},
	})
	require.NoError(t, err)
	require.NotEmpty(t, rows)
}

func TestCallStreamStopsEarly(t *testing.T) {
	g := openTestGraph(t)
	source, target := seedChain(t, g)

	calls := 0
	err := g.CallStream("gds.shortestPath.dijkstra", map[string]types.Value{
		"sourceNode": {Kind: types.ValueNumber, IsFloat: true, Num: float64(source)},
		"targetNode": {Kind: types.ValueNumber, IsFloat: true, Num: float64(target)},
	}, func(row types.ProcedureResult) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestCallUnknownProcedure(t *testing.T) {
	g := openTestGraph(t)
	_, err := g.Call("nonexistent", nil)
	require.Error(t, err)
}

func TestRegisterAndCallCustomProcedure(t *testing.T) {
	g := openTestGraph(t)

	sig := types.ProcedureSignature{Yields: []string{"value"}}
	err := g.Register("custom.echo", sig, func(tx procedure.Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
		return []types.ProcedureResult{{Values: map[string]types.Value{"value": {Kind: types.ValueString, Str: "hi"}}}}, nil
	})
	require.NoError(t, err)

	rows, err := g.Call("custom.echo", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "hi", rows[0].Values["value"].Str)

	require.Contains(t, g.Procedures(), "custom.echo")
	require.NoError(t, g.Unregister("custom.echo"))
	require.NotContains(t, g.Procedures(), "custom.echo")
}
