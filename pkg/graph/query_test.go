package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/types"
)

func seedPeople(t *testing.T, g *Graph) {
	t.Helper()
	alice, err := g.CreateNode([]string{"Person"})
	require.NoError(t, err)
	require.NoError(t, g.UpdateNode(alice, nil, types.PropertyBag{"name": "alice", "age": 30.0}))

	bob, err := g.CreateNode([]string{"Person"})
	require.NoError(t, err)
	require.NoError(t, g.UpdateNode(bob, nil, types.PropertyBag{"name": "bob", "age": 25.0}))

	_, err = g.CreateRelationship(alice, bob, "KNOWS")
	require.NoError(t, err)
}

func TestExecuteReadQuery(t *testing.T) {
	g := openTestGraph(t)
	seedPeople(t, g)

	result, err := g.Execute(`MATCH (p:Person) RETURN p.name ORDER BY p.name`, nil, ModeRead)
	require.NoError(t, err)
	require.Equal(t, []string{"p.name"}, result.Columns)
	require.Len(t, result.Rows, 2)
	require.Equal(t, "alice", result.Rows[0][0].Str)
	require.Equal(t, "bob", result.Rows[1][0].Str)
	require.Equal(t, 2, result.Stats.RowsReturned)
}

func TestExecuteParseErrorReturnsError(t *testing.T) {
	g := openTestGraph(t)
	_, err := g.Execute(`NOT A QUERY`, nil, ModeRead)
	require.Error(t, err)
}

func TestExecuteStreamStopsEarly(t *testing.T) {
	g := openTestGraph(t)
	seedPeople(t, g)

	var seen []string
	err := g.ExecuteStream(`MATCH (p:Person) RETURN p.name ORDER BY p.name`, nil, ModeRead,
		func(columns []string, row []types.Value) bool {
			seen = append(seen, row[0].Str)
			return false
		})
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, seen)
}

func TestExecuteWithParams(t *testing.T) {
	g := openTestGraph(t)
	seedPeople(t, g)

	result, err := g.Execute(`MATCH (p:Person) WHERE p.name = $name RETURN p.age`, map[string]any{"name": "bob"}, ModeRead)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, 25.0, result.Rows[0][0].Num)
}
