package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogEnumerationAndStatistics(t *testing.T) {
	g := openTestGraph(t)

	require.NoError(t, g.CreateLabel("Person"))
	require.NoError(t, g.CreateLabel("Person")) // idempotent
	require.NoError(t, g.CreateRelType("KNOWS"))

	labels, err := g.Labels()
	require.NoError(t, err)
	require.Len(t, labels, 1)
	require.Equal(t, "Person", labels[0].Name)

	relTypes, err := g.RelTypes()
	require.NoError(t, err)
	require.Len(t, relTypes, 1)
	require.Equal(t, "KNOWS", relTypes[0].Name)

	id, err := g.CreateNode([]string{"Person"})
	require.NoError(t, err)
	other, err := g.CreateNode([]string{"Person"})
	require.NoError(t, err)
	_, err = g.CreateRelationship(id, other, "KNOWS")
	require.NoError(t, err)

	stats := g.Statistics()
	require.EqualValues(t, 2, stats.TotalNodes)
	require.EqualValues(t, 1, stats.TotalRels)
	require.EqualValues(t, 2, stats.PerLabelCount["Person"])
	require.EqualValues(t, 1, stats.PerTypeCount["KNOWS"])
}

func TestPropertyKeysTrackUsedKeys(t *testing.T) {
	g := openTestGraph(t)

	id, err := g.CreateNode([]string{"Person"})
	require.NoError(t, err)
	require.NoError(t, g.UpdateNode(id, nil, map[string]any{"name": "ada"}))

	keys, err := g.PropertyKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, "name", keys[0].Name)
}
