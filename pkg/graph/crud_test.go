package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/types"
)

func TestNodeLifecycle(t *testing.T) {
	g := openTestGraph(t)

	id, err := g.CreateNode([]string{"Person"})
	require.NoError(t, err)

	node, err := g.GetNode(id)
	require.NoError(t, err)
	require.NotNil(t, node)
	require.Equal(t, []string{"Person"}, node.Labels)
	require.Empty(t, node.Properties)

	require.NoError(t, g.UpdateNode(id, []string{"Admin"}, types.PropertyBag{"name": "grace"}))
	node, err = g.GetNode(id)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Person", "Admin"}, node.Labels)
	require.Equal(t, "grace", node.Properties["name"])

	existed, err := g.DeleteNode(id)
	require.NoError(t, err)
	require.True(t, existed)

	node, err = g.GetNode(id)
	require.NoError(t, err)
	require.Nil(t, node)

	existed, err = g.DeleteNode(id)
	require.NoError(t, err)
	require.False(t, existed)
}

func TestGetNodeUnallocatedReturnsNilNil(t *testing.T) {
	g := openTestGraph(t)
	node, err := g.GetNode(types.NodeID(9999))
	require.NoError(t, err)
	require.Nil(t, node)
}

func TestRelationshipLifecycle(t *testing.T) {
	g := openTestGraph(t)

	src, err := g.CreateNode([]string{"Person"})
	require.NoError(t, err)
	dst, err := g.CreateNode([]string{"Person"})
	require.NoError(t, err)

	id, err := g.CreateRelationship(src, dst, "KNOWS")
	require.NoError(t, err)

	rel, err := g.GetRelationship(id)
	require.NoError(t, err)
	require.NotNil(t, rel)
	require.Equal(t, "KNOWS", rel.Type)
	require.Equal(t, src, rel.Src)
	require.Equal(t, dst, rel.Dst)

	require.NoError(t, g.UpdateRelationship(id, types.PropertyBag{"since": 2020.0}))
	rel, err = g.GetRelationship(id)
	require.NoError(t, err)
	require.Equal(t, 2020.0, rel.Properties["since"])

	existed, err := g.DeleteRelationship(id)
	require.NoError(t, err)
	require.True(t, existed)

	rel, err = g.GetRelationship(id)
	require.NoError(t, err)
	require.Nil(t, rel)
}
