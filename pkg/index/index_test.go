package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/types"
)

func TestLabelIndexAddRemove(t *testing.T) {
	idx := New()

	idx.AddNodeLabel(1, 10)
	idx.AddNodeLabel(2, 10)
	idx.AddNodeLabel(3, 20)

	require.ElementsMatch(t, []types.NodeID{1, 2}, idx.NodesWithLabel(10))
	require.Equal(t, 2, idx.LabelCardinality(10))

	idx.RemoveNodeLabel(1, 10)
	require.ElementsMatch(t, []types.NodeID{2}, idx.NodesWithLabel(10))
}

func TestTypeIndexAddRemove(t *testing.T) {
	idx := New()

	idx.AddRelType(1, 5)
	idx.AddRelType(2, 5)
	require.ElementsMatch(t, []types.RelID{1, 2}, idx.RelsWithType(5))

	idx.RemoveRelType(1, 5)
	require.ElementsMatch(t, []types.RelID{2}, idx.RelsWithType(5))
}

func TestPropertyEqLookup(t *testing.T) {
	idx := New()

	idx.SetNodeProperty(1, 7, types.Value{Kind: types.ValueString, Str: "alice"})
	idx.SetNodeProperty(2, 7, types.Value{Kind: types.ValueString, Str: "bob"})
	idx.SetNodeProperty(3, 7, types.Value{Kind: types.ValueString, Str: "alice"})

	got := idx.LookupEq(7, types.Value{Kind: types.ValueString, Str: "alice"})
	require.ElementsMatch(t, []types.NodeID{1, 3}, got)
}

func TestPropertyUpdateReplacesValue(t *testing.T) {
	idx := New()

	idx.SetNodeProperty(1, 7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 1})
	idx.SetNodeProperty(1, 7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 2})

	require.Empty(t, idx.LookupEq(7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 1}))
	require.ElementsMatch(t, []types.NodeID{1}, idx.LookupEq(7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 2}))
}

func TestPropertyRangeLookup(t *testing.T) {
	idx := New()

	idx.SetNodeProperty(1, 7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 10})
	idx.SetNodeProperty(2, 7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 20})
	idx.SetNodeProperty(3, 7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 30})

	lo, hi := float64(15), float64(25)
	got := idx.LookupRange(7, &lo, &hi)
	require.ElementsMatch(t, []types.NodeID{2}, got)

	got = idx.LookupRange(7, &lo, nil)
	require.ElementsMatch(t, []types.NodeID{2, 3}, got)
}

func TestClearNodeProperty(t *testing.T) {
	idx := New()

	idx.SetNodeProperty(1, 7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 1})
	idx.ClearNodeProperty(1, 7)

	require.Empty(t, idx.LookupEq(7, types.Value{Kind: types.ValueNumber, IsFloat: true, Num: 1}))
}
