package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/types"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetOrCreateLabelIsIdempotent(t *testing.T) {
	c := openTestCatalog(t)

	a, err := c.GetOrCreateLabel("Person")
	require.NoError(t, err)
	b, err := c.GetOrCreateLabel("Person")
	require.NoError(t, err)
	require.Equal(t, a, b)

	other, err := c.GetOrCreateLabel("Company")
	require.NoError(t, err)
	require.NotEqual(t, a, other)
}

func TestLabelNameRoundTrip(t *testing.T) {
	c := openTestCatalog(t)

	id, err := c.GetOrCreateLabel("Person")
	require.NoError(t, err)

	name, ok := c.LabelName(id)
	require.True(t, ok)
	require.Equal(t, "Person", name)
}

func TestBatchGetOrCreateLabels(t *testing.T) {
	c := openTestCatalog(t)

	existing, err := c.GetOrCreateLabel("Person")
	require.NoError(t, err)

	result, err := c.BatchGetOrCreateLabels([]string{"Person", "Company", "City"})
	require.NoError(t, err)
	require.Equal(t, existing, result["Person"])
	require.NotZero(t, result["Company"])
	require.NotZero(t, result["City"])
	require.NotEqual(t, result["Company"], result["City"])
}

func TestCounterReseedsFromMaxOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	c1, err := Open(path)
	require.NoError(t, err)
	_, err = c1.GetOrCreateLabel("Person")
	require.NoError(t, err)
	_, err = c1.GetOrCreateLabel("Company")
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := Open(path)
	require.NoError(t, err)
	defer c2.Close()

	id, err := c2.GetOrCreateLabel("City")
	require.NoError(t, err)
	require.EqualValues(t, 2, id, "third label allocated after reopen must not collide with the first two")
}

func TestStatisticsIncrementAndSnapshot(t *testing.T) {
	c := openTestCatalog(t)

	person, err := c.GetOrCreateLabel("Person")
	require.NoError(t, err)

	c.IncrementNodeCount(person, 3)
	c.IncrementNodeCount(person, -1)

	stats := c.Stats()
	require.EqualValues(t, 2, stats.NodeCount)
	require.EqualValues(t, 2, stats.LabelCounts[person])
}

func TestReconcileStatsOverwritesDrift(t *testing.T) {
	c := openTestCatalog(t)

	person, _ := c.GetOrCreateLabel("Person")
	c.IncrementNodeCount(person, 100)

	err := c.ReconcileStats(func() (types.CatalogStats, error) {
		return types.CatalogStats{
			NodeCount:   5,
			LabelCounts: map[types.LabelID]uint64{person: 5},
			TypeCounts:  map[types.TypeID]uint64{},
		}, nil
	})
	require.NoError(t, err)

	stats := c.Stats()
	require.EqualValues(t, 5, stats.NodeCount)
	require.False(t, stats.LastReconciled.IsZero())
}

func TestConstraintRegistry(t *testing.T) {
	c := openTestCatalog(t)

	con := Constraint{Name: "unique_person_email", Label: "Person", Key: "email", Kind: ConstraintUniqueness}
	require.NoError(t, c.PutConstraint(con))

	got, err := c.GetConstraint("unique_person_email")
	require.NoError(t, err)
	require.Equal(t, con, got)

	all, err := c.ListConstraints()
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, c.DeleteConstraint("unique_person_email"))
	_, err = c.GetConstraint("unique_person_email")
	require.Error(t, err)
}
