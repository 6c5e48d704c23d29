package graph

import "github.com/cuemby/nexus/pkg/catalog"

// Labels lists every known label as (id, name) pairs.
func (g *Graph) Labels() ([]catalog.NamedID, error) {
	return g.cat.ListLabels()
}

// RelTypes lists every known relationship type as (id, name) pairs.
func (g *Graph) RelTypes() ([]catalog.NamedID, error) {
	return g.cat.ListTypes()
}

// PropertyKeys lists every known property key as (id, name) pairs.
func (g *Graph) PropertyKeys() ([]catalog.NamedID, error) {
	return g.cat.ListKeys()
}

// CreateLabel registers name as a label if it isn't already one. Idempotent.
func (g *Graph) CreateLabel(name string) error {
	_, err := g.cat.GetOrCreateLabel(name)
	return err
}

// CreateRelType registers name as a relationship type if it isn't already
// one. Idempotent.
func (g *Graph) CreateRelType(name string) error {
	_, err := g.cat.GetOrCreateType(name)
	return err
}

// Statistics is the per-label and per-type cardinality snapshot the
// catalog maintains, keyed by name rather than by dense id.
type Statistics struct {
	PerLabelCount map[string]uint64
	PerTypeCount  map[string]uint64
	TotalNodes    uint64
	TotalRels     uint64
}

// Statistics returns the current (eventually consistent) cardinality
// snapshot.
func (g *Graph) Statistics() Statistics {
	raw := g.cat.Stats()
	out := Statistics{
		PerLabelCount: make(map[string]uint64, len(raw.LabelCounts)),
		PerTypeCount:  make(map[string]uint64, len(raw.TypeCounts)),
		TotalNodes:    raw.NodeCount,
		TotalRels:     raw.RelCount,
	}
	for id, count := range raw.LabelCounts {
		if name, ok := g.cat.LabelName(id); ok {
			out.PerLabelCount[name] = count
		}
	}
	for id, count := range raw.TypeCounts {
		if name, ok := g.cat.TypeName(id); ok {
			out.PerTypeCount[name] = count
		}
	}
	return out
}
