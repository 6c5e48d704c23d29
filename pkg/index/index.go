// Package index implements the index set (C4): in-memory label->node and
// type->relationship postings lists, plus per-property-key value indexes
// supporting equality and range lookups, maintained incrementally as the
// transaction coordinator applies each write to the record and property
// stores (and reverts it on abort).
package index

import (
	"sync"

	"github.com/cuemby/nexus/pkg/types"
)

// Set is the full index set for one open graph.
type Set struct {
	mu sync.RWMutex

	labelToNodes map[types.LabelID]map[types.NodeID]struct{}
	typeToRels   map[types.TypeID]map[types.RelID]struct{}

	// propToEntries holds, per property key, every (node id, value) pair
	// currently indexed for that key. Equality and range lookups both
	// filter this slice linearly, which is proportional to the key's own
	// selectivity rather than to the whole graph.
	propToEntries map[types.KeyID][]propEntry
}

type propEntry struct {
	node  types.NodeID
	value types.Value
}

// New returns an empty index set.
func New() *Set {
	return &Set{
		labelToNodes:  make(map[types.LabelID]map[types.NodeID]struct{}),
		typeToRels:    make(map[types.TypeID]map[types.RelID]struct{}),
		propToEntries: make(map[types.KeyID][]propEntry),
	}
}

// AddNodeLabel records that node carries label.
func (s *Set) AddNodeLabel(node types.NodeID, label types.LabelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.labelToNodes[label]
	if !ok {
		set = make(map[types.NodeID]struct{})
		s.labelToNodes[label] = set
	}
	set[node] = struct{}{}
}

// RemoveNodeLabel forgets that node carries label, e.g. on node deletion or
// label removal.
func (s *Set) RemoveNodeLabel(node types.NodeID, label types.LabelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.labelToNodes[label]; ok {
		delete(set, node)
	}
}

// NodesWithLabel returns every node id currently carrying label.
func (s *Set) NodesWithLabel(label types.LabelID) []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.labelToNodes[label]
	out := make([]types.NodeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// LabelCardinality returns the number of nodes currently carrying label.
// The executor's scan-cost heuristic does not call it; it reads label
// counts from the catalog statistics.
func (s *Set) LabelCardinality(label types.LabelID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labelToNodes[label])
}

// AddRelType records that rel has relationship type typ.
func (s *Set) AddRelType(rel types.RelID, typ types.TypeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.typeToRels[typ]
	if !ok {
		set = make(map[types.RelID]struct{})
		s.typeToRels[typ] = set
	}
	set[rel] = struct{}{}
}

// RemoveRelType forgets rel's relationship type, e.g. on deletion.
func (s *Set) RemoveRelType(rel types.RelID, typ types.TypeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.typeToRels[typ]; ok {
		delete(set, rel)
	}
}

// RelsWithType returns every relationship id currently of type typ.
func (s *Set) RelsWithType(typ types.TypeID) []types.RelID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.typeToRels[typ]
	out := make([]types.RelID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// SetNodeProperty (re)indexes node's value for key, replacing any prior
// indexed value for the same (node, key) pair.
func (s *Set) SetNodeProperty(node types.NodeID, key types.KeyID, value types.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.propToEntries[key]
	for i := range entries {
		if entries[i].node == node {
			entries[i].value = value
			return
		}
	}
	s.propToEntries[key] = append(entries, propEntry{node: node, value: value})
}

// ClearNodeProperty removes any indexed value for (node, key).
func (s *Set) ClearNodeProperty(node types.NodeID, key types.KeyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.propToEntries[key]
	for i := range entries {
		if entries[i].node == node {
			entries[i] = entries[len(entries)-1]
			s.propToEntries[key] = entries[:len(entries)-1]
			return
		}
	}
}

// LookupEq returns every node whose indexed value for key compares equal
// to value.
func (s *Set) LookupEq(key types.KeyID, value types.Value) []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.NodeID
	for _, e := range s.propToEntries[key] {
		if valuesEqual(e.value, value) {
			out = append(out, e.node)
		}
	}
	return out
}

// LookupRange returns every node whose indexed numeric value for key falls
// within [lo, hi] (bounds optional; pass nil to leave a side unbounded).
func (s *Set) LookupRange(key types.KeyID, lo, hi *float64) []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.NodeID
	for _, e := range s.propToEntries[key] {
		if e.value.Kind != types.ValueNumber {
			continue
		}
		v := e.value.AsFloat()
		if lo != nil && v < *lo {
			continue
		}
		if hi != nil && v > *hi {
			continue
		}
		out = append(out, e.node)
	}
	return out
}

func valuesEqual(a, b types.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case types.ValueNull:
		return true
	case types.ValueBool:
		return a.Bool == b.Bool
	case types.ValueNumber:
		if !a.IsFloat && !b.IsFloat {
			return a.Int == b.Int
		}
		return a.AsFloat() == b.AsFloat()
	case types.ValueString:
		return a.Str == b.Str
	default:
		return false
	}
}
