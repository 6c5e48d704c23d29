package procedure

import "github.com/cuemby/nexus/pkg/types"

// weightedEdge is one directed hop in the in-memory snapshot, carrying
// whatever numeric weight property the caller asked for (1.0 if absent).
type weightedEdge struct {
	to     types.NodeID
	weight float64
}

// snapshot is a point-in-time copy of the graph's shape, built once per
// procedure call so traversal algorithms don't repeatedly pay for
// RelationshipsOf lookups.
type snapshot struct {
	nodes []types.NodeID
	// out holds edges in the direction they were declared (src -> dst).
	out map[types.NodeID][]weightedEdge
	// undirected holds both directions, used by algorithms (centrality,
	// community detection, similarity) that don't distinguish direction.
	undirected map[types.NodeID][]weightedEdge
}

func buildSnapshot(tx Tx, weightProperty string) (*snapshot, error) {
	if weightProperty == "" {
		weightProperty = "weight"
	}
	ids, err := tx.AllNodeIDs()
	if err != nil {
		return nil, err
	}
	s := &snapshot{
		nodes:      ids,
		out:        make(map[types.NodeID][]weightedEdge, len(ids)),
		undirected: make(map[types.NodeID][]weightedEdge, len(ids)),
	}

	seen := make(map[types.RelID]bool)
	for _, id := range ids {
		rels, err := tx.RelationshipsOf(id)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			if seen[rel.ID] {
				continue
			}
			seen[rel.ID] = true

			weight := 1.0
			if rel.PropPtr != types.NoProps {
				props, err := tx.NodeProperties(rel.PropPtr)
				if err != nil {
					return nil, err
				}
				if raw, ok := props[weightProperty]; ok {
					if f, ok := raw.(float64); ok {
						weight = f
					}
				}
			}

			s.out[rel.SrcNode] = append(s.out[rel.SrcNode], weightedEdge{to: rel.DstNode, weight: weight})
			s.undirected[rel.SrcNode] = append(s.undirected[rel.SrcNode], weightedEdge{to: rel.DstNode, weight: weight})
			s.undirected[rel.DstNode] = append(s.undirected[rel.DstNode], weightedEdge{to: rel.SrcNode, weight: weight})
		}
	}
	return s, nil
}

func nodeProperties(tx Tx, id types.NodeID) (types.PropertyBag, error) {
	rec, err := tx.GetNode(id)
	if err != nil {
		return nil, err
	}
	if rec.PropPtr == types.NoProps {
		return types.PropertyBag{}, nil
	}
	return tx.NodeProperties(rec.PropPtr)
}

func propertyAsFloat(bag types.PropertyBag, keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := bag[k]
		if !ok {
			continue
		}
		f, ok := raw.(float64)
		if ok {
			return f, true
		}
	}
	return 0, false
}
