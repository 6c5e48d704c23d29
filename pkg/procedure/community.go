package procedure

import "github.com/cuemby/nexus/pkg/types"

func communityRows(communityColumn string, assignment map[types.NodeID]int) []types.ProcedureResult {
	rows := make([]types.ProcedureResult, 0, len(assignment))
	for node, id := range assignment {
		rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
			"node":          nodeIDValue(node),
			communityColumn: numberValue(float64(id)),
		}})
	}
	return rows
}

type louvainProcedure struct{}

func (p *louvainProcedure) Name() string { return "gds.community.louvain" }

func (p *louvainProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "maxIterations", Type: types.ParamNumber, Optional: true, Default: numberValue(10)},
		},
		Yields: []string{"node", "community"},
	}
}

// Execute runs a single-level greedy modularity pass: each node starts in
// its own community and repeatedly moves to whichever neighboring
// community maximizes its local edge weight, for up to maxIterations
// sweeps or until nothing moves. This is Louvain's first phase without
// the recursive community-aggregation second phase.
func (p *louvainProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	maxIter, err := argInt(args, "maxIterations", 10)
	if err != nil {
		return nil, err
	}
	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}

	community := make(map[types.NodeID]int, len(s.nodes))
	for i, id := range s.nodes {
		community[id] = i
	}

	for iter := 0; iter < maxIter; iter++ {
		moved := false
		for _, id := range s.nodes {
			weightByCommunity := map[int]float64{}
			for _, e := range s.undirected[id] {
				weightByCommunity[community[e.to]] += e.weight
			}
			best, bestWeight := community[id], weightByCommunity[community[id]]
			for c, w := range weightByCommunity {
				if w > bestWeight {
					best, bestWeight = c, w
				}
			}
			if best != community[id] {
				community[id] = best
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	return communityRows("community", community), nil
}

type labelPropagationProcedure struct{}

func (p *labelPropagationProcedure) Name() string { return "gds.community.labelPropagation" }

func (p *labelPropagationProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "maxIterations", Type: types.ParamNumber, Optional: true, Default: numberValue(10)},
		},
		Yields: []string{"node", "community"},
	}
}

func (p *labelPropagationProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	maxIter, err := argInt(args, "maxIterations", 10)
	if err != nil {
		return nil, err
	}
	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}

	label := make(map[types.NodeID]int, len(s.nodes))
	for i, id := range s.nodes {
		label[id] = i
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for _, id := range s.nodes {
			counts := map[int]int{}
			for _, e := range s.undirected[id] {
				counts[label[e.to]]++
			}
			best, bestCount := label[id], -1
			for l, c := range counts {
				if c > bestCount || (c == bestCount && l < best) {
					best, bestCount = l, c
				}
			}
			if bestCount >= 0 && best != label[id] {
				label[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return communityRows("community", label), nil
}

type sccProcedure struct{}

func (p *sccProcedure) Name() string { return "gds.community.stronglyConnectedComponents" }

func (p *sccProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{Name: p.Name(), Yields: []string{"node", "component"}}
}

// Execute runs Tarjan's algorithm over the directed snapshot.
func (p *sccProcedure) Execute(tx Tx, _ map[string]types.Value) ([]types.ProcedureResult, error) {
	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}

	index := 0
	nextComponent := 0
	indices := map[types.NodeID]int{}
	lowlink := map[types.NodeID]int{}
	onStack := map[types.NodeID]bool{}
	var stack []types.NodeID
	component := map[types.NodeID]int{}

	var strongconnect func(v types.NodeID)
	strongconnect = func(v types.NodeID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range s.out[v] {
			w := e.to
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				component[w] = nextComponent
				if w == v {
					break
				}
			}
			nextComponent++
		}
	}

	for _, id := range s.nodes {
		if _, seen := indices[id]; !seen {
			strongconnect(id)
		}
	}

	return communityRows("component", component), nil
}

type wccProcedure struct{}

func (p *wccProcedure) Name() string { return "gds.community.weaklyConnectedComponents" }

func (p *wccProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{Name: p.Name(), Yields: []string{"node", "component"}}
}

// Execute runs union-find over the undirected snapshot.
func (p *wccProcedure) Execute(tx Tx, _ map[string]types.Value) ([]types.ProcedureResult, error) {
	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}

	parent := make(map[types.NodeID]types.NodeID, len(s.nodes))
	for _, id := range s.nodes {
		parent[id] = id
	}
	var find func(types.NodeID) types.NodeID
	find = func(x types.NodeID) types.NodeID {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b types.NodeID) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for from, edges := range s.undirected {
		for _, e := range edges {
			union(from, e.to)
		}
	}

	roots := map[types.NodeID]int{}
	component := make(map[types.NodeID]int, len(s.nodes))
	for _, id := range s.nodes {
		root := find(id)
		if _, ok := roots[root]; !ok {
			roots[root] = len(roots)
		}
		component[id] = roots[root]
	}

	return communityRows("component", component), nil
}
