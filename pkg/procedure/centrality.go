package procedure

import "github.com/cuemby/nexus/pkg/types"

type pagerankProcedure struct{}

func (p *pagerankProcedure) Name() string { return "gds.centrality.pagerank" }

func (p *pagerankProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "dampingFactor", Type: types.ParamNumber, Optional: true, Default: numberValue(0.85)},
			{Name: "maxIterations", Type: types.ParamNumber, Optional: true, Default: numberValue(100)},
			{Name: "tolerance", Type: types.ParamNumber, Optional: true, Default: numberValue(0.0001)},
		},
		Yields: []string{"node", "score"},
	}
}

func (p *pagerankProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	damping, err := argFloat(args, "dampingFactor", 0.85)
	if err != nil {
		return nil, err
	}
	maxIter, err := argInt(args, "maxIterations", 100)
	if err != nil {
		return nil, err
	}
	tolerance, err := argFloat(args, "tolerance", 0.0001)
	if err != nil {
		return nil, err
	}

	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}
	n := len(s.nodes)
	if n == 0 {
		return nil, nil
	}

	rank := make(map[types.NodeID]float64, n)
	outDegree := make(map[types.NodeID]int, n)
	for _, id := range s.nodes {
		rank[id] = 1.0 / float64(n)
		outDegree[id] = len(s.out[id])
	}

	for iter := 0; iter < maxIter; iter++ {
		next := make(map[types.NodeID]float64, n)
		dangling := 0.0
		for _, id := range s.nodes {
			if outDegree[id] == 0 {
				dangling += rank[id]
			}
			next[id] = (1 - damping) / float64(n)
		}
		for _, id := range s.nodes {
			if outDegree[id] == 0 {
				continue
			}
			share := damping * rank[id] / float64(outDegree[id])
			for _, e := range s.out[id] {
				next[e.to] += share
			}
		}
		for id := range next {
			next[id] += damping * dangling / float64(n)
		}

		delta := 0.0
		for id, v := range next {
			diff := v - rank[id]
			if diff < 0 {
				diff = -diff
			}
			delta += diff
		}
		rank = next
		if delta < tolerance {
			break
		}
	}

	rows := make([]types.ProcedureResult, 0, n)
	for _, id := range s.nodes {
		rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
			"node":  nodeIDValue(id),
			"score": numberValue(rank[id]),
		}})
	}
	return rows, nil
}

type betweennessProcedure struct{}

func (p *betweennessProcedure) Name() string { return "gds.centrality.betweenness" }

func (p *betweennessProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{Name: p.Name(), Yields: []string{"node", "score"}}
}

// Execute runs Brandes' algorithm over the undirected snapshot.
func (p *betweennessProcedure) Execute(tx Tx, _ map[string]types.Value) ([]types.ProcedureResult, error) {
	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}
	score := make(map[types.NodeID]float64, len(s.nodes))
	for _, id := range s.nodes {
		score[id] = 0
	}

	for _, src := range s.nodes {
		stack := []types.NodeID{}
		pred := map[types.NodeID][]types.NodeID{}
		sigma := map[types.NodeID]float64{src: 1}
		dist := map[types.NodeID]int{src: 0}
		queue := []types.NodeID{src}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, e := range s.undirected[v] {
				w := e.to
				if _, visited := dist[w]; !visited {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := map[types.NodeID]float64{}
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				if sigma[w] != 0 {
					delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
				}
			}
			if w != src {
				score[w] += delta[w]
			}
		}
	}

	rows := make([]types.ProcedureResult, 0, len(s.nodes))
	for _, id := range s.nodes {
		v := score[id] / 2
		rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
			"node":  nodeIDValue(id),
			"score": numberValue(v),
		}})
	}
	return rows, nil
}

type closenessProcedure struct{}

func (p *closenessProcedure) Name() string { return "gds.centrality.closeness" }

func (p *closenessProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{Name: p.Name(), Yields: []string{"node", "score"}}
}

func (p *closenessProcedure) Execute(tx Tx, _ map[string]types.Value) ([]types.ProcedureResult, error) {
	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}
	rows := make([]types.ProcedureResult, 0, len(s.nodes))
	for _, src := range s.nodes {
		dist := bfsDistances(s, src)
		total := 0
		reached := 0
		for _, d := range dist {
			if d > 0 {
				total += d
				reached++
			}
		}
		score := 0.0
		if total > 0 {
			score = float64(reached) / float64(total)
		}
		rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
			"node":  nodeIDValue(src),
			"score": numberValue(score),
		}})
	}
	return rows, nil
}

type degreeProcedure struct{}

func (p *degreeProcedure) Name() string { return "gds.centrality.degree" }

func (p *degreeProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{Name: p.Name(), Yields: []string{"node", "score"}}
}

func (p *degreeProcedure) Execute(tx Tx, _ map[string]types.Value) ([]types.ProcedureResult, error) {
	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}
	rows := make([]types.ProcedureResult, 0, len(s.nodes))
	for _, id := range s.nodes {
		rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
			"node":  nodeIDValue(id),
			"score": numberValue(float64(len(s.undirected[id]))),
		}})
	}
	return rows, nil
}

// bfsDistances returns hop-count distances from src over the undirected
// snapshot, used by closeness centrality.
func bfsDistances(s *snapshot, src types.NodeID) map[types.NodeID]int {
	dist := map[types.NodeID]int{src: 0}
	queue := []types.NodeID{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range s.undirected[v] {
			if _, ok := dist[e.to]; !ok {
				dist[e.to] = dist[v] + 1
				queue = append(queue, e.to)
			}
		}
	}
	return dist
}
