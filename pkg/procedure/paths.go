package procedure

import (
	"container/heap"
	"math"

	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

// pqItem is one entry in the shortest-path frontier.
type pqItem struct {
	node types.NodeID
	dist float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

func dijkstraDistances(s *snapshot, source types.NodeID) (map[types.NodeID]float64, map[types.NodeID]types.NodeID) {
	dist := map[types.NodeID]float64{source: 0}
	prev := make(map[types.NodeID]types.NodeID)
	visited := make(map[types.NodeID]bool)

	pq := &priorityQueue{{node: source, dist: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		for _, e := range s.out[cur.node] {
			nd := cur.dist + e.weight
			if d, ok := dist[e.to]; !ok || nd < d {
				dist[e.to] = nd
				prev[e.to] = cur.node
				heap.Push(pq, pqItem{node: e.to, dist: nd})
			}
		}
	}
	return dist, prev
}

func reconstructPath(prev map[types.NodeID]types.NodeID, source, target types.NodeID) ([]types.NodeID, bool) {
	if source == target {
		return []types.NodeID{source}, true
	}
	path := []types.NodeID{target}
	cur := target
	for cur != source {
		p, ok := prev[cur]
		if !ok {
			return nil, false
		}
		path = append(path, p)
		cur = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

func pathValue(path []types.NodeID) types.Value {
	out := make([]types.Value, len(path))
	for i, id := range path {
		out[i] = nodeIDValue(id)
	}
	return types.Value{Kind: types.ValueList, List: out}
}

type dijkstraProcedure struct{}

func (p *dijkstraProcedure) Name() string { return "gds.shortestPath.dijkstra" }

func (p *dijkstraProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "sourceNode", Type: types.ParamNodeRef},
			{Name: "targetNode", Type: types.ParamNodeRef, Optional: true},
			{Name: "weightProperty", Type: types.ParamString, Optional: true, Default: stringValue("weight")},
		},
		Yields: []string{"path", "cost"},
	}
}

func (p *dijkstraProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	source, ok, err := argNodeID(args, "sourceNode")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "sourceNode parameter required")
	}
	target, hasTarget, err := argNodeID(args, "targetNode")
	if err != nil {
		return nil, err
	}
	weightProp, err := argString(args, "weightProperty", "weight")
	if err != nil {
		return nil, err
	}

	s, err := buildSnapshot(tx, weightProp)
	if err != nil {
		return nil, err
	}
	dist, prev := dijkstraDistances(s, source)

	var rows []types.ProcedureResult
	if hasTarget {
		if path, ok := reconstructPath(prev, source, target); ok {
			rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
				"path": pathValue(path),
				"cost": numberValue(dist[target]),
			}})
		}
		return rows, nil
	}
	// No target: report every reachable node's distance, with the node id
	// occupying the path column rather than a full path list.
	for node, d := range dist {
		rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
			"path": nodeIDValue(node),
			"cost": numberValue(d),
		}})
	}
	return rows, nil
}

type astarProcedure struct{}

func (p *astarProcedure) Name() string { return "gds.shortestPath.astar" }

func (p *astarProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "sourceNode", Type: types.ParamNodeRef},
			{Name: "targetNode", Type: types.ParamNodeRef},
			{Name: "weightProperty", Type: types.ParamString, Optional: true, Default: stringValue("weight")},
		},
		Yields: []string{"path", "cost"},
	}
}

// heuristic uses great-circle-ish euclidean distance over lat/lon
// properties when both nodes carry them, falling back to zero (plain
// Dijkstra) otherwise.
func (p *astarProcedure) heuristic(tx Tx, a, b types.NodeID) float64 {
	pa, err := nodeProperties(tx, a)
	if err != nil {
		return 0
	}
	pb, err := nodeProperties(tx, b)
	if err != nil {
		return 0
	}
	alat, aok := propertyAsFloat(pa, "lat", "latitude")
	alon, aok2 := propertyAsFloat(pa, "lon", "longitude")
	blat, bok := propertyAsFloat(pb, "lat", "latitude")
	blon, bok2 := propertyAsFloat(pb, "lon", "longitude")
	if !(aok && aok2 && bok && bok2) {
		return 0
	}
	return math.Hypot(alat-blat, alon-blon)
}

func (p *astarProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	source, ok, err := argNodeID(args, "sourceNode")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "sourceNode parameter required")
	}
	target, ok, err := argNodeID(args, "targetNode")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "targetNode parameter required")
	}
	weightProp, err := argString(args, "weightProperty", "weight")
	if err != nil {
		return nil, err
	}

	s, err := buildSnapshot(tx, weightProp)
	if err != nil {
		return nil, err
	}

	gScore := map[types.NodeID]float64{source: 0}
	prev := make(map[types.NodeID]types.NodeID)
	visited := make(map[types.NodeID]bool)
	pq := &priorityQueue{{node: source, dist: p.heuristic(tx, source, target)}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if cur.node == target {
			break
		}
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		for _, e := range s.out[cur.node] {
			ng := gScore[cur.node] + e.weight
			if g, ok := gScore[e.to]; !ok || ng < g {
				gScore[e.to] = ng
				prev[e.to] = cur.node
				heap.Push(pq, pqItem{node: e.to, dist: ng + p.heuristic(tx, e.to, target)})
			}
		}
	}

	var rows []types.ProcedureResult
	if path, ok := reconstructPath(prev, source, target); ok {
		rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
			"path": pathValue(path),
			"cost": numberValue(gScore[target]),
		}})
	}
	return rows, nil
}

type bellmanFordProcedure struct{}

func (p *bellmanFordProcedure) Name() string { return "gds.shortestPath.bellmanFord" }

func (p *bellmanFordProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "sourceNode", Type: types.ParamNodeRef},
			{Name: "weightProperty", Type: types.ParamString, Optional: true, Default: stringValue("weight")},
		},
		Yields: []string{"node", "distance", "hasNegativeCycle"},
	}
}

func (p *bellmanFordProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	source, ok, err := argNodeID(args, "sourceNode")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "sourceNode parameter required")
	}
	weightProp, err := argString(args, "weightProperty", "weight")
	if err != nil {
		return nil, err
	}

	s, err := buildSnapshot(tx, weightProp)
	if err != nil {
		return nil, err
	}

	dist := map[types.NodeID]float64{source: 0}
	for i := 1; i < len(s.nodes); i++ {
		changed := false
		for from, edges := range s.out {
			d, ok := dist[from]
			if !ok {
				continue
			}
			for _, e := range edges {
				nd := d + e.weight
				if cur, ok := dist[e.to]; !ok || nd < cur {
					dist[e.to] = nd
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	negativeCycle := false
	for from, edges := range s.out {
		d, ok := dist[from]
		if !ok {
			continue
		}
		for _, e := range edges {
			if cur, ok := dist[e.to]; ok && d+e.weight < cur {
				negativeCycle = true
			}
		}
	}

	rows := make([]types.ProcedureResult, 0, len(dist))
	for node, d := range dist {
		rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
			"node":             nodeIDValue(node),
			"distance":         numberValue(d),
			"hasNegativeCycle": boolValue(negativeCycle),
		}})
	}
	return rows, nil
}
