package procedure

import (
	"math"

	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

func neighborSet(s *snapshot, id types.NodeID) map[types.NodeID]bool {
	set := make(map[types.NodeID]bool, len(s.undirected[id]))
	for _, e := range s.undirected[id] {
		set[e.to] = true
	}
	return set
}

func jaccard(a, b map[types.NodeID]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for n := range a {
		if b[n] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

type jaccardProcedure struct{}

func (p *jaccardProcedure) Name() string { return "gds.similarity.jaccard" }

func (p *jaccardProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "node1", Type: types.ParamNodeRef},
			{Name: "node2", Type: types.ParamNodeRef},
		},
		Yields: []string{"similarity"},
	}
}

func (p *jaccardProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	n1, ok, err := argNodeID(args, "node1")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "node1 parameter required")
	}
	n2, ok, err := argNodeID(args, "node2")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "node2 parameter required")
	}

	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}
	sim := jaccard(neighborSet(s, n1), neighborSet(s, n2))
	return []types.ProcedureResult{{Values: map[string]types.Value{"similarity": numberValue(sim)}}}, nil
}

type cosineProcedure struct{}

func (p *cosineProcedure) Name() string { return "gds.similarity.cosine" }

func (p *cosineProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "node1", Type: types.ParamNodeRef},
			{Name: "node2", Type: types.ParamNodeRef},
		},
		Yields: []string{"similarity"},
	}
}

// Execute treats each node's neighborhood as a 0/1 vector over the union
// of the two nodes' neighbors and computes cosine similarity on that.
func (p *cosineProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	n1, ok, err := argNodeID(args, "node1")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "node1 parameter required")
	}
	n2, ok, err := argNodeID(args, "node2")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "node2 parameter required")
	}

	s, err := buildSnapshot(tx, "weight")
	if err != nil {
		return nil, err
	}
	a := neighborSet(s, n1)
	b := neighborSet(s, n2)

	dot := 0.0
	for n := range a {
		if b[n] {
			dot++
		}
	}
	magA := math.Sqrt(float64(len(a)))
	magB := math.Sqrt(float64(len(b)))
	sim := 0.0
	if magA != 0 && magB != 0 {
		sim = dot / (magA * magB)
	}
	return []types.ProcedureResult{{Values: map[string]types.Value{"similarity": numberValue(sim)}}}, nil
}
