package executor

import (
	"github.com/cuemby/nexus/pkg/cypher"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

// boundedHopCap limits how far an unbounded quantified relationship
// (`*`, `+`, `{n,}`) is allowed to traverse. The grammar permits an
// unbounded upper edge; the executor does not, to keep a pathological
// pattern from walking the whole graph.
const boundedHopCap = 15

// planner matches a pattern against a transaction's current state. It
// holds no per-row state; evalCtx does.
type planner struct {
	tx     Tx
	params map[string]any
}

func (p *planner) evalCtxFor(b binding) *evalCtx {
	return &evalCtx{tx: p.tx, params: p.params, row: b}
}

// matchPattern returns every binding that satisfies pattern, with where
// (if present) applied as a final filter.
func (p *planner) matchPattern(pattern cypher.Pattern, where *cypher.WhereClause) ([]binding, error) {
	elements := pattern.Elements
	if len(elements) == 0 {
		return nil, nil
	}

	scanPos := p.chooseScanPos(elements)
	scanNode := elements[scanPos].(cypher.NodePattern)

	labelIDs := make([]types.LabelID, 0, len(scanNode.Labels))
	for _, name := range scanNode.Labels {
		id, ok := p.tx.Catalog().LookupLabel(name)
		if !ok {
			return nil, nil // pattern references a label nothing carries
		}
		labelIDs = append(labelIDs, id)
	}

	var candidates []types.NodeID
	if len(labelIDs) > 0 {
		candidates = p.tx.NodesWithLabel(labelIDs[0])
	} else {
		all, err := p.tx.AllNodeIDs()
		if err != nil {
			return nil, err
		}
		candidates = all
	}

	var out []binding
	for _, id := range candidates {
		rec, err := p.tx.GetNode(id)
		if err != nil {
			return nil, err
		}
		if !rec.InUse || !hasAllLabels(rec, labelIDs) {
			continue
		}

		base := binding{}
		nodeVal := nodeRefValue(id, rec)
		if scanNode.Variable != "" {
			base[scanNode.Variable] = nodeVal
		}

		ok, err := checkPropertyFilter(p.evalCtxFor(base), nodeVal, scanNode.Properties)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		forward, err := p.extendForward(base, elements, scanPos+1)
		if err != nil {
			return nil, err
		}
		backward, err := p.extendBackward(base, elements, scanPos-1)
		if err != nil {
			return nil, err
		}
		for _, f := range forward {
			for _, bk := range backward {
				out = append(out, mergeBindings(f, bk))
			}
		}
	}

	if where == nil {
		return out, nil
	}
	filtered := out[:0:0]
	for _, b := range out {
		v, err := p.evalCtxFor(b).eval(where.Expression)
		if err != nil {
			return nil, err
		}
		truth, isNull := isTruthy(v)
		if !isNull && truth {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// chooseScanPos picks which node pattern in the chain to scan from. When
// more than one carries a label constraint, each is scored by the
// catalog's live per-label node count and the cheapest (lowest-count)
// one wins, the same score-candidates-and-sort shape as the teacher's
// bin-packing scheduler. A label that resolves to no catalog entry scores
// zero and wins outright, since that branch can never match anything
// and is worth discovering immediately rather than scanning the rest of
// the pattern first.
func (p *planner) chooseScanPos(elements []cypher.PatternElement) int {
	best := -1
	var bestCount uint64
	stats := p.tx.Catalog().Stats()
	for i := 0; i < len(elements); i += 2 {
		np, ok := elements[i].(cypher.NodePattern)
		if !ok || len(np.Labels) == 0 {
			continue
		}
		var count uint64
		if id, ok := p.tx.Catalog().LookupLabel(np.Labels[0]); ok {
			count = stats.LabelCounts[id]
		}
		if best == -1 || count < bestCount {
			best, bestCount = i, count
		}
	}
	if best == -1 {
		return 0
	}
	return best
}

func hasAllLabels(rec types.NodeRecord, labelIDs []types.LabelID) bool {
	for _, lid := range labelIDs {
		if rec.LabelBits&(1<<uint32(lid)) == 0 {
			return false
		}
	}
	return true
}

func (p *planner) extendForward(b binding, elements []cypher.PatternElement, pos int) ([]binding, error) {
	if pos >= len(elements) {
		return []binding{cloneBinding(b)}, nil
	}
	relPat := elements[pos].(cypher.RelationshipPattern)
	nodePat := elements[pos+1].(cypher.NodePattern)
	anchorVar := elements[pos-1].(cypher.NodePattern).Variable
	anchor, ok := b[anchorVar]
	if !ok || anchor.Node == nil {
		return nil, nexuserr.New(nexuserr.KindTypeError, "pattern variable %q is unbound", anchorVar)
	}

	hops, err := p.stepRelationship(anchor.Node.ID, relPat, true)
	if err != nil {
		return nil, err
	}

	var out []binding
	for _, h := range hops {
		branch, ok, err := p.bindHop(b, h, relPat, nodePat)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rest, err := p.extendForward(branch, elements, pos+2)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

func (p *planner) extendBackward(b binding, elements []cypher.PatternElement, pos int) ([]binding, error) {
	if pos < 0 {
		return []binding{cloneBinding(b)}, nil
	}
	relPat := elements[pos].(cypher.RelationshipPattern)
	nodePat := elements[pos-1].(cypher.NodePattern)
	anchorVar := elements[pos+1].(cypher.NodePattern).Variable
	anchor, ok := b[anchorVar]
	if !ok || anchor.Node == nil {
		return nil, nexuserr.New(nexuserr.KindTypeError, "pattern variable %q is unbound", anchorVar)
	}

	hops, err := p.stepRelationship(anchor.Node.ID, relPat, false)
	if err != nil {
		return nil, err
	}

	var out []binding
	for _, h := range hops {
		branch, ok, err := p.bindHop(b, h, relPat, nodePat)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rest, err := p.extendBackward(branch, elements, pos-2)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

// bindHop extends b with the relationship and node endpoint reached by a
// single (possibly multi-edge, under a quantifier) hop, applying the
// relationship's and the node's label/property filters.
func (p *planner) bindHop(b binding, h hop, relPat cypher.RelationshipPattern, nodePat cypher.NodePattern) (binding, bool, error) {
	otherRec, err := p.tx.GetNode(h.other)
	if err != nil {
		return nil, false, err
	}
	if !otherRec.InUse {
		return nil, false, nil
	}
	labelIDs := make([]types.LabelID, 0, len(nodePat.Labels))
	for _, name := range nodePat.Labels {
		id, ok := p.tx.Catalog().LookupLabel(name)
		if !ok {
			return nil, false, nil
		}
		labelIDs = append(labelIDs, id)
	}
	if !hasAllLabels(otherRec, labelIDs) {
		return nil, false, nil
	}

	branch := cloneBinding(b)
	relVal := relRefValue(h.rel.ID, h.rel)
	if relPat.Variable != "" {
		branch[relPat.Variable] = relVal
	}
	nodeVal := nodeRefValue(h.other, otherRec)
	if nodePat.Variable != "" {
		branch[nodePat.Variable] = nodeVal
	}

	ctx := p.evalCtxFor(branch)
	if ok, err := checkPropertyFilter(ctx, relVal, relPat.Properties); err != nil || !ok {
		return nil, false, err
	}
	if ok, err := checkPropertyFilter(ctx, nodeVal, nodePat.Properties); err != nil || !ok {
		return nil, false, err
	}
	return branch, true, nil
}

// hop is one relationship edge reached while walking a pattern chain from
// an already-bound anchor node.
type hop struct {
	rel   types.RelRecord
	other types.NodeID
}

// stepRelationship walks zero or more hops outward from fromID along
// relPat, honoring its type filter, direction, and quantifier (a nil
// quantifier means exactly one hop). forward is true when fromID is the
// pattern's left-hand node for this edge (pattern read left to right);
// false when extending backward from the right-hand node.
func (p *planner) stepRelationship(fromID types.NodeID, relPat cypher.RelationshipPattern, forward bool) ([]hop, error) {
	typeIDs, filterActive := p.resolveTypes(relPat.Types)
	if filterActive && len(typeIDs) == 0 {
		return nil, nil
	}

	minHop, maxHop := 1, 1
	if relPat.Quantifier != nil {
		minHop, maxHop = relPat.Quantifier.Min, relPat.Quantifier.Max
		if maxHop < 0 || maxHop > boundedHopCap {
			maxHop = boundedHopCap
		}
		if minHop < 0 {
			minHop = 0
		}
	}
	if maxHop == 0 {
		return nil, nil
	}

	type frontierNode struct {
		id types.NodeID
	}
	current := []frontierNode{{id: fromID}}
	visited := map[types.NodeID]bool{fromID: true}
	var results []hop
	seen := map[types.NodeID]bool{}

	for depth := 1; depth <= maxHop; depth++ {
		var next []frontierNode
		for _, f := range current {
			rels, err := p.tx.RelationshipsOf(f.id)
			if err != nil {
				return nil, err
			}
			for _, rel := range rels {
				if !rel.InUse {
					continue
				}
				if filterActive && !containsTypeID(typeIDs, rel.TypeID) {
					continue
				}
				fromIsSrc := rel.SrcNode == f.id
				if !directionOK(relPat.Direction, forward, fromIsSrc) {
					continue
				}
				var other types.NodeID
				if fromIsSrc {
					other = rel.DstNode
				} else {
					other = rel.SrcNode
				}
				if visited[other] {
					continue
				}
				next = append(next, frontierNode{id: other})
				if depth >= minHop && !seen[other] {
					seen[other] = true
					results = append(results, hop{rel: rel, other: other})
				}
			}
		}
		for _, nf := range next {
			visited[nf.id] = true
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	return results, nil
}

func (p *planner) resolveTypes(names []string) (ids []types.TypeID, filterActive bool) {
	if len(names) == 0 {
		return nil, false
	}
	for _, n := range names {
		if id, ok := p.tx.Catalog().LookupType(n); ok {
			ids = append(ids, id)
		}
	}
	return ids, true
}

func containsTypeID(ids []types.TypeID, id types.TypeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// directionOK reports whether a relationship where fromID plays the src
// role (fromIsSrc) or dst role satisfies relPat's declared direction,
// given whether the anchor is being extended forward (left-to-right
// through the pattern) or backward (right-to-left).
func directionOK(dir cypher.RelationshipDirection, forward, fromIsSrc bool) bool {
	switch dir {
	case cypher.DirBoth:
		return true
	case cypher.DirOutgoing:
		if forward {
			return fromIsSrc
		}
		return !fromIsSrc
	case cypher.DirIncoming:
		if forward {
			return !fromIsSrc
		}
		return fromIsSrc
	default:
		return false
	}
}

func checkPropertyFilter(ctx *evalCtx, entity types.Value, props *cypher.PropertyMap) (bool, error) {
	if props == nil {
		return true, nil
	}
	for key, expr := range props.Properties {
		want, err := ctx.eval(expr)
		if err != nil {
			return false, err
		}
		got, err := ctx.propertyOf(entity, key)
		if err != nil {
			return false, err
		}
		eq, isNull := valuesEqual(want, got)
		if isNull || !eq {
			return false, nil
		}
	}
	return true, nil
}

func cloneBinding(b binding) binding {
	out := make(binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeBindings(a, b binding) binding {
	out := make(binding, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
