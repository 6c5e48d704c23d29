package executor

import (
	"sort"
	"strings"

	"github.com/cuemby/nexus/pkg/cypher"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

// Result is a query's output table: one Columns entry per RETURN item, in
// order, and one Rows entry per result row.
type Result struct {
	Columns []string
	Rows    [][]types.Value
}

// Execute runs query against tx and returns its result table. It applies
// the query surface's single fixed plan: pattern match (scan + chain
// walk) and WHERE, then RETURN projection, aggregation when the
// projection calls an aggregate function, DISTINCT, ORDER BY, SKIP, and
// LIMIT, in that order.
func Execute(tx Tx, query *cypher.Query) (*Result, error) {
	var match *cypher.MatchClause
	var ret *cypher.ReturnClause
	var orderBy *cypher.OrderByClause
	var skip *cypher.SkipClause
	var limit *cypher.LimitClause

	for _, clause := range query.Clauses {
		switch c := clause.(type) {
		case cypher.MatchClause:
			if match == nil {
				match = &c
			}
		case cypher.ReturnClause:
			ret = &c
		case cypher.OrderByClause:
			orderBy = &c
		case cypher.SkipClause:
			skip = &c
		case cypher.LimitClause:
			limit = &c
		}
	}
	if ret == nil {
		return nil, nexuserr.New(nexuserr.KindInvalidInput, "query has no RETURN clause")
	}

	p := &planner{tx: tx, params: query.Params}

	var bindings []binding
	if match != nil {
		matched, err := p.matchPattern(match.Pattern, match.Where)
		if err != nil {
			return nil, err
		}
		bindings = matched
	} else {
		bindings = []binding{{}}
	}

	columns := resultColumns(ret.Items)

	var rows []rowWithSource
	if hasAggregate(ret.Items) {
		row, err := p.evalAggregateRow(bindings, ret.Items)
		if err != nil {
			return nil, err
		}
		rows = []rowWithSource{{values: row}}
	} else {
		var err error
		rows, err = p.projectRows(bindings, ret.Items)
		if err != nil {
			return nil, err
		}
	}

	if ret.Distinct {
		rows = dedupeRows(rows)
	}

	if orderBy != nil {
		if err := p.sortRows(rows, orderBy.Items); err != nil {
			return nil, err
		}
	}

	rows, err := p.applySkipLimit(rows, skip, limit)
	if err != nil {
		return nil, err
	}

	out := make([][]types.Value, len(rows))
	for i, r := range rows {
		out[i] = r.values
	}
	return &Result{Columns: columns, Rows: out}, nil
}

// rowWithSource pairs a projected row with the binding it was produced
// from, so ORDER BY can reference a variable that was matched but never
// projected into RETURN.
type rowWithSource struct {
	values []types.Value
	source binding
}

func resultColumns(items []cypher.ReturnItem) []string {
	cols := make([]string, len(items))
	for i, item := range items {
		if item.Alias != "" {
			cols[i] = item.Alias
		} else {
			cols[i] = item.Text
		}
	}
	return cols
}

func hasAggregate(items []cypher.ReturnItem) bool {
	for _, item := range items {
		if _, ok := isAggregateCall(item.Expression); ok {
			return true
		}
	}
	return false
}

func (p *planner) projectRows(bindings []binding, items []cypher.ReturnItem) ([]rowWithSource, error) {
	out := make([]rowWithSource, 0, len(bindings))
	for _, b := range bindings {
		ctx := p.evalCtxFor(b)
		values := make([]types.Value, len(items))
		for i, item := range items {
			v, err := ctx.eval(item.Expression)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		out = append(out, rowWithSource{values: values, source: b})
	}
	return out, nil
}

func (p *planner) evalAggregateRow(bindings []binding, items []cypher.ReturnItem) ([]types.Value, error) {
	values := make([]types.Value, len(items))
	for i, item := range items {
		if fn, ok := isAggregateCall(item.Expression); ok {
			v, err := p.evalAggregate(bindings, fn)
			if err != nil {
				return nil, err
			}
			values[i] = v
			continue
		}
		// A non-aggregate item alongside an aggregate one has no GROUP BY
		// to key on; take it from the first row, matching how a single-
		// group implicit aggregation behaves.
		if len(bindings) == 0 {
			values[i] = nullValue()
			continue
		}
		v, err := p.evalCtxFor(bindings[0]).eval(item.Expression)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (p *planner) evalAggregate(bindings []binding, fn cypher.FunctionCallExpr) (types.Value, error) {
	name := strings.ToLower(fn.Name)
	switch name {
	case "count":
		if len(fn.Args) == 0 {
			return intValue(int64(len(bindings))), nil
		}
		n := 0
		for _, b := range bindings {
			v, err := p.evalCtxFor(b).eval(fn.Args[0])
			if err != nil {
				return nullValue(), err
			}
			if v.Kind != types.ValueNull {
				n++
			}
		}
		return intValue(int64(n)), nil

	case "sum", "avg":
		// sum stays an integer as long as every contributing value was
		// one; a single float operand promotes the whole accumulation,
		// mirroring evalArith's int/float promotion rule. avg always
		// yields a float.
		var fsum float64
		var isum int64
		allInt := true
		n := 0
		for _, b := range bindings {
			v, err := p.evalCtxFor(b).eval(fn.Args[0])
			if err != nil {
				return nullValue(), err
			}
			if v.Kind != types.ValueNumber {
				continue
			}
			fsum += v.AsFloat()
			if !v.IsFloat && allInt {
				isum += v.Int
			} else {
				allInt = false
			}
			n++
		}
		if name == "sum" {
			if allInt {
				return intValue(isum), nil
			}
			return numberValue(fsum), nil
		}
		if n == 0 {
			return nullValue(), nil
		}
		return numberValue(fsum / float64(n)), nil

	case "min", "max":
		var best *types.Value
		for _, b := range bindings {
			v, err := p.evalCtxFor(b).eval(fn.Args[0])
			if err != nil {
				return nullValue(), err
			}
			if v.Kind == types.ValueNull {
				continue
			}
			if best == nil {
				cp := v
				best = &cp
				continue
			}
			cmp, ok := compareValues(v, *best)
			if !ok {
				continue
			}
			if (name == "min" && cmp < 0) || (name == "max" && cmp > 0) {
				cp := v
				best = &cp
			}
		}
		if best == nil {
			return nullValue(), nil
		}
		return *best, nil

	case "collect":
		var items []types.Value
		for _, b := range bindings {
			v, err := p.evalCtxFor(b).eval(fn.Args[0])
			if err != nil {
				return nullValue(), err
			}
			if v.Kind == types.ValueNull {
				continue
			}
			items = append(items, v)
		}
		return types.Value{Kind: types.ValueList, List: items}, nil

	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "unknown aggregate function %q", fn.Name)
	}
}

func dedupeRows(rows []rowWithSource) []rowWithSource {
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		var sb strings.Builder
		for _, v := range r.values {
			sb.WriteString(canonicalKey(v))
			sb.WriteByte('\x1f')
		}
		key := sb.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// sortRows stably sorts rows in place by items, evaluated against each
// row's source binding rather than its projected values, so ORDER BY can
// reference a matched variable the RETURN clause never projected. NULL
// sorts last ascending, first descending, per item.
func (p *planner) sortRows(rows []rowWithSource, items []cypher.SortItem) error {
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		for _, item := range items {
			vi, err := p.evalCtxFor(rows[i].source).eval(item.Expression)
			if err != nil {
				sortErr = err
				return false
			}
			vj, err := p.evalCtxFor(rows[j].source).eval(item.Expression)
			if err != nil {
				sortErr = err
				return false
			}
			less, done := orderLess(vi, vj, item.Descending)
			if done {
				return less
			}
		}
		return false
	})
	return sortErr
}

// orderLess compares two ORDER BY values for one sort key. done is false
// when the pair compares equal and the next sort key (if any) should
// decide.
func orderLess(a, b types.Value, descending bool) (less bool, done bool) {
	aNull := a.Kind == types.ValueNull
	bNull := b.Kind == types.ValueNull
	if aNull && bNull {
		return false, false
	}
	if aNull {
		return !descending, true // NULL last ascending, first descending
	}
	if bNull {
		return descending, true
	}
	cmp, ok := compareValues(a, b)
	if !ok || cmp == 0 {
		return false, false
	}
	if descending {
		return cmp > 0, true
	}
	return cmp < 0, true
}

func (p *planner) applySkipLimit(rows []rowWithSource, skip *cypher.SkipClause, limit *cypher.LimitClause) ([]rowWithSource, error) {
	start := 0
	if skip != nil {
		n, err := p.evalCountExpr(skip.Count)
		if err != nil {
			return nil, err
		}
		start = n
	}
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	rows = rows[start:]

	if limit == nil {
		return rows, nil
	}
	n, err := p.evalCountExpr(limit.Count)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n], nil
}

func (p *planner) evalCountExpr(expr cypher.Expression) (int, error) {
	v, err := p.evalCtxFor(binding{}).eval(expr)
	if err != nil {
		return 0, err
	}
	if v.Kind != types.ValueNumber {
		return 0, nexuserr.New(nexuserr.KindInvalidInput, "SKIP/LIMIT requires an integer value")
	}
	return int(v.AsFloat()), nil
}
