package executor

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/cypher"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

// binding maps a pattern variable to the value it is currently bound to
// (a node reference, a relationship reference, or nil for as-yet-unbound
// quantified-path endpoints).
type binding map[string]types.Value

// evalCtx threads the active transaction, query parameters, and current
// row binding through expression evaluation.
type evalCtx struct {
	tx     *Tx
	params map[string]any
	row    binding
}

// Tx is the subset of *txn.Tx the executor depends on. Declared as an
// interface so tests can exercise planning and evaluation against a fake
// without standing up the full store stack.
type Tx interface {
	GetNode(id types.NodeID) (types.NodeRecord, error)
	GetRelationship(id types.RelID) (types.RelRecord, error)
	NodeProperties(ptr uint64) (types.PropertyBag, error)
	RelationshipsOf(id types.NodeID) ([]types.RelRecord, error)
	NodesWithLabel(label types.LabelID) []types.NodeID
	AllNodeIDs() ([]types.NodeID, error)
	Catalog() *catalog.Catalog
}

func (c *evalCtx) nodeProperties(rec *types.NodeRecord) (types.PropertyBag, error) {
	if rec == nil {
		return nil, nil
	}
	return c.tx.NodeProperties(rec.PropPtr)
}

func (c *evalCtx) relProperties(rec *types.RelRecord) (types.PropertyBag, error) {
	if rec == nil {
		return nil, nil
	}
	return c.tx.NodeProperties(rec.PropPtr)
}

// eval evaluates expr against the bindings and parameters carried by c,
// following SQL-style three-valued logic: any NULL operand of AND, OR,
// a comparison, or an arithmetic operator yields NULL rather than an
// error, except where the truth table fixes the result regardless
// (FALSE AND NULL = FALSE, TRUE OR NULL = TRUE).
func (c *evalCtx) eval(expr cypher.Expression) (types.Value, error) {
	switch e := expr.(type) {
	case cypher.LiteralExpr:
		return literalValue(e.Value), nil

	case cypher.ParameterExpr:
		v, ok := c.params[e.Name]
		if !ok {
			return nullValue(), nil
		}
		return fromAny(v), nil

	case cypher.VariableExpr:
		v, ok := c.row[e.Name]
		if !ok {
			return nullValue(), nexuserr.New(nexuserr.KindTypeError, "undefined variable %q", e.Name)
		}
		return v, nil

	case cypher.PropertyAccessExpr:
		bound, ok := c.row[e.Variable]
		if !ok {
			return nullValue(), nexuserr.New(nexuserr.KindTypeError, "undefined variable %q", e.Variable)
		}
		return c.propertyOf(bound, e.Property)

	case cypher.ListExpr:
		items := make([]types.Value, len(e.Items))
		for i, it := range e.Items {
			v, err := c.eval(it)
			if err != nil {
				return nullValue(), err
			}
			items[i] = v
		}
		return types.Value{Kind: types.ValueList, List: items}, nil

	case cypher.MapExpr:
		m := make(map[string]types.Value, len(e.Entries))
		for k, ex := range e.Entries {
			v, err := c.eval(ex)
			if err != nil {
				return nullValue(), err
			}
			m[k] = v
		}
		return types.Value{Kind: types.ValueMap, Map: m}, nil

	case cypher.UnaryOpExpr:
		return c.evalUnary(e)

	case cypher.BinaryOpExpr:
		return c.evalBinary(e)

	case cypher.CaseExpr:
		return c.evalCase(e)

	case cypher.FunctionCallExpr:
		return c.evalFunction(e)

	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "unsupported expression type %T", expr)
	}
}

func (c *evalCtx) propertyOf(bound types.Value, key string) (types.Value, error) {
	var bag types.PropertyBag
	var err error
	switch bound.Kind {
	case types.ValueNodeRef:
		bag, err = c.nodeProperties(bound.Node)
	case types.ValueRelRef:
		bag, err = c.relProperties(bound.Rel)
	case types.ValueMap:
		if v, ok := bound.Map[key]; ok {
			return v, nil
		}
		return nullValue(), nil
	case types.ValueNull:
		return nullValue(), nil
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "cannot access property %q of a non-entity value", key)
	}
	if err != nil {
		return nullValue(), err
	}
	v, ok := bag[key]
	if !ok {
		return nullValue(), nil
	}
	return fromAny(v), nil
}

func literalValue(l cypher.Literal) types.Value {
	switch l.Kind {
	case cypher.LitString:
		return stringValue(l.Str)
	case cypher.LitInteger:
		return intValue(l.Int)
	case cypher.LitFloat:
		return numberValue(l.Flt)
	case cypher.LitBoolean:
		return boolValue(l.Bool)
	default:
		return nullValue()
	}
}

func (c *evalCtx) evalUnary(e cypher.UnaryOpExpr) (types.Value, error) {
	v, err := c.eval(e.Operand)
	if err != nil {
		return nullValue(), err
	}
	switch e.Op {
	case cypher.OpNot:
		if v.Kind == types.ValueNull {
			return nullValue(), nil
		}
		if v.Kind != types.ValueBool {
			return nullValue(), nexuserr.New(nexuserr.KindTypeError, "NOT requires a boolean operand")
		}
		return boolValue(!v.Bool), nil
	case cypher.OpNegate:
		if v.Kind == types.ValueNull {
			return nullValue(), nil
		}
		if !isNumber(v) {
			return nullValue(), nexuserr.New(nexuserr.KindTypeError, "unary - requires a number")
		}
		if !v.IsFloat {
			return intValue(-v.Int), nil
		}
		return numberValue(-v.Num), nil
	case cypher.OpUnaryPlus:
		return v, nil
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "unsupported unary operator")
	}
}

func (c *evalCtx) evalBinary(e cypher.BinaryOpExpr) (types.Value, error) {
	// AND/OR apply Kleene's three-valued truth tables, which can resolve
	// to a definite boolean even with one NULL operand, so short-circuit
	// before evaluating strictly.
	if e.Op == cypher.OpAnd || e.Op == cypher.OpOr {
		return c.evalLogical(e)
	}

	left, err := c.eval(e.Left)
	if err != nil {
		return nullValue(), err
	}
	right, err := c.eval(e.Right)
	if err != nil {
		return nullValue(), err
	}

	switch e.Op {
	case cypher.OpAdd:
		return c.evalAdd(left, right)
	case cypher.OpSubtract, cypher.OpMultiply, cypher.OpDivide, cypher.OpModulo, cypher.OpPower:
		return evalArith(e.Op, left, right)
	case cypher.OpEqual, cypher.OpNotEqual:
		return evalEquality(e.Op, left, right)
	case cypher.OpLessThan, cypher.OpLessThanOrEqual, cypher.OpGreaterThan, cypher.OpGreaterThanOrEqual:
		return evalOrder(e.Op, left, right)
	case cypher.OpIn:
		return evalIn(left, right)
	case cypher.OpStartsWith:
		return evalStringPredicate(left, right, strings.HasPrefix)
	case cypher.OpEndsWith:
		return evalStringPredicate(left, right, strings.HasSuffix)
	case cypher.OpContains:
		return evalStringPredicate(left, right, strings.Contains)
	case cypher.OpRegexMatch:
		return evalRegexMatch(left, right)
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "unsupported binary operator")
	}
}

func (c *evalCtx) evalLogical(e cypher.BinaryOpExpr) (types.Value, error) {
	left, err := c.eval(e.Left)
	if err != nil {
		return nullValue(), err
	}
	lb, lNull := isTruthy(left)

	if e.Op == cypher.OpAnd && !lNull && !lb {
		return boolValue(false), nil
	}
	if e.Op == cypher.OpOr && !lNull && lb {
		return boolValue(true), nil
	}

	right, err := c.eval(e.Right)
	if err != nil {
		return nullValue(), err
	}
	rb, rNull := isTruthy(right)

	if e.Op == cypher.OpAnd {
		if !rNull && !rb {
			return boolValue(false), nil
		}
		if lNull || rNull {
			return nullValue(), nil
		}
		return boolValue(lb && rb), nil
	}

	// OR
	if !rNull && rb {
		return boolValue(true), nil
	}
	if lNull || rNull {
		return nullValue(), nil
	}
	return boolValue(lb || rb), nil
}

func (c *evalCtx) evalAdd(left, right types.Value) (types.Value, error) {
	if left.Kind == types.ValueNull || right.Kind == types.ValueNull {
		return nullValue(), nil
	}
	if left.Kind == types.ValueString || right.Kind == types.ValueString {
		return stringValue(renderOperand(left) + renderOperand(right)), nil
	}
	if left.Kind == types.ValueList && right.Kind == types.ValueList {
		out := append(append([]types.Value{}, left.List...), right.List...)
		return types.Value{Kind: types.ValueList, List: out}, nil
	}
	return evalArith(cypher.OpAdd, left, right)
}

func renderOperand(v types.Value) string {
	switch v.Kind {
	case types.ValueString:
		return v.Str
	case types.ValueNumber:
		if v.IsFloat {
			return formatFloat(v.Num)
		}
		return strconv.FormatInt(v.Int, 10)
	case types.ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// evalArith applies +, -, *, /, % and ^ with spec.md's promotion rule:
// two integer operands stay integer (and wrap in two's complement on
// overflow, which is how Go's int64 arithmetic already behaves), while
// an operand of either kind being a float promotes the whole operation
// to float64. ^ always yields a float, matching the irrational results
// it usually produces.
func evalArith(op cypher.BinaryOperator, left, right types.Value) (types.Value, error) {
	if left.Kind == types.ValueNull || right.Kind == types.ValueNull {
		return nullValue(), nil
	}
	if !isNumber(left) || !isNumber(right) {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "arithmetic requires numeric operands")
	}
	bothInt := !left.IsFloat && !right.IsFloat

	switch op {
	case cypher.OpAdd:
		if bothInt {
			return intValue(left.Int + right.Int), nil
		}
		return numberValue(left.AsFloat() + right.AsFloat()), nil
	case cypher.OpSubtract:
		if bothInt {
			return intValue(left.Int - right.Int), nil
		}
		return numberValue(left.AsFloat() - right.AsFloat()), nil
	case cypher.OpMultiply:
		if bothInt {
			return intValue(left.Int * right.Int), nil
		}
		return numberValue(left.AsFloat() * right.AsFloat()), nil
	case cypher.OpDivide:
		if right.AsFloat() == 0 {
			return nullValue(), nexuserr.New(nexuserr.KindTypeError, "division by zero")
		}
		if bothInt {
			return intValue(left.Int / right.Int), nil
		}
		return numberValue(left.AsFloat() / right.AsFloat()), nil
	case cypher.OpModulo:
		if right.AsFloat() == 0 {
			return nullValue(), nexuserr.New(nexuserr.KindTypeError, "modulo by zero")
		}
		if bothInt {
			return intValue(left.Int % right.Int), nil
		}
		return numberValue(math.Mod(left.AsFloat(), right.AsFloat())), nil
	case cypher.OpPower:
		return numberValue(pow(left.AsFloat(), right.AsFloat())), nil
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "unsupported arithmetic operator")
	}
}

func pow(base, exp float64) float64 {
	return math.Pow(base, exp)
}

func evalEquality(op cypher.BinaryOperator, left, right types.Value) (types.Value, error) {
	eq, isNull := valuesEqual(left, right)
	if isNull {
		return nullValue(), nil
	}
	if op == cypher.OpNotEqual {
		return boolValue(!eq), nil
	}
	return boolValue(eq), nil
}

func evalOrder(op cypher.BinaryOperator, left, right types.Value) (types.Value, error) {
	cmp, ok := compareValues(left, right)
	if !ok {
		return nullValue(), nil
	}
	switch op {
	case cypher.OpLessThan:
		return boolValue(cmp < 0), nil
	case cypher.OpLessThanOrEqual:
		return boolValue(cmp <= 0), nil
	case cypher.OpGreaterThan:
		return boolValue(cmp > 0), nil
	case cypher.OpGreaterThanOrEqual:
		return boolValue(cmp >= 0), nil
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "unsupported comparison operator")
	}
}

// evalIn implements Cypher's IN semantics: if the needle is found, true;
// if not found but the haystack contains a NULL, the outcome is unknown
// rather than false.
func evalIn(needle, haystack types.Value) (types.Value, error) {
	if haystack.Kind != types.ValueList {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "IN requires a list operand")
	}
	if needle.Kind == types.ValueNull {
		return nullValue(), nil
	}
	sawNull := false
	for _, item := range haystack.List {
		if item.Kind == types.ValueNull {
			sawNull = true
			continue
		}
		eq, _ := valuesEqual(needle, item)
		if eq {
			return boolValue(true), nil
		}
	}
	if sawNull {
		return nullValue(), nil
	}
	return boolValue(false), nil
}

func evalStringPredicate(left, right types.Value, pred func(s, substr string) bool) (types.Value, error) {
	if left.Kind == types.ValueNull || right.Kind == types.ValueNull {
		return nullValue(), nil
	}
	if left.Kind != types.ValueString || right.Kind != types.ValueString {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "string predicate requires string operands")
	}
	return boolValue(pred(left.Str, right.Str)), nil
}

func evalRegexMatch(left, right types.Value) (types.Value, error) {
	if left.Kind == types.ValueNull || right.Kind == types.ValueNull {
		return nullValue(), nil
	}
	if left.Kind != types.ValueString || right.Kind != types.ValueString {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "=~ requires string operands")
	}
	re, err := regexp.Compile(right.Str)
	if err != nil {
		return nullValue(), nexuserr.Wrap(nexuserr.KindInvalidInput, err, "invalid regular expression %q", right.Str)
	}
	return boolValue(re.MatchString(left.Str)), nil
}

func (c *evalCtx) evalCase(e cypher.CaseExpr) (types.Value, error) {
	var input types.Value
	simple := e.Input != nil
	if simple {
		v, err := c.eval(e.Input)
		if err != nil {
			return nullValue(), err
		}
		input = v
	}

	for _, when := range e.WhenClauses {
		if simple {
			cond, err := c.eval(when.Condition)
			if err != nil {
				return nullValue(), err
			}
			eq, isNull := valuesEqual(input, cond)
			if !isNull && eq {
				return c.eval(when.Result)
			}
			continue
		}
		cond, err := c.eval(when.Condition)
		if err != nil {
			return nullValue(), err
		}
		b, isNull := isTruthy(cond)
		if !isNull && b {
			return c.eval(when.Result)
		}
	}
	if e.Else != nil {
		return c.eval(e.Else)
	}
	return nullValue(), nil
}
