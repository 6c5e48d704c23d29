package executor

import (
	"math"
	"strings"

	"github.com/cuemby/nexus/pkg/cypher"
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

// aggregateFunctions names the RETURN-position functions the aggregation
// stage handles specially; evalFunction never sees them directly when a
// query groups rows.
var aggregateFunctions = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true, "collect": true,
}

func isAggregateCall(expr cypher.Expression) (cypher.FunctionCallExpr, bool) {
	fn, ok := expr.(cypher.FunctionCallExpr)
	if !ok {
		return fn, false
	}
	return fn, aggregateFunctions[strings.ToLower(fn.Name)]
}

func (c *evalCtx) evalFunction(e cypher.FunctionCallExpr) (types.Value, error) {
	name := strings.ToLower(e.Name)
	if aggregateFunctions[name] {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "%s() is only valid in a RETURN projection", name)
	}

	args := make([]types.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := c.eval(a)
		if err != nil {
			return nullValue(), err
		}
		args[i] = v
	}

	switch name {
	case "id":
		return scalarID(args)
	case "labels":
		return c.scalarLabels(args)
	case "type":
		return c.scalarType(args)
	case "properties":
		return c.scalarProperties(args)
	case "size":
		return scalarSize(args)
	case "tolower":
		return scalarStringFn(args, strings.ToLower)
	case "toupper":
		return scalarStringFn(args, strings.ToUpper)
	case "trim":
		return scalarStringFn(args, strings.TrimSpace)
	case "tostring":
		return scalarToString(args)
	case "tointeger":
		return scalarToInteger(args)
	case "abs":
		return scalarAbs(args)
	case "sqrt":
		return scalarMath(args, math.Sqrt)
	case "ceil":
		return scalarMath(args, math.Ceil)
	case "floor":
		return scalarMath(args, math.Floor)
	case "round":
		return scalarMath(args, math.Round)
	case "coalesce":
		return scalarCoalesce(args)
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "unknown function %q", e.Name)
	}
}

func scalarID(args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "id() takes exactly one argument")
	}
	switch args[0].Kind {
	case types.ValueNodeRef:
		return intValue(int64(args[0].Node.ID)), nil
	case types.ValueRelRef:
		return intValue(int64(args[0].Rel.ID)), nil
	case types.ValueNull:
		return nullValue(), nil
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "id() requires a node or relationship")
	}
}

func (c *evalCtx) scalarLabels(args []types.Value) (types.Value, error) {
	if len(args) != 1 || args[0].Kind != types.ValueNodeRef {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "labels() requires a node")
	}
	cat := c.tx.Catalog()
	var out []types.Value
	for i := uint32(0); i < types.MaxLabels; i++ {
		if args[0].Node.LabelBits&(1<<i) == 0 {
			continue
		}
		if name, ok := cat.LabelName(types.LabelID(i)); ok {
			out = append(out, stringValue(name))
		}
	}
	return types.Value{Kind: types.ValueList, List: out}, nil
}

func (c *evalCtx) scalarType(args []types.Value) (types.Value, error) {
	if len(args) != 1 || args[0].Kind != types.ValueRelRef {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "type() requires a relationship")
	}
	if name, ok := c.tx.Catalog().TypeName(args[0].Rel.TypeID); ok {
		return stringValue(name), nil
	}
	return nullValue(), nil
}

func (c *evalCtx) scalarProperties(args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "properties() takes exactly one argument")
	}
	var bag types.PropertyBag
	var err error
	switch args[0].Kind {
	case types.ValueNodeRef:
		bag, err = c.nodeProperties(args[0].Node)
	case types.ValueRelRef:
		bag, err = c.relProperties(args[0].Rel)
	case types.ValueMap:
		return args[0], nil
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "properties() requires a node, relationship, or map")
	}
	if err != nil {
		return nullValue(), err
	}
	m := make(map[string]types.Value, len(bag))
	for k, v := range bag {
		m[k] = fromAny(v)
	}
	return types.Value{Kind: types.ValueMap, Map: m}, nil
}

func scalarSize(args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "size() takes exactly one argument")
	}
	switch args[0].Kind {
	case types.ValueList:
		return intValue(int64(len(args[0].List))), nil
	case types.ValueString:
		return intValue(int64(len([]rune(args[0].Str)))), nil
	case types.ValueNull:
		return nullValue(), nil
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "size() requires a list or string")
	}
}

func scalarStringFn(args []types.Value, f func(string) string) (types.Value, error) {
	if len(args) != 1 {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "function takes exactly one argument")
	}
	if args[0].Kind == types.ValueNull {
		return nullValue(), nil
	}
	if args[0].Kind != types.ValueString {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "function requires a string argument")
	}
	return stringValue(f(args[0].Str)), nil
}

func scalarToString(args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "toString() takes exactly one argument")
	}
	return stringValue(renderOperand(args[0])), nil
}

func scalarToInteger(args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "toInteger() takes exactly one argument")
	}
	switch args[0].Kind {
	case types.ValueNumber:
		if !args[0].IsFloat {
			return args[0], nil
		}
		return intValue(int64(math.Trunc(args[0].Num))), nil
	case types.ValueNull:
		return nullValue(), nil
	default:
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "toInteger() requires a number")
	}
}

func scalarMath(args []types.Value, f func(float64) float64) (types.Value, error) {
	if len(args) != 1 {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "function takes exactly one argument")
	}
	if args[0].Kind == types.ValueNull {
		return nullValue(), nil
	}
	if !isNumber(args[0]) {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "function requires a numeric argument")
	}
	return numberValue(f(args[0].AsFloat())), nil
}

// scalarAbs preserves the argument's int/float kind, unlike the other
// math functions which always yield a float: abs(-5) stays the integer 5.
func scalarAbs(args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "function takes exactly one argument")
	}
	if args[0].Kind == types.ValueNull {
		return nullValue(), nil
	}
	if !isNumber(args[0]) {
		return nullValue(), nexuserr.New(nexuserr.KindTypeError, "function requires a numeric argument")
	}
	if !args[0].IsFloat {
		n := args[0].Int
		if n < 0 {
			n = -n
		}
		return intValue(n), nil
	}
	return numberValue(math.Abs(args[0].Num)), nil
}

func scalarCoalesce(args []types.Value) (types.Value, error) {
	for _, a := range args {
		if a.Kind != types.ValueNull {
			return a, nil
		}
	}
	return nullValue(), nil
}
