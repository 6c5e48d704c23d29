package cypher

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderExpression renders an expression back to Cypher-like source text,
// used as a RETURN item's column name when the query supplies no alias.
func RenderExpression(e Expression) string {
	switch v := e.(type) {
	case LiteralExpr:
		return renderLiteral(v.Value)
	case VariableExpr:
		return v.Name
	case PropertyAccessExpr:
		return v.Variable + "." + v.Property
	case FunctionCallExpr:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = RenderExpression(a)
		}
		return v.Name + "(" + strings.Join(args, ", ") + ")"
	case BinaryOpExpr:
		return RenderExpression(v.Left) + " " + renderBinaryOp(v.Op) + " " + RenderExpression(v.Right)
	case UnaryOpExpr:
		return renderUnaryOp(v.Op) + RenderExpression(v.Operand)
	case ParameterExpr:
		return "$" + v.Name
	case CaseExpr:
		return "case"
	case ListExpr:
		items := make([]string, len(v.Items))
		for i, it := range v.Items {
			items[i] = RenderExpression(it)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case MapExpr:
		return "map"
	default:
		return ""
	}
}

func renderLiteral(l Literal) string {
	switch l.Kind {
	case LitString:
		return l.Str
	case LitInteger:
		return strconv.FormatInt(l.Int, 10)
	case LitFloat:
		return strconv.FormatFloat(l.Flt, 'g', -1, 64)
	case LitBoolean:
		return strconv.FormatBool(l.Bool)
	default:
		return "null"
	}
}

func renderBinaryOp(op BinaryOperator) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulo:
		return "%"
	case OpPower:
		return "^"
	case OpEqual:
		return "="
	case OpNotEqual:
		return "<>"
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpConcat:
		return "+"
	case OpIn:
		return "in"
	case OpStartsWith:
		return "starts with"
	case OpEndsWith:
		return "ends with"
	case OpContains:
		return "contains"
	case OpRegexMatch:
		return "=~"
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}

func renderUnaryOp(op UnaryOperator) string {
	switch op {
	case OpNot:
		return "not "
	case OpNegate:
		return "-"
	case OpUnaryPlus:
		return "+"
	default:
		return ""
	}
}
