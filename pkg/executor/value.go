package executor

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/nexus/pkg/types"
)

func nullValue() types.Value { return types.Value{Kind: types.ValueNull} }

func boolValue(b bool) types.Value { return types.Value{Kind: types.ValueBool, Bool: b} }

func numberValue(n float64) types.Value {
	return types.Value{Kind: types.ValueNumber, IsFloat: true, Num: n}
}

func intValue(n int64) types.Value { return types.Value{Kind: types.ValueNumber, Int: n} }

func stringValue(s string) types.Value { return types.Value{Kind: types.ValueString, Str: s} }

func nodeRefValue(id types.NodeID, rec types.NodeRecord) types.Value {
	r := rec
	r.ID = id
	return types.Value{Kind: types.ValueNodeRef, Node: &r}
}

func relRefValue(id types.RelID, rec types.RelRecord) types.Value {
	r := rec
	r.ID = id
	return types.Value{Kind: types.ValueRelRef, Rel: &r}
}

// fromAny converts a decoded property value (nil/bool/float64/int64/string/
// []any/map[string]any, as produced by the property store's JSON codec)
// into a runtime Value.
func fromAny(v any) types.Value {
	switch val := v.(type) {
	case nil:
		return nullValue()
	case bool:
		return boolValue(val)
	case float64:
		return numberValue(val)
	case int64:
		return intValue(val)
	case string:
		return stringValue(val)
	case []any:
		items := make([]types.Value, len(val))
		for i, it := range val {
			items[i] = fromAny(it)
		}
		return types.Value{Kind: types.ValueList, List: items}
	case map[string]any:
		m := make(map[string]types.Value, len(val))
		for k, it := range val {
			m[k] = fromAny(it)
		}
		return types.Value{Kind: types.ValueMap, Map: m}
	default:
		return nullValue()
	}
}

func isTruthy(v types.Value) (b bool, isNull bool) {
	if v.Kind == types.ValueNull {
		return false, true
	}
	if v.Kind != types.ValueBool {
		return false, true // non-boolean is neither true nor false; treated as NULL by WHERE
	}
	return v.Bool, false
}

func isNumber(v types.Value) bool { return v.Kind == types.ValueNumber }

// compareValues orders two values for ORDER BY and the relational
// operators. ok is false when the values are not order-comparable
// (different kinds other than a NULL on either side).
func compareValues(a, b types.Value) (cmp int, ok bool) {
	if a.Kind == types.ValueNull || b.Kind == types.ValueNull {
		return 0, false
	}
	if a.Kind != b.Kind {
		return 0, false
	}
	switch a.Kind {
	case types.ValueNumber:
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	case types.ValueString:
		return strings.Compare(a.Str, b.Str), true
	case types.ValueBool:
		if a.Bool == b.Bool {
			return 0, true
		}
		if !a.Bool && b.Bool {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

func valuesEqual(a, b types.Value) (bool, isNullResult bool) {
	if a.Kind == types.ValueNull || b.Kind == types.ValueNull {
		return false, true
	}
	if a.Kind != b.Kind {
		return false, false
	}
	switch a.Kind {
	case types.ValueNumber:
		if !a.IsFloat && !b.IsFloat {
			return a.Int == b.Int, false
		}
		return a.AsFloat() == b.AsFloat(), false
	case types.ValueString:
		return a.Str == b.Str, false
	case types.ValueBool:
		return a.Bool == b.Bool, false
	case types.ValueNodeRef:
		return a.Node != nil && b.Node != nil && a.Node.ID == b.Node.ID, false
	case types.ValueRelRef:
		return a.Rel != nil && b.Rel != nil && a.Rel.ID == b.Rel.ID, false
	case types.ValueList:
		if len(a.List) != len(b.List) {
			return false, false
		}
		for i := range a.List {
			eq, null := valuesEqual(a.List[i], b.List[i])
			if null {
				return false, true
			}
			if !eq {
				return false, false
			}
		}
		return true, false
	default:
		return false, false
	}
}

// canonicalKey renders a value into a string suitable for DISTINCT
// deduplication and GROUP-free aggregation keys.
func canonicalKey(v types.Value) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v types.Value) {
	switch v.Kind {
	case types.ValueNull:
		sb.WriteString("\x00null")
	case types.ValueBool:
		if v.Bool {
			sb.WriteString("\x00true")
		} else {
			sb.WriteString("\x00false")
		}
	case types.ValueNumber:
		// Keyed by the promoted float view so 1 and 1.0 land in the same
		// DISTINCT/aggregation bucket, matching valuesEqual's cross-type
		// equality for numbers.
		sb.WriteString("\x00n:")
		sb.WriteString(formatFloat(v.AsFloat()))
	case types.ValueString:
		sb.WriteString("\x00s:")
		sb.WriteString(v.Str)
	case types.ValueNodeRef:
		sb.WriteString("\x00node:")
		if v.Node != nil {
			sb.WriteString(formatFloat(float64(v.Node.ID)))
		}
	case types.ValueRelRef:
		sb.WriteString("\x00rel:")
		if v.Rel != nil {
			sb.WriteString(formatFloat(float64(v.Rel.ID)))
		}
	case types.ValueList:
		sb.WriteString("\x00[")
		for _, it := range v.List {
			writeCanonical(sb, it)
		}
		sb.WriteString("]")
	case types.ValueMap:
		sb.WriteString("\x00{")
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(k)
			sb.WriteString(":")
			writeCanonical(sb, v.Map[k])
		}
		sb.WriteString("}")
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
