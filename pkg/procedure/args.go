package procedure

import (
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

func argNodeID(args map[string]types.Value, name string) (types.NodeID, bool, error) {
	v, ok := args[name]
	if !ok || v.Kind == types.ValueNull {
		return 0, false, nil
	}
	if v.Kind != types.ValueNumber {
		return 0, false, nexuserr.New(nexuserr.KindTypeError, "parameter %q must be a node id", name)
	}
	return types.NodeID(v.AsFloat()), true, nil
}

func argFloat(args map[string]types.Value, name string, fallback float64) (float64, error) {
	v, ok := args[name]
	if !ok || v.Kind == types.ValueNull {
		return fallback, nil
	}
	if v.Kind != types.ValueNumber {
		return 0, nexuserr.New(nexuserr.KindTypeError, "parameter %q must be a number", name)
	}
	return v.AsFloat(), nil
}

func argInt(args map[string]types.Value, name string, fallback int) (int, error) {
	f, err := argFloat(args, name, float64(fallback))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func argString(args map[string]types.Value, name, fallback string) (string, error) {
	v, ok := args[name]
	if !ok || v.Kind == types.ValueNull {
		return fallback, nil
	}
	if v.Kind != types.ValueString {
		return "", nexuserr.New(nexuserr.KindTypeError, "parameter %q must be a string", name)
	}
	return v.Str, nil
}

func numberValue(n float64) types.Value {
	return types.Value{Kind: types.ValueNumber, IsFloat: true, Num: n}
}
func nodeIDValue(id types.NodeID) types.Value { return numberValue(float64(id)) }
func boolValue(b bool) types.Value            { return types.Value{Kind: types.ValueBool, Bool: b} }
func stringValue(s string) types.Value        { return types.Value{Kind: types.ValueString, Str: s} }
func nullValue() types.Value                  { return types.Value{Kind: types.ValueNull} }
