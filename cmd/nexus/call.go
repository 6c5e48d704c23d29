package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/types"
)

var callCmd = &cobra.Command{
	Use:   "call PROCEDURE",
	Short: "Invoke a registered procedure",
	Long:  `Call a built-in or custom procedure, e.g. gds.shortestPath.dijkstra.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		argFlags, _ := cmd.Flags().GetStringSlice("arg")
		procArgs, err := parseArgs(argFlags)
		if err != nil {
			return err
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		rows, err := g.Call(args[0], procArgs)
		if err != nil {
			return fmt.Errorf("call failed: %w", err)
		}
		for _, row := range rows {
			for key, val := range row.Values {
				fmt.Printf("%s=%s ", key, formatValue(val))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	callCmd.Flags().StringSlice("arg", nil, "Procedure argument as key=value (repeatable)")
}

// parseArgs turns "key=value" flags into the typed value map a procedure
// call expects, coercing each value the same way --prop does.
func parseArgs(flags []string) (map[string]types.Value, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string]types.Value, len(flags))
	for _, kv := range flags {
		key, value, ok := splitKV(kv)
		if !ok {
			return nil, fmt.Errorf("invalid --arg %q, expected key=value", kv)
		}
		out[key] = toValue(coerce(value))
	}
	return out, nil
}

func toValue(v any) types.Value {
	switch val := v.(type) {
	case int64:
		return types.Value{Kind: types.ValueNumber, Int: val}
	case float64:
		return types.Value{Kind: types.ValueNumber, IsFloat: true, Num: val}
	case bool:
		return types.Value{Kind: types.ValueBool, Bool: val}
	case string:
		return types.Value{Kind: types.ValueString, Str: val}
	default:
		return types.Value{Kind: types.ValueNull}
	}
}
