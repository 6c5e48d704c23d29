package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/graph"
	"github.com/cuemby/nexus/pkg/types"
)

// openGraph opens the engine at the --data-dir flag's path. Every
// subcommand opens its own handle and closes it on return; nexus has no
// long-running daemon mode.
func openGraph(cmd *cobra.Command) (*graph.Graph, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	return graph.Open(graph.Config{DataDir: dataDir})
}

// formatValue renders a types.Value the way a human reading a terminal
// table expects: null for ValueNull, bare literals for scalars, and a
// compact bracketed form for lists and maps.
func formatValue(v types.Value) string {
	switch v.Kind {
	case types.ValueNull:
		return "null"
	case types.ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	case types.ValueNumber:
		if !v.IsFloat {
			return strconv.FormatInt(v.Int, 10)
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v.Num), "0"), ".")
	case types.ValueString:
		return v.Str
	case types.ValueList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case types.ValueMap:
		parts := make([]string, 0, len(v.Map))
		for k, item := range v.Map {
			parts = append(parts, fmt.Sprintf("%s: %s", k, formatValue(item)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case types.ValueNodeRef:
		if v.Node != nil {
			return fmt.Sprintf("(node %d)", v.Node.ID)
		}
		return "(node)"
	case types.ValueRelRef:
		if v.Rel != nil {
			return fmt.Sprintf("[rel %d]", v.Rel.ID)
		}
		return "[rel]"
	default:
		return ""
	}
}

// printTable writes columns and rows as a simple tab-separated table.
func printTable(columns []string, rows [][]types.Value) {
	fmt.Println(strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}

func getString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return fallback
}

func propertyBag(m map[string]any) types.PropertyBag {
	if m == nil {
		return nil
	}
	return types.PropertyBag(m)
}
