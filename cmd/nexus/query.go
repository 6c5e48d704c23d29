package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/graph"
)

var queryCmd = &cobra.Command{
	Use:   "query QUERY_TEXT",
	Short: "Run a Cypher query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		write, _ := cmd.Flags().GetBool("write")
		mode := graph.ModeRead
		if write {
			mode = graph.ModeWrite
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		result, err := g.Execute(args[0], nil, mode)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		printTable(result.Columns, result.Rows)
		fmt.Printf("(%d rows, %s)\n", result.Stats.RowsReturned, result.Stats.Duration)
		return nil
	},
}

func init() {
	queryCmd.Flags().Bool("write", false, "Run under an auto-commit write transaction instead of read-only")
}
