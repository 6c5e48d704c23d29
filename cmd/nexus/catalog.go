package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the schema catalog",
}

var catalogLabelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List known labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		labels, err := g.Labels()
		if err != nil {
			return err
		}
		for _, l := range labels {
			fmt.Printf("%d\t%s\n", l.ID, l.Name)
		}
		return nil
	},
}

var catalogRelTypesCmd = &cobra.Command{
	Use:   "rel-types",
	Short: "List known relationship types",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		types, err := g.RelTypes()
		if err != nil {
			return err
		}
		for _, t := range types {
			fmt.Printf("%d\t%s\n", t.ID, t.Name)
		}
		return nil
	},
}

var catalogKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List known property keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		keys, err := g.PropertyKeys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Printf("%d\t%s\n", k.ID, k.Name)
		}
		return nil
	},
}

var catalogCreateLabelCmd = &cobra.Command{
	Use:   "create-label NAME",
	Short: "Register a label (idempotent)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()
		return g.CreateLabel(args[0])
	},
}

var catalogCreateRelTypeCmd = &cobra.Command{
	Use:   "create-rel-type NAME",
	Short: "Register a relationship type (idempotent)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()
		return g.CreateRelType(args[0])
	},
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		stats := g.Statistics()
		fmt.Printf("total nodes: %d\ntotal relationships: %d\n", stats.TotalNodes, stats.TotalRels)
		for label, count := range stats.PerLabelCount {
			fmt.Printf("  label %s: %d\n", label, count)
		}
		for relType, count := range stats.PerTypeCount {
			fmt.Printf("  type %s: %d\n", relType, count)
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogLabelsCmd, catalogRelTypesCmd, catalogKeysCmd,
		catalogCreateLabelCmd, catalogCreateRelTypeCmd, catalogStatsCmd)
}
