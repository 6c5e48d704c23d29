package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/types"
)

var relCmd = &cobra.Command{
	Use:   "rel",
	Short: "Manage relationships",
}

var relCreateCmd = &cobra.Command{
	Use:   "create SRC DST TYPE",
	Short: "Create a relationship",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		dst, err := parseNodeID(args[1])
		if err != nil {
			return err
		}
		propFlags, _ := cmd.Flags().GetStringSlice("prop")
		props, err := parseProps(propFlags)
		if err != nil {
			return err
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		id, err := g.CreateRelationship(src, dst, args[2])
		if err != nil {
			return fmt.Errorf("failed to create relationship: %w", err)
		}
		if len(props) > 0 {
			if err := g.UpdateRelationship(id, props); err != nil {
				return fmt.Errorf("failed to set properties: %w", err)
			}
		}

		fmt.Printf("created relationship %d\n", id)
		return nil
	},
}

var relGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a relationship",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRelID(args[0])
		if err != nil {
			return err
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		rel, err := g.GetRelationship(id)
		if err != nil {
			return fmt.Errorf("failed to get relationship: %w", err)
		}
		if rel == nil {
			fmt.Println("relationship not found")
			return nil
		}

		fmt.Printf("id: %d\ntype: %s\nsrc: %d\ndst: %d\nproperties: %v\n", rel.ID, rel.Type, rel.Src, rel.Dst, rel.Properties)
		return nil
	},
}

var relUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace a relationship's properties",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRelID(args[0])
		if err != nil {
			return err
		}
		propFlags, _ := cmd.Flags().GetStringSlice("prop")
		props, err := parseProps(propFlags)
		if err != nil {
			return err
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		if err := g.UpdateRelationship(id, props); err != nil {
			return fmt.Errorf("failed to update relationship: %w", err)
		}
		fmt.Printf("updated relationship %d\n", id)
		return nil
	},
}

var relDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a relationship",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRelID(args[0])
		if err != nil {
			return err
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		existed, err := g.DeleteRelationship(id)
		if err != nil {
			return fmt.Errorf("failed to delete relationship: %w", err)
		}
		if !existed {
			fmt.Println("relationship not found")
			return nil
		}
		fmt.Printf("deleted relationship %d\n", id)
		return nil
	},
}

func init() {
	relCreateCmd.Flags().StringSlice("prop", nil, "Property as key=value (repeatable)")
	relUpdateCmd.Flags().StringSlice("prop", nil, "Property as key=value (repeatable)")

	relCmd.AddCommand(relCreateCmd, relGetCmd, relUpdateCmd, relDeleteCmd)
}

func parseRelID(s string) (types.RelID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid relationship id %q: %w", s, err)
	}
	return types.RelID(n), nil
}
