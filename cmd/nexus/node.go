package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cuemby/nexus/pkg/types"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage nodes",
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, _ := cmd.Flags().GetStringSlice("label")
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

		id, err := g.CreateNode(labels)
		if err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}
		if len(props) > 0 {
			if err := g.UpdateNode(id, nil, props); err != nil {
				return fmt.Errorf("failed to set properties: %w", err)
			}
		}

		fmt.Printf("created node %d\n", id)
		return nil
	},
}

var nodeGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		node, err := g.GetNode(id)
		if err != nil {
			return fmt.Errorf("failed to get node: %w", err)
		}
		if node == nil {
			fmt.Println("node not found")
			return nil
		}

		fmt.Printf("id: %d\nlabels: %v\nproperties: %v\n", node.ID, node.Labels, node.Properties)
		return nil
	},
}

var nodeUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Add labels or set properties on a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		labels, _ := cmd.Flags().GetStringSlice("label")
		propFlags, _ := cmd.Flags().GetStringSlice("prop")
		props, err := parseProps(propFlags)
		if err != nil {
			return err
		}
		var bag types.PropertyBag
		if len(props) > 0 {
			bag = props
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		if err := g.UpdateNode(id, labels, bag); err != nil {
			return fmt.Errorf("failed to update node: %w", err)
		}
		fmt.Printf("updated node %d\n", id)
		return nil
	},
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}

		g, err := openGraph(cmd)
		if err != nil {
			return fmt.Errorf("failed to open graph: %w", err)
		}
		defer g.Close()

		existed, err := g.DeleteNode(id)
		if err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}
		if !existed {
			fmt.Println("node not found")
			return nil
		}
		fmt.Printf("deleted node %d\n", id)
		return nil
	},
}

func init() {
	nodeCreateCmd.Flags().StringSlice("label", nil, "Label to apply (repeatable)")
	nodeCreateCmd.Flags().StringSlice("prop", nil, "Property as key=value (repeatable)")
	nodeUpdateCmd.Flags().StringSlice("label", nil, "Label to add (repeatable)")
	nodeUpdateCmd.Flags().StringSlice("prop", nil, "Property as key=value, replaces the whole bag (repeatable)")

	nodeCmd.AddCommand(nodeCreateCmd, nodeGetCmd, nodeUpdateCmd, nodeDeleteCmd)
}

func parseNodeID(s string) (types.NodeID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return types.NodeID(n), nil
}

// parseProps turns a "key=value" flag slice into a property bag, coercing
// each value to a number or bool where possible and falling back to string.
func parseProps(flags []string) (types.PropertyBag, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	bag := make(types.PropertyBag, len(flags))
	for _, kv := range flags {
		key, value, ok := splitKV(kv)
		if !ok {
			return nil, fmt.Errorf("invalid --prop %q, expected key=value", kv)
		}
		bag[key] = coerce(value)
	}
	return bag, nil
}

func splitKV(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func coerce(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
