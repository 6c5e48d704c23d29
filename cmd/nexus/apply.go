package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/nexus/pkg/graph"
	"github.com/cuemby/nexus/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a graph fixture manifest",
	Long: `Apply one or more Node/Relationship resources from a YAML file.

Examples:
  # Apply a single node
  nexus apply -f node.yaml

  # Apply a multi-document fixture (nodes then relationships)
  nexus apply -f fixture.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// Resource is one YAML document in a nexus fixture manifest: a Node or a
// Relationship, following the same apiVersion/kind/metadata/spec shape the
// rest of the ecosystem uses for declarative resources.
type Resource struct {
	APIVersion string         `yaml:"apiVersion"`
	Kind       string         `yaml:"kind"`
	Metadata   ResourceMeta   `yaml:"metadata"`
	Spec       map[string]any `yaml:"spec"`
}

type ResourceMeta struct {
	Name string `yaml:"name"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	g, err := openGraph(cmd)
	if err != nil {
		return fmt.Errorf("failed to open graph: %w", err)
	}
	defer g.Close()

	byName := map[string]types.NodeID{}
	dec := yaml.NewDecoder(f)
	for {
		var resource Resource
		if err := dec.Decode(&resource); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to parse manifest: %w", err)
		}

		switch resource.Kind {
		case "Node":
			if err := applyNode(g, &resource, byName); err != nil {
				return err
			}
		case "Relationship":
			if err := applyRelationship(g, &resource, byName); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported resource kind: %s", resource.Kind)
		}
	}
	return nil
}

func applyNode(g *graph.Graph, resource *Resource, byName map[string]types.NodeID) error {
	name := resource.Metadata.Name
	labels := toStringSlice(resource.Spec["labels"])
	props := propertyBag(toMap(resource.Spec["properties"]))

	id, err := g.CreateNode(labels)
	if err != nil {
		return fmt.Errorf("failed to create node %s: %w", name, err)
	}
	if len(props) > 0 {
		if err := g.UpdateNode(id, nil, props); err != nil {
			return fmt.Errorf("failed to set properties on node %s: %w", name, err)
		}
	}
	if name != "" {
		byName[name] = id
	}
	fmt.Printf("✓ node created: %s (id=%d)\n", name, id)
	return nil
}

func applyRelationship(g *graph.Graph, resource *Resource, byName map[string]types.NodeID) error {
	name := resource.Metadata.Name
	relType := getString(resource.Spec, "type", "")
	if relType == "" {
		return fmt.Errorf("relationship %s: spec.type is required", name)
	}

	src, err := resolveNodeRef(resource.Spec["from"], byName)
	if err != nil {
		return fmt.Errorf("relationship %s: %w", name, err)
	}
	dst, err := resolveNodeRef(resource.Spec["to"], byName)
	if err != nil {
		return fmt.Errorf("relationship %s: %w", name, err)
	}
	props := propertyBag(toMap(resource.Spec["properties"]))

	id, err := g.CreateRelationship(src, dst, relType)
	if err != nil {
		return fmt.Errorf("failed to create relationship %s: %w", name, err)
	}
	if len(props) > 0 {
		if err := g.UpdateRelationship(id, props); err != nil {
			return fmt.Errorf("failed to set properties on relationship %s: %w", name, err)
		}
	}
	fmt.Printf("✓ relationship created: %s (id=%d)\n", name, id)
	return nil
}

// resolveNodeRef accepts either a manifest-local node name (resolved
// against nodes already applied earlier in the same file) or a literal
// numeric node id.
func resolveNodeRef(v any, byName map[string]types.NodeID) (types.NodeID, error) {
	s := fmt.Sprintf("%v", v)
	if id, ok := byName[s]; ok {
		return id, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unresolved node reference %q", s)
	}
	return types.NodeID(n), nil
}

func toStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}

func toMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
