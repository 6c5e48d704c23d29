package graph

import (
	"github.com/cuemby/nexus/pkg/nexuserr"
	"github.com/cuemby/nexus/pkg/types"
)

// NodeView is the direct-CRUD read shape for a node: its label names and
// decoded property bag.
type NodeView struct {
	ID         types.NodeID
	Labels     []string
	Properties types.PropertyBag
}

// RelView is the direct-CRUD read shape for a relationship.
type RelView struct {
	ID         types.RelID
	Type       string
	Src        types.NodeID
	Dst        types.NodeID
	Properties types.PropertyBag
}

// CreateNode creates a node carrying labels (which are created in the
// catalog if new) under its own auto-commit write transaction.
func (g *Graph) CreateNode(labels []string) (types.NodeID, error) {
	tx := g.coord.Begin(false)
	id, err := tx.CreateNode(labels...)
	if err != nil {
		_ = tx.Abort()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetNode returns id's labels and properties, or (nil, nil) if id does not
// exist or has been deleted.
func (g *Graph) GetNode(id types.NodeID) (*NodeView, error) {
	tx := g.coord.Begin(true)
	defer tx.Abort()

	rec, err := tx.GetNode(id)
	if err != nil {
		if nexuserr.Is(err, nexuserr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !rec.InUse {
		return nil, nil
	}

	var props types.PropertyBag
	if rec.PropPtr != types.NoProps {
		props, err = tx.NodeProperties(rec.PropPtr)
		if err != nil {
			return nil, err
		}
	}

	return &NodeView{ID: id, Labels: g.labelNames(rec.LabelBits), Properties: props}, nil
}

// UpdateNode adds each name in labels (idempotent, matching the
// transaction's additive AddLabel primitive — there is no label-removal
// operation) and, if properties is non-nil, replaces the node's property
// bag wholesale.
func (g *Graph) UpdateNode(id types.NodeID, labels []string, properties types.PropertyBag) error {
	tx := g.coord.Begin(false)
	for _, name := range labels {
		if err := tx.AddLabel(id, name); err != nil {
			_ = tx.Abort()
			return err
		}
	}
	if properties != nil {
		if err := tx.SetNodeProperties(id, properties); err != nil {
			_ = tx.Abort()
			return err
		}
	}
	return tx.Commit()
}

// DeleteNode tombstones id, reporting whether it existed and was in use.
func (g *Graph) DeleteNode(id types.NodeID) (bool, error) {
	tx := g.coord.Begin(false)
	err := tx.DeleteNode(id)
	if err != nil {
		_ = tx.Abort()
		if nexuserr.Is(err, nexuserr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, tx.Commit()
}

// CreateRelationship links src to dst under relType (created in the
// catalog if new).
func (g *Graph) CreateRelationship(src, dst types.NodeID, relType string) (types.RelID, error) {
	tx := g.coord.Begin(false)
	id, err := tx.CreateRelationship(src, dst, relType)
	if err != nil {
		_ = tx.Abort()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetRelationship returns id's type, endpoints, and properties, or
// (nil, nil) if id does not exist or has been deleted.
func (g *Graph) GetRelationship(id types.RelID) (*RelView, error) {
	tx := g.coord.Begin(true)
	defer tx.Abort()

	rec, err := tx.GetRelationship(id)
	if err != nil {
		if nexuserr.Is(err, nexuserr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !rec.InUse {
		return nil, nil
	}

	var props types.PropertyBag
	if rec.PropPtr != types.NoProps {
		props, err = tx.NodeProperties(rec.PropPtr)
		if err != nil {
			return nil, err
		}
	}

	typeName, _ := g.cat.TypeName(rec.TypeID)
	return &RelView{ID: id, Type: typeName, Src: rec.SrcNode, Dst: rec.DstNode, Properties: props}, nil
}

// UpdateRelationship replaces id's property bag wholesale.
func (g *Graph) UpdateRelationship(id types.RelID, properties types.PropertyBag) error {
	tx := g.coord.Begin(false)
	if err := tx.SetRelProperties(id, properties); err != nil {
		_ = tx.Abort()
		return err
	}
	return tx.Commit()
}

// DeleteRelationship removes id, reporting whether it existed and was in
// use.
func (g *Graph) DeleteRelationship(id types.RelID) (bool, error) {
	tx := g.coord.Begin(false)
	err := tx.DeleteRelationship(id)
	if err != nil {
		_ = tx.Abort()
		if nexuserr.Is(err, nexuserr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, tx.Commit()
}

// labelNames decodes a label-bits mask into its catalog names, skipping
// any bit whose label has somehow gone missing from the catalog.
func (g *Graph) labelNames(bits uint64) []string {
	var names []string
	for lid := uint32(0); lid < types.MaxLabels; lid++ {
		if bits&(1<<lid) == 0 {
			continue
		}
		if name, ok := g.cat.LabelName(types.LabelID(lid)); ok {
			names = append(names, name)
		}
	}
	return names
}
