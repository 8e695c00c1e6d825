// Package scene implements structural edits on the document's node tree.
// Every operation is immutable: it returns a new DocumentModel sharing all
// untouched nodes with the input by pointer, so the history engine can hold
// old versions for free and the UI can diff versions by reference equality.
package scene

import (
	"errors"
	"fmt"

	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

var (
	// ErrNodeNotFound is returned by edits targeting a missing id. Callers
	// can rely on this to distinguish "an error occurred" from "nothing
	// happened"; edits never silently no-op.
	ErrNodeNotFound = errors.New("node not found")

	// ErrRootImmutable guards the reserved root frame against structural
	// edits.
	ErrRootImmutable = errors.New("root node cannot be edited")

	// ErrCycle is returned when a reparent would make a node its own
	// ancestor.
	ErrCycle = errors.New("reparent would create a cycle")
)

// CreateNode builds a fresh detached node of the given kind. The id is
// generated here and never changes for the node's lifetime.
func CreateNode(kind document.NodeKind, bounds geom.Rect, style document.Style) *document.SceneNode {
	return &document.SceneNode{
		ID:        typeid.NewNodeID(),
		Kind:      kind,
		Transform: geom.Identity(),
		Bounds:    bounds,
		Style:     style,
		Visible:   true,
		Opacity:   1,
	}
}

// AddChild attaches a detached node under parentID, at the given child index
// (clamped; negative appends). Fails with ErrNodeNotFound when the parent is
// missing.
func AddChild(d *document.DocumentModel, parentID string, child *document.SceneNode, index int) (*document.DocumentModel, error) {
	parent := d.Node(parentID)
	if parent == nil {
		return nil, fmt.Errorf("add child to %s: %w", parentID, ErrNodeNotFound)
	}
	if d.Node(child.ID) != nil {
		return nil, fmt.Errorf("add child: node %s already in tree", child.ID)
	}

	out := d.CloneShallow()

	newParent := parent.Clone()
	newParent.ChildIDs = insertID(newParent.ChildIDs, child.ID, index)
	out.Nodes[parentID] = newParent

	c := child.Clone()
	c.ParentID = parentID
	c.TransformVersion = newParent.TransformVersion + 1
	out.Nodes[c.ID] = c

	out.Touch()
	return out, nil
}

// RemoveNode removes a node and its entire subtree. There is no implicit
// re-parenting of descendants. Removed ids also leave the selection.
func RemoveNode(d *document.DocumentModel, id string) (*document.DocumentModel, error) {
	if id == d.RootID {
		return nil, ErrRootImmutable
	}
	n := d.Node(id)
	if n == nil {
		return nil, fmt.Errorf("remove %s: %w", id, ErrNodeNotFound)
	}

	out := d.CloneShallow()

	if parent := out.Node(n.ParentID); parent != nil {
		newParent := parent.Clone()
		newParent.ChildIDs = removeID(newParent.ChildIDs, id)
		out.Nodes[n.ParentID] = newParent
	}

	removed := map[string]bool{}
	for _, sid := range SubtreeIDs(d, id) {
		removed[sid] = true
		delete(out.Nodes, sid)
	}

	kept := out.Selection[:0]
	for _, sid := range out.Selection {
		if !removed[sid] {
			kept = append(kept, sid)
		}
	}
	out.Selection = kept

	out.Touch()
	return out, nil
}

// Patch describes a partial node update. Nil fields are left unchanged.
type Patch struct {
	Transform *geom.Mat3
	Bounds    *geom.Rect
	Style     *document.Style
	ZIndex    *int
	Visible   *bool
	Locked    *bool
	Opacity   *float64
}

// UpdateNode applies a patch to one node. A transform or bounds change bumps
// the node's TransformVersion; a transform change additionally re-versions
// the whole subtree, since every descendant's world placement moved with it.
func UpdateNode(d *document.DocumentModel, id string, p Patch) (*document.DocumentModel, error) {
	n := d.Node(id)
	if n == nil {
		return nil, fmt.Errorf("update %s: %w", id, ErrNodeNotFound)
	}

	out := d.CloneShallow()

	nn := n.Clone()
	if p.Transform != nil {
		nn.Transform = *p.Transform
	}
	if p.Bounds != nil {
		nn.Bounds = *p.Bounds
	}
	if p.Style != nil {
		nn.Style = *p.Style
	}
	if p.ZIndex != nil {
		nn.ZIndex = *p.ZIndex
	}
	if p.Visible != nil {
		nn.Visible = *p.Visible
	}
	if p.Locked != nil {
		nn.Locked = *p.Locked
	}
	if p.Opacity != nil {
		nn.Opacity = *p.Opacity
	}
	if p.Transform != nil || p.Bounds != nil {
		nn.TransformVersion++
	}
	out.Nodes[id] = nn

	if p.Transform != nil {
		bumpSubtree(out, nn)
	}

	out.Touch()
	return out, nil
}

// Reparent moves a node (with its subtree) under a new parent at the given
// child index. Moving a node into its own subtree fails with ErrCycle.
func Reparent(d *document.DocumentModel, id, newParentID string, index int) (*document.DocumentModel, error) {
	if id == d.RootID {
		return nil, ErrRootImmutable
	}
	n := d.Node(id)
	if n == nil {
		return nil, fmt.Errorf("reparent %s: %w", id, ErrNodeNotFound)
	}
	newParent := d.Node(newParentID)
	if newParent == nil {
		return nil, fmt.Errorf("reparent to %s: %w", newParentID, ErrNodeNotFound)
	}
	for _, sid := range SubtreeIDs(d, id) {
		if sid == newParentID {
			return nil, ErrCycle
		}
	}

	out := d.CloneShallow()

	if oldParent := out.Node(n.ParentID); oldParent != nil {
		op := oldParent.Clone()
		op.ChildIDs = removeID(op.ChildIDs, id)
		out.Nodes[n.ParentID] = op
		if n.ParentID == newParentID {
			newParent = op
		}
	}

	np := out.Node(newParentID).Clone()
	np.ChildIDs = insertID(np.ChildIDs, id, index)
	out.Nodes[newParentID] = np

	nn := n.Clone()
	nn.ParentID = newParentID
	nn.TransformVersion++
	out.Nodes[id] = nn
	bumpSubtree(out, nn)

	out.Touch()
	return out, nil
}

// SetSelection replaces the document's selection list.
func SetSelection(d *document.DocumentModel, ids []string) *document.DocumentModel {
	out := d.CloneShallow()
	out.Selection = append([]string{}, ids...)
	return out
}

// bumpSubtree re-versions and clones every descendant of n in out. The clone
// is required: ancestors of the untouched copies changed, so their cached
// world placement is stale and version comparison must say so.
func bumpSubtree(out *document.DocumentModel, n *document.SceneNode) {
	for _, childID := range n.ChildIDs {
		child := out.Node(childID)
		if child == nil {
			continue
		}
		cc := child.Clone()
		cc.TransformVersion = n.TransformVersion + 1
		out.Nodes[childID] = cc
		bumpSubtree(out, cc)
	}
}

func insertID(ids []string, id string, index int) []string {
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
