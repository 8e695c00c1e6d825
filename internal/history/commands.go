package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

// MergeWindow is how long after a command's timestamp a follow-up of the
// same kind may still coalesce into it. Merging slides the window forward,
// so an unbroken stream of edits coalesces regardless of total duration.
const MergeWindow = 500 * time.Millisecond

// ---- AddNode ----

// AddNode inserts a detached node under a parent. Used by the drawing tools.
type AddNode struct {
	CmdID    string
	ParentID string
	Node     *document.SceneNode
	Index    int
}

func NewAddNode(parentID string, node *document.SceneNode, index int) *AddNode {
	return &AddNode{CmdID: typeid.NewCommandID(), ParentID: parentID, Node: node, Index: index}
}

func (c *AddNode) ID() string   { return c.CmdID }
func (c *AddNode) Name() string { return "add-node" }

func (c *AddNode) Apply(doc *document.DocumentModel) (*document.DocumentModel, error) {
	return scene.AddChild(doc, c.ParentID, c.Node, c.Index)
}

func (c *AddNode) Revert(doc *document.DocumentModel) (*document.DocumentModel, error) {
	return scene.RemoveNode(doc, c.Node.ID)
}

func (c *AddNode) Merge(Command) (Command, bool) { return nil, false }

// ---- RemoveNodes ----

type removedSubtree struct {
	parentID string
	index    int
	nodes    []*document.SceneNode // pre-order, first is the subtree root
}

// RemoveNodes deletes a set of nodes with their subtrees. The removed
// subtrees and their positions are captured on first apply so the revert
// restores them exactly, ids and child order included.
type RemoveNodes struct {
	CmdID string
	IDs   []string

	removed []removedSubtree
}

func NewRemoveNodes(ids []string) *RemoveNodes {
	return &RemoveNodes{CmdID: typeid.NewCommandID(), IDs: append([]string(nil), ids...)}
}

func (c *RemoveNodes) ID() string   { return c.CmdID }
func (c *RemoveNodes) Name() string { return "remove-nodes" }

func (c *RemoveNodes) Apply(doc *document.DocumentModel) (*document.DocumentModel, error) {
	// Drop ids nested inside other removed subtrees: removing the
	// ancestor already takes them.
	roots := topLevelOnly(doc, c.IDs)
	if len(roots) == 0 {
		return nil, fmt.Errorf("remove: %w", scene.ErrNodeNotFound)
	}

	c.removed = c.removed[:0]
	out := doc
	for _, id := range roots {
		n := out.Node(id)
		if n == nil {
			return nil, fmt.Errorf("remove %s: %w", id, scene.ErrNodeNotFound)
		}
		sub := removedSubtree{parentID: n.ParentID, index: childIndex(out, n.ParentID, id)}
		for _, sid := range scene.SubtreeIDs(out, id) {
			sub.nodes = append(sub.nodes, out.Node(sid))
		}
		next, err := scene.RemoveNode(out, id)
		if err != nil {
			return nil, err
		}
		c.removed = append(c.removed, sub)
		out = next
	}
	return out, nil
}

func (c *RemoveNodes) Revert(doc *document.DocumentModel) (*document.DocumentModel, error) {
	out := doc.CloneShallow()
	// Restore in reverse so sibling indices line up again.
	for i := len(c.removed) - 1; i >= 0; i-- {
		sub := c.removed[i]
		parent := out.Node(sub.parentID)
		if parent == nil {
			return nil, fmt.Errorf("restore under %s: %w", sub.parentID, scene.ErrNodeNotFound)
		}
		for _, n := range sub.nodes {
			out.Nodes[n.ID] = n
		}
		np := parent.Clone()
		np.ChildIDs = insertAt(np.ChildIDs, sub.nodes[0].ID, sub.index)
		out.Nodes[sub.parentID] = np
	}
	out.Touch()
	return out, nil
}

func (c *RemoveNodes) Merge(Command) (Command, bool) { return nil, false }

// ---- TranslateNodes ----

// TranslateNodes moves a node set by a parent-space delta. Drag-generated
// translates of the same node set merge while inside the merge window, so a
// continuous drag is one undo step instead of one per mouse-move.
type TranslateNodes struct {
	CmdID string
	IDs   []string
	Dx    float64
	Dy    float64
	At    time.Time

	// Transforms as of the first apply; revert restores these exactly
	// rather than replaying an inverse translation through float error.
	before map[string]geom.Mat3
}

func NewTranslateNodes(ids []string, dx, dy float64, at time.Time) *TranslateNodes {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return &TranslateNodes{CmdID: typeid.NewCommandID(), IDs: sorted, Dx: dx, Dy: dy, At: at}
}

func (c *TranslateNodes) ID() string   { return c.CmdID }
func (c *TranslateNodes) Name() string { return "translate-nodes" }

func (c *TranslateNodes) Apply(doc *document.DocumentModel) (*document.DocumentModel, error) {
	if c.before == nil {
		c.before = make(map[string]geom.Mat3, len(c.IDs))
		for _, id := range c.IDs {
			n := doc.Node(id)
			if n == nil {
				return nil, fmt.Errorf("translate %s: %w", id, scene.ErrNodeNotFound)
			}
			c.before[id] = n.Transform
		}
	}
	out := doc
	for _, id := range c.IDs {
		base, ok := c.before[id]
		if !ok || out.Node(id) == nil {
			return nil, fmt.Errorf("translate %s: %w", id, scene.ErrNodeNotFound)
		}
		tr := geom.Translation(c.Dx, c.Dy).Mul(base)
		next, err := scene.UpdateNode(out, id, scene.Patch{Transform: &tr})
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func (c *TranslateNodes) Revert(doc *document.DocumentModel) (*document.DocumentModel, error) {
	out := doc
	for _, id := range c.IDs {
		base, ok := c.before[id]
		if !ok {
			return nil, fmt.Errorf("revert translate %s: %w", id, scene.ErrNodeNotFound)
		}
		tr := base
		next, err := scene.UpdateNode(out, id, scene.Patch{Transform: &tr})
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func (c *TranslateNodes) Merge(next Command) (Command, bool) {
	t, ok := next.(*TranslateNodes)
	if !ok {
		return nil, false
	}
	if t.At.Sub(c.At) > MergeWindow || !sameIDs(c.IDs, t.IDs) {
		return nil, false
	}
	// The window slides: At advances to the absorbed command's timestamp,
	// so a continuous drag of any length stays one undo step.
	merged := &TranslateNodes{
		CmdID:  c.CmdID,
		IDs:    c.IDs,
		Dx:     c.Dx + t.Dx,
		Dy:     c.Dy + t.Dy,
		At:     t.At,
		before: c.before,
	}
	return merged, true
}

// ---- UpdateStyle ----

// UpdateStyle replaces one node's style (and optionally opacity). Property
// scrubs on the same node merge within the window.
type UpdateStyle struct {
	CmdID  string
	NodeID string
	Before document.Style
	After  document.Style
	At     time.Time
}

// NewUpdateStyle captures the node's current style as the revert state.
func NewUpdateStyle(doc *document.DocumentModel, nodeID string, after document.Style, at time.Time) (*UpdateStyle, error) {
	n := doc.Node(nodeID)
	if n == nil {
		return nil, fmt.Errorf("style %s: %w", nodeID, scene.ErrNodeNotFound)
	}
	return &UpdateStyle{
		CmdID:  typeid.NewCommandID(),
		NodeID: nodeID,
		Before: n.Style,
		After:  after,
		At:     at,
	}, nil
}

func (c *UpdateStyle) ID() string   { return c.CmdID }
func (c *UpdateStyle) Name() string { return "update-style" }

func (c *UpdateStyle) Apply(doc *document.DocumentModel) (*document.DocumentModel, error) {
	st := c.After
	return scene.UpdateNode(doc, c.NodeID, scene.Patch{Style: &st})
}

func (c *UpdateStyle) Revert(doc *document.DocumentModel) (*document.DocumentModel, error) {
	st := c.Before
	return scene.UpdateNode(doc, c.NodeID, scene.Patch{Style: &st})
}

func (c *UpdateStyle) Merge(next Command) (Command, bool) {
	u, ok := next.(*UpdateStyle)
	if !ok || u.NodeID != c.NodeID || u.At.Sub(c.At) > MergeWindow {
		return nil, false
	}
	merged := *c
	merged.After = u.After
	merged.At = u.At
	return &merged, true
}

// ---- SetSelection ----

// SetSelection records a selection change. Selection changes never merge:
// each one is a discrete undo step.
type SetSelection struct {
	CmdID  string
	Before []string
	After  []string
}

func NewSetSelection(doc *document.DocumentModel, after []string) *SetSelection {
	return &SetSelection{
		CmdID:  typeid.NewCommandID(),
		Before: append([]string(nil), doc.Selection...),
		After:  append([]string(nil), after...),
	}
}

func (c *SetSelection) ID() string   { return c.CmdID }
func (c *SetSelection) Name() string { return "set-selection" }

func (c *SetSelection) Apply(doc *document.DocumentModel) (*document.DocumentModel, error) {
	return scene.SetSelection(doc, c.After), nil
}

func (c *SetSelection) Revert(doc *document.DocumentModel) (*document.DocumentModel, error) {
	return scene.SetSelection(doc, c.Before), nil
}

func (c *SetSelection) Merge(Command) (Command, bool) { return nil, false }

// ---- SetZIndex ----

// SetZIndex changes a node's paint/hit order among its siblings.
type SetZIndex struct {
	CmdID  string
	NodeID string
	Before int
	After  int
}

func NewSetZIndex(doc *document.DocumentModel, nodeID string, after int) (*SetZIndex, error) {
	n := doc.Node(nodeID)
	if n == nil {
		return nil, fmt.Errorf("z-index %s: %w", nodeID, scene.ErrNodeNotFound)
	}
	return &SetZIndex{CmdID: typeid.NewCommandID(), NodeID: nodeID, Before: n.ZIndex, After: after}, nil
}

func (c *SetZIndex) ID() string   { return c.CmdID }
func (c *SetZIndex) Name() string { return "set-z-index" }

func (c *SetZIndex) Apply(doc *document.DocumentModel) (*document.DocumentModel, error) {
	z := c.After
	return scene.UpdateNode(doc, c.NodeID, scene.Patch{ZIndex: &z})
}

func (c *SetZIndex) Revert(doc *document.DocumentModel) (*document.DocumentModel, error) {
	z := c.Before
	return scene.UpdateNode(doc, c.NodeID, scene.Patch{ZIndex: &z})
}

func (c *SetZIndex) Merge(Command) (Command, bool) { return nil, false }

// ---- helpers ----

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// topLevelOnly filters out ids that sit inside another listed id's subtree.
func topLevelOnly(doc *document.DocumentModel, ids []string) []string {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	var out []string
	for _, id := range ids {
		n := doc.Node(id)
		if n == nil {
			continue
		}
		nested := false
		for p := n.ParentID; p != ""; {
			if set[p] {
				nested = true
				break
			}
			pn := doc.Node(p)
			if pn == nil {
				break
			}
			p = pn.ParentID
		}
		if !nested {
			out = append(out, id)
		}
	}
	return out
}

func childIndex(doc *document.DocumentModel, parentID, id string) int {
	p := doc.Node(parentID)
	if p == nil {
		return -1
	}
	for i, cid := range p.ChildIDs {
		if cid == id {
			return i
		}
	}
	return -1
}

func insertAt(ids []string, id string, index int) []string {
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}
