package scene

import (
	"sort"

	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

// FindNode returns the node with the given id, or nil.
func FindNode(d *document.DocumentModel, id string) *document.SceneNode {
	return d.Node(id)
}

// CollectAll returns every node in pre-order, siblings in child-list order.
// The reserved root frame is not included in listings.
func CollectAll(d *document.DocumentModel) []*document.SceneNode {
	var out []*document.SceneNode
	Walk(d, func(n *document.SceneNode, depth int) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Walk visits nodes pre-order starting below the root. Returning false from
// fn skips the node's subtree.
func Walk(d *document.DocumentModel, fn func(n *document.SceneNode, depth int) bool) {
	root := d.Node(d.RootID)
	if root == nil {
		return
	}
	var visit func(n *document.SceneNode, depth int)
	visit = func(n *document.SceneNode, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, childID := range n.ChildIDs {
			if child := d.Node(childID); child != nil {
				visit(child, depth+1)
			}
		}
	}
	for _, childID := range root.ChildIDs {
		if child := d.Node(childID); child != nil {
			visit(child, 0)
		}
	}
}

// SubtreeIDs returns the ids of a node and all its descendants, pre-order.
func SubtreeIDs(d *document.DocumentModel, id string) []string {
	n := d.Node(id)
	if n == nil {
		return nil
	}
	out := []string{id}
	for _, childID := range n.ChildIDs {
		out = append(out, SubtreeIDs(d, childID)...)
	}
	return out
}

// WorldTransform composes the transform chain from the root down to id.
func WorldTransform(d *document.DocumentModel, id string) (geom.Mat3, bool) {
	n := d.Node(id)
	if n == nil {
		return geom.Mat3{}, false
	}
	m := n.Transform
	for n.ParentID != "" {
		n = d.Node(n.ParentID)
		if n == nil {
			return geom.Mat3{}, false
		}
		m = n.Transform.Mul(m)
	}
	return m, true
}

// WorldBounds returns the node's local bounds mapped through the composed
// ancestor transform chain. Conservative AABB, as everywhere else.
func WorldBounds(d *document.DocumentModel, id string) (geom.Rect, bool) {
	n := d.Node(id)
	if n == nil {
		return geom.Rect{}, false
	}
	m, ok := WorldTransform(d, id)
	if !ok {
		return geom.Rect{}, false
	}
	return m.TransformRect(n.Bounds), true
}

// NodesAtPoint is the naive O(n) full-tree point test, topmost hit first.
// It is the fallback for small scenes and for verifying the spatial index;
// production hit-testing goes through the index. Hidden subtrees and locked
// nodes are excluded, matching the index query semantics.
func NodesAtPoint(d *document.DocumentModel, p geom.Vec2) []*document.SceneNode {
	type hit struct {
		n     *document.SceneNode
		order int
	}
	var hits []hit
	order := 0

	var visit func(id string, parentWorld geom.Mat3)
	visit = func(id string, parentWorld geom.Mat3) {
		n := d.Node(id)
		if n == nil || !n.Visible {
			return
		}
		world := parentWorld.Mul(n.Transform)
		if !n.Locked && world.TransformRect(n.Bounds).Contains(p) {
			hits = append(hits, hit{n: n, order: order})
		}
		order++
		for _, childID := range n.ChildIDs {
			visit(childID, world)
		}
	}

	root := d.Node(d.RootID)
	if root == nil {
		return nil
	}
	for _, childID := range root.ChildIDs {
		visit(childID, root.Transform)
	}

	// Topmost first: higher z-index wins, later paint order breaks ties.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].n.ZIndex != hits[j].n.ZIndex {
			return hits[i].n.ZIndex > hits[j].n.ZIndex
		}
		return hits[i].order > hits[j].order
	})

	out := make([]*document.SceneNode, len(hits))
	for i, h := range hits {
		out[i] = h.n
	}
	return out
}
