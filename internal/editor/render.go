package editor

import (
	"github.com/latticeapp/lattice/backend-go/internal/camera"
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
	"github.com/latticeapp/lattice/backend-go/internal/snap"
)

// RenderNode is one visible node, resolved to world space so the client
// draws without walking the tree.
type RenderNode struct {
	ID        string            `json:"id"`
	Kind      document.NodeKind `json:"kind"`
	Transform []float64         `json:"transform"` // world, row-major 3x3
	Bounds    geom.Rect         `json:"bounds"`    // local, untransformed
	Style     document.Style    `json:"style"`
	Opacity   float64           `json:"opacity"`
	Locked    bool              `json:"locked"`
}

// RenderPacket is everything a frontend needs to draw one frame: the culled
// node list in paint order, the camera transform, the selection and any
// active smart guides.
type RenderPacket struct {
	Camera    camera.State `json:"camera"`
	Transform []float64    `json:"transform"` // world→screen, row-major 3x3
	Nodes     []RenderNode `json:"nodes"`
	Selection []string     `json:"selection"`
	Guides    []snap.Guide `json:"guides,omitempty"`
}

// Render builds the packet for the current document and camera and clears
// the pending-invalidation flag, so coalesced invalidations start a new
// cycle afterwards.
func (e *Editor) Render() RenderPacket {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := e.hist.Document()
	view := e.cam.VisibleWorldBounds()

	handles := e.ix.CullVisible(view, e.cam.Zoom())
	nodes := make([]RenderNode, 0, len(handles))
	for _, h := range handles {
		id, ok := e.reg.IDOf(h)
		if !ok {
			continue
		}
		n := doc.Node(id)
		if n == nil {
			continue
		}
		wt, ok := scene.WorldTransform(doc, id)
		if !ok {
			continue
		}
		nodes = append(nodes, RenderNode{
			ID:        id,
			Kind:      n.Kind,
			Transform: wt.ToSlice(),
			Bounds:    n.Bounds,
			Style:     n.Style,
			Opacity:   n.Opacity,
			Locked:    n.Locked,
		})
	}

	e.pending = false
	return RenderPacket{
		Camera:    e.cam.State(),
		Transform: e.cam.Transform().ToSlice(),
		Nodes:     nodes,
		Selection: append([]string(nil), doc.Selection...),
		Guides:    append([]snap.Guide(nil), e.guides...),
	}
}

// Guides returns the smart guides active for the in-progress drag.
func (e *Editor) Guides() []snap.Guide {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]snap.Guide(nil), e.guides...)
}

// NeedsRender reports whether an invalidation is pending.
func (e *Editor) NeedsRender() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}
