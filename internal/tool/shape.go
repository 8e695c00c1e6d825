package tool

import (
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/history"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
)

// ShapeTool draws a rectangle, ellipse or frame: press to anchor one corner,
// drag, release to commit. The node is created on release as a single
// AddNode command followed by selecting it.
type ShapeTool struct {
	kind    document.NodeKind
	drawing bool
	start   geom.Vec2
	current geom.Vec2
}

func NewShapeTool(kind document.NodeKind) *ShapeTool {
	return &ShapeTool{kind: kind}
}

func (s *ShapeTool) Name() string         { return string(s.kind) }
func (s *ShapeTool) OnActivate(Context)   {}
func (s *ShapeTool) OnDeactivate(Context) {}
func (s *ShapeTool) OnCancel(ctx Context) {
	if s.drawing {
		s.drawing = false
		ctx.Invalidate()
	}
}

func (s *ShapeTool) OnPointerDown(ctx Context, ev PointerEvent) {
	world := ctx.Camera().ScreenToWorld(ev.Screen())
	s.start = ctx.Snapper().SnapPoint(world, ctx.Camera().Zoom(), nil, ctx.SnapOptions())
	s.current = s.start
	s.drawing = true
}

func (s *ShapeTool) OnPointerMove(ctx Context, ev PointerEvent) {
	if !s.drawing {
		return
	}
	world := ctx.Camera().ScreenToWorld(ev.Screen())
	s.current = ctx.Snapper().SnapPoint(world, ctx.Camera().Zoom(), nil, ctx.SnapOptions())
	ctx.Invalidate()
}

// Preview returns the world rect being drawn, for rubber-band rendering.
func (s *ShapeTool) Preview() (geom.Rect, bool) {
	if !s.drawing {
		return geom.Rect{}, false
	}
	return geom.RectFromPoints(s.start, s.current), true
}

func (s *ShapeTool) OnPointerUp(ctx Context, ev PointerEvent) {
	if !s.drawing {
		return
	}
	s.drawing = false

	world := ctx.Camera().ScreenToWorld(ev.Screen())
	end := ctx.Snapper().SnapPoint(world, ctx.Camera().Zoom(), nil, ctx.SnapOptions())
	rect := geom.RectFromPoints(s.start, end)
	if rect.IsEmpty() {
		// A click without a drag draws nothing.
		ctx.Invalidate()
		return
	}

	doc := ctx.Document()
	parentID := ctx.DropTarget(s.start)

	// The node's transform is relative to its parent; map the world-space
	// corner into the parent's local space.
	local := geom.Vec2{X: rect.X, Y: rect.Y}
	if pt, ok := scene.WorldTransform(doc, parentID); ok {
		if inv, ok := pt.Invert(); ok {
			local = inv.Apply(local)
		}
	}

	node := scene.CreateNode(s.kind, geom.Rect{W: rect.W, H: rect.H}, document.DefaultStyle(s.kind))
	node.Transform = geom.Translation(local.X, local.Y)

	if err := ctx.Dispatch(history.NewAddNode(parentID, node, -1)); err != nil {
		return
	}
	ctx.Dispatch(history.NewSetSelection(ctx.Document(), []string{node.ID}))
	ctx.Invalidate()
}
