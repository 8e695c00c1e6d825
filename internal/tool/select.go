package tool

import (
	"time"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/history"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
)

type selectState int

const (
	selectIdle selectState = iota
	selectDragging
	selectMarquee
)

// SelectTool is the default tool: click to select, drag to translate the
// selection with snapping, drag on empty canvas for marquee selection.
type SelectTool struct {
	state selectState

	// translate-drag
	dragIDs    []string
	startWorld geom.Vec2
	origBounds geom.Rect
	applied    geom.Vec2
	startDepth int

	// marquee
	marqueeStart geom.Vec2
	extend       bool
	baseSel      []string
}

func NewSelectTool() *SelectTool { return &SelectTool{} }

func (s *SelectTool) Name() string         { return "select" }
func (s *SelectTool) OnActivate(Context)   {}
func (s *SelectTool) OnDeactivate(Context) {}

// OnCancel discards in-progress work. A translate drag unwinds every history
// entry it pushed — a pause past the merge window splits the drag into more
// than one — so cancelling never leaves a partial move as an undo step.
func (s *SelectTool) OnCancel(ctx Context) {
	if s.state == selectDragging {
		for ctx.HistoryDepth() > s.startDepth {
			if !ctx.Undo() {
				break
			}
		}
	}
	if s.state != selectIdle {
		ctx.SetGuides(nil)
		ctx.Invalidate()
	}
	s.reset()
}

func (s *SelectTool) reset() {
	s.state = selectIdle
	s.dragIDs = nil
	s.applied = geom.Vec2{}
	s.baseSel = nil
}

func (s *SelectTool) OnPointerDown(ctx Context, ev PointerEvent) {
	world := ctx.Camera().ScreenToWorld(ev.Screen())
	doc := ctx.Document()

	id, hit := ctx.HitTest(world)
	if !hit {
		s.state = selectMarquee
		s.marqueeStart = world
		s.extend = ev.Shift
		s.baseSel = append([]string(nil), doc.Selection...)
		return
	}

	if !contains(doc.Selection, id) {
		next := []string{id}
		if ev.Shift {
			next = append(append([]string(nil), doc.Selection...), id)
		}
		if err := ctx.Dispatch(history.NewSetSelection(doc, next)); err != nil {
			return
		}
		doc = ctx.Document()
	}

	s.state = selectDragging
	s.dragIDs = append([]string(nil), doc.Selection...)
	s.startWorld = world
	s.applied = geom.Vec2{}
	s.startDepth = ctx.HistoryDepth()
	s.origBounds = selectionBounds(ctx, s.dragIDs)
}

func (s *SelectTool) OnPointerMove(ctx Context, ev PointerEvent) {
	world := ctx.Camera().ScreenToWorld(ev.Screen())

	switch s.state {
	case selectDragging:
		s.moveDrag(ctx, world)
	case selectMarquee:
		// Marquee has no document effect until release; just repaint the
		// rubber band.
		ctx.Invalidate()
	}
}

func (s *SelectTool) moveDrag(ctx Context, world geom.Vec2) {
	cam := ctx.Camera()
	raw := world.Sub(s.startWorld)
	desired := s.origBounds.Translate(raw.X, raw.Y)

	exclude := make(map[string]bool, len(s.dragIDs))
	for _, id := range s.dragIDs {
		exclude[id] = true
	}
	res := ctx.Snapper().SnapRect(desired, cam.VisibleWorldBounds(), cam.Zoom(), exclude, ctx.SnapOptions())

	snapped := geom.Vec2{X: res.Rect.X - s.origBounds.X, Y: res.Rect.Y - s.origBounds.Y}
	step := snapped.Sub(s.applied)
	if step.X != 0 || step.Y != 0 {
		cmd := history.NewTranslateNodes(s.dragIDs, step.X, step.Y, time.Now())
		if err := ctx.Dispatch(cmd); err != nil {
			return
		}
		s.applied = snapped
	}

	guides := res.Guides
	guides = append(guides, ctx.Snapper().AlignmentGuides(res.Rect, cam.VisibleWorldBounds(), cam.Zoom(), exclude, ctx.SnapOptions())...)
	ctx.SetGuides(guides)
	ctx.Invalidate()
}

func (s *SelectTool) OnPointerUp(ctx Context, ev PointerEvent) {
	world := ctx.Camera().ScreenToWorld(ev.Screen())

	switch s.state {
	case selectMarquee:
		rect := geom.RectFromPoints(s.marqueeStart, world)
		ids := ctx.NodesInRect(rect)
		if s.extend {
			ids = union(s.baseSel, ids)
		}
		ctx.Dispatch(history.NewSetSelection(ctx.Document(), ids))
		ctx.Invalidate()
	case selectDragging:
		ctx.SetGuides(nil)
		ctx.Invalidate()
	}
	s.reset()
}

// selectionBounds unions the world bounds of the dragged nodes.
func selectionBounds(ctx Context, ids []string) geom.Rect {
	var out geom.Rect
	first := true
	for _, id := range ids {
		b, ok := scene.WorldBounds(ctx.Document(), id)
		if !ok {
			continue
		}
		if first {
			out, first = b, false
		} else {
			out = out.Union(b)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, id := range b {
		if !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
