package tool

import (
	"fmt"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

// Router owns the active tool and dispatches classified input to it.
type Router struct {
	ctx     Context
	tools   map[string]Tool
	active  Tool
	gesture gestureState
}

// NewRouter registers the given tools; the first becomes active.
func NewRouter(ctx Context, tools ...Tool) *Router {
	r := &Router{ctx: ctx, tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	if len(tools) > 0 {
		r.active = tools[0]
		r.active.OnActivate(ctx)
	}
	return r
}

func (r *Router) ActiveTool() string {
	if r.active == nil {
		return ""
	}
	return r.active.Name()
}

// SetTool switches the active tool. The outgoing tool is cancelled first so
// a mid-drag switch never commits a partial command.
func (r *Router) SetTool(name string) error {
	next, ok := r.tools[name]
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}
	if next == r.active {
		return nil
	}
	if r.active != nil {
		r.active.OnCancel(r.ctx)
		r.active.OnDeactivate(r.ctx)
	}
	r.active = next
	r.active.OnActivate(r.ctx)
	return nil
}

func (r *Router) PointerDown(ev PointerEvent) {
	if r.gesture.pointerDown(r.ctx, r.active, ev) {
		return
	}
	if r.active != nil {
		r.active.OnPointerDown(r.ctx, ev)
	}
}

func (r *Router) PointerMove(ev PointerEvent) {
	if r.gesture.pointerMove(r.ctx, ev) {
		return
	}
	if r.active != nil {
		r.active.OnPointerMove(r.ctx, ev)
	}
}

func (r *Router) PointerUp(ev PointerEvent) {
	if r.gesture.pointerUp(ev) {
		return
	}
	if r.active != nil {
		r.active.OnPointerUp(r.ctx, ev)
	}
}

// PointerCancel handles capture loss or focus loss: gesture state is
// dropped and an in-progress single-pointer drag sees an implicit
// pointer-up so no tool is left stuck mid-drag.
func (r *Router) PointerCancel(ev PointerEvent) {
	if r.gesture.pointerUp(ev) {
		return
	}
	if r.active != nil {
		r.active.OnPointerUp(r.ctx, ev)
	}
}

// Cancel aborts whatever the active tool is doing (Escape).
func (r *Router) Cancel() {
	if r.active != nil {
		r.active.OnCancel(r.ctx)
	}
}

// Wheel zooms about the cursor, anchor-preserving.
func (r *Router) Wheel(ev WheelEvent) {
	r.ctx.Camera().ZoomBy(ev.Delta, geom.Vec2{X: ev.X, Y: ev.Y})
	r.ctx.Invalidate()
}
