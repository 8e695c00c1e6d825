package tool

import "github.com/latticeapp/lattice/backend-go/internal/geom"

// PanTool drags the camera. It never touches the document or history.
type PanTool struct {
	panning bool
	last    geom.Vec2
}

func NewPanTool() *PanTool { return &PanTool{} }

func (p *PanTool) Name() string         { return "pan" }
func (p *PanTool) OnActivate(Context)   {}
func (p *PanTool) OnDeactivate(Context) {}
func (p *PanTool) OnCancel(Context)     { p.panning = false }

func (p *PanTool) OnPointerDown(ctx Context, ev PointerEvent) {
	p.panning = true
	p.last = ev.Screen()
}

func (p *PanTool) OnPointerMove(ctx Context, ev PointerEvent) {
	if !p.panning {
		return
	}
	cur := ev.Screen()
	ctx.Camera().PanByScreen(cur.X-p.last.X, cur.Y-p.last.Y)
	p.last = cur
	ctx.Invalidate()
}

func (p *PanTool) OnPointerUp(ctx Context, ev PointerEvent) {
	p.panning = false
}
