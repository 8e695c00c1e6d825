// Package snap computes grid/object snapping and the transient smart guides
// (alignment, spacing, distance) shown during drag operations. All queries go
// through the spatial index; the package itself is deterministic and holds no
// drag state.
package snap

import (
	"math"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/spatial"
)

const (
	DefaultGridSize = 8.0

	// Snap and alignment thresholds are screen-space constants: divided by
	// zoom before comparing world distances, so tolerance feels the same at
	// every zoom level.
	DefaultSnapThreshold  = 10.0
	DefaultAlignThreshold = 2.0
)

// Options selects which snap sources are active and their tolerances.
type Options struct {
	GridSize       float64
	GridEnabled    bool
	ObjectEnabled  bool
	SnapThreshold  float64
	AlignThreshold float64
}

func DefaultOptions() Options {
	return Options{
		GridSize:       DefaultGridSize,
		GridEnabled:    true,
		ObjectEnabled:  true,
		SnapThreshold:  DefaultSnapThreshold,
		AlignThreshold: DefaultAlignThreshold,
	}
}

func (o Options) snapThresholdWorld(zoom float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return o.SnapThreshold / zoom
}

func (o Options) alignThresholdWorld(zoom float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return o.AlignThreshold / zoom
}

// Axis tags which coordinate a guide or snap acted on.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Guide is a vertical (AxisX) or horizontal (AxisY) line to render while a
// drag is in progress. Kind is "edge", "center" or "grid"; NodeIDs lists
// every node whose feature sits on the line.
type Guide struct {
	Axis     Axis
	Kind     string
	Position float64
	From     geom.Vec2
	To       geom.Vec2
	NodeIDs  []string
}

// Result is a snapped rectangle plus the guides that justify the snap.
type Result struct {
	Rect     geom.Rect
	SnappedX bool
	SnappedY bool
	Guides   []Guide
}

// Engine answers snap queries against the live spatial index.
type Engine struct {
	ix  *spatial.Index
	reg *spatial.Registry
}

func NewEngine(ix *spatial.Index, reg *spatial.Registry) *Engine {
	return &Engine{ix: ix, reg: reg}
}

// SnapToGrid rounds each axis of p to the nearest grid multiple, snapping an
// axis only when the unsnapped distance is inside the threshold.
func SnapToGrid(p geom.Vec2, zoom float64, o Options) (out geom.Vec2, snappedX, snappedY bool) {
	out = p
	if !o.GridEnabled || o.GridSize <= 0 {
		return out, false, false
	}
	th := o.snapThresholdWorld(zoom)
	if gx := math.Round(p.X/o.GridSize) * o.GridSize; math.Abs(gx-p.X) <= th {
		out.X, snappedX = gx, true
	}
	if gy := math.Round(p.Y/o.GridSize) * o.GridSize; math.Abs(gy-p.Y) <= th {
		out.Y, snappedY = gy, true
	}
	return out, snappedX, snappedY
}

// feature is one snappable coordinate of a rect on one axis.
type feature struct {
	pos  float64
	kind string // "edge" or "center"
}

func xFeatures(r geom.Rect) [3]feature {
	return [3]feature{
		{r.MinX(), "edge"},
		{r.Center().X, "center"},
		{r.MaxX(), "edge"},
	}
}

func yFeatures(r geom.Rect) [3]feature {
	return [3]feature{
		{r.MinY(), "edge"},
		{r.Center().Y, "center"},
		{r.MaxY(), "edge"},
	}
}

// SnapPoint snaps a free point (drawing tools, line endpoints) against
// nearby object edges/centers, then the grid on any axis still unsnapped.
// Each axis snaps independently.
func (e *Engine) SnapPoint(p geom.Vec2, zoom float64, exclude map[string]bool, o Options) geom.Vec2 {
	out := p
	snappedX, snappedY := false, false

	if o.ObjectEnabled {
		th := o.snapThresholdWorld(zoom)
		bestX, bestY := th, th
		for _, h := range e.ix.QueryNear(p.X, p.Y, th*2) {
			id, ok := e.reg.IDOf(h)
			if !ok || exclude[id] {
				continue
			}
			minX, minY, maxX, maxY, ok := e.ix.Bounds(h)
			if !ok {
				continue
			}
			cand := geom.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
			for _, f := range xFeatures(cand) {
				if d := math.Abs(p.X - f.pos); d <= bestX {
					bestX, out.X, snappedX = d, f.pos, true
				}
			}
			for _, f := range yFeatures(cand) {
				if d := math.Abs(p.Y - f.pos); d <= bestY {
					bestY, out.Y, snappedY = d, f.pos, true
				}
			}
		}
	}

	grid, gx, gy := SnapToGrid(p, zoom, o)
	if !snappedX && gx {
		out.X = grid.X
	}
	if !snappedY && gy {
		out.Y = grid.Y
	}
	return out
}

// SnapRect snaps a dragged rectangle against the edges and centers of every
// visible node, per axis independently, then falls back to the grid for any
// axis that found no object match. The excluded set is the dragged selection
// itself. Object snaps come back with the guide lines that justify them.
func (e *Engine) SnapRect(moving, view geom.Rect, zoom float64, exclude map[string]bool, o Options) Result {
	res := Result{Rect: moving}

	if o.ObjectEnabled {
		th := o.snapThresholdWorld(zoom)

		type best struct {
			dist  float64
			delta float64
			guide Guide
			found bool
		}
		bx := best{dist: th}
		by := best{dist: th}

		for _, h := range e.ix.CullVisible(view, zoom) {
			id, ok := e.reg.IDOf(h)
			if !ok || exclude[id] {
				continue
			}
			minX, minY, maxX, maxY, ok := e.ix.Bounds(h)
			if !ok {
				continue
			}
			cand := geom.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}

			for _, mf := range xFeatures(moving) {
				for _, cf := range xFeatures(cand) {
					d := mf.pos - cf.pos
					if dist := math.Abs(d); dist <= bx.dist {
						bx = best{dist: dist, delta: d, found: true, guide: verticalGuide(cf, moving, cand, id)}
					}
				}
			}
			for _, mf := range yFeatures(moving) {
				for _, cf := range yFeatures(cand) {
					d := mf.pos - cf.pos
					if dist := math.Abs(d); dist <= by.dist {
						by = best{dist: dist, delta: d, found: true, guide: horizontalGuide(cf, moving, cand, id)}
					}
				}
			}
		}

		if bx.found {
			res.Rect.X -= bx.delta
			res.SnappedX = true
			res.Guides = append(res.Guides, bx.guide)
		}
		if by.found {
			res.Rect.Y -= by.delta
			res.SnappedY = true
			res.Guides = append(res.Guides, by.guide)
		}
	}

	grid, gx, gy := SnapToGrid(geom.Vec2{X: res.Rect.X, Y: res.Rect.Y}, zoom, o)
	if !res.SnappedX && gx {
		res.Rect.X = grid.X
		res.SnappedX = true
	}
	if !res.SnappedY && gy {
		res.Rect.Y = grid.Y
		res.SnappedY = true
	}
	return res
}

func verticalGuide(f feature, a, b geom.Rect, id string) Guide {
	minY := min(a.MinY(), b.MinY())
	maxY := max(a.MaxY(), b.MaxY())
	return Guide{
		Axis:     AxisX,
		Kind:     f.kind,
		Position: f.pos,
		From:     geom.Vec2{X: f.pos, Y: minY},
		To:       geom.Vec2{X: f.pos, Y: maxY},
		NodeIDs:  []string{id},
	}
}

func horizontalGuide(f feature, a, b geom.Rect, id string) Guide {
	minX := min(a.MinX(), b.MinX())
	maxX := max(a.MaxX(), b.MaxX())
	return Guide{
		Axis:     AxisY,
		Kind:     f.kind,
		Position: f.pos,
		From:     geom.Vec2{X: minX, Y: f.pos},
		To:       geom.Vec2{X: maxX, Y: f.pos},
		NodeIDs:  []string{id},
	}
}
