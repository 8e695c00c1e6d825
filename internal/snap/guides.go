package snap

import (
	"math"
	"sort"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

// round3 quantizes a guide position so float noise from transform math
// doesn't split one aligned position into several buckets.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// AlignmentGuides compares the moving rect's {left, center, right} (and the
// y equivalents) against the same features of every visible node and groups
// the matches by position: one guide per distinct aligned position, listing
// every node that contributed to it.
func (e *Engine) AlignmentGuides(moving, view geom.Rect, zoom float64, exclude map[string]bool, o Options) []Guide {
	th := o.alignThresholdWorld(zoom)

	type bucket struct {
		axis    Axis
		kind    string
		pos     float64
		lo, hi  float64 // cross-axis extent for rendering
		nodeIDs []string
	}
	type key struct {
		axis Axis
		pos  float64
	}
	buckets := make(map[key]*bucket)

	add := func(axis Axis, f feature, cand geom.Rect, id string) {
		k := key{axis, round3(f.pos)}
		b := buckets[k]
		if b == nil {
			var lo, hi float64
			if axis == AxisX {
				lo, hi = moving.MinY(), moving.MaxY()
			} else {
				lo, hi = moving.MinX(), moving.MaxX()
			}
			b = &bucket{axis: axis, kind: f.kind, pos: k.pos, lo: lo, hi: hi}
			buckets[k] = b
		}
		if axis == AxisX {
			b.lo = min(b.lo, cand.MinY())
			b.hi = max(b.hi, cand.MaxY())
		} else {
			b.lo = min(b.lo, cand.MinX())
			b.hi = max(b.hi, cand.MaxX())
		}
		for _, seen := range b.nodeIDs {
			if seen == id {
				return
			}
		}
		b.nodeIDs = append(b.nodeIDs, id)
	}

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
				if math.Abs(mf.pos-cf.pos) <= th {
					add(AxisX, cf, cand, id)
				}
			}
		}
		for _, mf := range yFeatures(moving) {
			for _, cf := range yFeatures(cand) {
				if math.Abs(mf.pos-cf.pos) <= th {
					add(AxisY, cf, cand, id)
				}
			}
		}
	}

	guides := make([]Guide, 0, len(buckets))
	for _, b := range buckets {
		g := Guide{Axis: b.axis, Kind: b.kind, Position: b.pos, NodeIDs: b.nodeIDs}
		if b.axis == AxisX {
			g.From = geom.Vec2{X: b.pos, Y: b.lo}
			g.To = geom.Vec2{X: b.pos, Y: b.hi}
		} else {
			g.From = geom.Vec2{X: b.lo, Y: b.pos}
			g.To = geom.Vec2{X: b.hi, Y: b.pos}
		}
		guides = append(guides, g)
	}
	sort.Slice(guides, func(i, j int) bool {
		if guides[i].Axis != guides[j].Axis {
			return guides[i].Axis < guides[j].Axis
		}
		return guides[i].Position < guides[j].Position
	})
	return guides
}

// SpacingGuide reports an equal-spacing opportunity: the gap the moving node
// would create with its nearest neighbor matches an existing gap between two
// stationary nodes. Segments are the matched gap spans, one per pair.
type SpacingGuide struct {
	Axis     Axis
	Gap      float64
	Segments [][2]geom.Vec2
}

// SpacingGuides looks for stationary-node gaps on each axis equal to the gap
// the moving rect currently forms with its nearest neighbor on that axis.
// Only nodes overlapping the moving rect's cross-axis interval count as
// neighbors, matching how designers read rows and columns.
func (e *Engine) SpacingGuides(moving, view geom.Rect, zoom float64, exclude map[string]bool, o Options) []SpacingGuide {
	th := o.alignThresholdWorld(zoom)

	var rects []geom.Rect
	for _, h := range e.ix.CullVisible(view, zoom) {
		id, ok := e.reg.IDOf(h)
		if !ok || exclude[id] {
			continue
		}
		minX, minY, maxX, maxY, ok := e.ix.Bounds(h)
		if !ok {
			continue
		}
		rects = append(rects, geom.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY})
	}

	var out []SpacingGuide
	if g := spacingOnAxis(moving, rects, AxisX, th); g != nil {
		out = append(out, *g)
	}
	if g := spacingOnAxis(moving, rects, AxisY, th); g != nil {
		out = append(out, *g)
	}
	return out
}

func spacingOnAxis(moving geom.Rect, rects []geom.Rect, axis Axis, th float64) *SpacingGuide {
	lo := func(r geom.Rect) float64 {
		if axis == AxisX {
			return r.MinX()
		}
		return r.MinY()
	}
	hi := func(r geom.Rect) float64 {
		if axis == AxisX {
			return r.MaxX()
		}
		return r.MaxY()
	}
	crossOverlaps := func(a, b geom.Rect) bool {
		if axis == AxisX {
			return a.MinY() <= b.MaxY() && b.MinY() <= a.MaxY()
		}
		return a.MinX() <= b.MaxX() && b.MinX() <= a.MaxX()
	}

	// Nearest stationary neighbor of the moving rect on either side.
	movingGap := math.Inf(1)
	var gapFrom, gapTo float64
	for _, r := range rects {
		if !crossOverlaps(moving, r) {
			continue
		}
		if hi(r) <= lo(moving) {
			if g := lo(moving) - hi(r); g < movingGap {
				movingGap, gapFrom, gapTo = g, hi(r), lo(moving)
			}
		} else if lo(r) >= hi(moving) {
			if g := lo(r) - hi(moving); g < movingGap {
				movingGap, gapFrom, gapTo = g, hi(moving), lo(r)
			}
		}
	}
	if math.IsInf(movingGap, 1) {
		return nil
	}

	guide := &SpacingGuide{Axis: axis, Gap: movingGap}
	guide.Segments = append(guide.Segments, segmentOnAxis(axis, gapFrom, gapTo, moving))

	matched := false
	for i := range rects {
		for j := range rects {
			if i == j || !crossOverlaps(rects[i], rects[j]) {
				continue
			}
			if g := lo(rects[j]) - hi(rects[i]); g >= 0 && math.Abs(g-movingGap) <= th {
				matched = true
				guide.Segments = append(guide.Segments, segmentOnAxis(axis, hi(rects[i]), lo(rects[j]), rects[i]))
			}
		}
	}
	if !matched {
		return nil
	}
	return guide
}

func segmentOnAxis(axis Axis, from, to float64, at geom.Rect) [2]geom.Vec2 {
	if axis == AxisX {
		y := at.Center().Y
		return [2]geom.Vec2{{X: from, Y: y}, {X: to, Y: y}}
	}
	x := at.Center().X
	return [2]geom.Vec2{{X: x, Y: from}, {X: x, Y: to}}
}
