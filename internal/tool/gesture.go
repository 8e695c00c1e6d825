package tool

import (
	"sort"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

// PinchSensitivity converts the relative change in inter-finger distance to
// a wheel-equivalent zoom delta: delta = (ratio - 1) * PinchSensitivity.
const PinchSensitivity = 500.0

// gestureState tracks active touch pointers and owns pinch-zoom/two-finger
// pan. While two or more touches are down, every event is consumed here and
// never reaches the active tool.
type gestureState struct {
	touches map[int64]geom.Vec2

	pinching bool
	lastDist float64
	lastMid  geom.Vec2

	// After a pinch ends with fingers still down, the leftover touches
	// are swallowed until all lift, so a tool never sees the tail of a
	// gesture as a fresh drag.
	suppress bool
}

// pinchPair returns the two lowest-id touches, giving the gesture a stable
// reference pair while extra fingers come and go.
func (g *gestureState) pinchPair() (a, b geom.Vec2, ok bool) {
	if len(g.touches) < 2 {
		return geom.Vec2{}, geom.Vec2{}, false
	}
	ids := make([]int64, 0, len(g.touches))
	for id := range g.touches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return g.touches[ids[0]], g.touches[ids[1]], true
}

// pointerDown returns true when the event was consumed by the gesture
// layer. Reaching a second touch cancels the active tool's in-progress work
// before pinch handling takes over.
func (g *gestureState) pointerDown(ctx Context, active Tool, ev PointerEvent) bool {
	if ev.Kind != PointerTouch {
		return false
	}
	if g.touches == nil {
		g.touches = make(map[int64]geom.Vec2)
	}
	g.touches[ev.ID] = ev.Screen()

	if len(g.touches) >= 2 {
		if !g.pinching {
			if active != nil {
				active.OnCancel(ctx)
			}
			a, b, _ := g.pinchPair()
			g.pinching = true
			g.lastDist = a.Dist(b)
			g.lastMid = a.Mid(b)
		}
		return true
	}
	return g.suppress
}

func (g *gestureState) pointerMove(ctx Context, ev PointerEvent) bool {
	if ev.Kind != PointerTouch {
		return false
	}
	if _, tracked := g.touches[ev.ID]; !tracked {
		return g.suppress
	}
	g.touches[ev.ID] = ev.Screen()

	if !g.pinching {
		return g.suppress
	}

	a, b, ok := g.pinchPair()
	if !ok {
		return true
	}
	dist := a.Dist(b)
	mid := a.Mid(b)

	cam := ctx.Camera()
	if g.lastDist > 0 && dist > 0 {
		delta := (dist/g.lastDist - 1) * PinchSensitivity
		cam.ZoomBy(delta, mid)
	}
	cam.PanByScreen(mid.X-g.lastMid.X, mid.Y-g.lastMid.Y)

	g.lastDist = dist
	g.lastMid = mid
	ctx.Invalidate()
	return true
}

// pointerUp drops the touch and resets pinch tracking immediately, so the
// next gesture never zooms around a stale anchor.
func (g *gestureState) pointerUp(ev PointerEvent) bool {
	if ev.Kind != PointerTouch {
		return false
	}
	delete(g.touches, ev.ID)

	if g.pinching {
		g.pinching = false
		g.lastDist = 0
		g.lastMid = geom.Vec2{}
		g.suppress = len(g.touches) > 0
		return true
	}
	if len(g.touches) == 0 {
		wasSuppressed := g.suppress
		g.suppress = false
		return wasSuppressed
	}
	return g.suppress
}
