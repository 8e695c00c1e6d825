package snap

import (
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
)

// Side identifies which side of the measured node a distance refers to.
type Side int

const (
	SideLeft Side = iota
	SideRight
	SideTop
	SideBottom
)

// Measurement is a pixel distance from the measured node to the nearest
// non-overlapping sibling on one side, or to the parent container's inner
// edge when that side has no sibling. From/To are the endpoints of the
// measurement line in world space.
type Measurement struct {
	Side     Side
	Distance float64
	From     geom.Vec2
	To       geom.Vec2
	NodeID   string
}

// Measurements computes the four-side distance readouts for a single node.
// Candidates are the node's tree siblings; ancestors never participate as
// measured-against nodes, only as the container fallback.
func Measurements(doc *document.DocumentModel, nodeID string) []Measurement {
	n := doc.Node(nodeID)
	if n == nil || n.ParentID == "" {
		return nil
	}
	bounds, ok := scene.WorldBounds(doc, nodeID)
	if !ok {
		return nil
	}
	parent := doc.Node(n.ParentID)
	if parent == nil {
		return nil
	}

	var siblings []measureTarget
	for _, sid := range parent.ChildIDs {
		if sid == nodeID {
			continue
		}
		s := doc.Node(sid)
		if s == nil || !s.Visible {
			continue
		}
		sb, ok := scene.WorldBounds(doc, sid)
		if !ok || sb.Intersects(bounds) {
			continue
		}
		siblings = append(siblings, measureTarget{id: sid, bounds: sb})
	}

	var parentBounds geom.Rect
	hasParentBounds := false
	if n.ParentID != doc.RootID {
		parentBounds, hasParentBounds = scene.WorldBounds(doc, n.ParentID)
	}

	var out []Measurement
	for _, side := range []Side{SideLeft, SideRight, SideTop, SideBottom} {
		if m, ok := measureSide(bounds, side, siblings); ok {
			out = append(out, m)
		} else if hasParentBounds {
			if m, ok := measureContainer(bounds, side, parentBounds, n.ParentID); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

type measureTarget struct {
	id     string
	bounds geom.Rect
}

func measureSide(bounds geom.Rect, side Side, siblings []measureTarget) (Measurement, bool) {
	best := Measurement{Side: side}
	found := false
	for _, s := range siblings {
		d, from, to, onSide := sideGap(bounds, s.bounds, side)
		if !onSide {
			continue
		}
		if !found || d < best.Distance {
			best = Measurement{Side: side, Distance: d, From: from, To: to, NodeID: s.id}
			found = true
		}
	}
	return best, found
}

// sideGap reports the gap between the node and a candidate strictly on the
// given side, requiring cross-axis interval overlap so the measurement line
// lands between the two rects.
func sideGap(n, s geom.Rect, side Side) (d float64, from, to geom.Vec2, ok bool) {
	switch side {
	case SideLeft, SideRight:
		if s.MinY() > n.MaxY() || s.MaxY() < n.MinY() {
			return 0, geom.Vec2{}, geom.Vec2{}, false
		}
		y := (max(n.MinY(), s.MinY()) + min(n.MaxY(), s.MaxY())) / 2
		if side == SideLeft && s.MaxX() <= n.MinX() {
			return n.MinX() - s.MaxX(), geom.Vec2{X: s.MaxX(), Y: y}, geom.Vec2{X: n.MinX(), Y: y}, true
		}
		if side == SideRight && s.MinX() >= n.MaxX() {
			return s.MinX() - n.MaxX(), geom.Vec2{X: n.MaxX(), Y: y}, geom.Vec2{X: s.MinX(), Y: y}, true
		}
	case SideTop, SideBottom:
		if s.MinX() > n.MaxX() || s.MaxX() < n.MinX() {
			return 0, geom.Vec2{}, geom.Vec2{}, false
		}
		x := (max(n.MinX(), s.MinX()) + min(n.MaxX(), s.MaxX())) / 2
		if side == SideTop && s.MaxY() <= n.MinY() {
			return n.MinY() - s.MaxY(), geom.Vec2{X: x, Y: s.MaxY()}, geom.Vec2{X: x, Y: n.MinY()}, true
		}
		if side == SideBottom && s.MinY() >= n.MaxY() {
			return s.MinY() - n.MaxY(), geom.Vec2{X: x, Y: n.MaxY()}, geom.Vec2{X: x, Y: s.MinY()}, true
		}
	}
	return 0, geom.Vec2{}, geom.Vec2{}, false
}

func measureContainer(bounds geom.Rect, side Side, parent geom.Rect, parentID string) (Measurement, bool) {
	c := bounds.Center()
	switch side {
	case SideLeft:
		if d := bounds.MinX() - parent.MinX(); d >= 0 {
			return Measurement{Side: side, Distance: d,
				From: geom.Vec2{X: parent.MinX(), Y: c.Y}, To: geom.Vec2{X: bounds.MinX(), Y: c.Y},
				NodeID: parentID}, true
		}
	case SideRight:
		if d := parent.MaxX() - bounds.MaxX(); d >= 0 {
			return Measurement{Side: side, Distance: d,
				From: geom.Vec2{X: bounds.MaxX(), Y: c.Y}, To: geom.Vec2{X: parent.MaxX(), Y: c.Y},
				NodeID: parentID}, true
		}
	case SideTop:
		if d := bounds.MinY() - parent.MinY(); d >= 0 {
			return Measurement{Side: side, Distance: d,
				From: geom.Vec2{X: c.X, Y: parent.MinY()}, To: geom.Vec2{X: c.X, Y: bounds.MinY()},
				NodeID: parentID}, true
		}
	case SideBottom:
		if d := parent.MaxY() - bounds.MaxY(); d >= 0 {
			return Measurement{Side: side, Distance: d,
				From: geom.Vec2{X: c.X, Y: bounds.MaxY()}, To: geom.Vec2{X: c.X, Y: parent.MaxY()},
				NodeID: parentID}, true
		}
	}
	return Measurement{}, false
}
