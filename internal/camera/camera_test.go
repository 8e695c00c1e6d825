package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

func newTestCamera() *Camera {
	return New(Viewport{Width: 800, Height: 600, PixelRatio: 1})
}

func TestScreenWorldRoundTrip(t *testing.T) {
	assert := assert.New(t)
	c := newTestCamera()
	c.SetZoom(2.5)
	c.SetPan(geom.Vec2{X: 120, Y: -40})

	for _, s := range []geom.Vec2{{X: 0, Y: 0}, {X: 400, Y: 300}, {X: 799, Y: 599}, {X: 13.7, Y: 501.2}} {
		back := c.WorldToScreen(c.ScreenToWorld(s))
		assert.InDelta(s.X, back.X, 1e-9)
		assert.InDelta(s.Y, back.Y, 1e-9)
	}
}

func TestZoomClamp(t *testing.T) {
	assert := assert.New(t)
	c := newTestCamera()

	c.SetZoom(0.0001)
	assert.Equal(MinZoom, c.Zoom())
	c.SetZoom(1e6)
	assert.Equal(MaxZoom, c.Zoom())
}

func TestAnchorPreservingZoom(t *testing.T) {
	assert := assert.New(t)
	c := newTestCamera()
	c.SetPan(geom.Vec2{X: 50, Y: 25})

	anchor := geom.Vec2{X: 213, Y: 77}
	before := c.ScreenToWorld(anchor)
	c.ZoomBy(693.5, anchor) // arbitrary wheel delta
	after := c.ScreenToWorld(anchor)

	assert.InDelta(before.X, after.X, 1e-6)
	assert.InDelta(before.Y, after.Y, 1e-6)
}

func TestZoomDoubleKeepsAnchorFixed(t *testing.T) {
	// Zoom 1.0 → 2.0 anchored at (400,300) with pan (0,0): the world point
	// under the anchor must be identical before and after.
	assert := assert.New(t)
	c := newTestCamera()

	anchor := geom.Vec2{X: 400, Y: 300}
	before := c.ScreenToWorld(anchor)

	c.ZoomBy(693.49, anchor) // 1.001^693.49 ≈ 2.0
	assert.InDelta(2.0, c.Zoom(), 0.001)

	after := c.ScreenToWorld(anchor)
	assert.InDelta(before.X, after.X, 1e-6)
	assert.InDelta(before.Y, after.Y, 1e-6)
}

func TestPanByScreen(t *testing.T) {
	assert := assert.New(t)
	c := newTestCamera()
	c.SetZoom(2)

	// Dragging content 100px right moves the camera 50 world units left.
	c.PanByScreen(100, 0)
	assert.Equal(geom.Vec2{X: -50, Y: 0}, c.Pan())
}

func TestVisibleWorldBounds(t *testing.T) {
	assert := assert.New(t)
	c := newTestCamera()
	c.SetZoom(2)
	c.SetPan(geom.Vec2{X: 100, Y: 100})

	b := c.VisibleWorldBounds()
	assert.Equal(geom.Rect{X: -100, Y: -50, W: 400, H: 300}, b)

	assert.True(c.IsInViewport(geom.Rect{X: 0, Y: 0, W: 10, H: 10}))
	assert.False(c.IsInViewport(geom.Rect{X: 1000, Y: 0, W: 10, H: 10}))
}

func TestTransformMatchesWorldToScreen(t *testing.T) {
	assert := assert.New(t)
	c := newTestCamera()
	c.SetZoom(1.7)
	c.SetPan(geom.Vec2{X: -30, Y: 12})

	m := c.Transform()
	w := geom.Vec2{X: 55, Y: -8}
	viaMatrix := m.Apply(w)
	direct := c.WorldToScreen(w)
	assert.InDelta(direct.X, viaMatrix.X, 1e-9)
	assert.InDelta(direct.Y, viaMatrix.Y, 1e-9)
}
