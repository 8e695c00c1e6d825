// Package camera maintains the zoom/pan/viewport state of an editor session
// and the forward and inverse screen↔world transforms.
package camera

import (
	"math"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

const (
	// MinZoom and MaxZoom are hard clamps; zoom requests outside the range
	// saturate rather than fail.
	MinZoom = 0.01
	MaxZoom = 100.0

	// zoomBase gives the exponential wheel-zoom curve: factor = 1.001^delta.
	zoomBase = 1.001
)

// Viewport is the screen-space extent the camera projects onto.
type Viewport struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// Camera converts between screen and world space:
//
//	world = (screen - viewportCenter)/zoom + pan
//
// pan is the world point shown at the viewport center.
type Camera struct {
	zoom     float64
	pan      geom.Vec2
	viewport Viewport
}

func New(vp Viewport) *Camera {
	if vp.PixelRatio == 0 {
		vp.PixelRatio = 1
	}
	return &Camera{zoom: 1, viewport: vp}
}

func (c *Camera) Zoom() float64       { return c.zoom }
func (c *Camera) Pan() geom.Vec2      { return c.pan }
func (c *Camera) Viewport() Viewport  { return c.viewport }
func (c *Camera) SetPan(p geom.Vec2)  { c.pan = p }
func (c *Camera) SetViewport(vp Viewport) {
	if vp.PixelRatio == 0 {
		vp.PixelRatio = 1
	}
	c.viewport = vp
}

// SetZoom clamps into [MinZoom, MaxZoom], zooming about the viewport center.
func (c *Camera) SetZoom(z float64) {
	c.zoom = math.Min(MaxZoom, math.Max(MinZoom, z))
}

func (c *Camera) center() geom.Vec2 {
	return geom.Vec2{X: c.viewport.Width / 2, Y: c.viewport.Height / 2}
}

// ScreenToWorld maps a screen point into world space.
func (c *Camera) ScreenToWorld(s geom.Vec2) geom.Vec2 {
	return s.Sub(c.center()).Scale(1 / c.zoom).Add(c.pan)
}

// WorldToScreen maps a world point onto the screen.
func (c *Camera) WorldToScreen(w geom.Vec2) geom.Vec2 {
	return w.Sub(c.pan).Scale(c.zoom).Add(c.center())
}

// ZoomBy applies an exponential zoom step anchored at a screen point: the
// world point under the anchor is identical before and after, exact to the
// pixel under the cursor. delta follows wheel convention (positive zooms in).
func (c *Camera) ZoomBy(delta float64, anchor geom.Vec2) {
	anchorWorld := c.ScreenToWorld(anchor)
	c.SetZoom(c.zoom * math.Pow(zoomBase, delta))
	// Re-derive pan so anchorWorld sits back under the anchor.
	c.pan = anchorWorld.Sub(anchor.Sub(c.center()).Scale(1 / c.zoom))
}

// PanByScreen pans by a screen-space delta: dragging content right moves the
// viewed world left.
func (c *Camera) PanByScreen(dx, dy float64) {
	c.pan = c.pan.Sub(geom.Vec2{X: dx, Y: dy}.Scale(1 / c.zoom))
}

// VisibleWorldBounds returns the world-space rect currently on screen.
func (c *Camera) VisibleWorldBounds() geom.Rect {
	topLeft := c.ScreenToWorld(geom.Vec2{})
	return geom.Rect{
		X: topLeft.X,
		Y: topLeft.Y,
		W: c.viewport.Width / c.zoom,
		H: c.viewport.Height / c.zoom,
	}
}

// IsInViewport is the AABB-vs-viewport test used by the fallback culling
// path; the spatial index performs the equivalent test at scale.
func (c *Camera) IsInViewport(b geom.Rect) bool {
	return b.Intersects(c.VisibleWorldBounds())
}

// Transform returns the world→screen matrix for the renderer.
func (c *Camera) Transform() geom.Mat3 {
	ctr := c.center()
	return geom.Translation(ctr.X, ctr.Y).
		Mul(geom.Scaling(c.zoom, c.zoom)).
		Mul(geom.Translation(-c.pan.X, -c.pan.Y))
}

// State is the serializable camera state shared with the frontend.
type State struct {
	Zoom     float64   `json:"zoom"`
	Pan      geom.Vec2 `json:"pan"`
	Viewport Viewport  `json:"viewport"`
}

func (c *Camera) State() State {
	return State{Zoom: c.zoom, Pan: c.pan, Viewport: c.viewport}
}

// Restore applies a saved state, re-clamping zoom.
func (c *Camera) Restore(s State) {
	c.SetZoom(s.Zoom)
	c.pan = s.Pan
	if s.Viewport.Width > 0 && s.Viewport.Height > 0 {
		c.SetViewport(s.Viewport)
	}
}
