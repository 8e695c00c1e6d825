// Package tool routes normalized pointer/wheel/key input to the active
// editing tool. A gesture layer classifies multi-touch first; single-pointer
// events reach the tool, which turns them into history commands via the
// Context it is handed on every call.
package tool

import (
	"github.com/latticeapp/lattice/backend-go/internal/camera"
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/history"
	"github.com/latticeapp/lattice/backend-go/internal/snap"
)

// PointerKind distinguishes input devices. Only touch pointers participate
// in multi-touch gesture classification.
type PointerKind string

const (
	PointerMouse PointerKind = "mouse"
	PointerPen   PointerKind = "pen"
	PointerTouch PointerKind = "touch"
)

// PointerEvent is one normalized pointer sample in screen coordinates.
type PointerEvent struct {
	ID    int64       `json:"id"`
	Kind  PointerKind `json:"kind"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Shift bool        `json:"shift,omitempty"`
	Alt   bool        `json:"alt,omitempty"`
}

func (e PointerEvent) Screen() geom.Vec2 { return geom.Vec2{X: e.X, Y: e.Y} }

// WheelEvent zooms about the cursor position.
type WheelEvent struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Delta float64 `json:"delta"`
}

// Context is the capability set a tool receives with every event: coordinate
// conversion via the camera, index-backed hit testing, snapping, command
// dispatch and render invalidation. The editor session implements it.
type Context interface {
	Camera() *camera.Camera
	Document() *document.DocumentModel

	// HitTest returns the topmost hittable node at a world point.
	HitTest(world geom.Vec2) (string, bool)
	// NodesInRect returns the ids of selectable nodes whose world bounds
	// overlap the rect.
	NodesInRect(world geom.Rect) []string
	// DropTarget returns the node new shapes should be parented under at
	// the given world point: the topmost frame there, else the root.
	DropTarget(world geom.Vec2) string

	Snapper() *snap.Engine
	SnapOptions() snap.Options

	Dispatch(cmd history.Command) error
	// Undo removes the most recent history entry. Tools use it to back out
	// an in-flight merged drag on cancel.
	Undo() bool
	// HistoryDepth is the current undo-stack depth. Tools snapshot it at
	// drag start so cancel can unwind exactly the entries the drag pushed,
	// however many the merge window split it into.
	HistoryDepth() int

	SetGuides(guides []snap.Guide)
	Invalidate()
}

// Tool is one interaction mode. Lifecycle hooks must leave no dangling drag
// state: OnCancel can arrive at any moment (tool switch, Escape, focus loss)
// and must discard in-progress work without committing a partial command.
type Tool interface {
	Name() string
	OnActivate(ctx Context)
	OnDeactivate(ctx Context)
	OnCancel(ctx Context)
	OnPointerDown(ctx Context, ev PointerEvent)
	OnPointerMove(ctx Context, ev PointerEvent)
	OnPointerUp(ctx Context, ev PointerEvent)
}
