// Package editor is the per-session interaction core: one open document
// with its history, camera, spatial index and tool router. All methods are
// called from the owning session goroutine; only the autosave timer crosses
// goroutines, guarded by the editor mutex.
package editor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/latticeapp/lattice/backend-go/internal/camera"
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/history"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
	"github.com/latticeapp/lattice/backend-go/internal/snap"
	"github.com/latticeapp/lattice/backend-go/internal/spatial"
	"github.com/latticeapp/lattice/backend-go/internal/tool"
)

// SaveFunc receives the current document when the autosave debounce fires.
// It runs on the timer goroutine and must not call back into the editor.
type SaveFunc func(doc *document.DocumentModel)

type Editor struct {
	mu sync.Mutex

	hist    *history.History
	cam     *camera.Camera
	ix      *spatial.Index
	reg     *spatial.Registry
	snapper *snap.Engine
	router  *tool.Router

	snapOpts snap.Options
	guides   []snap.Guide

	// Last-synced node pointers and paint orders, for incremental index
	// updates by pointer identity: the tree is immutable, so an unchanged
	// node is the same pointer with the same paint order.
	synced     map[string]*document.SceneNode
	syncedZ    map[string]int64
	pending    bool
	invalidate func()

	saveDebounce time.Duration
	saveFn       SaveFunc
	saveTimer    *time.Timer
	closed       bool
}

func New(doc *document.DocumentModel, vp camera.Viewport, saveDebounce time.Duration) *Editor {
	ix := spatial.NewIndex(0)
	reg := spatial.NewRegistry()
	e := &Editor{
		hist:         history.New(doc),
		cam:          camera.New(vp),
		ix:           ix,
		reg:          reg,
		snapper:      snap.NewEngine(ix, reg),
		snapOpts:     snap.DefaultOptions(),
		synced:       make(map[string]*document.SceneNode),
		syncedZ:      make(map[string]int64),
		saveDebounce: saveDebounce,
	}
	e.router = tool.NewRouter(e,
		tool.NewSelectTool(),
		tool.NewPanTool(),
		tool.NewShapeTool(document.KindRectangle),
		tool.NewShapeTool(document.KindEllipse),
		tool.NewShapeTool(document.KindFrame),
	)
	e.syncIndex()
	return e
}

// SetOnSave installs the autosave sink. Without one, edits simply never
// schedule a save.
func (e *Editor) SetOnSave(fn SaveFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saveFn = fn
}

// SetOnInvalidate installs the redraw-request callback. Invalidations are
// coalesced: while a frame is pending, further ones are absorbed until
// Render is called.
func (e *Editor) SetOnInvalidate(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidate = fn
}

// Close stops the autosave timer. The editor must not be used afterwards.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.saveTimer != nil {
		e.saveTimer.Stop()
		e.saveTimer = nil
	}
}

// --- input surface (locked) ---

func (e *Editor) PointerDown(ev tool.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.PointerDown(ev)
}

func (e *Editor) PointerMove(ev tool.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.PointerMove(ev)
}

func (e *Editor) PointerUp(ev tool.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.PointerUp(ev)
}

// PointerCancel handles capture or focus loss as an implicit pointer-up.
func (e *Editor) PointerCancel(ev tool.PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.PointerCancel(ev)
}

func (e *Editor) Wheel(ev tool.WheelEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.Wheel(ev)
}

func (e *Editor) SetTool(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.SetTool(name)
}

func (e *Editor) ActiveTool() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.ActiveTool()
}

func (e *Editor) SetViewport(vp camera.Viewport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cam.SetViewport(vp)
	e.markPending()
}

// SetCameraState applies a client-requested camera jump (zoom-to-fit,
// restored session state).
func (e *Editor) SetCameraState(s camera.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cam.Restore(s)
	e.markPending()
}

func (e *Editor) CameraState() camera.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cam.State()
}

// ExecuteCommand runs a command built outside the tool layer (style panel,
// z-order controls, selection sync).
func (e *Editor) ExecuteCommand(cmd history.Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Dispatch(cmd)
}

func (e *Editor) UndoEdit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.hist.Undo()
	if ok {
		e.afterDocChange()
	}
	return ok
}

func (e *Editor) RedoEdit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.hist.Redo()
	if ok {
		e.afterDocChange()
	}
	return ok
}

// HistoryState reports undo/redo availability for client UI.
func (e *Editor) HistoryState() (canUndo, canRedo bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanUndo(), e.hist.CanRedo()
}

// ReplaceDocument swaps in a freshly loaded document and drops history.
func (e *Editor) ReplaceDocument(doc *document.DocumentModel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hist.Reset(doc)
	e.ix.Clear()
	e.reg.Clear()
	e.synced = make(map[string]*document.SceneNode)
	e.syncedZ = make(map[string]int64)
	e.syncIndex()
	e.markPending()
}

// --- tool.Context (called within the event turn, already locked) ---

func (e *Editor) Camera() *camera.Camera            { return e.cam }
func (e *Editor) Document() *document.DocumentModel { return e.hist.Document() }
func (e *Editor) Snapper() *snap.Engine             { return e.snapper }
func (e *Editor) SnapOptions() snap.Options         { return e.snapOpts }

func (e *Editor) SetGuides(gs []snap.Guide) { e.guides = gs }

func (e *Editor) Invalidate() { e.markPending() }

// HitTest returns the topmost hittable node at a world point. Hidden and
// locked nodes are excluded by the index.
func (e *Editor) HitTest(world geom.Vec2) (string, bool) {
	for _, h := range e.ix.QueryPoint(world.X, world.Y) {
		if id, ok := e.reg.IDOf(h); ok {
			return id, true
		}
	}
	return "", false
}

// NodesInRect returns selectable nodes overlapping a world rect, in paint
// order. Locked nodes are not marquee-selectable.
func (e *Editor) NodesInRect(world geom.Rect) []string {
	var out []string
	for _, h := range e.ix.QueryRect(world.MinX(), world.MinY(), world.MaxX(), world.MaxY()) {
		f, _ := e.ix.EntryFlags(h)
		if f&(spatial.FlagHidden|spatial.FlagLocked) != 0 {
			continue
		}
		if id, ok := e.reg.IDOf(h); ok {
			out = append(out, id)
		}
	}
	return out
}

// DropTarget returns the topmost frame at a world point, else the root.
func (e *Editor) DropTarget(world geom.Vec2) string {
	doc := e.hist.Document()
	for _, n := range scene.NodesAtPoint(doc, world) {
		if n.Kind == document.KindFrame {
			return n.ID
		}
	}
	return doc.RootID
}

func (e *Editor) Dispatch(cmd history.Command) error {
	if err := e.hist.Execute(cmd); err != nil {
		slog.Warn("command rejected", "command", cmd.Name(), "error", err)
		return err
	}
	e.afterDocChange()
	return nil
}

func (e *Editor) Undo() bool {
	ok := e.hist.Undo()
	if ok {
		e.afterDocChange()
	}
	return ok
}

func (e *Editor) HistoryDepth() int {
	past, _ := e.hist.Depths()
	return past
}

// --- internals ---

func (e *Editor) afterDocChange() {
	e.syncIndex()
	e.markPending()
	e.scheduleSave()
}

func (e *Editor) markPending() {
	if e.pending {
		return
	}
	e.pending = true
	if e.invalidate != nil {
		e.invalidate()
	}
}

// syncIndex reconciles the spatial index with the current document version.
// The scene graph is immutable per version: a node whose pointer and paint
// order both match the last sync cannot have changed world bounds (transform
// edits re-clone the whole affected subtree), so it is skipped.
func (e *Editor) syncIndex() {
	doc := e.hist.Document()
	nodes := scene.CollectAll(doc)

	seen := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		seen[n.ID] = true
		// Composite paint order: explicit z-index major, tree order minor.
		// The full int32 z range and 4 billion nodes fit without overlap.
		paint := int64(n.ZIndex)<<32 | int64(uint32(i))
		if e.synced[n.ID] == n && e.syncedZ[n.ID] == paint {
			continue
		}
		b, ok := scene.WorldBounds(doc, n.ID)
		if !ok {
			continue
		}
		var f spatial.Flags
		if !n.Visible {
			f |= spatial.FlagHidden
		}
		if n.Locked {
			f |= spatial.FlagLocked
		}
		e.ix.Upsert(e.reg.Acquire(n.ID), b.MinX(), b.MinY(), b.MaxX(), b.MaxY(), paint, f)
		e.synced[n.ID] = n
		e.syncedZ[n.ID] = paint
	}

	for id := range e.synced {
		if seen[id] {
			continue
		}
		if h, ok := e.reg.Lookup(id); ok {
			e.ix.Remove(h)
		}
		e.reg.Remove(id)
		delete(e.synced, id)
		delete(e.syncedZ, id)
	}
}

// scheduleSave (re)arms the autosave debounce: rapid edits collapse into
// one save, fired saveDebounce after the last change.
func (e *Editor) scheduleSave() {
	if e.saveFn == nil || e.closed || e.saveDebounce <= 0 {
		return
	}
	if e.saveTimer != nil {
		e.saveTimer.Stop()
	}
	e.saveTimer = time.AfterFunc(e.saveDebounce, func() {
		e.mu.Lock()
		doc := e.hist.Document()
		fn := e.saveFn
		closed := e.closed
		e.mu.Unlock()
		if fn != nil && !closed {
			fn(doc)
		}
	})
}
