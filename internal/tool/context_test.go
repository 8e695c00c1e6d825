package tool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeapp/lattice/backend-go/internal/camera"
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/history"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
	"github.com/latticeapp/lattice/backend-go/internal/snap"
	"github.com/latticeapp/lattice/backend-go/internal/spatial"
)

// fakeCtx is a minimal Context: a real history/camera/index wired together
// with a brute-force index rebuild after every dispatch.
type fakeCtx struct {
	cam     *camera.Camera
	hist    *history.History
	ix      *spatial.Index
	reg     *spatial.Registry
	snapper *snap.Engine
	opts    snap.Options

	guides      []snap.Guide
	invalidated int
}

// newFakeCtx builds root → frame(500×500) → a(100×100 at 10,10),
// b(100×100 at 200,10). The camera pan is set so that world coordinates
// equal screen coordinates at zoom 1.
func newFakeCtx(t *testing.T) (ctx *fakeCtx, frameID, aID, bID string) {
	t.Helper()
	d := document.NewEmptyDocument("tooltest")

	frame := scene.CreateNode(document.KindFrame, geom.Rect{W: 500, H: 500}, document.DefaultStyle(document.KindFrame))
	var err error
	d, err = scene.AddChild(d, d.RootID, frame, -1)
	require.NoError(t, err)

	a := scene.CreateNode(document.KindRectangle, geom.Rect{W: 100, H: 100}, document.DefaultStyle(document.KindRectangle))
	a.Transform = geom.Translation(10, 10)
	d, err = scene.AddChild(d, frame.ID, a, -1)
	require.NoError(t, err)

	b := scene.CreateNode(document.KindRectangle, geom.Rect{W: 100, H: 100}, document.DefaultStyle(document.KindRectangle))
	b.Transform = geom.Translation(200, 10)
	b.ZIndex = 1
	d, err = scene.AddChild(d, frame.ID, b, -1)
	require.NoError(t, err)

	cam := camera.New(camera.Viewport{Width: 640, Height: 480, PixelRatio: 1})
	cam.SetPan(geom.Vec2{X: 320, Y: 240})

	ix := spatial.NewIndex(0)
	reg := spatial.NewRegistry()
	opts := snap.DefaultOptions()
	opts.GridEnabled = false

	ctx = &fakeCtx{
		cam:     cam,
		hist:    history.New(d),
		ix:      ix,
		reg:     reg,
		snapper: snap.NewEngine(ix, reg),
		opts:    opts,
	}
	ctx.resync()
	return ctx, frame.ID, a.ID, b.ID
}

func (c *fakeCtx) resync() {
	c.ix.Clear()
	doc := c.hist.Document()
	for i, n := range scene.CollectAll(doc) {
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
		// Composite paint order: explicit z-index major, tree order minor,
		// so children sit above their container on equal z-index.
		paint := int64(n.ZIndex)<<32 | int64(uint32(i))
		c.ix.Upsert(c.reg.Acquire(n.ID), b.MinX(), b.MinY(), b.MaxX(), b.MaxY(), paint, f)
	}
}

func (c *fakeCtx) Camera() *camera.Camera            { return c.cam }
func (c *fakeCtx) Document() *document.DocumentModel { return c.hist.Document() }
func (c *fakeCtx) Snapper() *snap.Engine             { return c.snapper }
func (c *fakeCtx) SnapOptions() snap.Options         { return c.opts }
func (c *fakeCtx) SetGuides(gs []snap.Guide)         { c.guides = gs }
func (c *fakeCtx) Invalidate()                       { c.invalidated++ }

func (c *fakeCtx) HitTest(world geom.Vec2) (string, bool) {
	for _, h := range c.ix.QueryPoint(world.X, world.Y) {
		if id, ok := c.reg.IDOf(h); ok {
			return id, true
		}
	}
	return "", false
}

func (c *fakeCtx) NodesInRect(world geom.Rect) []string {
	var out []string
	for _, h := range c.ix.QueryRect(world.MinX(), world.MinY(), world.MaxX(), world.MaxY()) {
		if id, ok := c.reg.IDOf(h); ok {
			out = append(out, id)
		}
	}
	return out
}

func (c *fakeCtx) DropTarget(world geom.Vec2) string {
	doc := c.hist.Document()
	for _, n := range scene.NodesAtPoint(doc, world) {
		if n.Kind == document.KindFrame {
			return n.ID
		}
	}
	return doc.RootID
}

func (c *fakeCtx) Dispatch(cmd history.Command) error {
	if err := c.hist.Execute(cmd); err != nil {
		return err
	}
	c.resync()
	return nil
}

func (c *fakeCtx) Undo() bool {
	ok := c.hist.Undo()
	if ok {
		c.resync()
	}
	return ok
}

func (c *fakeCtx) HistoryDepth() int {
	past, _ := c.hist.Depths()
	return past
}

// nodeWorldPos returns the world-space origin of a node's bounds.
func nodeWorldPos(t *testing.T, ctx *fakeCtx, id string) geom.Vec2 {
	t.Helper()
	b, ok := scene.WorldBounds(ctx.Document(), id)
	require.True(t, ok)
	return geom.Vec2{X: b.X, Y: b.Y}
}

func newSelection(ctx *fakeCtx, ids ...string) *history.SetSelection {
	return history.NewSetSelection(ctx.Document(), ids)
}

func mouse(x, y float64) PointerEvent {
	return PointerEvent{ID: 1, Kind: PointerMouse, X: x, Y: y}
}

func touch(id int64, x, y float64) PointerEvent {
	return PointerEvent{ID: id, Kind: PointerTouch, X: x, Y: y}
}
