package history

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
)

// historyDoc builds root → frame → (a, b) with a at (10,10) and b at
// (50,50), both 100×100.
func historyDoc(t *testing.T) (d *document.DocumentModel, frameID, aID, bID string) {
	t.Helper()
	d = document.NewEmptyDocument("test")

	frame := scene.CreateNode(document.KindFrame, geom.Rect{W: 800, H: 600}, document.DefaultStyle(document.KindFrame))
	var err error
	d, err = scene.AddChild(d, d.RootID, frame, -1)
	require.NoError(t, err)

	a := scene.CreateNode(document.KindRectangle, geom.Rect{W: 100, H: 100}, document.DefaultStyle(document.KindRectangle))
	a.Transform = geom.Translation(10, 10)
	d, err = scene.AddChild(d, frame.ID, a, -1)
	require.NoError(t, err)

	b := scene.CreateNode(document.KindRectangle, geom.Rect{W: 100, H: 100}, document.DefaultStyle(document.KindRectangle))
	b.Transform = geom.Translation(50, 50)
	d, err = scene.AddChild(d, frame.ID, b, -1)
	require.NoError(t, err)

	return d, frame.ID, a.ID, b.ID
}

func TestExecuteUndoRedoAddNode(t *testing.T) {
	assert := assert.New(t)
	doc, frameID, _, _ := historyDoc(t)
	h := New(doc)

	n := scene.CreateNode(document.KindEllipse, geom.Rect{W: 40, H: 40}, document.DefaultStyle(document.KindEllipse))
	require.NoError(t, h.Execute(NewAddNode(frameID, n, -1)))
	assert.NotNil(h.Document().Node(n.ID))
	assert.True(h.CanUndo())
	assert.False(h.CanRedo())

	assert.True(h.Undo())
	assert.Nil(h.Document().Node(n.ID))
	assert.True(h.CanRedo())

	assert.True(h.Redo())
	assert.NotNil(h.Document().Node(n.ID))
}

func TestExecuteRejectedLeavesDocumentIntact(t *testing.T) {
	assert := assert.New(t)
	doc, _, _, _ := historyDoc(t)
	h := New(doc)

	n := scene.CreateNode(document.KindRectangle, geom.Rect{W: 10, H: 10}, document.Style{})
	err := h.Execute(NewAddNode("node_does_not_exist", n, -1))
	require.Error(t, err)
	assert.True(errors.Is(err, ErrCommandRejected))
	assert.Same(doc, h.Document())
	assert.False(h.CanUndo())
}

func TestNewEditClearsRedoBranch(t *testing.T) {
	assert := assert.New(t)
	doc, frameID, _, _ := historyDoc(t)
	h := New(doc)

	n1 := scene.CreateNode(document.KindRectangle, geom.Rect{W: 10, H: 10}, document.Style{})
	require.NoError(t, h.Execute(NewAddNode(frameID, n1, -1)))
	assert.True(h.Undo())
	assert.True(h.CanRedo())

	n2 := scene.CreateNode(document.KindRectangle, geom.Rect{W: 10, H: 10}, document.Style{})
	require.NoError(t, h.Execute(NewAddNode(frameID, n2, -1)))
	assert.False(h.CanRedo())
	assert.False(h.Redo())
}

func TestRemoveNodesRestoresSubtreeExactly(t *testing.T) {
	assert := assert.New(t)
	doc, frameID, aID, bID := historyDoc(t)

	// Give a a child so the whole subtree round-trips.
	child := scene.CreateNode(document.KindEllipse, geom.Rect{W: 10, H: 10}, document.DefaultStyle(document.KindEllipse))
	doc, err := scene.AddChild(doc, aID, child, -1)
	require.NoError(t, err)
	doc = scene.SetSelection(doc, []string{aID})

	h := New(doc)
	require.NoError(t, h.Execute(NewRemoveNodes([]string{aID})))
	assert.Nil(h.Document().Node(aID))
	assert.Nil(h.Document().Node(child.ID))
	assert.Empty(h.Document().Selection)

	require.True(t, h.Undo())
	restored := h.Document()
	require.NotNil(t, restored.Node(aID))
	require.NotNil(t, restored.Node(child.ID))
	// a comes back at its original sibling position, before b.
	assert.Equal([]string{aID, bID}, restored.Node(frameID).ChildIDs)
	assert.Equal([]string{child.ID}, restored.Node(aID).ChildIDs)
}

func TestRemoveNodesNestedIDsCollapse(t *testing.T) {
	doc, _, aID, _ := historyDoc(t)
	child := scene.CreateNode(document.KindEllipse, geom.Rect{W: 10, H: 10}, document.Style{})
	doc, err := scene.AddChild(doc, aID, child, -1)
	require.NoError(t, err)

	h := New(doc)
	// Listing both the parent and its descendant must not double-remove.
	require.NoError(t, h.Execute(NewRemoveNodes([]string{child.ID, aID})))
	assert.Nil(t, h.Document().Node(aID))

	require.True(t, h.Undo())
	assert.NotNil(t, h.Document().Node(aID))
	assert.NotNil(t, h.Document().Node(child.ID))
}

func TestTranslateMergesWithinWindow(t *testing.T) {
	assert := assert.New(t)
	doc, _, aID, _ := historyDoc(t)
	h := New(doc)

	t0 := time.Now()
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 5, 0, t0)))
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 3, 0, t0.Add(200*time.Millisecond))))

	past, _ := h.Depths()
	assert.Equal(1, past)

	// Net effect of both translations.
	p := h.Document().Node(aID).Transform.Apply(geom.Vec2{})
	assert.InDelta(18.0, p.X, 1e-9)
	assert.InDelta(10.0, p.Y, 1e-9)

	// One undo restores the original position exactly.
	require.True(t, h.Undo())
	orig := h.Document().Node(aID).Transform.Apply(geom.Vec2{})
	assert.Equal(10.0, orig.X)
	assert.Equal(10.0, orig.Y)
	assert.False(h.CanUndo())
}

func TestTranslateMergeWindowSlides(t *testing.T) {
	assert := assert.New(t)
	doc, _, aID, _ := historyDoc(t)
	h := New(doc)

	// Steps 400 ms apart span more than one window in total, but each gap
	// is inside it: a long continuous drag stays one entry.
	t0 := time.Now()
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 5, 0, t0)))
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 3, 0, t0.Add(400*time.Millisecond))))
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 2, 0, t0.Add(800*time.Millisecond))))

	past, _ := h.Depths()
	assert.Equal(1, past)

	require.True(t, h.Undo())
	orig := h.Document().Node(aID).Transform.Apply(geom.Vec2{})
	assert.Equal(10.0, orig.X)
	assert.False(h.CanUndo())
}

func TestTranslateDoesNotMergeOutsideWindow(t *testing.T) {
	doc, _, aID, _ := historyDoc(t)
	h := New(doc)

	t0 := time.Now()
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 5, 0, t0)))
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 3, 0, t0.Add(MergeWindow+time.Millisecond))))

	past, _ := h.Depths()
	assert.Equal(t, 2, past)
}

func TestTranslateDoesNotMergeDifferentSets(t *testing.T) {
	doc, _, aID, bID := historyDoc(t)
	h := New(doc)

	t0 := time.Now()
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 5, 0, t0)))
	require.NoError(t, h.Execute(NewTranslateNodes([]string{bID}, 3, 0, t0)))

	past, _ := h.Depths()
	assert.Equal(t, 2, past)
}

func TestTranslateRedoReappliesMergedDelta(t *testing.T) {
	assert := assert.New(t)
	doc, _, aID, _ := historyDoc(t)
	h := New(doc)

	t0 := time.Now()
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 5, 2, t0)))
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 3, -2, t0.Add(time.Millisecond))))

	require.True(t, h.Undo())
	require.True(t, h.Redo())
	p := h.Document().Node(aID).Transform.Apply(geom.Vec2{})
	assert.InDelta(18.0, p.X, 1e-9)
	assert.InDelta(10.0, p.Y, 1e-9)
}

func TestUpdateStyleMergeKeepsFirstBefore(t *testing.T) {
	assert := assert.New(t)
	doc, _, aID, _ := historyDoc(t)
	h := New(doc)

	orig := h.Document().Node(aID).Style.Shape.Fill

	t0 := time.Now()
	s1 := document.Style{Shape: &document.ShapeStyle{Fill: "#ff0000"}}
	cmd1, err := NewUpdateStyle(h.Document(), aID, s1, t0)
	require.NoError(t, err)
	require.NoError(t, h.Execute(cmd1))

	s2 := document.Style{Shape: &document.ShapeStyle{Fill: "#00ff00"}}
	cmd2, err := NewUpdateStyle(h.Document(), aID, s2, t0.Add(100*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, h.Execute(cmd2))

	past, _ := h.Depths()
	assert.Equal(1, past)
	assert.Equal("#00ff00", h.Document().Node(aID).Style.Shape.Fill)

	// Undoing the merged scrub jumps straight back to the original fill.
	require.True(t, h.Undo())
	assert.Equal(orig, h.Document().Node(aID).Style.Shape.Fill)
}

func TestSetSelectionNeverMerges(t *testing.T) {
	assert := assert.New(t)
	doc, _, aID, bID := historyDoc(t)
	h := New(doc)

	require.NoError(t, h.Execute(NewSetSelection(h.Document(), []string{aID})))
	require.NoError(t, h.Execute(NewSetSelection(h.Document(), []string{aID, bID})))

	past, _ := h.Depths()
	assert.Equal(2, past)

	require.True(t, h.Undo())
	assert.Equal([]string{aID}, h.Document().Selection)
	require.True(t, h.Undo())
	assert.Empty(h.Document().Selection)
}

func TestSetZIndex(t *testing.T) {
	assert := assert.New(t)
	doc, _, aID, _ := historyDoc(t)
	h := New(doc)

	cmd, err := NewSetZIndex(h.Document(), aID, 9)
	require.NoError(t, err)
	require.NoError(t, h.Execute(cmd))
	assert.Equal(9, h.Document().Node(aID).ZIndex)

	require.True(t, h.Undo())
	assert.Equal(0, h.Document().Node(aID).ZIndex)
}

func TestUndoRedoInverseLaw(t *testing.T) {
	assert := assert.New(t)
	doc, frameID, aID, _ := historyDoc(t)
	h := New(doc)

	n := scene.CreateNode(document.KindRectangle, geom.Rect{W: 20, H: 20}, document.DefaultStyle(document.KindRectangle))
	require.NoError(t, h.Execute(NewAddNode(frameID, n, -1)))
	require.NoError(t, h.Execute(NewTranslateNodes([]string{aID}, 7, 7, time.Now())))
	require.NoError(t, h.Execute(NewSetSelection(h.Document(), []string{aID, n.ID})))

	after := serializeWithoutTimestamps(t, h.Document())

	// Walk all the way back, then all the way forward: the document must
	// serialize identically.
	for h.Undo() {
	}
	assert.Nil(h.Document().Node(n.ID))
	for h.Redo() {
	}

	assert.JSONEq(after, serializeWithoutTimestamps(t, h.Document()))
}

// serializeWithoutTimestamps strips metadata, which carries a wall-clock
// modification time that replaying history legitimately changes.
func serializeWithoutTimestamps(t *testing.T, d *document.DocumentModel) string {
	t.Helper()
	raw, err := document.Serialize(d)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	delete(m, "metadata")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}

func TestReset(t *testing.T) {
	assert := assert.New(t)
	doc, frameID, _, _ := historyDoc(t)
	h := New(doc)

	n := scene.CreateNode(document.KindRectangle, geom.Rect{W: 10, H: 10}, document.Style{})
	require.NoError(t, h.Execute(NewAddNode(frameID, n, -1)))

	fresh := document.NewEmptyDocument("fresh")
	h.Reset(fresh)
	assert.Same(fresh, h.Document())
	assert.False(h.CanUndo())
	assert.False(h.CanRedo())
}
