package session

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeapp/lattice/backend-go/internal/library"
	"github.com/latticeapp/lattice/backend-go/internal/storage"
	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

func newTestSession(t *testing.T) (*Session, *library.Service, string, string) {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	owner := &storage.User{
		ID: typeid.NewUserID(), Email: "ada@example.com",
		DisplayName: "Ada", PasswordHash: "x", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(context.Background(), owner))

	lib := library.NewService(store)
	meta, err := lib.Create(context.Background(), owner.ID, "session test")
	require.NoError(t, err)
	_, doc, err := lib.Get(context.Background(), meta.ID, owner.ID)
	require.NoError(t, err)

	s := New(lib, meta.ID, owner.ID, meta.Name, meta.Version, doc, DefaultSaveDebounce)
	t.Cleanup(func() { s.ed.Close() })
	return s, lib, meta.ID, owner.ID
}

// drain empties the outbound queue and returns the decoded messages.
func drain(t *testing.T, s *Session) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case data := <-s.send:
			var m Message
			require.NoError(t, json.Unmarshal(data, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func send(t *testing.T, s *Session, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(Message{Type: msgType, Payload: raw})
	require.NoError(t, err)
	s.Handle(data)
}

func TestWelcomeIsFirstMessage(t *testing.T) {
	s, _, docID, _ := newTestSession(t)

	msgs := drain(t, s)
	require.NotEmpty(t, msgs)
	assert.Equal(t, TypeWelcome, msgs[0].Type)

	var w WelcomePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &w))
	assert.Equal(t, docID, w.DocID)
	assert.Equal(t, int64(1), w.Version)
	assert.Equal(t, "select", w.Tool)
	assert.NotEqual(t, "null", string(w.Document))
}

func TestDrawRectangleOverWire(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	drain(t, s)

	send(t, s, TypeToolSet, ToolSetPayload{Tool: "rectangle"})
	send(t, s, TypePointerDown, map[string]any{"id": 1, "kind": "mouse", "x": 700.0, "y": 400.0})
	send(t, s, TypePointerMove, map[string]any{"id": 1, "kind": "mouse", "x": 800.0, "y": 480.0})
	send(t, s, TypePointerUp, map[string]any{"id": 1, "kind": "mouse", "x": 800.0, "y": 480.0})

	doc := s.ed.Document()
	root := doc.Node(doc.RootID)
	require.Len(t, root.ChildIDs, 1)

	// The edit produced a render wakeup and a history.state push.
	assert.Len(t, s.render, 1)
	msgs := drain(t, s)
	var sawHistory bool
	for _, m := range msgs {
		if m.Type == TypeHistoryState {
			sawHistory = true
			var hs HistoryStatePayload
			require.NoError(t, json.Unmarshal(m.Payload, &hs))
			assert.True(t, hs.CanUndo)
			assert.False(t, hs.CanRedo)
		}
	}
	assert.True(t, sawHistory)
}

func TestUndoRedoOverWire(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	drain(t, s)

	send(t, s, TypeToolSet, ToolSetPayload{Tool: "rectangle"})
	send(t, s, TypePointerDown, map[string]any{"id": 1, "kind": "mouse", "x": 700.0, "y": 400.0})
	send(t, s, TypePointerUp, map[string]any{"id": 1, "kind": "mouse", "x": 760.0, "y": 460.0})
	drain(t, s)

	// Drawing committed two entries: the insert and the selection change.
	send(t, s, TypeHistoryUndo, nil)
	send(t, s, TypeHistoryUndo, nil)
	doc := s.ed.Document()
	assert.Empty(t, doc.Node(doc.RootID).ChildIDs)

	msgs := drain(t, s)
	require.NotEmpty(t, msgs)
	var hs HistoryStatePayload
	found := false
	for _, m := range msgs {
		if m.Type == TypeHistoryState {
			require.NoError(t, json.Unmarshal(m.Payload, &hs))
			found = true
		}
	}
	require.True(t, found)
	assert.False(t, hs.CanUndo)
	assert.True(t, hs.CanRedo)

	send(t, s, TypeHistoryRedo, nil)
	doc = s.ed.Document()
	assert.Len(t, doc.Node(doc.RootID).ChildIDs, 1)
}

func TestTouchFrameBatch(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	drain(t, s)

	zoomBefore := s.ed.CameraState().Zoom

	// Two fingers down, then spread: a pinch, not a tool gesture.
	send(t, s, TypeTouch, TouchPayload{Changes: []TouchChange{
		{Phase: "down", ID: 1, X: 600, Y: 360},
		{Phase: "down", ID: 2, X: 680, Y: 360},
	}})
	send(t, s, TypeTouch, TouchPayload{Changes: []TouchChange{
		{Phase: "move", ID: 1, X: 560, Y: 360},
		{Phase: "move", ID: 2, X: 720, Y: 360},
	}})
	send(t, s, TypeTouch, TouchPayload{Changes: []TouchChange{
		{Phase: "up", ID: 1, X: 560, Y: 360},
		{Phase: "up", ID: 2, X: 720, Y: 360},
	}})

	assert.Greater(t, s.ed.CameraState().Zoom, zoomBefore)
	// No document edit happened.
	canUndo, _ := s.ed.HistoryState()
	assert.False(t, canUndo)
}

func TestExplicitSave(t *testing.T) {
	s, lib, docID, userID := newTestSession(t)
	drain(t, s)

	send(t, s, TypeDocSave, nil)

	msgs := drain(t, s)
	require.NotEmpty(t, msgs)
	var saved SavedPayload
	found := false
	for _, m := range msgs {
		if m.Type == TypeSaved {
			require.NoError(t, json.Unmarshal(m.Payload, &saved))
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, int64(2), saved.Version)

	meta, _, err := lib.Get(context.Background(), docID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Version)
}

func TestUnknownToolAndBadPayloads(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	drain(t, s)

	send(t, s, TypeToolSet, ToolSetPayload{Tool: "lasso"})
	msgs := drain(t, s)
	require.NotEmpty(t, msgs)
	assert.Equal(t, TypeError, msgs[0].Type)

	s.Handle([]byte(`{not json`))
	msgs = drain(t, s)
	require.NotEmpty(t, msgs)
	assert.Equal(t, TypeError, msgs[0].Type)

	s.Handle([]byte(`{"type":"no.such.type"}`))
	msgs = drain(t, s)
	require.NotEmpty(t, msgs)
	assert.Equal(t, TypeError, msgs[0].Type)
}

func TestSelectionSetOverWire(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	drain(t, s)

	send(t, s, TypeToolSet, ToolSetPayload{Tool: "rectangle"})
	send(t, s, TypePointerDown, map[string]any{"id": 1, "kind": "mouse", "x": 700.0, "y": 400.0})
	send(t, s, TypePointerUp, map[string]any{"id": 1, "kind": "mouse", "x": 760.0, "y": 460.0})
	doc := s.ed.Document()
	nodeID := doc.Node(doc.RootID).ChildIDs[0]
	drain(t, s)

	send(t, s, TypeSelectionSet, SelectionSetPayload{IDs: nil})
	assert.Empty(t, s.ed.Document().Selection)

	send(t, s, TypeSelectionSet, SelectionSetPayload{IDs: []string{nodeID}})
	assert.Equal(t, []string{nodeID}, s.ed.Document().Selection)
}
