// Package session runs one WebSocket editor session per connection. The
// session owns an Editor, translates wire messages into editor input and
// pushes render packets back, coalescing so at most one render is built per
// invalidation cycle.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"github.com/coder/websocket"

	"github.com/latticeapp/lattice/backend-go/internal/camera"
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/editor"
	"github.com/latticeapp/lattice/backend-go/internal/history"
	"github.com/latticeapp/lattice/backend-go/internal/library"
	"github.com/latticeapp/lattice/backend-go/internal/snap"
	"github.com/latticeapp/lattice/backend-go/internal/tool"
	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024

	// DefaultSaveDebounce is how long after the last edit an autosave fires.
	DefaultSaveDebounce = 2 * time.Second

	defaultViewportW = 1280
	defaultViewportH = 720
)

// Session binds one connection to one Editor. All editor access happens on
// the read loop goroutine; the editor's own mutex covers the autosave timer.
type Session struct {
	ID      string
	ed      *editor.Editor
	lib     *library.Service
	docID   string
	userID  string
	send    chan []byte
	render  chan struct{} // coalesced render wakeups, capacity 1
	lastHS  HistoryStatePayload
	lastGds []snap.Guide
}

// New builds a session around an already-loaded document. saveDebounce <= 0
// falls back to DefaultSaveDebounce.
func New(lib *library.Service, docID, userID, name string, version int64, doc *document.DocumentModel, saveDebounce time.Duration) *Session {
	if saveDebounce <= 0 {
		saveDebounce = DefaultSaveDebounce
	}
	s := &Session{
		ID:     typeid.NewSessionID(),
		lib:    lib,
		docID:  docID,
		userID: userID,
		send:   make(chan []byte, 256),
		render: make(chan struct{}, 1),
	}

	vp := camera.Viewport{Width: defaultViewportW, Height: defaultViewportH, PixelRatio: 1}
	s.ed = editor.New(doc, vp, saveDebounce)
	s.ed.SetOnInvalidate(func() {
		select {
		case s.render <- struct{}{}:
		default:
		}
	})
	s.ed.SetOnSave(func(d *document.DocumentModel) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		v, err := lib.Save(ctx, docID, userID, d)
		if err != nil {
			slog.Error("autosave failed", "docId", docID, "error", err)
			return
		}
		s.enqueue(TypeSaved, SavedPayload{Version: v})
	})

	s.lastHS.CanUndo, s.lastHS.CanRedo = s.ed.HistoryState()

	body, err := document.Serialize(doc)
	if err != nil {
		slog.Error("serialize welcome document", "docId", docID, "error", err)
		body = []byte("null")
	}
	s.enqueue(TypeWelcome, WelcomePayload{
		SessionID: s.ID,
		DocID:     docID,
		Name:      name,
		Version:   version,
		Document:  body,
		Camera:    s.ed.CameraState(),
		Tool:      s.ed.ActiveTool(),
	})
	// Prime one render so the client draws before the first edit.
	s.render <- struct{}{}
	return s
}

// Run drives the read pump until the connection drops, with the write pump
// on a separate goroutine. It flushes a final save on exit.
func (s *Session) Run(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writePump(ctx, conn)
	s.readPump(ctx, conn)

	s.ed.Close()
	s.flushSave()
}

func (s *Session) readPump(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("session read", "docId", s.docID, "error", err)
			return
		}
		s.Handle(data)
	}
}

func (s *Session) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				slog.Debug("session write", "docId", s.docID, "error", err)
				return
			}

		case <-s.render:
			pkt := s.ed.Render()
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			data, err := encode(TypeRender, RenderPayload{Packet: pkt})
			if err == nil {
				err = conn.Write(writeCtx, websocket.MessageText, data)
			}
			cancel()
			if err != nil {
				slog.Debug("session render write", "docId", s.docID, "error", err)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Handle processes one inbound wire message.
func (s *Session) Handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError("invalid message")
		return
	}

	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp, TypePointerCancel:
		ev, err := decodePointer(msg.Payload)
		if err != nil {
			s.sendError("invalid pointer payload")
			return
		}
		s.dispatchPointer(msg.Type, ev)

	case TypeWheel:
		var ev tool.WheelEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			s.sendError("invalid wheel payload")
			return
		}
		s.ed.Wheel(ev)

	case TypeTouch:
		var p TouchPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError("invalid touch payload")
			return
		}
		for _, ch := range p.Changes {
			ev := tool.PointerEvent{ID: ch.ID, Kind: tool.PointerTouch, X: ch.X, Y: ch.Y}
			switch ch.Phase {
			case "down":
				s.ed.PointerDown(ev)
			case "move":
				s.ed.PointerMove(ev)
			case "up":
				s.ed.PointerUp(ev)
			case "cancel":
				s.ed.PointerCancel(ev)
			}
		}

	case TypeKey:
		var ev editor.KeyEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			s.sendError("invalid key payload")
			return
		}
		s.ed.HandleKey(ev)

	case TypeToolSet:
		var p ToolSetPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError("invalid tool payload")
			return
		}
		if err := s.ed.SetTool(p.Tool); err != nil {
			s.sendError(err.Error())
		}

	case TypeHistoryUndo:
		s.ed.UndoEdit()

	case TypeHistoryRedo:
		s.ed.RedoEdit()

	case TypeCameraSet:
		var st camera.State
		if err := json.Unmarshal(msg.Payload, &st); err != nil {
			s.sendError("invalid camera payload")
			return
		}
		s.ed.SetCameraState(st)

	case TypeSelectionSet:
		var p SelectionSetPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError("invalid selection payload")
			return
		}
		cmd := history.NewSetSelection(s.ed.Document(), p.IDs)
		if err := s.ed.ExecuteCommand(cmd); err != nil && !errors.Is(err, history.ErrCommandRejected) {
			s.sendError(err.Error())
		}

	case TypeDocSave:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		v, err := s.lib.Save(ctx, s.docID, s.userID, s.ed.Document())
		cancel()
		if err != nil {
			slog.Error("explicit save failed", "docId", s.docID, "error", err)
			s.sendError("save failed")
			return
		}
		s.enqueue(TypeSaved, SavedPayload{Version: v})

	default:
		s.sendError("unknown message type: " + msg.Type)
	}

	s.pushStateDeltas()
}

func (s *Session) dispatchPointer(msgType string, ev tool.PointerEvent) {
	switch msgType {
	case TypePointerDown:
		s.ed.PointerDown(ev)
	case TypePointerMove:
		s.ed.PointerMove(ev)
	case TypePointerUp:
		s.ed.PointerUp(ev)
	case TypePointerCancel:
		s.ed.PointerCancel(ev)
	}
}

// pushStateDeltas emits history.state and guides messages when they changed
// since the last inbound message, so clients track both without polling.
func (s *Session) pushStateDeltas() {
	var hs HistoryStatePayload
	hs.CanUndo, hs.CanRedo = s.ed.HistoryState()
	if hs != s.lastHS {
		s.lastHS = hs
		s.enqueue(TypeHistoryState, hs)
	}

	gds := s.ed.Guides()
	if !reflect.DeepEqual(gds, s.lastGds) {
		s.lastGds = gds
		if gds == nil {
			gds = []snap.Guide{}
		}
		s.enqueue(TypeGuides, GuidesPayload{Guides: gds})
	}
}

func (s *Session) flushSave() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.lib.Save(ctx, s.docID, s.userID, s.ed.Document()); err != nil {
		slog.Error("final save failed", "docId", s.docID, "error", err)
	}
}

func (s *Session) sendError(msg string) {
	s.enqueue(TypeError, ErrorPayload{Message: msg})
}

func (s *Session) enqueue(msgType string, payload any) {
	data, err := encode(msgType, payload)
	if err != nil {
		slog.Error("encode message", "type", msgType, "error", err)
		return
	}
	select {
	case s.send <- data:
	default:
		slog.Warn("session send buffer full, dropping message",
			"docId", s.docID, "type", msgType)
	}
}
