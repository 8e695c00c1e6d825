package session

import (
	"encoding/json"

	"github.com/latticeapp/lattice/backend-go/internal/camera"
	"github.com/latticeapp/lattice/backend-go/internal/editor"
	"github.com/latticeapp/lattice/backend-go/internal/snap"
	"github.com/latticeapp/lattice/backend-go/internal/tool"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types.
const (
	TypePointerDown   = "pointer.down"
	TypePointerMove   = "pointer.move"
	TypePointerUp     = "pointer.up"
	TypePointerCancel = "pointer.cancel"
	TypeWheel         = "wheel"
	TypeTouch         = "touch"
	TypeKey           = "key"
	TypeToolSet       = "tool.set"
	TypeHistoryUndo   = "history.undo"
	TypeHistoryRedo   = "history.redo"
	TypeCameraSet     = "camera.set"
	TypeSelectionSet  = "selection.set"
	TypeDocSave       = "doc.save"
)

// Outbound message types.
const (
	TypeWelcome      = "welcome"
	TypeRender       = "render"
	TypeGuides       = "guides"
	TypeHistoryState = "history.state"
	TypeSaved        = "saved"
	TypeError        = "error"
)

// TouchPayload is one multi-pointer frame: every touch point that changed,
// in order. Phases map onto the pointer event surface.
type TouchPayload struct {
	Changes []TouchChange `json:"changes"`
}

type TouchChange struct {
	Phase string  `json:"phase"` // down, move, up, cancel
	ID    int64   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type ToolSetPayload struct {
	Tool string `json:"tool"`
}

type SelectionSetPayload struct {
	IDs []string `json:"ids"`
}

type WelcomePayload struct {
	SessionID string          `json:"sessionId"`
	DocID     string          `json:"docId"`
	Name      string          `json:"name"`
	Version   int64           `json:"version"`
	Document  json.RawMessage `json:"document"`
	Camera    camera.State    `json:"camera"`
	Tool      string          `json:"tool"`
}

type RenderPayload struct {
	Packet editor.RenderPacket `json:"packet"`
}

type GuidesPayload struct {
	Guides []snap.Guide `json:"guides"`
}

type HistoryStatePayload struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

type SavedPayload struct {
	Version int64 `json:"version"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Payload: raw})
}

func decodePointer(payload json.RawMessage) (tool.PointerEvent, error) {
	var ev tool.PointerEvent
	err := json.Unmarshal(payload, &ev)
	return ev, err
}
