package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/latticeapp/lattice/backend-go/internal/auth"
	"github.com/latticeapp/lattice/backend-go/internal/library"
)

// Handler upgrades /ws/session/{docId} requests into editor sessions.
type Handler struct {
	lib            *library.Service
	authService    *auth.Service
	originPatterns []string
	saveDebounce   time.Duration
}

func NewHandler(lib *library.Service, authService *auth.Service, originPatterns []string, saveDebounce time.Duration) *Handler {
	return &Handler{
		lib:            lib,
		authService:    authService,
		originPatterns: originPatterns,
		saveDebounce:   saveDebounce,
	}
}

// Serve authenticates via the token query parameter (browsers cannot set
// headers on WebSocket requests), loads the document and hands the
// connection to a Session.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["docId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.authService.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	meta, doc, err := h.lib.Get(r.Context(), docID, userID)
	if err != nil {
		switch err {
		case library.ErrNotFound:
			http.Error(w, "document not found", http.StatusNotFound)
		case library.ErrForbidden:
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			slog.Error("load document for session", "docId", docID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	connID := uuid.New().String()
	sess := New(h.lib, docID, userID, meta.Name, meta.Version, doc, h.saveDebounce)
	slog.Info("session started", "sessionId", sess.ID, "connId", connID, "docId", docID, "userId", userID)
	sess.Run(r.Context(), conn)
	slog.Info("session closed", "sessionId", sess.ID, "connId", connID, "docId", docID)
}
