package editor

import (
	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/history"
)

// KeyEvent is a normalized keyboard event. Key follows the browser's
// KeyboardEvent.key values, lowercased for letters.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Meta  bool   `json:"meta"`
}

func (k KeyEvent) mod() bool { return k.Ctrl || k.Meta }

// HandleKey maps keyboard shortcuts to editor actions. Returns true when
// the event was consumed.
func (e *Editor) HandleKey(ev KeyEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case ev.mod() && ev.Key == "z" && !ev.Shift:
		if e.hist.Undo() {
			e.afterDocChange()
		}
		return true
	case ev.mod() && (ev.Key == "y" || ev.Key == "z" && ev.Shift):
		if e.hist.Redo() {
			e.afterDocChange()
		}
		return true
	case ev.Key == "Delete" || ev.Key == "Backspace":
		sel := e.hist.Document().Selection
		if len(sel) == 0 {
			return false
		}
		e.Dispatch(history.NewRemoveNodes(sel))
		return true
	case ev.Key == "Escape":
		e.router.Cancel()
		return true
	}

	// Single-letter tool shortcuts, Figma-style.
	if !ev.mod() && !ev.Shift {
		if name, ok := toolForKey(ev.Key); ok {
			e.router.SetTool(name)
			return true
		}
	}
	return false
}

func toolForKey(key string) (string, bool) {
	switch key {
	case "v":
		return "select", true
	case "h":
		return "pan", true
	case "r":
		return string(document.KindRectangle), true
	case "o":
		return string(document.KindEllipse), true
	case "f":
		return string(document.KindFrame), true
	}
	return "", false
}
