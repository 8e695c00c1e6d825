// Package history encapsulates every document mutation as a reversible
// command and owns the undo/redo stacks. Commands are the sole path by
// which the scene graph changes.
package history

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/latticeapp/lattice/backend-go/internal/document"
)

// ErrCommandRejected wraps any command application failure. A rejected
// command leaves the document at its prior, valid version and never enters
// history.
var ErrCommandRejected = errors.New("command rejected")

// Command is a reversible, mergeable unit of document mutation. Commands
// carry their own pre/post state so Revert is exact restoration, not a
// recomputation.
type Command interface {
	ID() string
	Name() string
	Apply(doc *document.DocumentModel) (*document.DocumentModel, error)
	Revert(doc *document.DocumentModel) (*document.DocumentModel, error)
	// Merge combines a subsequent command into this one, coalescing e.g.
	// a continuous drag into a single undo step. Returns false when the
	// commands must stay separate history entries.
	Merge(next Command) (Command, bool)
}

// History owns the current document version and the undo/redo stacks.
type History struct {
	doc    *document.DocumentModel
	past   []Command
	future []Command
}

func New(doc *document.DocumentModel) *History {
	return &History{doc: doc}
}

// Document returns the current document version.
func (h *History) Document() *document.DocumentModel { return h.doc }

// Reset replaces the document wholesale and drops both stacks. Used on
// document load, never for edits.
func (h *History) Reset(doc *document.DocumentModel) {
	h.doc = doc
	h.past = nil
	h.future = nil
}

func (h *History) CanUndo() bool { return len(h.past) > 0 }
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Execute applies a command atomically: it either fully applies and enters
// history, or the document stays untouched. Any new edit discards the redo
// branch. If the top of the undo stack accepts a merge, it absorbs the new
// command instead of a fresh entry being pushed.
func (h *History) Execute(cmd Command) error {
	next, err := cmd.Apply(h.doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCommandRejected, cmd.Name(), err)
	}
	h.doc = next
	h.future = nil

	if n := len(h.past); n > 0 {
		if merged, ok := h.past[n-1].Merge(cmd); ok {
			h.past[n-1] = merged
			return nil
		}
	}
	h.past = append(h.past, cmd)
	return nil
}

// Undo reverts the most recent command. No-op when the stack is empty.
func (h *History) Undo() bool {
	n := len(h.past)
	if n == 0 {
		return false
	}
	cmd := h.past[n-1]
	prev, err := cmd.Revert(h.doc)
	if err != nil {
		// Commands carry their prior state; a revert failure is a
		// programming error. Keep the document intact and drop the
		// broken entry so history doesn't wedge.
		slog.Error("undo failed", "command", cmd.Name(), "error", err)
		h.past = h.past[:n-1]
		return false
	}
	h.doc = prev
	h.past = h.past[:n-1]
	h.future = append(h.future, cmd)
	return true
}

// Redo re-applies the most recently undone command.
func (h *History) Redo() bool {
	n := len(h.future)
	if n == 0 {
		return false
	}
	cmd := h.future[n-1]
	next, err := cmd.Apply(h.doc)
	if err != nil {
		slog.Error("redo failed", "command", cmd.Name(), "error", err)
		h.future = h.future[:n-1]
		return false
	}
	h.doc = next
	h.future = h.future[:n-1]
	h.past = append(h.past, cmd)
	return true
}

// Depths reports the sizes of the undo and redo stacks.
func (h *History) Depths() (past, future int) {
	return len(h.past), len(h.future)
}
