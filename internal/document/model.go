package document

import (
	"time"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

// SchemaVersion is the current on-disk document schema version.
const SchemaVersion = 2

type NodeKind string

const (
	KindFrame     NodeKind = "frame"
	KindRectangle NodeKind = "rectangle"
	KindEllipse   NodeKind = "ellipse"
	KindLine      NodeKind = "line"
	KindText      NodeKind = "text"
	KindGroup     NodeKind = "group"
)

// ShapeStyle covers filled shapes: frames, rectangles and ellipses.
type ShapeStyle struct {
	Fill         string  `json:"fill"`
	Stroke       string  `json:"stroke"`
	StrokeWidth  float64 `json:"strokeWidth"`
	CornerRadius float64 `json:"cornerRadius,omitempty"`
}

type LineStyle struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

type TextStyle struct {
	Fill       string  `json:"fill"`
	FontFamily string  `json:"fontFamily"`
	FontSize   float64 `json:"fontSize"`
	Content    string  `json:"content"`
}

// Style is a closed per-kind union: exactly the member matching the node's
// kind is set. Groups carry no visual style of their own.
type Style struct {
	Shape *ShapeStyle `json:"shape,omitempty"`
	Line  *LineStyle  `json:"line,omitempty"`
	Text  *TextStyle  `json:"text,omitempty"`
}

// DefaultStyle returns the style defaults for a node kind.
func DefaultStyle(kind NodeKind) Style {
	switch kind {
	case KindFrame:
		return Style{Shape: &ShapeStyle{Fill: "#ffffff", Stroke: "#d0d0d0", StrokeWidth: 1}}
	case KindRectangle, KindEllipse:
		return Style{Shape: &ShapeStyle{Fill: "#d9d9d9"}}
	case KindLine:
		return Style{Line: &LineStyle{Stroke: "#111111", StrokeWidth: 1}}
	case KindText:
		return Style{Text: &TextStyle{Fill: "#111111", FontFamily: "Inter", FontSize: 14}}
	default:
		return Style{}
	}
}

func (s Style) clone() Style {
	var out Style
	if s.Shape != nil {
		c := *s.Shape
		out.Shape = &c
	}
	if s.Line != nil {
		c := *s.Line
		out.Line = &c
	}
	if s.Text != nil {
		c := *s.Text
		out.Text = &c
	}
	return out
}

// SceneNode is one node of the scene tree. Nodes are treated as immutable
// once inserted into a DocumentModel: edits copy the node (and the document's
// node table) rather than mutating in place, so older document versions held
// by the undo stack stay valid.
type SceneNode struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	ParentID string   `json:"parentId,omitempty"`
	ChildIDs []string `json:"childIds,omitempty"`

	// Transform maps local space into the parent's space.
	Transform geom.Mat3 `json:"-"`
	// Bounds is the node's own extent in local space.
	Bounds geom.Rect `json:"bounds"`

	// TransformVersion increments whenever this node's transform, or any
	// ancestor's, changes. World-space caches key on it instead of
	// re-walking the ancestor chain to detect staleness.
	TransformVersion uint64 `json:"-"`

	ZIndex  int     `json:"zIndex"`
	Style   Style   `json:"style"`
	Visible bool    `json:"visible"`
	Locked  bool    `json:"locked"`
	Opacity float64 `json:"opacity"`
}

// Clone returns a copy safe to mutate: the child id slice and style members
// are duplicated, the rest is value state.
func (n *SceneNode) Clone() *SceneNode {
	c := *n
	c.ChildIDs = append([]string(nil), n.ChildIDs...)
	c.Style = n.Style.clone()
	return &c
}

// Metadata is document bookkeeping persisted alongside the node table.
type Metadata struct {
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// DocumentModel is one immutable version of an open document. Mutation goes
// through commands, which produce a new model; the node table is copied
// shallowly and only edited nodes are replaced.
type DocumentModel struct {
	SchemaVersion int                   `json:"schemaVersion"`
	ID            string                `json:"id"`
	RootID        string                `json:"rootId"`
	Nodes         map[string]*SceneNode `json:"nodes"`
	Selection     []string              `json:"selection"`
	Metadata      Metadata              `json:"metadata"`
}

// NewEmptyDocument creates a document holding only the reserved root frame.
// The root is never listed, hit-tested or indexed.
func NewEmptyDocument(name string) *DocumentModel {
	now := time.Now().UTC().Format(time.RFC3339)
	rootID := typeid.NewNodeID()
	return &DocumentModel{
		SchemaVersion: SchemaVersion,
		ID:            typeid.NewDocumentID(),
		RootID:        rootID,
		Nodes: map[string]*SceneNode{
			rootID: {
				ID:        rootID,
				Kind:      KindFrame,
				Transform: geom.Identity(),
				Style:     DefaultStyle(KindFrame),
				Visible:   true,
				Opacity:   1,
			},
		},
		Selection: []string{},
		Metadata:  Metadata{Name: name, CreatedAt: now, UpdatedAt: now},
	}
}

// CloneShallow copies the document with a fresh node table sharing all node
// pointers. Callers replace the nodes they edit with Clone()d copies; the
// untouched rest of the tree is shared between versions.
func (d *DocumentModel) CloneShallow() *DocumentModel {
	nodes := make(map[string]*SceneNode, len(d.Nodes))
	for id, n := range d.Nodes {
		nodes[id] = n
	}
	c := *d
	c.Nodes = nodes
	c.Selection = append([]string(nil), d.Selection...)
	return &c
}

// Node returns the node with the given id, or nil.
func (d *DocumentModel) Node(id string) *SceneNode {
	return d.Nodes[id]
}

// Touch updates the modification timestamp.
func (d *DocumentModel) Touch() {
	d.Metadata.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}
