package document

import (
	"encoding/json"
	"fmt"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

// wireNode is the serialized form of a SceneNode. The transform travels as a
// 9-element row-major array; the ordering must match geom.Mat3 exactly or
// every child transform in the document silently corrupts.
type wireNode struct {
	ID        string    `json:"id"`
	Kind      NodeKind  `json:"kind"`
	ParentID  string    `json:"parentId,omitempty"`
	ChildIDs  []string  `json:"childIds,omitempty"`
	Transform []float64 `json:"transform"`
	Bounds    geom.Rect `json:"bounds"`
	ZIndex    int       `json:"zIndex"`
	Style     Style     `json:"style"`
	Visible   bool      `json:"visible"`
	Locked    bool      `json:"locked"`
	Opacity   float64   `json:"opacity"`
}

type wireDocument struct {
	SchemaVersion int                 `json:"schemaVersion"`
	ID            string              `json:"id"`
	RootID        string              `json:"rootId"`
	Nodes         map[string]wireNode `json:"nodes"`
	Selection     []string            `json:"selection"`
	Metadata      Metadata            `json:"metadata"`
}

// Serialize encodes a document to its persisted JSON form.
func Serialize(d *DocumentModel) ([]byte, error) {
	w := wireDocument{
		SchemaVersion: d.SchemaVersion,
		ID:            d.ID,
		RootID:        d.RootID,
		Nodes:         make(map[string]wireNode, len(d.Nodes)),
		Selection:     d.Selection,
		Metadata:      d.Metadata,
	}
	if w.Selection == nil {
		w.Selection = []string{}
	}
	for id, n := range d.Nodes {
		w.Nodes[id] = wireNode{
			ID:        n.ID,
			Kind:      n.Kind,
			ParentID:  n.ParentID,
			ChildIDs:  n.ChildIDs,
			Transform: n.Transform.ToSlice(),
			Bounds:    n.Bounds,
			ZIndex:    n.ZIndex,
			Style:     n.Style,
			Visible:   n.Visible,
			Locked:    n.Locked,
			Opacity:   n.Opacity,
		}
	}
	return json.Marshal(w)
}

// Deserialize decodes a persisted document, migrating older schema versions
// forward first. A version with no forward path fails with ErrMigrationPath.
func Deserialize(data []byte) (*DocumentModel, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	raw, err := MigrateRaw(raw)
	if err != nil {
		return nil, err
	}

	migrated, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode migrated document: %w", err)
	}

	var w wireDocument
	if err := json.Unmarshal(migrated, &w); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	d := &DocumentModel{
		SchemaVersion: w.SchemaVersion,
		ID:            w.ID,
		RootID:        w.RootID,
		Nodes:         make(map[string]*SceneNode, len(w.Nodes)),
		Selection:     w.Selection,
		Metadata:      w.Metadata,
	}
	if d.Selection == nil {
		d.Selection = []string{}
	}
	for id, n := range w.Nodes {
		d.Nodes[id] = &SceneNode{
			ID:        n.ID,
			Kind:      n.Kind,
			ParentID:  n.ParentID,
			ChildIDs:  n.ChildIDs,
			Transform: geom.FromSlice(n.Transform),
			Bounds:    n.Bounds,
			ZIndex:    n.ZIndex,
			Style:     n.Style,
			Visible:   n.Visible,
			Locked:    n.Locked,
			Opacity:   n.Opacity,
		}
	}

	if err := validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// validate checks the structural invariants the rest of the system assumes:
// the root exists and parent/child links agree in both directions.
func validate(d *DocumentModel) error {
	if d.RootID == "" {
		return fmt.Errorf("document %s has no root", d.ID)
	}
	if _, ok := d.Nodes[d.RootID]; !ok {
		return fmt.Errorf("document %s: root node %s missing", d.ID, d.RootID)
	}
	for id, n := range d.Nodes {
		if n.ID != id {
			return fmt.Errorf("node table key %s does not match node id %s", id, n.ID)
		}
		if id == d.RootID {
			if n.ParentID != "" {
				return fmt.Errorf("root node %s must not have a parent", id)
			}
		} else {
			parent, ok := d.Nodes[n.ParentID]
			if !ok {
				return fmt.Errorf("node %s references missing parent %s", id, n.ParentID)
			}
			if !containsID(parent.ChildIDs, id) {
				return fmt.Errorf("parent %s does not list child %s", n.ParentID, id)
			}
		}
		for _, childID := range n.ChildIDs {
			child, ok := d.Nodes[childID]
			if !ok {
				return fmt.Errorf("node %s references missing child %s", id, childID)
			}
			if child.ParentID != id {
				return fmt.Errorf("child %s does not point back to parent %s", childID, id)
			}
		}
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
