package document

import (
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

// NewSampleDocument builds a small demo scene: a frame holding two
// rectangles and an ellipse. Handy for first-run sessions and tests.
func NewSampleDocument(name string) *DocumentModel {
	d := NewEmptyDocument(name)
	root := d.Nodes[d.RootID]

	frameID := typeid.NewNodeID()
	frame := &SceneNode{
		ID:        frameID,
		Kind:      KindFrame,
		ParentID:  d.RootID,
		Transform: geom.Translation(100, 100),
		Bounds:    geom.Rect{W: 800, H: 600},
		Style:     DefaultStyle(KindFrame),
		Visible:   true,
		Opacity:   1,
	}

	rect1 := &SceneNode{
		ID:        typeid.NewNodeID(),
		Kind:      KindRectangle,
		ParentID:  frameID,
		Transform: geom.Translation(40, 40),
		Bounds:    geom.Rect{W: 200, H: 120},
		ZIndex:    1,
		Style:     DefaultStyle(KindRectangle),
		Visible:   true,
		Opacity:   1,
	}
	rect2 := &SceneNode{
		ID:        typeid.NewNodeID(),
		Kind:      KindRectangle,
		ParentID:  frameID,
		Transform: geom.Translation(300, 40),
		Bounds:    geom.Rect{W: 160, H: 160},
		ZIndex:    2,
		Style:     DefaultStyle(KindRectangle),
		Visible:   true,
		Opacity:   1,
	}
	ellipse := &SceneNode{
		ID:        typeid.NewNodeID(),
		Kind:      KindEllipse,
		ParentID:  frameID,
		Transform: geom.Translation(120, 260),
		Bounds:    geom.Rect{W: 180, H: 180},
		ZIndex:    3,
		Style:     DefaultStyle(KindEllipse),
		Visible:   true,
		Opacity:   1,
	}

	frame.ChildIDs = []string{rect1.ID, rect2.ID, ellipse.ID}
	root.ChildIDs = []string{frameID}

	d.Nodes[frameID] = frame
	d.Nodes[rect1.ID] = rect1
	d.Nodes[rect2.ID] = rect2
	d.Nodes[ellipse.ID] = ellipse
	return d
}
