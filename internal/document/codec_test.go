package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeapp/lattice/backend-go/internal/geom"
)

func TestSerializeRoundTrip(t *testing.T) {
	assert := assert.New(t)
	d := NewSampleDocument("roundtrip")
	d.Selection = []string{d.Node(d.RootID).ChildIDs[0]}

	data, err := Serialize(d)
	require.NoError(t, err)

	d2, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(d.ID, d2.ID)
	assert.Equal(d.RootID, d2.RootID)
	assert.Equal(d.SchemaVersion, d2.SchemaVersion)
	assert.Equal(d.Selection, d2.Selection)
	assert.Equal(d.Metadata, d2.Metadata)
	assert.Len(d2.Nodes, len(d.Nodes))

	for id, n := range d.Nodes {
		n2 := d2.Node(id)
		require.NotNil(t, n2, "node %s lost in round trip", id)
		assert.Equal(n.Kind, n2.Kind)
		assert.Equal(n.ParentID, n2.ParentID)
		assert.Equal(n.ChildIDs, n2.ChildIDs)
		assert.Equal(n.Transform, n2.Transform)
		assert.Equal(n.Bounds, n2.Bounds)
		assert.Equal(n.ZIndex, n2.ZIndex)
		assert.Equal(n.Style, n2.Style)
	}

	// Canonical form is stable across a second trip.
	data2, err := Serialize(d2)
	require.NoError(t, err)
	d3, err := Deserialize(data2)
	require.NoError(t, err)
	data3, err := Serialize(d3)
	require.NoError(t, err)
	assert.JSONEq(string(data2), string(data3))
}

func TestTransformSerializesAsNineElements(t *testing.T) {
	d := NewEmptyDocument("mat")
	root := d.Nodes[d.RootID]
	root.Transform = geom.Translation(3, 4)

	data, err := Serialize(d)
	require.NoError(t, err)

	var raw struct {
		Nodes map[string]struct {
			Transform []float64 `json:"transform"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))

	tr := raw.Nodes[d.RootID].Transform
	require.Len(t, tr, 9)
	// Row-major: translation lands at indices 2 and 5.
	assert.Equal(t, 3.0, tr[2])
	assert.Equal(t, 4.0, tr[5])
}

func TestDeserializeRejectsBrokenLinks(t *testing.T) {
	d := NewSampleDocument("broken")
	// Corrupt: drop a child from its parent's child list.
	root := d.Nodes[d.RootID]
	frame := d.Nodes[root.ChildIDs[0]]
	victim := frame.ChildIDs[0]
	frame.ChildIDs = frame.ChildIDs[1:]

	data, err := Serialize(d)
	require.NoError(t, err)

	_, err = Deserialize(data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), victim)
}

func TestDeserializeUnknownVersionFails(t *testing.T) {
	d := NewEmptyDocument("future")
	d.SchemaVersion = 99

	data, err := Serialize(d)
	require.NoError(t, err)

	_, err = Deserialize(data)
	assert.ErrorIs(t, err, ErrMigrationPath)
}

func TestMigrateV1StyleBag(t *testing.T) {
	assert := assert.New(t)

	v1 := `{
		"schemaVersion": 1,
		"id": "doc_legacy",
		"rootId": "node_root",
		"nodes": {
			"node_root": {
				"id": "node_root", "kind": "frame",
				"childIds": ["node_r1"],
				"transform": [1,0,0,0,1,0,0,0,1],
				"bounds": {"x":0,"y":0,"w":0,"h":0},
				"zIndex": 0, "fill": "#ffffff", "stroke": "", "strokeWidth": 0,
				"visible": true, "locked": false, "opacity": 1
			},
			"node_r1": {
				"id": "node_r1", "kind": "rectangle", "parentId": "node_root",
				"transform": [1,0,10,0,1,20,0,0,1],
				"bounds": {"x":0,"y":0,"w":50,"h":50},
				"zIndex": 1, "fill": "#ff0000", "stroke": "#000000", "strokeWidth": 2,
				"visible": true, "locked": false, "opacity": 1
			}
		},
		"selection": [],
		"metadata": {"name":"legacy","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}
	}`

	d, err := Deserialize([]byte(v1))
	require.NoError(t, err)

	assert.Equal(SchemaVersion, d.SchemaVersion)
	r1 := d.Node("node_r1")
	require.NotNil(t, r1)
	require.NotNil(t, r1.Style.Shape)
	assert.Equal("#ff0000", r1.Style.Shape.Fill)
	assert.Equal("#000000", r1.Style.Shape.Stroke)
	assert.Equal(2.0, r1.Style.Shape.StrokeWidth)
	assert.Equal(geom.Translation(10, 20), r1.Transform)
}
