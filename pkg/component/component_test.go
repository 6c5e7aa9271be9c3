package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel/sdfx"
	"github.com/chazu/cassette/pkg/layer"
	"github.com/chazu/cassette/pkg/sawtooth"
	"github.com/chazu/cassette/pkg/topology"
)

func squarePanel(t *testing.T) *topology.Panel {
	t.Helper()
	topo, err := topology.Build([]topology.PanelSpec{{
		Name:   "sq",
		Points: [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	}})
	require.NoError(t, err)
	require.Len(t, topo.Panels, 1)
	return topo.Panels[0]
}

func beams(t *testing.T, p *topology.Panel, s config.GeometrySettings) [][]*Beam {
	t.Helper()
	layers, err := layer.BuildCassette(p.Name, p.Outline, p.Normal(), p.Dihedral, s)
	require.NoError(t, err)
	out := make([][]*Beam, len(layers))
	for i, l := range layers {
		outlines, err := l.CreateBeams()
		require.NoError(t, err)
		for _, o := range outlines {
			b, err := NewBeam(p.Name, o, s.BeamThickness)
			require.NoError(t, err)
			out[i] = append(out[i], b)
		}
	}
	return out
}

func TestIDs(t *testing.T) {
	assert.Equal(t, "north_B0a", BeamID("north", 0, 0))
	assert.Equal(t, "north_B2c", BeamID("north", 2, 2))
	assert.Equal(t, "north_P", PlateID("north"))
	assert.Equal(t, "north_DC", DowelID("north", 2))
	assert.Equal(t, "east x north", JointID("north", "east"))
	assert.Equal(t, "east x north", JointID("east", "north"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("beam")
	require.NoError(t, err)
	assert.Equal(t, KindBeam, k)

	_, err = ParseKind("screw")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestNewBeam(t *testing.T) {
	s := config.DefaultGeometry()
	p := squarePanel(t)
	all := beams(t, p, s)
	require.Len(t, all, layer.Levels)

	b := all[0][0]
	assert.Equal(t, "sq_B0a", b.ID)
	assert.Equal(t, "sq", b.PanelName())
	assert.False(t, b.Detailed())
	require.Equal(t, 4, b.Bottom.Len())
	// Without neighbors every side drops straight down.
	for i := 0; i < 4; i++ {
		want := r3.Add(b.Top.Corner(i), geom.Vec(0, 0, -s.BeamThickness))
		assert.True(t, geom.Near(want, b.Bottom.Corner(i), 1e-9), "corner %d: %v", i, b.Bottom.Corner(i))
	}
}

func TestBeamVolume(t *testing.T) {
	s := config.DefaultGeometry()
	b := beams(t, squarePanel(t), s)[1][2]

	solid, err := b.Volume(sdfx.New(sdfx.WithMeshCells(16)))
	require.NoError(t, err)
	min, max := solid.BoundingBox()
	assert.InDelta(t, -2*s.BeamThickness, min[2], 1e-9)
	assert.InDelta(t, -s.BeamThickness, max[2], 1e-9)
}

func TestRecordRoundTrip(t *testing.T) {
	s := config.DefaultGeometry()
	b := beams(t, squarePanel(t), s)[0][1]
	b.Detail = &BeamDetail{
		Joint:      "a x sq",
		Top:        sawtooth.Detail{Edge: 0, Points: []r3.Vec{geom.Vec(0, 0, 0), geom.Vec(1, 0, 0)}},
		ToothCount: 5,
		Flipped:    true,
		Radius:     0.004,
	}

	rec, err := NewRecord(b, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "sq_B0b", rec.ID)
	assert.Equal(t, KindBeam, rec.Kind)
	assert.Equal(t, "sq", rec.Panel)
	assert.Equal(t, "run-1", rec.RunID)

	got, err := As[*Beam](rec)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, b.Angles, got.Angles)
	require.True(t, got.Detailed())
	assert.Equal(t, 5, got.Detail.ToothCount)
	assert.True(t, got.Detail.Flipped)
	for i := 0; i < 4; i++ {
		assert.True(t, geom.Near(b.Top.Corner(i), got.Top.Corner(i), 0))
	}

	_, err = As[*Plate](rec)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	rec.Kind = "screw"
	_, err = Decode(rec)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestPanelRecord(t *testing.T) {
	s := config.DefaultGeometry()
	p := squarePanel(t)
	layers, err := layer.BuildCassette(p.Name, p.Outline, p.Normal(), p.Dihedral, s)
	require.NoError(t, err)

	rec, err := NewRecord(NewPanel(p, layers), "run-1")
	require.NoError(t, err)
	got, err := As[*Panel](rec)
	require.NoError(t, err)
	assert.Equal(t, "sq", got.ComponentID())
	require.Len(t, got.Layers, layer.Levels)
	assert.InDelta(t, -3*s.BeamThickness, got.Layers[2].Bottom.Corner(0).Z, 1e-9)
}

func TestNewPlate(t *testing.T) {
	s := config.DefaultGeometry()
	p := squarePanel(t)
	plate, err := NewPlate(p, s)
	require.NoError(t, err)

	assert.Equal(t, "sq_P", plate.ID)
	assert.InDelta(t, -3*s.BeamThickness, plate.Top.Corner(0).Z, 1e-9)
	assert.InDelta(t, -3*s.BeamThickness-s.PlateThickness, plate.Bottom.Corner(0).Z, 1e-9)
	assert.True(t, geom.Near(plate.Top.Centroid(), plate.Plane.Origin, 1e-12))

	solid, err := plate.Volume(sdfx.New(sdfx.WithMeshCells(16)))
	require.NoError(t, err)
	min, max := solid.BoundingBox()
	assert.InDelta(t, -3*s.BeamThickness-s.PlateThickness, min[2], 1e-9)
	assert.InDelta(t, -3*s.BeamThickness, max[2], 1e-9)
}

func TestPlateSetDetail(t *testing.T) {
	s := config.DefaultGeometry()
	plate, err := NewPlate(squarePanel(t), s)
	require.NoError(t, err)

	p := sawtooth.Params{Depth: s.SawtoothDepth, Width: s.SawtoothWidth, Safety: s.SawtoothSafety}
	detail := func(edge int, flip bool) PlateDetail {
		p.Flip = flip
		top, n, err := sawtooth.DetailEdge(plate.Top.Edge(edge), edge, plate.Plane.Z, p)
		require.NoError(t, err)
		bottom, _, err := sawtooth.DetailEdge(plate.Bottom.Edge(edge), edge, plate.Plane.Z, p)
		require.NoError(t, err)
		return PlateDetail{Joint: "j", Top: top, Bottom: bottom, ToothCount: n, Flipped: flip}
	}

	require.NoError(t, plate.SetDetail(detail(2, false)))
	require.NoError(t, plate.SetDetail(detail(0, false)))
	require.NoError(t, plate.SetDetail(detail(2, true)))
	require.Len(t, plate.Details, 2)
	assert.Equal(t, 0, plate.Details[0].Top.Edge)
	assert.True(t, plate.Details[1].Flipped)

	bad := detail(1, false)
	bad.Bottom.Edge = 3
	assert.True(t, errors.Is(plate.SetDetail(bad), errors.ErrCodeInvalidInput))

	top, bottom, err := plate.DetailedCurves(sdfx.New())
	require.NoError(t, err)
	assert.Greater(t, top.Len(), plate.Top.Len()+len(plate.Details[0].Top.Points))
	assert.Greater(t, bottom.Len(), plate.Bottom.Len())

	solid, err := plate.Volume(sdfx.New(sdfx.WithMeshCells(16)))
	require.NoError(t, err)
	min, _ := solid.BoundingBox()
	// Outward teeth on edge a reach past y=0.
	assert.Less(t, min[1], -s.SawtoothDepth/2)
}

func TestNewDowel(t *testing.T) {
	s := config.DefaultGeometry()
	p := squarePanel(t)
	bottom := beams(t, p, s)[2]

	d, err := NewDowel(p, 1, bottom[0], bottom[1], s)
	require.NoError(t, err)
	assert.Equal(t, "sq_DB", d.ID)
	assert.Equal(t, [2]string{"sq_B2a", "sq_B2b"}, d.Beams)
	assert.InDelta(t, 3*s.BeamThickness+s.PlateThickness/2, d.Height, 1e-12)

	// Midway between corner B and its inner inflection point.
	w := s.BeamMaxWidth
	assert.InDelta(t, 1-w/2, d.Plane.Origin.X, 1e-9)
	assert.InDelta(t, w/2, d.Plane.Origin.Y, 1e-9)
	assert.InDelta(t, -3*s.BeamThickness-s.PlateThickness/2, d.Plane.Origin.Z, 1e-9)

	solid, err := d.Volume(sdfx.New(sdfx.WithMeshCells(16)))
	require.NoError(t, err)
	min, max := solid.BoundingBox()
	assert.InDelta(t, d.Plane.Origin.Z, min[2], 1e-9)
	assert.InDelta(t, 0, max[2], 1e-9)
}
