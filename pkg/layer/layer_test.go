package layer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
)

var up = geom.Vec(0, 0, 1)

func square() geom.Polygon {
	return geom.MustPolygon(geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(1, 1, 0), geom.Vec(0, 1, 0))
}

func testSettings() config.GeometrySettings {
	s := config.DefaultGeometry()
	s.BeamMaxWidth = 0.1
	s.BeamThickness = 0.05
	return s
}

func TestBeamID(t *testing.T) {
	assert.Equal(t, "north_B0a", BeamID("north", 0, 0))
	assert.Equal(t, "north_B2d", BeamID("north", 2, 3))
	assert.Equal(t, "p_B1aa", BeamID("p", 1, 26))
}

func TestBuildSquareLevelZero(t *testing.T) {
	l, err := Build("sq", 0, square(), up, make([]float64, 4), testSettings())
	require.NoError(t, err)

	beams, err := l.CreateBeams()
	require.NoError(t, err)
	require.Len(t, beams, 4)

	first := beams[0].Outline
	want := []r3.Vec{geom.Vec(0.1, 0, 0), geom.Vec(1, 0, 0), geom.Vec(1, 0.1, 0), geom.Vec(0.1, 0.1, 0)}
	for i, w := range want {
		assert.True(t, geom.Near(w, first.Corner(i), 1e-9), "corner %d: %v", i, first.Corner(i))
	}

	for i, b := range beams {
		assert.Equal(t, BeamID("sq", 0, i), b.ID)
		assert.Equal(t, 4, b.Outline.Len())
		assert.Equal(t, geom.CounterClockwise, b.Outline.Orientation(l.Plane))

		// Planar: every corner at the outline height.
		for _, c := range b.Outline.Corners() {
			assert.InDelta(t, 0, c.Z, 1e-12)
		}
		// The inner corner lies strictly inside the panel.
		assert.True(t, square().Contains(b.Outline.Corner(3), geom.WorldXY), "beam %d inner corner", i)
		// Lateral corners: the start stays on the edge side of the diagonal
		// through corner i, the far end reaches past the diagonal through
		// corner i+1 into the next beam's quarter.
		center := geom.Vec(0.5, 0.5, 0)
		start, end := square().Corner(i), square().Corner(i+1)
		assert.Less(t, side(start, center, b.Outline.Corner(0)), -1e-9, "beam %d corner 0", i)
		assert.Less(t, side(end, center, b.Outline.Corner(2)), -1e-9, "beam %d corner 2", i)
		assert.Greater(t, side(end, center, edge(i).Midpoint()), 0.0)
		// The first segment lies on panel edge i.
		e := edge(i)
		seg := b.Outline.Edge(0)
		for _, pt := range []r3.Vec{seg.From, seg.To} {
			foot := e.PointAt(e.ClosestParameter(pt))
			assert.InDelta(t, 0, r3.Norm(r3.Sub(pt, foot)), 1e-9, "beam %d first segment", i)
		}
	}
}

func TestSquareBeamsAreRotationSymmetric(t *testing.T) {
	for _, level := range []int{0, 1} {
		l, err := Build("sq", level, square(), up, make([]float64, 4), testSettings())
		require.NoError(t, err)
		beams, err := l.CreateBeams()
		require.NoError(t, err)

		center := geom.Vec(0.5, 0.5, 0)
		for i := range beams {
			next := beams[(i+1)%4].Outline
			for j, c := range beams[i].Outline.Corners() {
				rotated := r3.Add(center, geom.Rotate(r3.Sub(c, center), math.Pi/2, up))
				assert.True(t, geom.Near(rotated, next.Corner(j), 1e-9),
					"level %d beam %d corner %d: %v vs %v", level, i, j, rotated, next.Corner(j))
			}
		}
	}
}

func TestOddLevelMirrorsAssembly(t *testing.T) {
	l, err := Build("sq", 1, square(), up, make([]float64, 4), testSettings())
	require.NoError(t, err)
	beams, err := l.CreateBeams()
	require.NoError(t, err)

	// Odd courses start at the corner and stop short of the next one.
	o := l.Inflection.At(0).Offset
	first := beams[0].Outline
	want := []r3.Vec{geom.Vec(0, 0, 0), geom.Vec(1-o, 0, 0), geom.Vec(1-o, o, 0), geom.Vec(0, o, 0)}
	for i, w := range want {
		assert.True(t, geom.Near(w, first.Corner(i), 1e-9), "corner %d: %v", i, first.Corner(i))
	}
}

func TestBeamAnglesFollowParity(t *testing.T) {
	dihedral := []float64{0.1, 0.2, 0.3, 0.4}
	even, err := Build("p", 0, square(), up, dihedral, testSettings())
	require.NoError(t, err)
	beams, err := even.CreateBeams()
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0.1, 0.2, 0, 0}, beams[0].Angles)
	assert.Equal(t, [4]float64{0.4, 0.1, 0, 0}, beams[3].Angles)

	odd, err := Build("p", 1, square(), up, dihedral, testSettings())
	require.NoError(t, err)
	beams, err = odd.CreateBeams()
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0.1, 0, 0, 0.4}, beams[0].Angles)
	assert.Equal(t, [4]float64{0.3, 0, 0, 0.2}, beams[2].Angles)
}

func TestBeamPlane(t *testing.T) {
	l, err := Build("sq", 0, square(), up, make([]float64, 4), testSettings())
	require.NoError(t, err)
	beams, err := l.CreateBeams()
	require.NoError(t, err)

	p := beams[1].Plane
	assert.True(t, geom.Near(p.X, geom.Vec(0, 1, 0), 1e-9), "x %v", p.X)
	assert.True(t, geom.Near(p.Z, up, 1e-9), "z %v", p.Z)
	assert.True(t, geom.Near(p.Origin, beams[1].Outline.Centroid(), 1e-12))
}

func TestBuildCassette(t *testing.T) {
	layers, err := BuildCassette("sq", square(), up, make([]float64, 4), testSettings())
	require.NoError(t, err)
	require.Len(t, layers, Levels)

	for i, l := range layers {
		assert.Equal(t, i, l.Level)
		assert.InDelta(t, -0.05*float64(i), l.Top.Corner(0).Z, 1e-12)
		assert.InDelta(t, -0.05*float64(i+1), l.Bottom.Corner(0).Z, 1e-12)
	}

	// Each layer starts where the previous one ends and stays within it.
	for i := 1; i < Levels; i++ {
		prev := layers[i-1].Bottom
		for j, c := range layers[i].Top.Corners() {
			assert.True(t, geom.Near(prev.Corner(j), c, 1e-9))
		}
		for _, c := range layers[i].Bottom.Corners() {
			assert.True(t, within(prev, c), "level %d bottom corner %v", i, c)
		}
		beams, err := layers[i].CreateBeams()
		require.NoError(t, err)
		for _, b := range beams {
			for _, c := range b.Outline.Corners() {
				assert.True(t, within(prev, c), "beam %s corner %v", b.ID, c)
			}
		}
	}
}

func edge(i int) geom.Line { return square().Edge(i) }

// side is the z component of (to-from) x (pt-from): negative right of the
// line from -> to when seen from +z.
func side(from, to, pt r3.Vec) float64 {
	return r3.Cross(r3.Sub(to, from), r3.Sub(pt, from)).Z
}

// within reports whether pt lies inside p or on its boundary, in plan.
func within(p geom.Polygon, pt r3.Vec) bool {
	if p.Contains(pt, geom.WorldXY) {
		return true
	}
	flat := r3.Vec{X: pt.X, Y: pt.Y, Z: p.Corner(0).Z}
	for _, e := range p.Edges() {
		t := math.Max(0, math.Min(1, e.ClosestParameter(flat)))
		if r3.Norm(r3.Sub(flat, e.PointAt(t))) < 1e-9 {
			return true
		}
	}
	return false
}

func TestBuildCassetteSetsBackDeeperLevels(t *testing.T) {
	dihedral := []float64{3 * math.Pi / 2, 3 * math.Pi / 2, 3 * math.Pi / 2, 3 * math.Pi / 2}
	layers, err := BuildCassette("sq", square(), up, dihedral, testSettings())
	require.NoError(t, err)
	require.Len(t, layers, Levels)

	for i := 1; i < Levels; i++ {
		assert.Less(t, layers[i].Top.Area(), layers[i-1].Top.Area())
		for _, c := range layers[i].Top.Corners() {
			assert.True(t, layers[i-1].Top.Contains(c, geom.WorldXY), "level %d corner %v", i, c)
		}
		for _, c := range layers[i].Bottom.Corners() {
			assert.True(t, layers[i-1].Bottom.Contains(c, geom.WorldXY), "level %d bottom corner %v", i, c)
		}
	}
}

func TestBuildCassetteStopsAtFailedLevel(t *testing.T) {
	// Edges a and b are collinear, so the bottom outline of level 0 fails.
	outline := geom.MustPolygon(geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(2, 0, 0), geom.Vec(1, 1, 0))
	layers, err := BuildCassette("bad", outline, up, make([]float64, 4), testSettings())
	require.Error(t, err)
	assert.Empty(t, layers)
	assert.True(t, errors.Is(err, errors.ErrCodeIntersection), "got %v", err)
	assert.Contains(t, err.Error(), "bad level 0")
}

func TestBuildRejectsDegenerateOutline(t *testing.T) {
	outline := geom.MustPolygon(geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(2, 0, 0), geom.Vec(1, 1, 0))
	_, err := Build("bad", 0, outline, up, make([]float64, 4), testSettings())
	require.Error(t, err)
}
