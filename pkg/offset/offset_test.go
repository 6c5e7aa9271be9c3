package offset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
)

func square() geom.Polygon {
	return geom.MustPolygon(geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(1, 1, 0), geom.Vec(0, 1, 0))
}

func pentagon() geom.Polygon {
	pts := make([]r3.Vec, 5)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / 5
		pts[i] = geom.Vec(math.Cos(a), math.Sin(a), 0.5)
	}
	return geom.MustPolygon(pts...)
}

func assertPolygonNear(t *testing.T, want, got geom.Polygon, tol float64) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		assert.True(t, geom.Near(want.Corner(i), got.Corner(i), tol),
			"corner %d: want %v, got %v", i, want.Corner(i), got.Corner(i))
	}
}

func cornerAngles(p geom.Polygon) []float64 {
	out := make([]float64, p.Len())
	for i := range out {
		cur := p.Corner(i)
		out[i] = geom.VectorAngle(r3.Sub(p.Corner(i+1), cur), r3.Sub(p.Corner(i-1), cur), geom.WorldXY.Z)
	}
	return out
}

func TestMoveAllEdgesZeroIsIdentity(t *testing.T) {
	tests := []struct {
		name string
		poly geom.Polygon
	}{
		{"square", square()},
		{"square clockwise", square().Reverse()},
		{"pentagon", pentagon()},
		{"triangle", geom.MustPolygon(geom.Vec(0, 0, 0), geom.Vec(3, 0, 0), geom.Vec(1, 2, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MoveAllEdges(tt.poly, geom.WorldXY, make([]float64, tt.poly.Len()))
			require.NoError(t, err)
			assertPolygonNear(t, tt.poly, got, 1e-9)
		})
	}
}

func TestMoveSegmentInward(t *testing.T) {
	got, err := MoveSegment(square(), geom.WorldXY, 0, 0.1)
	require.NoError(t, err)
	want := geom.MustPolygon(geom.Vec(0, 0.1, 0), geom.Vec(1, 0.1, 0), geom.Vec(1, 1, 0), geom.Vec(0, 1, 0))
	assertPolygonNear(t, want, got, 1e-9)

	// A clockwise outline still moves toward its interior.
	cw := square().Reverse()
	got, err = MoveSegment(cw, geom.WorldXY, 0, 0.1)
	require.NoError(t, err)
	want = geom.MustPolygon(geom.Vec(0.1, 0, 0), geom.Vec(0.1, 1, 0), geom.Vec(1, 1, 0), geom.Vec(1, 0, 0))
	assertPolygonNear(t, want, got, 1e-9)
}

func TestMoveSegmentLastEdgeWraps(t *testing.T) {
	got, err := MoveSegment(square(), geom.WorldXY, 3, 0.25)
	require.NoError(t, err)
	want := geom.MustPolygon(geom.Vec(0.25, 0, 0), geom.Vec(1, 0, 0), geom.Vec(1, 1, 0), geom.Vec(0.25, 1, 0))
	assertPolygonNear(t, want, got, 1e-9)
}

func TestMoveSegmentOutOfRange(t *testing.T) {
	_, err := MoveSegment(square(), geom.WorldXY, 4, 0.1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestMoveAllEdgesPreservesAngles(t *testing.T) {
	poly := pentagon()
	amounts := []float64{0.05, 0.1, -0.02, 0.2, 0.0}
	got, err := MoveAllEdges(poly, geom.WorldXY, amounts)
	require.NoError(t, err)

	want := cornerAngles(poly)
	for i, a := range cornerAngles(got) {
		assert.InDelta(t, want[i], a, 1e-9, "corner %d", i)
	}
}

func TestMoveAllEdgesDistances(t *testing.T) {
	amounts := []float64{0.1, 0.2, 0.3, 0.4}
	got, err := MoveAllEdges(square(), geom.WorldXY, amounts)
	require.NoError(t, err)
	want := geom.MustPolygon(geom.Vec(0.4, 0.1, 0), geom.Vec(0.8, 0.1, 0), geom.Vec(0.8, 0.7, 0), geom.Vec(0.4, 0.7, 0))
	assertPolygonNear(t, want, got, 1e-9)
}

func TestMoveAllEdgesCountMismatch(t *testing.T) {
	_, err := MoveAllEdges(square(), geom.WorldXY, []float64{0, 0, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestMoveAllEdgesParallelNeighbors(t *testing.T) {
	// Edges 0 and 1 are collinear, so their moved copies never meet.
	poly := geom.MustPolygon(geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(2, 0, 0), geom.Vec(1, 1, 0))
	_, err := MoveAllEdges(poly, geom.WorldXY, []float64{0.1, 0.1, 0.1, 0.1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeIntersection))
	assert.Contains(t, err.Error(), "corner B")
}

func TestDraftOffset(t *testing.T) {
	assert.InDelta(t, 0, DraftOffset(0, 0.02), 1e-15)
	assert.InDelta(t, -0.02, DraftOffset(math.Pi/2, 0.02), 1e-12)
	assert.InDelta(t, 0.02, DraftOffset(3*math.Pi/2, 0.02), 1e-12)
	assert.Equal(t, []float64{DraftOffset(0.3, 2), DraftOffset(1.2, 2)}, DraftOffsets([]float64{0.3, 1.2}, 2))
}

func TestDraftAngleOffsetFlat(t *testing.T) {
	got, err := DraftAngleOffset(square(), geom.WorldXY, make([]float64, 4), 0.05)
	require.NoError(t, err)
	assertPolygonNear(t, square().Translate(geom.Vec(0, 0, -0.05)), got, 1e-9)
}

func TestDraftAngleOffsetSetsBackEdges(t *testing.T) {
	angles := []float64{3 * math.Pi / 2, 0, 0, 0}
	got, err := DraftAngleOffset(square(), geom.WorldXY, angles, 0.1)
	require.NoError(t, err)
	want := geom.MustPolygon(geom.Vec(0, 0.1, -0.1), geom.Vec(1, 0.1, -0.1), geom.Vec(1, 1, -0.1), geom.Vec(0, 1, -0.1))
	assertPolygonNear(t, want, got, 1e-9)
}
