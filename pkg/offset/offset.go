// Package offset moves polygon edges along the polygon plane while keeping
// every interior angle intact. Moved edges are re-intersected with their
// neighbors as infinite lines, so only edge positions change, never edge
// directions.
package offset

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
)

// inwardNormal returns the unit vector that moves edge i of p toward the
// interior: the edge direction rotated +90° about the plane normal for
// counter-clockwise polygons and -90° otherwise.
func inwardNormal(p geom.Polygon, plane geom.Plane, edge geom.Line) r3.Vec {
	angle := math.Pi / 2
	if p.Orientation(plane) == geom.Clockwise {
		angle = -angle
	}
	return r3.Unit(geom.Rotate(edge.Direction(), angle, plane.Z))
}

func moved(p geom.Polygon, plane geom.Plane, i int, amount float64) geom.Line {
	edge := p.Edge(i)
	if amount == 0 {
		return edge
	}
	return edge.Translate(r3.Scale(amount, inwardNormal(p, plane, edge)))
}

func intersect(a, b geom.Line, corner int) (r3.Vec, error) {
	ta, _, ok := geom.IntersectLines(a, b, geom.IntersectionTolerance)
	if !ok {
		return r3.Vec{}, errors.New(errors.ErrCodeIntersection,
			"offset edges do not intersect at corner %s", geom.CornerKey(corner))
	}
	return a.PointAt(ta), nil
}

// MoveSegment moves edge i of p by amount and re-intersects it with its two
// unmoved neighbors. A positive amount moves the edge toward the interior.
// All corners other than i and i+1 are unchanged.
func MoveSegment(p geom.Polygon, plane geom.Plane, edge int, amount float64) (geom.Polygon, error) {
	n := p.Len()
	if edge < 0 || edge >= n {
		return geom.Polygon{}, errors.New(errors.ErrCodeInvalidInput,
			"edge index %d out of range for %d edges", edge, n)
	}

	m := moved(p, plane, edge, amount)
	start, err := intersect(p.Edge(edge-1), m, edge)
	if err != nil {
		return geom.Polygon{}, err
	}
	end, err := intersect(p.Edge(edge+1), m, geom.Wrap(edge+1, n))
	if err != nil {
		return geom.Polygon{}, err
	}

	pts := p.Corners()
	pts[edge] = start
	pts[geom.Wrap(edge+1, n)] = end
	return geom.NewPolygon(pts)
}

// MoveAllEdges offsets every edge by its own amount and intersects each
// pair of adjacent moved edges in a single pass. amounts must hold exactly
// one value per edge.
func MoveAllEdges(p geom.Polygon, plane geom.Plane, amounts []float64) (geom.Polygon, error) {
	n := p.Len()
	if len(amounts) != n {
		return geom.Polygon{}, errors.New(errors.ErrCodeInvalidInput,
			"got %d offset amounts for %d edges", len(amounts), n)
	}

	edges := make([]geom.Line, n)
	for i := range edges {
		edges[i] = moved(p, plane, i, amounts[i])
	}

	pts := make([]r3.Vec, n)
	for i := range pts {
		pt, err := intersect(edges[geom.Wrap(i-1, n)], edges[i], i)
		if err != nil {
			return geom.Polygon{}, err
		}
		pts[i] = pt
	}
	return geom.NewPolygon(pts)
}

// DraftOffset is the horizontal setback of an edge whose side face meets a
// neighbor at the given dihedral angle, for a slab of thickness t.
func DraftOffset(angle, t float64) float64 {
	return math.Tan(math.Pi-angle/2) * t
}

// DraftOffsets maps per-edge dihedral angles to per-edge draft offsets.
func DraftOffsets(angles []float64, t float64) []float64 {
	out := make([]float64, len(angles))
	for i, a := range angles {
		out[i] = DraftOffset(a, t)
	}
	return out
}

// DraftAngleOffset produces the outline one slab of thickness d below p:
// every edge is set back by its draft offset, then the result is moved by
// -d along the plane normal.
func DraftAngleOffset(p geom.Polygon, plane geom.Plane, angles []float64, d float64) (geom.Polygon, error) {
	inner, err := MoveAllEdges(p, plane, DraftOffsets(angles, d))
	if err != nil {
		return geom.Polygon{}, err
	}
	return inner.Translate(r3.Scale(-d, plane.Z)), nil
}
