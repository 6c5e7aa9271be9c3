// Package inflection computes the auxiliary points placed around every
// polygon corner that beam outlines are assembled from.
//
// For a corner with interior angle θ and setback o, three points are placed
// in a polar frame at the corner whose X axis runs along the outgoing edge:
//
//	c = o / sin(θ/2)
//	γ = π − θ
//	a = c / (2·sin(γ/2))
//
//	right = polar(a, 0)
//	left  = polar(a, θ)
//	inner = polar(c, θ/2)
//
// The inner point lies on the bisector at distance o from both edges.
package inflection

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
)

// DegenerateTolerance is how close (in radians) a corner angle may come to
// 0, π or 2π before it is rejected.
const DegenerateTolerance = 1e-6

// Direction selects one of the three inflection points of a corner.
type Direction int

const (
	Left Direction = iota
	Inner
	Right
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Inner:
		return "inner"
	case Right:
		return "right"
	}
	return "unknown"
}

// Point holds the inflection points of one corner.
type Point struct {
	Corner r3.Vec
	Left   r3.Vec
	Inner  r3.Vec
	Right  r3.Vec
	Angle  float64 // interior corner angle in (0, 2π)
	Offset float64 // setback used for this corner
}

// Get returns the point for direction d.
func (p Point) Get(d Direction) r3.Vec {
	switch d {
	case Left:
		return p.Left
	case Inner:
		return p.Inner
	}
	return p.Right
}

// Map is the immutable set of inflection points for one outline at one
// level, indexed by corner.
type Map struct {
	points []Point
}

// Len returns the number of corners.
func (m Map) Len() int { return len(m.points) }

// At returns the inflection points of corner i, wrapping around.
func (m Map) At(i int) Point {
	return m.points[geom.Wrap(i, len(m.points))]
}

// Corner returns the raw corner point i.
func (m Map) Corner(i int) r3.Vec { return m.At(i).Corner }

// Get returns the inflection point of corner i in direction d.
func (m Map) Get(i int, d Direction) r3.Vec { return m.At(i).Get(d) }

// Key returns the symbolic name of an inflection point, e.g. "B_inner".
func Key(corner int, d Direction) string {
	return geom.CornerKey(corner) + "_" + d.String()
}

// MarshalJSON encodes the map as {"A": [...], "A_left": [...], ...}.
func (m Map) MarshalJSON() ([]byte, error) {
	out := make(map[string][3]float64, len(m.points)*4)
	for i, p := range m.points {
		out[geom.CornerKey(i)] = triple(p.Corner)
		for _, d := range []Direction{Left, Inner, Right} {
			out[Key(i, d)] = triple(p.Get(d))
		}
	}
	return json.Marshal(out)
}

func triple(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// CornerAngle returns the interior angle at corner i of outline, measured
// from the outgoing edge to the incoming edge about normal.
func CornerAngle(outline geom.Polygon, normal r3.Vec, i int) float64 {
	cur := outline.Corner(i)
	x := r3.Sub(outline.Corner(i+1), cur)
	y := r3.Sub(outline.Corner(i-1), cur)
	return geom.VectorAngle(x, y, normal)
}

// IsDegenerate reports whether a corner angle is too close to 0, π or 2π
// for the inflection trigonometry.
func IsDegenerate(angle float64) bool {
	return math.Abs(angle) < DegenerateTolerance ||
		math.Abs(angle-math.Pi) < DegenerateTolerance ||
		math.Abs(angle-2*math.Pi) < DegenerateTolerance
}

// ValidateCorners returns a DEGENERATE_ANGLE error for the first corner of
// outline whose angle is degenerate.
func ValidateCorners(outline geom.Polygon, normal r3.Vec) error {
	for i := 0; i < outline.Len(); i++ {
		if a := CornerAngle(outline, normal, i); IsDegenerate(a) {
			return errors.New(errors.ErrCodeDegenerateAngle,
				"corner %s has degenerate angle %.9f", geom.CornerKey(i), a)
		}
	}
	return nil
}

// Offset returns the setback of the inflection points at a level: deeper
// levels step back by the draft of the neighbor angle per layer.
func Offset(baseWidth, dihedral, thickness float64, level int) float64 {
	return baseWidth + math.Tan(math.Pi-dihedral/2)*thickness*float64(level)
}

// Compute places the inflection points for every corner of outline.
// dihedral holds the neighbor angle of every edge; corner i uses the angle
// of edge i.
func Compute(outline geom.Polygon, normal r3.Vec, level int, dihedral []float64, baseWidth, thickness float64) (Map, error) {
	n := outline.Len()
	if len(dihedral) != n {
		return Map{}, errors.New(errors.ErrCodeInvalidInput,
			"got %d dihedral angles for %d edges", len(dihedral), n)
	}
	if err := ValidateCorners(outline, normal); err != nil {
		return Map{}, err
	}

	points := make([]Point, n)
	for i := range points {
		cur := outline.Corner(i)
		angle := CornerAngle(outline, normal, i)

		xAxis := r3.Sub(outline.Corner(i+1), cur)
		frame, err := geom.PlaneFromAxes(cur, xAxis, r3.Cross(normal, xAxis))
		if err != nil {
			return Map{}, errors.Wrap(errors.ErrCodeDegenerateAngle, err,
				"corner %s has no polar frame", geom.CornerKey(i))
		}

		o := Offset(baseWidth, dihedral[i], thickness, level)
		c := o / math.Sin(angle/2)
		gamma := math.Pi - angle
		a := c / (2 * math.Sin(gamma/2))

		points[i] = Point{
			Corner: cur,
			Left:   frame.PointPolar(a, angle),
			Inner:  frame.PointPolar(c, angle/2),
			Right:  frame.PointPolar(a, 0),
			Angle:  angle,
			Offset: o,
		}
	}
	return Map{points: points}, nil
}
