package geom

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Winding orientation of a polygon relative to a plane normal.
const (
	Clockwise        = -1
	Undefined        = 0
	CounterClockwise = 1
)

// Polygon is an implicitly closed sequence of corner points. Corner i is
// the start of edge i; edge i runs from corner i to corner i+1 (wrapping).
type Polygon struct {
	pts []r3.Vec
}

// NewPolygon copies pts into a polygon. An explicit closing point equal to
// the first point is dropped. At least three corners are required.
func NewPolygon(pts []r3.Vec) (Polygon, error) {
	n := len(pts)
	if n > 1 && Near(pts[0], pts[n-1], Tolerance) {
		n--
	}
	if n < 3 {
		return Polygon{}, fmt.Errorf("geom: polygon needs at least 3 corners, got %d", n)
	}
	cp := make([]r3.Vec, n)
	copy(cp, pts[:n])
	return Polygon{pts: cp}, nil
}

// MustPolygon is like NewPolygon but panics on invalid input.
func MustPolygon(pts ...r3.Vec) Polygon {
	p, err := NewPolygon(pts)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of corners (and edges).
func (p Polygon) Len() int {
	return len(p.pts)
}

// IsZero reports whether p is the zero polygon.
func (p Polygon) IsZero() bool {
	return len(p.pts) == 0
}

// Corner returns corner i, wrapping around in both directions.
func (p Polygon) Corner(i int) r3.Vec {
	n := len(p.pts)
	return p.pts[((i%n)+n)%n]
}

// Corners returns a copy of the corner points.
func (p Polygon) Corners() []r3.Vec {
	cp := make([]r3.Vec, len(p.pts))
	copy(cp, p.pts)
	return cp
}

// Closed returns the corners with the first point appended again.
func (p Polygon) Closed() []r3.Vec {
	return append(p.Corners(), p.pts[0])
}

// Edge returns edge i, from corner i to corner i+1.
func (p Polygon) Edge(i int) Line {
	return Line{From: p.Corner(i), To: p.Corner(i + 1)}
}

// Edges returns all edges in winding order.
func (p Polygon) Edges() []Line {
	edges := make([]Line, len(p.pts))
	for i := range p.pts {
		edges[i] = p.Edge(i)
	}
	return edges
}

// Translate returns the polygon moved by v.
func (p Polygon) Translate(v r3.Vec) Polygon {
	pts := make([]r3.Vec, len(p.pts))
	for i, pt := range p.pts {
		pts[i] = r3.Add(pt, v)
	}
	return Polygon{pts: pts}
}

// Reverse returns the polygon with opposite winding, keeping corner 0.
func (p Polygon) Reverse() Polygon {
	n := len(p.pts)
	pts := make([]r3.Vec, n)
	for i := range p.pts {
		pts[i] = p.pts[(n-i)%n]
	}
	return Polygon{pts: pts}
}

// InsertAfter returns a polygon with pts inserted after corner i.
func (p Polygon) InsertAfter(i int, pts []r3.Vec) Polygon {
	out := make([]r3.Vec, 0, len(p.pts)+len(pts))
	out = append(out, p.pts[:i+1]...)
	out = append(out, pts...)
	out = append(out, p.pts[i+1:]...)
	return Polygon{pts: out}
}

// Centroid returns the average of the corner points.
func (p Polygon) Centroid() r3.Vec {
	var c r3.Vec
	for _, pt := range p.pts {
		c = r3.Add(c, pt)
	}
	return r3.Scale(1/float64(len(p.pts)), c)
}

// AreaVector returns the Newell area vector: its direction is the normal
// for which the polygon winds counter-clockwise, its length the area.
func (p Polygon) AreaVector() r3.Vec {
	var n r3.Vec
	origin := p.pts[0]
	for i := 1; i+1 < len(p.pts); i++ {
		a := r3.Sub(p.pts[i], origin)
		b := r3.Sub(p.pts[i+1], origin)
		n = r3.Add(n, r3.Cross(a, b))
	}
	return r3.Scale(0.5, n)
}

// Area returns the enclosed area.
func (p Polygon) Area() float64 {
	return r3.Norm(p.AreaVector())
}

// Normal returns the unit normal about which the polygon winds
// counter-clockwise. It is the zero vector for degenerate polygons.
func (p Polygon) Normal() r3.Vec {
	n := p.AreaVector()
	if r3.Norm(n) < Tolerance {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// Orientation returns CounterClockwise or Clockwise relative to the plane
// normal, or Undefined for degenerate polygons.
func (p Polygon) Orientation(plane Plane) int {
	d := r3.Dot(p.AreaVector(), plane.Z)
	switch {
	case d > Tolerance:
		return CounterClockwise
	case d < -Tolerance:
		return Clockwise
	}
	return Undefined
}

// Contains reports whether pt, projected onto plane, lies strictly inside
// the polygon projected onto the same plane.
func (p Polygon) Contains(pt r3.Vec, plane Plane) bool {
	q := plane.ToLocal(pt)
	inside := false
	n := len(p.pts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a := plane.ToLocal(p.pts[i])
		b := plane.ToLocal(p.pts[j])
		if distToSegment2(q, a, b) < Tolerance {
			return false
		}
		if (a.Y > q.Y) != (b.Y > q.Y) {
			x := (b.X-a.X)*(q.Y-a.Y)/(b.Y-a.Y) + a.X
			if q.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

func distToSegment2(q, a, b r3.Vec) float64 {
	ab := r3.Vec{X: b.X - a.X, Y: b.Y - a.Y}
	aq := r3.Vec{X: q.X - a.X, Y: q.Y - a.Y}
	l2 := r3.Dot(ab, ab)
	t := 0.0
	if l2 > 0 {
		t = math.Max(0, math.Min(1, r3.Dot(aq, ab)/l2))
	}
	d := r3.Sub(aq, r3.Scale(t, ab))
	return r3.Norm(d)
}

// MarshalJSON encodes the polygon as a list of [x, y, z] triples.
func (p Polygon) MarshalJSON() ([]byte, error) {
	out := make([][3]float64, len(p.pts))
	for i, pt := range p.pts {
		out[i] = [3]float64{pt.X, pt.Y, pt.Z}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of [x, y, z] triples.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	var raw [][3]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		*p = Polygon{}
		return nil
	}
	pts := make([]r3.Vec, len(raw))
	for i, r := range raw {
		pts[i] = r3.Vec{X: r[0], Y: r[1], Z: r[2]}
	}
	poly, err := NewPolygon(pts)
	if err != nil {
		return err
	}
	*p = poly
	return nil
}
