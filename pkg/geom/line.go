package geom

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// IntersectionTolerance is the maximum gap allowed between two lines for
// them to count as intersecting.
const IntersectionTolerance = 1e-6

// Line is a directed segment from From to To. Intersections treat it as the
// infinite line through both points.
type Line struct {
	From r3.Vec `json:"from"`
	To   r3.Vec `json:"to"`
}

// Direction returns To - From (not normalized).
func (l Line) Direction() r3.Vec {
	return r3.Sub(l.To, l.From)
}

// Length returns the segment length.
func (l Line) Length() float64 {
	return r3.Norm(l.Direction())
}

// PointAt evaluates the line at normalized parameter t (0 = From, 1 = To).
func (l Line) PointAt(t float64) r3.Vec {
	return r3.Add(l.From, r3.Scale(t, l.Direction()))
}

// PointAtLength evaluates the line at a distance from From.
func (l Line) PointAtLength(d float64) r3.Vec {
	return r3.Add(l.From, r3.Scale(d, r3.Unit(l.Direction())))
}

// Midpoint returns the point halfway along the segment.
func (l Line) Midpoint() r3.Vec {
	return l.PointAt(0.5)
}

// Flip returns the line with From and To swapped.
func (l Line) Flip() Line {
	return Line{From: l.To, To: l.From}
}

// Translate returns the line moved by v.
func (l Line) Translate(v r3.Vec) Line {
	return Line{From: r3.Add(l.From, v), To: r3.Add(l.To, v)}
}

// ClosestParameter returns the normalized parameter of the point on the
// infinite line closest to pt.
func (l Line) ClosestParameter(pt r3.Vec) float64 {
	d := l.Direction()
	n2 := r3.Dot(d, d)
	if n2 == 0 {
		return 0
	}
	return r3.Dot(r3.Sub(pt, l.From), d) / n2
}

// IntersectLines intersects the infinite lines through a and b. It returns
// the normalized parameters on a and b of the closest approach, and false
// when the lines are parallel or do not meet within tol.
func IntersectLines(a, b Line, tol float64) (ta, tb float64, ok bool) {
	d1, d2 := a.Direction(), b.Direction()
	r := r3.Sub(a.From, b.From)

	a11 := r3.Dot(d1, d1)
	a12 := r3.Dot(d1, d2)
	a22 := r3.Dot(d2, d2)
	if a11 == 0 || a22 == 0 {
		return 0, 0, false
	}

	denom := a11*a22 - a12*a12
	if !(denom > 1e-12*a11*a22) {
		return 0, 0, false
	}

	d1r := r3.Dot(d1, r)
	d2r := r3.Dot(d2, r)
	ta = (a12*d2r - a22*d1r) / denom
	tb = (a11*d2r - a12*d1r) / denom

	if !(r3.Norm(r3.Sub(a.PointAt(ta), b.PointAt(tb))) <= tol) {
		return ta, tb, false
	}
	return ta, tb, true
}

// EqualLines reports whether a and b span the same segment within tol,
// in either orientation.
func EqualLines(a, b Line, tol float64) bool {
	if Near(a.From, b.From, tol) && Near(a.To, b.To, tol) {
		return true
	}
	return Near(a.To, b.From, tol) && Near(a.From, b.To, tol)
}
