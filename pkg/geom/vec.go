// Package geom provides the planar geometry primitives the cassette
// generator is built on: closed polygons, reference planes, infinite lines
// and the angle helpers used for corner and dihedral computations.
//
// All points and vectors are gonum r3.Vec values. Every type in this
// package is a value type; operations return new values and never mutate
// their receiver.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tolerance is the absolute distance below which two points are
// considered coincident.
const Tolerance = 1e-9

// AngleTolerance is the angular tolerance used for parallelism checks,
// one degree like the host CAD default.
const AngleTolerance = math.Pi / 180

// Vec is shorthand for constructing a point or vector.
func Vec(x, y, z float64) r3.Vec {
	return r3.Vec{X: x, Y: y, Z: z}
}

// Near reports whether a and b are within tol of each other on every axis.
func Near(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

// Rotate rotates v by angle radians about axis (right hand rule).
func Rotate(v r3.Vec, angle float64, axis r3.Vec) r3.Vec {
	return r3.NewRotation(angle, axis).Rotate(v)
}

// VectorAngle returns the angle from a to b measured counter-clockwise
// about normal, in [0, 2π). Both vectors are projected onto the plane
// perpendicular to normal first.
func VectorAngle(a, b, normal r3.Vec) float64 {
	n := r3.Unit(normal)
	a = r3.Sub(a, r3.Scale(r3.Dot(a, n), n))
	b = r3.Sub(b, r3.Scale(r3.Dot(b, n), n))
	angle := math.Atan2(r3.Dot(n, r3.Cross(a, b)), r3.Dot(a, b))
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// ParallelSign reports 1 if a and b point the same way within tol radians,
// -1 if they point in opposite directions and 0 otherwise.
func ParallelSign(a, b r3.Vec, tol float64) int {
	la, lb := r3.Norm(a), r3.Norm(b)
	if la == 0 || lb == 0 {
		return 0
	}
	cos := r3.Dot(a, b) / (la * lb)
	switch {
	case cos >= math.Cos(tol):
		return 1
	case cos <= -math.Cos(tol):
		return -1
	}
	return 0
}

// perpendicular returns some unit vector perpendicular to v.
func perpendicular(v r3.Vec) r3.Vec {
	ref := r3.Vec{X: 0, Y: 0, Z: 1}
	if math.Abs(r3.Dot(r3.Unit(v), ref)) > 0.9 {
		ref = r3.Vec{X: 1, Y: 0, Z: 0}
	}
	return r3.Unit(r3.Cross(ref, v))
}
