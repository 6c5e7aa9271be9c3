package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is an origin plus an orthonormal, right-handed axis triple.
type Plane struct {
	Origin r3.Vec `json:"origin"`
	X      r3.Vec `json:"x"`
	Y      r3.Vec `json:"y"`
	Z      r3.Vec `json:"z"`
}

// WorldXY is the world plane at the origin.
var WorldXY = Plane{
	Origin: r3.Vec{},
	X:      r3.Vec{X: 1},
	Y:      r3.Vec{Y: 1},
	Z:      r3.Vec{Z: 1},
}

// NewPlane returns a plane through origin with the given normal. The X axis
// is an arbitrary vector perpendicular to the normal.
func NewPlane(origin, normal r3.Vec) (Plane, error) {
	if r3.Norm(normal) < Tolerance {
		return Plane{}, fmt.Errorf("geom: zero-length plane normal")
	}
	z := r3.Unit(normal)
	x := perpendicular(z)
	return Plane{Origin: origin, X: x, Y: r3.Cross(z, x), Z: z}, nil
}

// PlaneFromAxes builds a plane from an X direction and a vector lying in the
// plane on the positive Y side. The Y axis is re-orthogonalized against X.
func PlaneFromAxes(origin, xAxis, yAxis r3.Vec) (Plane, error) {
	z := r3.Cross(xAxis, yAxis)
	if r3.Norm(xAxis) < Tolerance || r3.Norm(z) < Tolerance {
		return Plane{}, fmt.Errorf("geom: plane axes are degenerate or parallel")
	}
	x := r3.Unit(xAxis)
	z = r3.Unit(z)
	return Plane{Origin: origin, X: x, Y: r3.Cross(z, x), Z: z}, nil
}

// PointAt evaluates the plane at local coordinates (u, v, w).
func (p Plane) PointAt(u, v, w float64) r3.Vec {
	pt := r3.Add(p.Origin, r3.Scale(u, p.X))
	pt = r3.Add(pt, r3.Scale(v, p.Y))
	return r3.Add(pt, r3.Scale(w, p.Z))
}

// PointPolar evaluates a point at the given radius and angle from the X axis,
// measured counter-clockwise about Z.
func (p Plane) PointPolar(radius, angle float64) r3.Vec {
	return p.PointAt(math.Cos(angle)*radius, math.Sin(angle)*radius, 0)
}

// ToLocal expresses a world point in plane coordinates.
func (p Plane) ToLocal(pt r3.Vec) r3.Vec {
	d := r3.Sub(pt, p.Origin)
	return r3.Vec{X: r3.Dot(d, p.X), Y: r3.Dot(d, p.Y), Z: r3.Dot(d, p.Z)}
}

// Translate returns the plane moved by v.
func (p Plane) Translate(v r3.Vec) Plane {
	p.Origin = r3.Add(p.Origin, v)
	return p
}

// WithOrigin returns the plane with its origin replaced.
func (p Plane) WithOrigin(origin r3.Vec) Plane {
	p.Origin = origin
	return p
}

// Rotation returns the plane-to-world rotation as a 3x3 matrix whose
// columns are the plane axes.
func (p Plane) Rotation() mgl64.Mat3 {
	return mgl64.Mat3FromCols(toMgl(p.X), toMgl(p.Y), toMgl(p.Z))
}

// Matrix returns the plane-to-world transform.
func (p Plane) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(p.Origin.X, p.Origin.Y, p.Origin.Z).Mul4(p.Rotation().Mat4())
}

// EulerZYX decomposes the plane rotation into angles such that
// R = Rz(z) · Ry(y) · Rx(x).
func (p Plane) EulerZYX() (z, y, x float64) {
	// R20 is X.Z, the sine of -y.
	sy := -p.X.Z
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	y = math.Asin(sy)
	if math.Abs(sy) < 1-1e-12 {
		z = math.Atan2(p.X.Y, p.X.X)
		x = math.Atan2(p.Y.Z, p.Z.Z)
		return z, y, x
	}
	// Gimbal lock: fold the X rotation into Z.
	z = math.Atan2(-p.Y.X, p.Y.Y)
	return z, y, 0
}

func toMgl(v r3.Vec) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromMgl converts an mgl64 vector to r3.
func FromMgl(v mgl64.Vec3) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// ToMgl converts an r3 vector to mgl64.
func ToMgl(v r3.Vec) mgl64.Vec3 {
	return toMgl(v)
}
