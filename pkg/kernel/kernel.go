// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx) provide lofting, curve filleting and boolean
// operations behind this interface. The generator only consumes success or
// failure and the resulting geometry, so backends can be swapped without
// changing the rest of the system.
package kernel

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/geom"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box in world space.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface. Every operation is
// fallible; failures carry the KERNEL_OPERATION_FAILURE code.
type Kernel interface {
	// Name identifies the backend.
	Name() string

	// Solids

	// Loft builds the solid between two closed outlines lying in planes
	// parallel to frame, top above bottom along frame.Z.
	Loft(top, bottom geom.Polygon, frame geom.Plane) (Solid, error)
	// Cylinder builds a cylinder whose axis runs from frame.Origin along
	// frame.Z for height.
	Cylinder(frame geom.Plane, height, radius float64) (Solid, error)

	// Curves

	// FilletCorners rounds every interior corner of an open polyline lying
	// in a plane parallel to frame. The end points are kept.
	FilletCorners(pts []r3.Vec, frame geom.Plane, radius float64) ([]r3.Vec, error)
	// JoinCurves chains open polylines end to end into exactly one
	// closed curve.
	JoinCurves(pieces [][]r3.Vec) (geom.Polygon, error)

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
