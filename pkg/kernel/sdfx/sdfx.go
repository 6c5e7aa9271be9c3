// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Outlines are projected into the 2D coordinates of their reference frame,
// turned into polygon SDFs and lofted along the frame normal. The frame
// rotation and origin are then applied as one transform, so every solid
// lives in world space.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// filletFacets is the number of segments per rounded corner.
const filletFacets = 4

// planarTolerance is how far an outline point may sit off the mean height
// of its outline before the loft is rejected.
const planarTolerance = 1e-6

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution along the longest axis.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{meshCells: defaultMeshCells}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name identifies the backend.
func (k *SdfxKernel) Name() string { return "sdfx" }

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok || ss == nil || ss.s == nil {
		return nil, errors.New(errors.ErrCodeKernelOperation, "solid %T was not built by the sdfx kernel", s)
	}
	return ss.s, nil
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// guard runs an sdfx construction, turning both returned errors and panics
// into kernel failures.
func guard(op string, fn func() (sdf.SDF3, error)) (s kernel.Solid, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = errors.New(errors.ErrCodeKernelOperation, "%s: panic: %v", op, r)
		}
	}()
	out, err := fn()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernelOperation, err, "%s", op)
	}
	if out == nil {
		return nil, errors.New(errors.ErrCodeKernelOperation, "%s: no result", op)
	}
	return wrap(out), nil
}

// frameMatrix returns the sdfx transform that maps frame-local
// coordinates to world space.
func frameMatrix(frame geom.Plane) sdf.M44 {
	z, y, x := frame.EulerZYX()
	rot := sdf.RotateZ(z).Mul(sdf.RotateY(y)).Mul(sdf.RotateX(x))
	return sdf.Translate3d(v3.Vec{X: frame.Origin.X, Y: frame.Origin.Y, Z: frame.Origin.Z}).Mul(rot)
}

// project expresses a planar outline in frame coordinates. It returns the
// counter-clockwise 2D vertices and the outline height along frame.Z.
func project(p geom.Polygon, frame geom.Plane) ([]v2.Vec, float64, error) {
	pts := make([]v2.Vec, p.Len())
	var zsum float64
	locals := make([]r3.Vec, p.Len())
	for i, c := range p.Corners() {
		locals[i] = frame.ToLocal(c)
		zsum += locals[i].Z
	}
	h := zsum / float64(p.Len())

	var area float64
	for i, l := range locals {
		if math.Abs(l.Z-h) > planarTolerance {
			return nil, 0, fmt.Errorf("outline corner %s is off its plane by %g", geom.CornerKey(i), l.Z-h)
		}
		pts[i] = v2.Vec{X: l.X, Y: l.Y}
		next := locals[(i+1)%len(locals)]
		area += l.X*next.Y - next.X*l.Y
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts, h, nil
}

// Loft builds the solid between two outlines parallel to frame.
func (k *SdfxKernel) Loft(top, bottom geom.Polygon, frame geom.Plane) (kernel.Solid, error) {
	return guard("loft", func() (sdf.SDF3, error) {
		topPts, zt, err := project(top, frame)
		if err != nil {
			return nil, err
		}
		bottomPts, zb, err := project(bottom, frame)
		if err != nil {
			return nil, err
		}
		height := zt - zb
		if height <= planarTolerance {
			return nil, fmt.Errorf("top outline is not above bottom outline (height %g)", height)
		}

		top2, err := sdf.Polygon2D(topPts)
		if err != nil {
			return nil, err
		}
		bottom2, err := sdf.Polygon2D(bottomPts)
		if err != nil {
			return nil, err
		}
		// Loft3D spans [-h/2, h/2] with its first profile at the bottom.
		s, err := sdf.Loft3D(bottom2, top2, height, 0)
		if err != nil {
			return nil, err
		}
		center := sdf.Translate3d(v3.Vec{Z: (zt + zb) / 2})
		return sdf.Transform3D(s, frameMatrix(frame).Mul(center)), nil
	})
}

// Cylinder builds a cylinder standing on frame.Origin along frame.Z.
func (k *SdfxKernel) Cylinder(frame geom.Plane, height, radius float64) (kernel.Solid, error) {
	return guard("cylinder", func() (sdf.SDF3, error) {
		s, err := sdf.Cylinder3D(height, radius, 0)
		if err != nil {
			return nil, err
		}
		// Cylinder3D is centered on the origin.
		lift := sdf.Translate3d(v3.Vec{Z: height / 2})
		return sdf.Transform3D(s, frameMatrix(frame).Mul(lift)), nil
	})
}

// FilletCorners rounds the interior corners of an open polyline. Corners
// where the polyline runs straight are left alone.
func (k *SdfxKernel) FilletCorners(pts []r3.Vec, frame geom.Plane, radius float64) (out []r3.Vec, err error) {
	if len(pts) < 3 {
		return append([]r3.Vec(nil), pts...), nil
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.New(errors.ErrCodeKernelOperation, "fillet: panic: %v", r)
		}
	}()

	locals := make([]r3.Vec, len(pts))
	var h float64
	for i, pt := range pts {
		locals[i] = frame.ToLocal(pt)
		h += locals[i].Z
	}
	h /= float64(len(pts))

	poly := sdf.NewPolygon()
	for i, l := range locals {
		v := poly.Add(l.X, l.Y)
		if i > 0 && i < len(locals)-1 && turns(locals[i-1], l, locals[i+1]) {
			v.Smooth(radius, filletFacets)
		}
	}

	verts := poly.Vertices()
	if len(verts) < len(pts) {
		return nil, errors.New(errors.ErrCodeKernelOperation, "fillet: lost vertices (%d of %d)", len(verts), len(pts))
	}
	out = make([]r3.Vec, len(verts))
	for i, v := range verts {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) {
			return nil, errors.New(errors.ErrCodeKernelOperation, "fillet: radius %g does not fit", radius)
		}
		out[i] = frame.PointAt(v.X, v.Y, h)
	}
	// Keep the exact end points so the pieces still join.
	out[0] = pts[0]
	out[len(out)-1] = pts[len(pts)-1]
	return out, nil
}

func turns(a, b, c r3.Vec) bool {
	u := r3.Sub(b, a)
	w := r3.Sub(c, b)
	cross := u.X*w.Y - u.Y*w.X
	return math.Abs(cross) > 1e-12*r3.Norm(u)*r3.Norm(w)
}

// JoinCurves chains polylines into one closed curve.
func (k *SdfxKernel) JoinCurves(pieces [][]r3.Vec) (geom.Polygon, error) {
	return kernel.JoinPolylines(pieces, kernel.JoinTolerance)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	return guard("union", func() (sdf.SDF3, error) {
		return sdf.Union3D(sa, sb), nil
	})
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	return guard("difference", func() (sdf.SDF3, error) {
		return sdf.Difference3D(sa, sb), nil
	})
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (mesh *kernel.Mesh, err error) {
	sdf3, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			mesh = nil
			err = errors.New(errors.ErrCodeKernelOperation, "mesh: panic: %v", r)
		}
	}()

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
