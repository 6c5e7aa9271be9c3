package sdfx

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
)

func square(z float64) geom.Polygon {
	return geom.MustPolygon(geom.Vec(0, 0, z), geom.Vec(1, 0, z), geom.Vec(1, 1, z), geom.Vec(0, 1, z))
}

func within(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestLoftSquare(t *testing.T) {
	k := New(WithMeshCells(32))
	solid, err := k.Loft(square(0), square(-0.1), geom.WorldXY)
	if err != nil {
		t.Fatalf("Loft failed: %v", err)
	}
	min, max := solid.BoundingBox()
	if !within(min[2], -0.1, 1e-9) || !within(max[2], 0, 1e-9) {
		t.Errorf("z extent = [%v, %v], want [-0.1, 0]", min[2], max[2])
	}
	if !within(min[0], 0, 1e-9) || !within(max[0], 1, 1e-9) {
		t.Errorf("x extent = [%v, %v], want [0, 1]", min[0], max[0])
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
	t.Logf("loft triangle count: %d", mesh.TriangleCount())
}

func TestLoftClockwiseOutline(t *testing.T) {
	k := New(WithMeshCells(32))
	solid, err := k.Loft(square(0).Reverse(), square(-0.1).Reverse(), geom.WorldXY)
	if err != nil {
		t.Fatalf("Loft failed: %v", err)
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
}

func TestLoftInTiltedFrame(t *testing.T) {
	k := New(WithMeshCells(32))
	frame, err := geom.PlaneFromAxes(geom.Vec(2, 0, 1), geom.Vec(0, 1, 0), geom.Vec(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	top := geom.MustPolygon(
		frame.PointAt(0, 0, 0), frame.PointAt(0.5, 0, 0), frame.PointAt(0.5, 0.5, 0), frame.PointAt(0, 0.5, 0),
	)
	bottom := top.Translate(r3.Scale(-0.05, frame.Z))
	solid, err := k.Loft(top, bottom, frame)
	if err != nil {
		t.Fatalf("Loft failed: %v", err)
	}

	// frame.Z is world +X, so the slab spans x in [1.95, 2].
	min, max := solid.BoundingBox()
	if !within(min[0], 1.95, 1e-6) || !within(max[0], 2, 1e-6) {
		t.Errorf("x extent = [%v, %v], want [1.95, 2]", min[0], max[0])
	}
	if !within(min[1], 0, 1e-6) || !within(max[1], 0.5, 1e-6) {
		t.Errorf("y extent = [%v, %v], want [0, 0.5]", min[1], max[1])
	}
}

func TestLoftFailures(t *testing.T) {
	k := New()
	tests := []struct {
		name        string
		top, bottom geom.Polygon
	}{
		{"inverted", square(-0.1), square(0)},
		{"flat", square(0), square(0)},
		{"not planar", geom.MustPolygon(geom.Vec(0, 0, 0), geom.Vec(1, 0, 0.2), geom.Vec(1, 1, 0), geom.Vec(0, 1, 0)), square(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Loft(tt.top, tt.bottom, geom.WorldXY)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeKernelOperation) {
				t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeKernelOperation)
			}
		})
	}
}

func TestCylinder(t *testing.T) {
	k := New(WithMeshCells(32))
	frame := geom.WorldXY.WithOrigin(geom.Vec(1, 2, 3))
	cyl, err := k.Cylinder(frame, 0.5, 0.1)
	if err != nil {
		t.Fatalf("Cylinder failed: %v", err)
	}
	min, max := cyl.BoundingBox()
	if !within(min[2], 3, 1e-9) || !within(max[2], 3.5, 1e-9) {
		t.Errorf("z extent = [%v, %v], want [3, 3.5]", min[2], max[2])
	}
	if !within(min[0], 0.9, 1e-9) || !within(max[0], 1.1, 1e-9) {
		t.Errorf("x extent = [%v, %v], want [0.9, 1.1]", min[0], max[0])
	}
	mesh, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
}

func TestFilletCorners(t *testing.T) {
	k := New()
	pts := []r3.Vec{geom.Vec(0, 0, 0.5), geom.Vec(1, 1, 0.5), geom.Vec(2, 0, 0.5)}
	out, err := k.FilletCorners(pts, geom.WorldXY, 0.1)
	if err != nil {
		t.Fatalf("FilletCorners failed: %v", err)
	}
	if len(out) <= len(pts) {
		t.Fatalf("expected extra fillet vertices, got %d", len(out))
	}
	if out[0] != pts[0] || out[len(out)-1] != pts[2] {
		t.Errorf("end points moved: %v .. %v", out[0], out[len(out)-1])
	}
	for _, p := range out {
		if !within(p.Z, 0.5, 1e-9) {
			t.Errorf("point %v left the plane", p)
		}
		if p.Y > 1-1e-6 {
			t.Errorf("point %v was not rounded off", p)
		}
	}
}

func TestFilletCornersKeepsStraightRuns(t *testing.T) {
	k := New()
	pts := []r3.Vec{geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(2, 0, 0)}
	out, err := k.FilletCorners(pts, geom.WorldXY, 0.1)
	if err != nil {
		t.Fatalf("FilletCorners failed: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d points, want 3", len(out))
	}
	for i := range pts {
		if !geom.Near(out[i], pts[i], 1e-12) {
			t.Errorf("point %d = %v, want %v", i, out[i], pts[i])
		}
	}
}

func TestDifference(t *testing.T) {
	k := New(WithMeshCells(48))

	plate, err := k.Loft(square(0), square(-0.1), geom.WorldXY)
	if err != nil {
		t.Fatal(err)
	}
	plateMesh, err := k.ToMesh(plate)
	if err != nil {
		t.Fatalf("ToMesh(plate) failed: %v", err)
	}

	hole, err := k.Cylinder(geom.WorldXY.WithOrigin(geom.Vec(0.5, 0.5, -0.2)), 0.4, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	diff, err := k.Difference(plate, hole)
	if err != nil {
		t.Fatalf("Difference failed: %v", err)
	}
	diffMesh, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.IsEmpty() {
		t.Fatal("difference mesh is empty")
	}
	// The plain plate has surface over the hole axis, the drilled one not.
	if !hasVertexNear(plateMesh, 0.5, 0.5, 0.15) {
		t.Error("plate mesh has no vertex near the hole axis")
	}
	if hasVertexNear(diffMesh, 0.5, 0.5, 0.15) {
		t.Error("difference mesh still has surface inside the hole")
	}
}

func hasVertexNear(m *kernel.Mesh, x, y, r float64) bool {
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		dx := float64(m.Vertices[i]) - x
		dy := float64(m.Vertices[i+1]) - y
		if math.Hypot(dx, dy) < r {
			return true
		}
	}
	return false
}

func TestUnion(t *testing.T) {
	k := New(WithMeshCells(32))
	a, err := k.Loft(square(0), square(-0.1), geom.WorldXY)
	if err != nil {
		t.Fatal(err)
	}
	b, err := k.Loft(square(0).Translate(geom.Vec(0.5, 0, 0)), square(-0.1).Translate(geom.Vec(0.5, 0, 0)), geom.WorldXY)
	if err != nil {
		t.Fatal(err)
	}
	u, err := k.Union(a, b)
	if err != nil {
		t.Fatalf("Union failed: %v", err)
	}
	min, max := u.BoundingBox()
	if !within(min[0], 0, 1e-9) || !within(max[0], 1.5, 1e-9) {
		t.Errorf("union x extent = [%v, %v], want [0, 1.5]", min[0], max[0])
	}
}

type foreignSolid struct{}

func (foreignSolid) BoundingBox() (min, max [3]float64) { return }

func TestForeignSolidRejected(t *testing.T) {
	k := New()
	a, err := k.Loft(square(0), square(-0.1), geom.WorldXY)
	if err != nil {
		t.Fatal(err)
	}
	var other kernel.Solid = foreignSolid{}
	if _, err := k.Union(a, other); !errors.Is(err, errors.ErrCodeKernelOperation) {
		t.Errorf("Union with foreign solid: got %v", err)
	}
	if _, err := k.ToMesh(other); !errors.Is(err, errors.ErrCodeKernelOperation) {
		t.Errorf("ToMesh with foreign solid: got %v", err)
	}
}

func TestName(t *testing.T) {
	if got := New().Name(); got != "sdfx" {
		t.Errorf("Name() = %q", got)
	}
}
