// Package tessellate rebuilds component solids through a geometry kernel
// and produces one triangle mesh per component.
//
// Records only carry outlines, so any process with a kernel can turn a
// stored run into meshes. Meshes come out in world coordinates, or in the
// component's own plane frame for flat part layouts.
package tessellate

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/store"
)

// Options controls which meshes are produced and where they are placed.
type Options struct {
	// Local places each mesh in its component's plane frame.
	Local bool
	// Kinds restricts the output; empty means every kind with a volume.
	Kinds []component.Kind
}

func (o Options) wants(k component.Kind) bool {
	if len(o.Kinds) == 0 {
		return true
	}
	for _, want := range o.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

// Frame returns the reference plane of a component with a volume.
func Frame(c component.Solidifier) geom.Plane {
	switch v := c.(type) {
	case *component.Beam:
		return v.Plane
	case *component.Plate:
		return v.Plane
	case *component.Dowel:
		return v.Plane
	}
	return geom.WorldXY
}

// Component meshes a single component.
func Component(k kernel.Kernel, c component.Solidifier, local bool) (*kernel.Mesh, error) {
	solid, err := c.Volume(k)
	if err != nil {
		return nil, fmt.Errorf("tessellate: volume of %s: %w", c.ComponentID(), err)
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", c.ComponentID(), err)
	}
	if local {
		ToLocal(mesh, Frame(c))
	}
	mesh.ComponentID = c.ComponentID()
	mesh.Kind = string(c.Kind())
	return mesh, nil
}

// Records meshes every record with a volume, in record order. Panels and
// joints have no solid of their own and are skipped.
func Records(ctx context.Context, k kernel.Kernel, recs []component.Record, opts Options) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !opts.wants(r.Kind) {
			continue
		}
		c, err := component.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}
		s, ok := c.(component.Solidifier)
		if !ok {
			continue
		}
		mesh, err := Component(k, s, opts.Local)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Run meshes every component stored for a run.
func Run(ctx context.Context, st store.Store, k kernel.Kernel, runID string, opts Options) ([]*kernel.Mesh, error) {
	recs, err := st.List(ctx, store.Filter{RunID: runID})
	if err != nil {
		return nil, fmt.Errorf("tessellate: list run %s: %w", runID, err)
	}
	return Records(ctx, k, recs, opts)
}

// ToLocal moves a world-space mesh into the coordinates of frame.
func ToLocal(m *kernel.Mesh, frame geom.Plane) {
	inv := frame.Matrix().Inv()
	rot := frame.Rotation().Transpose()
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		v := inv.Mul4x1(mgl64.Vec4{float64(m.Vertices[i]), float64(m.Vertices[i+1]), float64(m.Vertices[i+2]), 1})
		m.Vertices[i], m.Vertices[i+1], m.Vertices[i+2] = float32(v[0]), float32(v[1]), float32(v[2])
	}
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := rot.Mul3x1(mgl64.Vec3{float64(m.Normals[i]), float64(m.Normals[i+1]), float64(m.Normals[i+2])})
		m.Normals[i], m.Normals[i+1], m.Normals[i+2] = float32(n[0]), float32(n[1]), float32(n[2])
	}
}
