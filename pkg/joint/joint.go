// Package joint connects neighboring panels.
//
// A joint is created for every shared edge. Applying it cuts mating
// sawtooth profiles into the beams that run along the edge on both panels,
// level by level, and into the two plates. Side A always computes the tooth
// count and side B reuses it with the teeth flipped, so the result does not
// depend on the order joints are processed in.
package joint

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/layer"
	"github.com/chazu/cassette/pkg/offset"
	"github.com/chazu/cassette/pkg/sawtooth"
	"github.com/chazu/cassette/pkg/store"
	"github.com/chazu/cassette/pkg/topology"
)

// New creates the joint between panel a's edge edgeA and panel b's edge
// edgeB. The panels are ordered by name so the same pair always yields the
// same joint.
func New(a, b *topology.Panel, edgeA, edgeB int, s config.GeometrySettings) (*component.Joint, error) {
	if b.Name < a.Name {
		a, b = b, a
		edgeA, edgeB = edgeB, edgeA
	}
	id := component.JointID(a.Name, b.Name)
	if edgeA < 0 || edgeA >= a.Outline.Len() || edgeB < 0 || edgeB >= b.Outline.Len() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "joint %s: edge out of range", id)
	}

	shared := a.Outline.Edge(edgeA)
	if !geom.EqualLines(shared, b.Outline.Edge(edgeB), topology.EdgeTolerance) {
		return nil, errors.New(errors.ErrCodeTopologyMismatch, "joint %s: edge %s of %s and edge %s of %s do not coincide",
			id, geom.EdgeKey(edgeA), a.Name, geom.EdgeKey(edgeB), b.Name)
	}

	plane, err := Plane(shared, a.Normal(), b.Normal())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDegenerateAngle, err, "joint %s", id)
	}
	guidesA, err := Guides(a, edgeA, s.BeamThickness)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "joint %s guides on %s", id, a.Name)
	}
	guidesB, err := Guides(b, edgeB, s.BeamThickness)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "joint %s guides on %s", id, b.Name)
	}

	return &component.Joint{
		ID:      id,
		A:       a.Name,
		B:       b.Name,
		EdgeA:   edgeA,
		EdgeB:   edgeB,
		Plane:   plane,
		NormalA: a.Normal(),
		NormalB: b.Normal(),
		GuidesA: guidesA,
		GuidesB: guidesB,
	}, nil
}

// FromAdjacency creates the joint for a shared edge found by the topology.
func FromAdjacency(t *topology.Topology, adj topology.Adjacency, s config.GeometrySettings) (*component.Joint, error) {
	a, ok := t.Panel(adj.A)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "panel %q not found", adj.A)
	}
	b, ok := t.Panel(adj.B)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "panel %q not found", adj.B)
	}
	return New(a, b, adj.EdgeA, adj.EdgeB, s)
}

// Plane returns the joint plane: centered on the shared edge, X along the
// bisector of the panel normals and Y across the edge.
func Plane(edge geom.Line, normalA, normalB r3.Vec) (geom.Plane, error) {
	x := r3.Add(normalA, normalB)
	if r3.Norm(x) < geom.Tolerance {
		return geom.Plane{}, errors.New(errors.ErrCodeDegenerateAngle, "panels fold back onto each other")
	}
	y := r3.Cross(x, edge.Direction())
	return geom.PlaneFromAxes(edge.Midpoint(), x, y)
}

// Guides returns the shared edge at the panel outline and at the bottom of
// every beam layer.
func Guides(p *topology.Panel, edge int, thickness float64) ([component.GuideCount]geom.Line, error) {
	var guides [component.GuideCount]geom.Line
	outline := p.Outline
	guides[0] = outline.Edge(edge)
	for i := 1; i < component.GuideCount; i++ {
		next, err := offset.DraftAngleOffset(outline, p.Plane, p.Dihedral, thickness)
		if err != nil {
			return guides, errors.Wrap(errors.GetCode(err), err, "guide %d", i)
		}
		outline = next
		guides[i] = outline.Edge(edge)
	}
	return guides, nil
}

// Failure is one component a joint could not detail.
type Failure struct {
	Component string
	Err       error
}

// Report summarizes one joint application.
type Report struct {
	Joint       string
	ToothCounts [layer.Levels]int
	Beams       []string
	Failures    []Failure
}

// Applier cuts joint details into stored components.
type Applier struct {
	Store    store.Store
	Kernel   kernel.Kernel
	Settings config.GeometrySettings
	RunID    string
}

func (a *Applier) params() sawtooth.Params {
	return sawtooth.Params{
		Depth:  a.Settings.SawtoothDepth,
		Width:  a.Settings.SawtoothWidth,
		Safety: a.Settings.SawtoothSafety,
	}
}

// ApplyBeams details the beams along the joint on every level and stores
// the joint. A level whose beams are missing or cannot be detailed is
// reported and skipped. The returned error is reserved for store and
// context failures.
func (a *Applier) ApplyBeams(ctx context.Context, j *component.Joint) (*Report, error) {
	rep := &Report{Joint: j.ID}
	for level := 0; level < layer.Levels; level++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		ids, count, err := a.applyLevel(ctx, j, level)
		if err != nil {
			if isStoreFailure(err) {
				return rep, err
			}
			rep.Failures = append(rep.Failures, Failure{Component: ids, Err: err})
			continue
		}
		j.ToothCounts[level] = count
		rep.ToothCounts[level] = count
		rep.Beams = append(rep.Beams, component.BeamID(j.A, level, j.EdgeA), component.BeamID(j.B, level, j.EdgeB))
	}
	j.Beams = rep.Beams
	if err := store.Save(ctx, a.Store, j, a.RunID); err != nil {
		return rep, err
	}
	return rep, nil
}

type storeError struct{ error }

func (e storeError) Unwrap() error { return e.error }

func isStoreFailure(err error) bool {
	_, ok := err.(storeError)
	return ok
}

// applyLevel details the pair of beams on one level. It returns the id of
// the component that failed along with the error.
func (a *Applier) applyLevel(ctx context.Context, j *component.Joint, level int) (string, int, error) {
	sa, sb := j.Side(true), j.Side(false)
	idA := component.BeamID(sa.Panel, level, sa.Edge)
	idB := component.BeamID(sb.Panel, level, sb.Edge)

	beamA, err := a.loadBeam(ctx, idA)
	if err != nil {
		return idA, 0, err
	}
	beamB, err := a.loadBeam(ctx, idB)
	if err != nil {
		return idB, 0, err
	}

	p := a.params()
	resA, err := sawtooth.AddSawtooths(beamA.Top, beamA.Bottom, sa.Normal, sa.Guides[level], sa.Guides[level+1], p)
	if err != nil {
		return idA, 0, errors.Wrap(errors.GetCode(err), err, "joint %s level %d", j.ID, level)
	}
	p.ToothCount = resA.ToothCount
	p.Flip = true
	resB, err := sawtooth.AddSawtooths(beamB.Top, beamB.Bottom, sb.Normal, sb.Guides[level], sb.Guides[level+1], p)
	if err != nil {
		return idB, 0, errors.Wrap(errors.GetCode(err), err, "joint %s level %d", j.ID, level)
	}

	beamA.Detail = a.beamDetail(j.ID, resA, false)
	beamB.Detail = a.beamDetail(j.ID, resB, true)
	for _, b := range []*component.Beam{beamA, beamB} {
		if _, err := b.Volume(a.Kernel); err != nil {
			return b.ID, 0, err
		}
	}
	for _, b := range []*component.Beam{beamA, beamB} {
		if err := store.Save(ctx, a.Store, b, a.RunID); err != nil {
			return b.ID, 0, storeError{err}
		}
	}
	return "", resA.ToothCount, nil
}

func (a *Applier) loadBeam(ctx context.Context, id string) (*component.Beam, error) {
	b, err := store.Load[*component.Beam](ctx, a.Store, id)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) || errors.Is(err, errors.ErrCodeInvalidInput) {
			return nil, err
		}
		return nil, storeError{err}
	}
	return b, nil
}

func (a *Applier) beamDetail(joint string, res sawtooth.Result, flipped bool) *component.BeamDetail {
	return &component.BeamDetail{
		Joint:          joint,
		Top:            res.TopDetail,
		Bottom:         res.BottomDetail,
		DetailedTop:    res.Top,
		DetailedBottom: res.Bottom,
		ToothCount:     res.ToothCount,
		Flipped:        flipped,
		Radius:         a.Settings.ToolheadRadius,
	}
}
