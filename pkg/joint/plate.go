package joint

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/sawtooth"
	"github.com/chazu/cassette/pkg/store"
)

// PlateDetails computes the mating plate edges of a joint. The tooth
// count comes from plate a's top edge.
func PlateDetails(j *component.Joint, a, b *component.Plate, p sawtooth.Params) (component.PlateDetail, component.PlateDetail, error) {
	p.ToothCount = 0
	p.Flip = false
	da, err := plateDetail(j, a, j.EdgeA, j.NormalA, p)
	if err != nil {
		return component.PlateDetail{}, component.PlateDetail{}, err
	}
	p.ToothCount = da.ToothCount
	p.Flip = true
	db, err := plateDetail(j, b, j.EdgeB, j.NormalB, p)
	if err != nil {
		return component.PlateDetail{}, component.PlateDetail{}, err
	}
	return da, db, nil
}

func plateDetail(j *component.Joint, plate *component.Plate, edge int, normal r3.Vec, p sawtooth.Params) (component.PlateDetail, error) {
	if edge < 0 || edge >= plate.Top.Len() {
		return component.PlateDetail{}, errors.New(errors.ErrCodeInvalidInput, "joint %s: plate %s has no edge %d", j.ID, plate.ID, edge)
	}
	top, count, err := sawtooth.DetailEdge(plate.Top.Edge(edge), edge, normal, p)
	if err != nil {
		return component.PlateDetail{}, errors.Wrap(errors.GetCode(err), err, "joint %s: plate %s top", j.ID, plate.ID)
	}
	p.ToothCount = count
	bottom, _, err := sawtooth.DetailEdge(plate.Bottom.Edge(edge), edge, normal, p)
	if err != nil {
		return component.PlateDetail{}, errors.Wrap(errors.GetCode(err), err, "joint %s: plate %s bottom", j.ID, plate.ID)
	}
	return component.PlateDetail{
		Joint:      j.ID,
		Top:        top,
		Bottom:     bottom,
		ToothCount: count,
		Flipped:    p.Flip,
	}, nil
}

// CollectPlateDetails computes the plate details of every joint and groups
// them by plate id. Joints whose plates are missing or cannot be detailed
// are reported and skipped. Each joint's plate tooth count is stored.
func (a *Applier) CollectPlateDetails(ctx context.Context, joints []*component.Joint) (map[string][]component.PlateDetail, []Failure, error) {
	out := make(map[string][]component.PlateDetail)
	var failures []Failure
	for _, j := range joints {
		if err := ctx.Err(); err != nil {
			return out, failures, err
		}
		pa, err := store.Load[*component.Plate](ctx, a.Store, component.PlateID(j.A))
		if err != nil {
			failures = append(failures, Failure{Component: component.PlateID(j.A), Err: err})
			continue
		}
		pb, err := store.Load[*component.Plate](ctx, a.Store, component.PlateID(j.B))
		if err != nil {
			failures = append(failures, Failure{Component: component.PlateID(j.B), Err: err})
			continue
		}
		da, db, err := PlateDetails(j, pa, pb, a.params())
		if err != nil {
			failures = append(failures, Failure{Component: j.ID, Err: err})
			continue
		}
		out[pa.ID] = append(out[pa.ID], da)
		out[pb.ID] = append(out[pb.ID], db)

		j.PlateToothCount = da.ToothCount
		if err := store.Save(ctx, a.Store, j, a.RunID); err != nil {
			return out, failures, err
		}
	}
	return out, failures, nil
}

// DetailPlate applies all collected details to a stored plate, checks the
// detailed volume and writes the plate back.
func (a *Applier) DetailPlate(ctx context.Context, id string, details []component.PlateDetail) error {
	plate, err := store.Load[*component.Plate](ctx, a.Store, id)
	if err != nil {
		return err
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Top.Edge < details[j].Top.Edge })
	for _, d := range details {
		if err := plate.SetDetail(d); err != nil {
			return err
		}
	}
	if _, err := plate.Volume(a.Kernel); err != nil {
		return err
	}
	return store.Save(ctx, a.Store, plate, a.RunID)
}
