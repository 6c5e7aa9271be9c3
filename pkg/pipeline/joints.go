package pipeline

import (
	"context"
	"sort"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/joint"
	"github.com/chazu/cassette/pkg/topology"
)

func (r *Runner) applier(rn *run) *joint.Applier {
	return &joint.Applier{Store: r.Store, Kernel: r.Kernel, Settings: r.Settings, RunID: rn.id}
}

// applyJoints runs stage 2. Every beam lies on exactly one shared edge, so
// joints can be applied concurrently.
func (r *Runner) applyJoints(ctx context.Context, rn *run, t *topology.Topology) ([]*component.Joint, []JointReport, error) {
	var joints []*component.Joint
	for _, adj := range t.Adjacencies() {
		j, err := joint.FromAdjacency(t, adj, r.Settings)
		if err != nil {
			rn.fail(component.JointID(adj.A, adj.B), StageJoints, err)
			continue
		}
		joints = append(joints, j)
	}

	reports := make([]JointReport, len(joints))
	ap := r.applier(rn)
	g, gctx := r.group(ctx)
	for i, j := range joints {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rep, err := ap.ApplyBeams(gctx, j)
			if rep != nil {
				for _, f := range rep.Failures {
					rn.fail(f.Component, StageJoints, f.Err)
				}
				reports[i] = JointReport{Joint: j.ID, ToothCounts: rep.ToothCounts, Beams: len(rep.Beams)}
			}
			if err != nil && gctx.Err() == nil {
				rn.fail(j.ID, StageJoints, err)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return joints, reports, err
	}
	return joints, reports, ctx.Err()
}

// detailPlates runs stage 3: details are collected from every joint first
// and then cut into each plate in one pass.
func (r *Runner) detailPlates(ctx context.Context, rn *run, joints []*component.Joint, res *Result) error {
	ap := r.applier(rn)
	details, failures, err := ap.CollectPlateDetails(ctx, joints)
	for _, f := range failures {
		rn.fail(f.Component, StagePlateDetails, f.Err)
	}
	if err != nil {
		return err
	}

	byJoint := make(map[string]int, len(joints))
	for _, j := range joints {
		byJoint[j.ID] = j.PlateToothCount
	}
	for i := range res.Joints {
		res.Joints[i].PlateToothCount = byJoint[res.Joints[i].Joint]
	}

	ids := make([]string, 0, len(details))
	for id := range details {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g, gctx := r.group(ctx)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ap.DetailPlate(gctx, id, details[id]); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				rn.fail(id, StagePlateDetails, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
