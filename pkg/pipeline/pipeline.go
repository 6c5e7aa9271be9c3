// Package pipeline runs a full generation pass over a topology.
//
// Stage 1 builds every panel independently: its three layers, their
// beams, the plate and the corner dowels. Stage 2 applies one joint per
// shared edge to the beams along it, and stage 3 cuts the collected plate
// details. Every component is written to the store as soon as it exists.
// A failing component is recorded and logged; its siblings carry on.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/graph"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/layer"
	"github.com/chazu/cassette/pkg/store"
	"github.com/chazu/cassette/pkg/topology"
)

// DefaultConcurrency bounds the panels and joints processed at once.
const DefaultConcurrency = 4

// Stage names a step of the pass.
type Stage string

const (
	StageTopology     Stage = "topology"
	StageLayers       Stage = "layers"
	StageBeams        Stage = "beams"
	StagePlate        Stage = "plate"
	StageDowels       Stage = "dowels"
	StagePanel        Stage = "panel"
	StageJoints       Stage = "joints"
	StagePlateDetails Stage = "plate-details"
	StageGraph        Stage = "graph"
)

// Failure is a component that could not be built.
type Failure struct {
	Component string
	Stage     Stage
	Code      errors.Code
	Err       error
}

func (f Failure) Error() string {
	return string(f.Stage) + " " + f.Component + ": " + f.Err.Error()
}

func newFailure(id string, stage Stage, err error) Failure {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return Failure{Component: id, Stage: stage, Code: code, Err: err}
}

// PanelReport summarizes the parts built for one panel. Beams counts the
// beams stored per level.
type PanelReport struct {
	Panel  string            `json:"panel"`
	Levels int               `json:"levels"`
	Beams  [layer.Levels]int `json:"beams"`
	Plate  bool              `json:"plate"`
	Dowels int               `json:"dowels"`
}

// JointReport summarizes one applied joint.
type JointReport struct {
	Joint           string            `json:"joint"`
	ToothCounts     [layer.Levels]int `json:"toothCounts"`
	PlateToothCount int               `json:"plateToothCount"`
	Beams           int               `json:"beams"`
}

// Result is the outcome of a run.
type Result struct {
	RunID     string
	Panels    []PanelReport
	Joints    []JointReport
	Failures  []Failure
	Durations map[Stage]time.Duration
	Graph     *graph.ComponentGraph
}

// OK reports whether every component was built.
func (r *Result) OK() bool { return len(r.Failures) == 0 }

// Runner holds the collaborators of a generation pass.
type Runner struct {
	Logger      *log.Logger
	Store       store.Store
	Kernel      kernel.Kernel
	Settings    config.GeometrySettings
	Concurrency int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.Logger = l }
}

// WithConcurrency sets how many panels or joints run at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.Concurrency = n }
}

// NewRunner creates a runner writing to st and building solids with k.
func NewRunner(st store.Store, k kernel.Kernel, s config.GeometrySettings, opts ...Option) *Runner {
	r := &Runner{Store: st, Kernel: k, Settings: s}
	for _, o := range opts {
		o(r)
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	if r.Concurrency <= 0 {
		r.Concurrency = DefaultConcurrency
	}
	return r
}

// run collects the results of one pass. Stage goroutines report through
// it, so every method is safe for concurrent use.
type run struct {
	id     string
	logger *log.Logger

	mu       sync.Mutex
	failures []Failure
}

func (r *run) fail(id string, stage Stage, err error) {
	f := newFailure(id, stage, err)
	r.logger.Error("component failed", "component", id, "stage", stage, "code", f.Code, "err", err)
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

// Run generates and stores every component of t. The error is non-nil only
// for invalid settings or a canceled context; component failures are in
// the result.
func (r *Runner) Run(ctx context.Context, t *topology.Topology) (*Result, error) {
	if t == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no topology")
	}
	if err := r.Settings.Validate(); err != nil {
		return nil, err
	}

	rn := &run{id: uuid.NewString()}
	rn.logger = r.Logger.With("run", rn.id)
	res := &Result{RunID: rn.id, Durations: make(map[Stage]time.Duration)}
	rn.logger.Info("starting run", "panels", len(t.Panels), "rejected", len(t.Rejected), "kernel", r.Kernel.Name())

	for _, rej := range t.Rejected {
		rn.fail(rej.Panel, StageTopology, rej.Err)
	}
	for _, w := range t.Warnings {
		rn.logger.Warn("topology", "warning", w)
	}

	start := time.Now()
	panels, err := r.buildPanels(ctx, rn, t.Panels)
	res.Panels = panels
	res.Durations[StagePanel] = time.Since(start)
	rn.logger.Info("panels done", "panels", len(panels), "took", res.Durations[StagePanel].Round(time.Millisecond))
	if err != nil {
		return r.finish(res, rn), err
	}

	start = time.Now()
	joints, reports, err := r.applyJoints(ctx, rn, t)
	res.Joints = reports
	res.Durations[StageJoints] = time.Since(start)
	rn.logger.Info("joints done", "joints", len(reports), "took", res.Durations[StageJoints].Round(time.Millisecond))
	if err != nil {
		return r.finish(res, rn), err
	}

	start = time.Now()
	err = r.detailPlates(ctx, rn, joints, res)
	res.Durations[StagePlateDetails] = time.Since(start)
	rn.logger.Info("plates done", "took", res.Durations[StagePlateDetails].Round(time.Millisecond))
	if err != nil {
		return r.finish(res, rn), err
	}

	recs, err := r.Store.List(ctx, store.Filter{RunID: rn.id})
	if err != nil {
		return r.finish(res, rn), err
	}
	g, err := graph.FromRecords(recs)
	if err != nil {
		rn.fail(rn.id, StageGraph, err)
	} else {
		res.Graph = g
		for _, v := range graph.Validate(g) {
			rn.logger.Warn("graph", "node", v.NodeID, "err", v.Message)
		}
	}

	r.finish(res, rn)
	rn.logger.Info("run done", "components", len(recs), "failures", len(res.Failures))
	return res, nil
}

func (r *Runner) finish(res *Result, rn *run) *Result {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	res.Failures = append([]Failure(nil), rn.failures...)
	sort.SliceStable(res.Failures, func(i, j int) bool {
		return res.Failures[i].Component < res.Failures[j].Component
	})
	return res
}

func (r *Runner) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Concurrency)
	return g, gctx
}

// buildPanels runs stage 1. Reports keep the panel order of the input.
func (r *Runner) buildPanels(ctx context.Context, rn *run, panels []*topology.Panel) ([]PanelReport, error) {
	reports := make([]PanelReport, len(panels))
	g, gctx := r.group(ctx)
	for i, p := range panels {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rep, err := r.buildPanel(gctx, rn, p)
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, ctx.Err()
}

// buildPanel builds and stores everything derived from one panel. Only a
// canceled context is returned as an error.
func (r *Runner) buildPanel(ctx context.Context, rn *run, p *topology.Panel) (PanelReport, error) {
	rep := PanelReport{Panel: p.Name}
	s := r.Settings

	layers, err := layer.BuildCassette(p.Name, p.Outline, p.Normal(), p.Dihedral, s)
	if err != nil {
		rn.fail(p.Name, StageLayers, err)
	}
	rep.Levels = len(layers)

	var bottom []*component.Beam
	for _, l := range layers {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		outlines, err := l.CreateBeams()
		if err != nil {
			rn.fail(p.Name, StageBeams, err)
			break
		}
		beams := make([]*component.Beam, len(outlines))
		for i, o := range outlines {
			b, err := r.buildBeam(ctx, rn, p, o)
			if err != nil {
				rn.fail(o.ID, StageBeams, err)
				continue
			}
			beams[i] = b
			rep.Beams[l.Level]++
		}
		if l.Level == layer.Levels-1 {
			bottom = beams
		}
	}

	if err := r.buildPlate(ctx, rn, p); err != nil {
		rn.fail(component.PlateID(p.Name), StagePlate, err)
	} else {
		rep.Plate = true
	}

	if bottom != nil {
		rep.Dowels = r.buildDowels(ctx, rn, p, bottom)
	}

	if err := store.Save(ctx, r.Store, component.NewPanel(p, layers), rn.id); err != nil {
		rn.fail(p.Name, StagePanel, err)
	}
	rn.logger.Debug("panel built", "panel", p.Name, "levels", rep.Levels, "beams", rep.Beams, "dowels", rep.Dowels)
	return rep, ctx.Err()
}

func (r *Runner) buildBeam(ctx context.Context, rn *run, p *topology.Panel, o layer.BeamOutline) (*component.Beam, error) {
	b, err := component.NewBeam(p.Name, o, r.Settings.BeamThickness)
	if err != nil {
		return nil, err
	}
	if _, err := b.Volume(r.Kernel); err != nil {
		return nil, err
	}
	if err := store.Save(ctx, r.Store, b, rn.id); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Runner) buildPlate(ctx context.Context, rn *run, p *topology.Panel) error {
	plate, err := component.NewPlate(p, r.Settings)
	if err != nil {
		return err
	}
	if _, err := plate.Volume(r.Kernel); err != nil {
		return err
	}
	return store.Save(ctx, r.Store, plate, rn.id)
}

// buildDowels places one dowel per corner, between the bottom beams ending
// and starting there. It returns the number stored.
func (r *Runner) buildDowels(ctx context.Context, rn *run, p *topology.Panel, beams []*component.Beam) int {
	n := len(beams)
	count := 0
	for c := 0; c < n; c++ {
		id := component.DowelID(p.Name, c)
		a, b := beams[(c+n-1)%n], beams[c]
		if a == nil || b == nil {
			rn.fail(id, StageDowels, errors.New(errors.ErrCodeNotFound, "dowel %s is missing a bottom beam", id))
			continue
		}
		d, err := component.NewDowel(p, c, a, b, r.Settings)
		if err == nil {
			_, err = d.Volume(r.Kernel)
		}
		if err == nil {
			err = store.Save(ctx, r.Store, d, rn.id)
		}
		if err != nil {
			rn.fail(id, StageDowels, err)
			continue
		}
		count++
	}
	return count
}
