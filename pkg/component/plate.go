package component

import (
	"sort"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/offset"
	"github.com/chazu/cassette/pkg/sawtooth"
	"github.com/chazu/cassette/pkg/topology"
)

// Plate is the sheet closing a cassette below its three beam layers.
type Plate struct {
	ID        string       `json:"id"`
	Panel     string       `json:"panel"`
	Plane     geom.Plane   `json:"plane"`
	Thickness float64      `json:"thickness"`
	Top       geom.Polygon `json:"top"`
	Bottom    geom.Polygon `json:"bottom"`
	Radius    float64      `json:"radius"`
	// Details holds at most one sawtooth per edge, sorted by edge.
	Details []PlateDetail `json:"details,omitempty"`
}

// PlateDetail is one toothed plate edge.
type PlateDetail struct {
	Joint      string          `json:"joint"`
	Top        sawtooth.Detail `json:"top"`
	Bottom     sawtooth.Detail `json:"bottom"`
	ToothCount int             `json:"toothCount"`
	Flipped    bool            `json:"flipped"`
}

// NewPlate builds the plate of a panel. Its top sits below the three beam
// layers.
func NewPlate(p *topology.Panel, s config.GeometrySettings) (*Plate, error) {
	id := PlateID(p.Name)
	top, err := offset.DraftAngleOffset(p.Outline, p.Plane, p.Dihedral, 3*s.BeamThickness)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "plate %s top outline", id)
	}
	plane := p.Plane.WithOrigin(top.Centroid())
	bottom, err := offset.DraftAngleOffset(top, plane, p.Dihedral, s.PlateThickness)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "plate %s bottom outline", id)
	}
	return &Plate{
		ID:        id,
		Panel:     p.Name,
		Plane:     plane,
		Thickness: s.PlateThickness,
		Top:       top,
		Bottom:    bottom,
		Radius:    s.ToolheadRadius,
	}, nil
}

func (p *Plate) ComponentID() string { return p.ID }
func (p *Plate) Kind() Kind          { return KindPlate }
func (p *Plate) PanelName() string   { return p.Panel }

// SetDetail adds or replaces the detail on d's edge.
func (p *Plate) SetDetail(d PlateDetail) error {
	if d.Top.Edge != d.Bottom.Edge {
		return errors.New(errors.ErrCodeInvalidInput, "plate %s: top detail on edge %s, bottom on %s",
			p.ID, geom.EdgeKey(d.Top.Edge), geom.EdgeKey(d.Bottom.Edge))
	}
	if d.Top.Edge < 0 || d.Top.Edge >= p.Top.Len() {
		return errors.New(errors.ErrCodeInvalidInput, "plate %s has no edge %d", p.ID, d.Top.Edge)
	}
	for i := range p.Details {
		if p.Details[i].Top.Edge == d.Top.Edge {
			p.Details[i] = d
			return nil
		}
	}
	p.Details = append(p.Details, d)
	sort.Slice(p.Details, func(i, j int) bool { return p.Details[i].Top.Edge < p.Details[j].Top.Edge })
	return nil
}

// DetailedCurves joins the toothed top and bottom outlines.
func (p *Plate) DetailedCurves(k kernel.Kernel) (top, bottom geom.Polygon, err error) {
	tops, bottoms := p.split()
	top, err = sawtooth.Curve(k, p.Plane, p.Top, tops, p.Radius)
	if err != nil {
		return geom.Polygon{}, geom.Polygon{}, errors.Wrap(errors.GetCode(err), err, "plate %s top", p.ID)
	}
	bottom, err = sawtooth.Curve(k, p.Plane, p.Bottom, bottoms, p.Radius)
	if err != nil {
		return geom.Polygon{}, geom.Polygon{}, errors.Wrap(errors.GetCode(err), err, "plate %s bottom", p.ID)
	}
	return top, bottom, nil
}

func (p *Plate) split() (tops, bottoms []sawtooth.Detail) {
	for _, d := range p.Details {
		tops = append(tops, d.Top)
		bottoms = append(bottoms, d.Bottom)
	}
	return tops, bottoms
}

// Volume lofts the plate including any toothed edges.
func (p *Plate) Volume(k kernel.Kernel) (kernel.Solid, error) {
	tops, bottoms := p.split()
	s, err := sawtooth.Reconstruct(k, p.Plane, p.Top, p.Bottom, tops, bottoms, p.Radius)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "plate %s volume", p.ID)
	}
	return s, nil
}
