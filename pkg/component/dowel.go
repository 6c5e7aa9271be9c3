package component

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/topology"
)

// Dowel pins the bottom beam layer to the plate at one panel corner.
type Dowel struct {
	ID     string     `json:"id"`
	Panel  string     `json:"panel"`
	Corner int        `json:"corner"`
	Plane  geom.Plane `json:"plane"`
	Radius float64    `json:"radius"`
	Height float64    `json:"height"`
	// Beams are the two bottom beams meeting at the corner.
	Beams [2]string `json:"beams"`
}

// NewDowel places the dowel at the corner where bottom beam a ends and
// bottom beam b begins. It sits on the diagonal between a's outer corner
// and b's inner corner, reaching from the middle of the plate up to the
// panel surface.
func NewDowel(p *topology.Panel, corner int, a, b *Beam, s config.GeometrySettings) (*Dowel, error) {
	id := DowelID(p.Name, corner)
	if a.Bottom.Len() != 4 || b.Bottom.Len() != 4 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "dowel %s needs quad beams", id)
	}
	helper := geom.Line{From: a.Bottom.Corner(1), To: b.Bottom.Corner(3)}
	origin := r3.Add(helper.Midpoint(), r3.Scale(-s.PlateThickness/2, p.Normal()))
	return &Dowel{
		ID:     id,
		Panel:  p.Name,
		Corner: corner,
		Plane:  p.Plane.WithOrigin(origin),
		Radius: s.DowelRadius,
		Height: 3*s.BeamThickness + s.PlateThickness/2,
		Beams:  [2]string{a.ID, b.ID},
	}, nil
}

func (d *Dowel) ComponentID() string { return d.ID }
func (d *Dowel) Kind() Kind          { return KindDowel }
func (d *Dowel) PanelName() string   { return d.Panel }

// Volume builds the dowel cylinder.
func (d *Dowel) Volume(k kernel.Kernel) (kernel.Solid, error) {
	s, err := k.Cylinder(d.Plane, d.Height, d.Radius)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernelOperation, err, "dowel %s volume", d.ID)
	}
	return s, nil
}
