package component

import (
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/layer"
	"github.com/chazu/cassette/pkg/offset"
	"github.com/chazu/cassette/pkg/sawtooth"
)

// Beam is one quad beam of a cassette layer.
type Beam struct {
	ID        string       `json:"id"`
	Panel     string       `json:"panel"`
	Level     int          `json:"level"`
	Edge      int          `json:"edge"`
	Plane     geom.Plane   `json:"plane"`
	Thickness float64      `json:"thickness"`
	Angles    [4]float64   `json:"angles"`
	Top       geom.Polygon `json:"top"`
	Bottom    geom.Polygon `json:"bottom"`
	// Detail is set once a joint has cut teeth into the beam.
	Detail *BeamDetail `json:"detail,omitempty"`
}

// BeamDetail is the sawtooth a joint added to the first side of a beam.
type BeamDetail struct {
	Joint          string          `json:"joint"`
	Top            sawtooth.Detail `json:"top"`
	Bottom         sawtooth.Detail `json:"bottom"`
	DetailedTop    geom.Polygon    `json:"detailedTop"`
	DetailedBottom geom.Polygon    `json:"detailedBottom"`
	ToothCount     int             `json:"toothCount"`
	Flipped        bool            `json:"flipped"`
	Radius         float64         `json:"radius"`
}

// NewBeam builds a beam from its footprint. The bottom outline is set back
// on every side that faces a neighbor panel.
func NewBeam(panel string, o layer.BeamOutline, thickness float64) (*Beam, error) {
	bottom, err := offset.DraftAngleOffset(o.Outline, o.Plane, o.Angles[:], thickness)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "beam %s bottom outline", o.ID)
	}
	return &Beam{
		ID:        o.ID,
		Panel:     panel,
		Level:     o.Level,
		Edge:      o.Edge,
		Plane:     o.Plane,
		Thickness: thickness,
		Angles:    o.Angles,
		Top:       o.Outline,
		Bottom:    bottom,
	}, nil
}

func (b *Beam) ComponentID() string { return b.ID }
func (b *Beam) Kind() Kind          { return KindBeam }
func (b *Beam) PanelName() string   { return b.Panel }

// Detailed reports whether a joint has added teeth.
func (b *Beam) Detailed() bool { return b.Detail != nil }

// Volume lofts the beam, with its teeth when it has them.
func (b *Beam) Volume(k kernel.Kernel) (kernel.Solid, error) {
	if b.Detail == nil {
		s, err := k.Loft(b.Top, b.Bottom, b.Plane)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernelOperation, err, "beam %s volume", b.ID)
		}
		return s, nil
	}
	d := b.Detail
	s, err := sawtooth.Reconstruct(k, b.Plane, b.Top, b.Bottom,
		[]sawtooth.Detail{d.Top}, []sawtooth.Detail{d.Bottom}, d.Radius)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "beam %s detailed volume", b.ID)
	}
	return s, nil
}
