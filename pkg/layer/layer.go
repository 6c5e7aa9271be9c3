// Package layer stacks the beam courses of a cassette.
//
// Each panel carries three layers. Level 0 starts at the panel outline and
// every following level starts at the bottom outline of the one above it.
// Within a layer every polygon edge gets one quad beam footprint; even and
// odd levels assemble their quads from opposite inflection points so that
// consecutive courses overlap at the corners like brickwork.
package layer

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/inflection"
	"github.com/chazu/cassette/pkg/offset"
)

// Levels is the number of beam layers in a cassette.
const Levels = 3

// Beam side labels, in outline edge order.
const (
	SideA = iota
	SideB
	SideC
	SideD
)

// BeamID returns the identifier of the beam on edge of level in panel.
func BeamID(panel string, level, edge int) string {
	return fmt.Sprintf("%s_B%d%s", panel, level, geom.EdgeKey(edge))
}

// BeamOutline is the footprint of one beam at the top of its layer.
// Its first segment always lies on the layer's outline edge.
type BeamOutline struct {
	ID      string       `json:"id"`
	Level   int          `json:"level"`
	Edge    int          `json:"edge"`
	Outline geom.Polygon `json:"outline"`
	// Angles holds the neighbor angle facing each side a..d; zero marks
	// a side that is an internal seam.
	Angles [4]float64 `json:"angles"`
	Plane  geom.Plane `json:"plane"`
}

// Layer is one beam course of a panel.
type Layer struct {
	Parent     string
	Level      int
	Plane      geom.Plane
	Top        geom.Polygon
	Bottom     geom.Polygon
	Inflection inflection.Map
	Dihedral   []float64
	Settings   config.GeometrySettings
}

// Build derives a layer from its top outline. dihedral holds one neighbor
// angle per outline edge.
func Build(parent string, level int, top geom.Polygon, normal r3.Vec, dihedral []float64, settings config.GeometrySettings) (*Layer, error) {
	plane, err := geom.NewPlane(top.Centroid(), normal)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s level %d", parent, level)
	}

	bottom, err := offset.DraftAngleOffset(top, plane, dihedral, settings.BeamThickness)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s level %d bottom outline", parent, level)
	}

	infl, err := inflection.Compute(top, plane.Z, level, dihedral, settings.BeamMaxWidth, settings.BeamThickness)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s level %d inflection points", parent, level)
	}

	angles := make([]float64, len(dihedral))
	copy(angles, dihedral)

	return &Layer{
		Parent:     parent,
		Level:      level,
		Plane:      plane,
		Top:        top,
		Bottom:     bottom,
		Inflection: infl,
		Dihedral:   angles,
		Settings:   settings,
	}, nil
}

// Even reports whether the layer uses the even quad assembly.
func (l *Layer) Even() bool { return l.Level%2 == 0 }

// CreateBeams assembles one beam footprint per outline edge.
func (l *Layer) CreateBeams() ([]BeamOutline, error) {
	n := l.Top.Len()
	m := l.Inflection
	beams := make([]BeamOutline, n)

	for i := 0; i < n; i++ {
		var pts []r3.Vec
		var angles [4]float64
		if l.Even() {
			pts = []r3.Vec{
				m.Get(i, inflection.Right),
				m.Corner(i + 1),
				m.Get(i+1, inflection.Right),
				m.Get(i, inflection.Inner),
			}
			angles[SideA] = l.Dihedral[i]
			angles[SideB] = l.Dihedral[geom.Wrap(i+1, n)]
		} else {
			pts = []r3.Vec{
				m.Corner(i),
				m.Get(i+1, inflection.Left),
				m.Get(i+1, inflection.Inner),
				m.Get(i, inflection.Left),
			}
			angles[SideA] = l.Dihedral[i]
			angles[SideD] = l.Dihedral[geom.Wrap(i-1, n)]
		}

		id := BeamID(l.Parent, l.Level, i)
		outline, err := geom.NewPolygon(pts)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "beam %s", id)
		}
		plane, err := BeamPlane(outline)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDegenerateAngle, err, "beam %s", id)
		}

		beams[i] = BeamOutline{
			ID:      id,
			Level:   l.Level,
			Edge:    i,
			Outline: outline,
			Angles:  angles,
			Plane:   plane,
		}
	}
	return beams, nil
}

// BeamPlane returns the reference plane of a quad beam outline: centered on
// the outline, X along side a and Y against the direction of side d.
func BeamPlane(outline geom.Polygon) (geom.Plane, error) {
	x := outline.Edge(SideA).Direction()
	y := r3.Scale(-1, outline.Edge(SideD).Direction())
	return geom.PlaneFromAxes(outline.Centroid(), x, y)
}

// BuildCassette builds all levels of a panel, each from the bottom outline
// of the previous one. On failure it returns the layers built so far along
// with the error; deeper layers are never built on a failed one.
func BuildCassette(parent string, outline geom.Polygon, normal r3.Vec, dihedral []float64, settings config.GeometrySettings) ([]*Layer, error) {
	layers := make([]*Layer, 0, Levels)
	top := outline
	for level := 0; level < Levels; level++ {
		l, err := Build(parent, level, top, normal, dihedral, settings)
		if err != nil {
			return layers, err
		}
		layers = append(layers, l)
		top = l.Bottom
	}
	return layers, nil
}
