package component

import (
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/layer"
	"github.com/chazu/cassette/pkg/topology"
)

// LayerOutline is the top and bottom outline of one level.
type LayerOutline struct {
	Level  int          `json:"level"`
	Top    geom.Polygon `json:"top"`
	Bottom geom.Polygon `json:"bottom"`
}

// Panel is the stored form of a topology panel plus the outlines of the
// layers built for it.
type Panel struct {
	Name      string         `json:"name"`
	Outline   geom.Polygon   `json:"outline"`
	Plane     geom.Plane     `json:"plane"`
	Neighbors []string       `json:"neighbors"`
	Dihedral  []float64      `json:"dihedral"`
	Layers    []LayerOutline `json:"layers"`
}

// NewPanel records p and the layers that were built for it.
func NewPanel(p *topology.Panel, layers []*layer.Layer) *Panel {
	out := &Panel{
		Name:      p.Name,
		Outline:   p.Outline,
		Plane:     p.Plane,
		Neighbors: append([]string(nil), p.Neighbors...),
		Dihedral:  append([]float64(nil), p.Dihedral...),
	}
	for _, l := range layers {
		out.Layers = append(out.Layers, LayerOutline{Level: l.Level, Top: l.Top, Bottom: l.Bottom})
	}
	return out
}

func (p *Panel) ComponentID() string { return p.Name }
func (p *Panel) Kind() Kind          { return KindPanel }
func (p *Panel) PanelName() string   { return p.Name }
