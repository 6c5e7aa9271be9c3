// Package topology turns named panel outlines into the adjacency the
// generator works from: one reference plane per panel, the neighbor on
// every edge and the dihedral angle across it.
//
// Panels that fail validation are rejected individually. The rest of the
// envelope is still built, and rejected panels simply never become
// anybody's neighbor.
package topology

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
)

// EdgeTolerance is how far the end points of two edges may be apart for
// the edges to count as shared.
const EdgeTolerance = 0.01

// PlanarTolerance is how far an outline point may sit off its panel plane.
const PlanarTolerance = 1e-6

// PanelSpec is the input description of one panel.
type PanelSpec struct {
	Name   string       `json:"name"`
	Points [][3]float64 `json:"points"`
	// Neighbors claims a neighbor panel by name for some edges, keyed by
	// edge key. Claims are verified against the geometry.
	Neighbors map[string]string `json:"neighbors,omitempty"`
}

// Corners converts the spec points to vectors.
func (s PanelSpec) Corners() []r3.Vec {
	pts := make([]r3.Vec, len(s.Points))
	for i, p := range s.Points {
		pts[i] = geom.Vec(p[0], p[1], p[2])
	}
	return pts
}

// Panel is a validated panel with its adjacency filled in.
type Panel struct {
	Name    string       `json:"name"`
	Outline geom.Polygon `json:"outline"`
	Plane   geom.Plane   `json:"plane"`
	// Neighbors holds the neighbor panel name per edge, "" for none.
	Neighbors []string `json:"neighbors"`
	// Dihedral holds the neighbor angle per edge, 0 for none.
	Dihedral []float64 `json:"dihedral"`
}

// Normal returns the panel normal.
func (p *Panel) Normal() r3.Vec {
	return p.Plane.Z
}

// NeighborEdge returns the edge index shared with the named panel.
func (p *Panel) NeighborEdge(name string) (int, bool) {
	for i, n := range p.Neighbors {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// HasNeighbors reports whether any edge has a neighbor.
func (p *Panel) HasNeighbors() bool {
	for _, n := range p.Neighbors {
		if n != "" {
			return true
		}
	}
	return false
}

// Rejection records a panel that could not be used.
type Rejection struct {
	Panel string
	Err   error
}

// Adjacency is one shared edge between two panels. A is always the
// lexically smaller name.
type Adjacency struct {
	A, B         string
	EdgeA, EdgeB int
}

// Topology is the validated panel set.
type Topology struct {
	Panels   []*Panel
	Rejected []Rejection
	// Warnings lists edges that matched more than one neighbor.
	Warnings []string

	byName map[string]*Panel
}

// Panel looks up a panel by name.
func (t *Topology) Panel(name string) (*Panel, bool) {
	p, ok := t.byName[name]
	return p, ok
}

// Names returns the accepted panel names in input order.
func (t *Topology) Names() []string {
	names := make([]string, len(t.Panels))
	for i, p := range t.Panels {
		names[i] = p.Name
	}
	return names
}

// Adjacencies lists every shared edge once, sorted by panel names.
func (t *Topology) Adjacencies() []Adjacency {
	var out []Adjacency
	for _, a := range t.Panels {
		for ea, name := range a.Neighbors {
			if name == "" || name < a.Name {
				continue
			}
			b, ok := t.byName[name]
			if !ok {
				continue
			}
			eb, ok := b.NeighborEdge(a.Name)
			if !ok {
				continue
			}
			out = append(out, Adjacency{A: a.Name, B: b.Name, EdgeA: ea, EdgeB: eb})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Build validates the panel specs and computes their adjacency. Only
// whole-input problems are returned as an error; individual bad panels end
// up in Rejected.
func Build(specs []PanelSpec) (*Topology, error) {
	if len(specs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no panels")
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "panel without a name")
		}
		if seen[s.Name] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate panel name %q", s.Name)
		}
		seen[s.Name] = true
	}

	t := &Topology{byName: make(map[string]*Panel, len(specs))}
	candidates := make(map[string]*Panel, len(specs))
	for _, s := range specs {
		p, err := newPanel(s)
		if err != nil {
			t.Rejected = append(t.Rejected, Rejection{Panel: s.Name, Err: err})
			continue
		}
		candidates[s.Name] = p
	}

	for _, s := range specs {
		p, ok := candidates[s.Name]
		if !ok {
			continue
		}
		if err := verifyClaims(p, s.Neighbors, candidates); err != nil {
			t.Rejected = append(t.Rejected, Rejection{Panel: s.Name, Err: err})
			continue
		}
		t.Panels = append(t.Panels, p)
		t.byName[p.Name] = p
	}

	for i, a := range t.Panels {
		for _, b := range t.Panels[i+1:] {
			t.connect(a, b)
		}
	}
	return t, nil
}

func newPanel(s PanelSpec) (*Panel, error) {
	outline, err := geom.NewPolygon(s.Corners())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "panel %s", s.Name)
	}
	for i := 0; i < outline.Len(); i++ {
		if outline.Edge(i).Length() < geom.Tolerance {
			return nil, errors.New(errors.ErrCodeInvalidInput, "panel %s: edge %s has zero length", s.Name, geom.EdgeKey(i))
		}
	}
	normal := outline.Normal()
	if r3.Norm(normal) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "panel %s: outline has no area", s.Name)
	}
	xAxis := outline.Edge(0).Direction()
	plane, err := geom.PlaneFromAxes(outline.Centroid(), xAxis, r3.Cross(normal, xAxis))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "panel %s", s.Name)
	}
	for i, c := range outline.Corners() {
		if d := math.Abs(plane.ToLocal(c).Z); d > PlanarTolerance {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"panel %s: corner %s is %g off the panel plane", s.Name, geom.CornerKey(i), d)
		}
	}
	n := outline.Len()
	return &Panel{
		Name:      s.Name,
		Outline:   outline,
		Plane:     plane,
		Neighbors: make([]string, n),
		Dihedral:  make([]float64, n),
	}, nil
}

// verifyClaims checks every explicit neighbor claim of p against the
// geometry of the claimed panel.
func verifyClaims(p *Panel, claims map[string]string, panels map[string]*Panel) error {
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := claims[key]
		edge, err := geom.EdgeIndex(key)
		if err != nil || edge >= p.Outline.Len() {
			return errors.New(errors.ErrCodeInvalidInput, "panel %s: no edge %q", p.Name, key)
		}
		other, ok := panels[name]
		if !ok {
			return errors.New(errors.ErrCodeTopologyMismatch,
				"panel %s: edge %s claims unknown or rejected panel %q", p.Name, key, name)
		}
		if _, ok := sharedEdge(p.Outline.Edge(edge), other); !ok {
			return errors.New(errors.ErrCodeTopologyMismatch,
				"panel %s: edge %s does not coincide with any edge of %s", p.Name, key, name)
		}
	}
	return nil
}

func sharedEdge(edge geom.Line, other *Panel) (int, bool) {
	for j, e := range other.Outline.Edges() {
		if geom.EqualLines(edge, e, EdgeTolerance) {
			return j, true
		}
	}
	return 0, false
}

// connect records a and b as neighbors on every edge they share.
func (t *Topology) connect(a, b *Panel) {
	for i, e := range a.Outline.Edges() {
		j, ok := sharedEdge(e, b)
		if !ok {
			continue
		}
		t.setNeighbor(a, i, b)
		t.setNeighbor(b, j, a)
	}
}

func (t *Topology) setNeighbor(p *Panel, edge int, other *Panel) {
	if prev := p.Neighbors[edge]; prev != "" && prev != other.Name {
		t.Warnings = append(t.Warnings, fmt.Sprintf("panel %s: edge %s already shared with %s, now %s",
			p.Name, geom.EdgeKey(edge), prev, other.Name))
	}
	p.Neighbors[edge] = other.Name
	p.Dihedral[edge] = geom.VectorAngle(p.Normal(), other.Normal(), p.Outline.Edge(edge).Direction())
}
