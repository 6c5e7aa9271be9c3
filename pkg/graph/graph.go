package graph

import (
	"sort"

	"github.com/chazu/cassette/pkg/component"
)

// ComponentGraph is the dependency DAG of one run.
type ComponentGraph struct {
	Nodes map[NodeID]*Node `json:"nodes"`
	// Roots are the panels, in insertion order.
	Roots []NodeID `json:"roots"`
}

// New creates an empty graph.
func New() *ComponentGraph {
	return &ComponentGraph{Nodes: make(map[NodeID]*Node)}
}

// AddNode adds a node. A node with the same id is replaced.
func (g *ComponentGraph) AddNode(n *Node) {
	if _, exists := g.Nodes[n.ID]; !exists && n.Kind == component.KindPanel {
		g.Roots = append(g.Roots, n.ID)
	}
	g.Nodes[n.ID] = n
}

// Add inserts a component with the dependencies implied by its kind.
func (g *ComponentGraph) Add(c component.Component) {
	n := &Node{ID: NodeID(c.ComponentID()), Kind: c.Kind(), Panel: c.PanelName()}
	switch v := c.(type) {
	case *component.Beam, *component.Plate:
		n.Deps = []NodeID{NodeID(c.PanelName())}
	case *component.Dowel:
		n.Deps = []NodeID{NodeID(v.Panel), NodeID(v.Beams[0]), NodeID(v.Beams[1])}
	case *component.Joint:
		n.Deps = []NodeID{NodeID(v.A), NodeID(v.B)}
		for _, b := range v.Beams {
			n.Deps = append(n.Deps, NodeID(b))
		}
	}
	g.AddNode(n)
}

// FromRecords builds the graph of stored records.
func FromRecords(recs []component.Record) (*ComponentGraph, error) {
	g := New()
	for _, r := range recs {
		c, err := component.Decode(r)
		if err != nil {
			return nil, err
		}
		g.Add(c)
	}
	return g, nil
}

// Get returns the node with the given id, or nil.
func (g *ComponentGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// NodeCount returns the total number of nodes.
func (g *ComponentGraph) NodeCount() int {
	return len(g.Nodes)
}

// IDs returns every node id, sorted.
func (g *ComponentGraph) IDs() []NodeID {
	ids := make([]NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OfKind returns the nodes of one kind, sorted by id.
func (g *ComponentGraph) OfKind(k component.Kind) []*Node {
	var out []*Node
	for _, id := range g.IDs() {
		if n := g.Nodes[id]; n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Dependents returns the nodes that depend on id, sorted by id.
func (g *ComponentGraph) Dependents(id NodeID) []*Node {
	var out []*Node
	for _, nid := range g.IDs() {
		n := g.Nodes[nid]
		for _, d := range n.Deps {
			if d == id {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
