package graph

import (
	"sort"

	"github.com/chazu/cassette/pkg/errors"
)

// TopologicalOrder returns every node after all of its dependencies. Ties
// are broken by id so the order is stable across runs. Dependencies that
// are not in the graph are ignored.
func TopologicalOrder(g *ComponentGraph) ([]NodeID, error) {
	indegree := make(map[NodeID]int, len(g.Nodes))
	dependents := make(map[NodeID][]NodeID)
	for _, id := range g.IDs() {
		indegree[id] += 0
		for _, dep := range g.Nodes[id].Deps {
			if _, ok := g.Nodes[dep]; !ok {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []NodeID
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	sortIDs(ready)

	order := make([]NodeID, 0, len(g.Nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var next []NodeID
		for _, d := range dependents[id] {
			indegree[d]--
			if indegree[d] == 0 {
				next = append(next, d)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			sortIDs(ready)
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, errors.New(errors.ErrCodeInternal, "component graph has a cycle")
	}
	return order, nil
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
