package graph

import "github.com/chazu/cassette/pkg/component"

// NodeID is the identifier of the component a node stands for.
type NodeID string

// Node is one component in the graph.
type Node struct {
	ID    NodeID         `json:"id"`
	Kind  component.Kind `json:"kind"`
	Panel string         `json:"panel"`
	// Deps lists the nodes this component was derived from.
	Deps []NodeID `json:"deps,omitempty"`
}
