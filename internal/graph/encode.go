package graph

import (
	"fmt"

	"gonum.org/v1/gonum/graph/encoding/dot"
)

// MarshalDOT renders the graph in Graphviz DOT with a weight attribute per edge.
func (g *Graph) MarshalDOT(name string) ([]byte, error) {
	b, err := dot.Marshal(g.g, name, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("graph: marshal dot: %w", err)
	}
	return b, nil
}

// NodeLink is the node-link JSON shape used by graph viewers.
type NodeLink struct {
	Directed bool           `json:"directed"`
	Nodes    []NodeLinkNode `json:"nodes"`
	Links    []WeightedEdge `json:"links"`
}

// NodeLinkNode is one vertex in a NodeLink document.
type NodeLinkNode struct {
	ID    string `json:"id"`
	Focal bool   `json:"focal,omitempty"`
}

// NodeLink returns the node-link view, flagging focal.
func (g *Graph) NodeLink(focal string) NodeLink {
	nl := NodeLink{
		Directed: true,
		Nodes:    make([]NodeLinkNode, 0, len(g.names)),
		Links:    g.Edges(),
	}
	for _, n := range g.names {
		nl.Nodes = append(nl.Nodes, NodeLinkNode{ID: n, Focal: n == focal})
	}
	if nl.Links == nil {
		nl.Links = []WeightedEdge{}
	}
	return nl
}
