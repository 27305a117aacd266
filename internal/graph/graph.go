// Package graph builds the directed weighted interaction graph.
package graph

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
)

// PathCost selects how edge weights become shortest-path costs.
type PathCost string

const (
	// CostWeight uses the interaction frequency itself as the path cost.
	CostWeight PathCost = "weight"
	// CostInverse uses 1/frequency, so frequent pairs are close.
	CostInverse PathCost = "inverse"
)

// Node is a character vertex.
type Node struct {
	id   int64
	Name string
}

func (n Node) ID() int64 { return n.id }

// DOTID implements dot.Node.
func (n Node) DOTID() string { return n.Name }

// Edge is a weighted directed edge between two characters.
type Edge struct {
	F, T Node
	W    float64
}

func (e Edge) From() gonum.Node         { return e.F }
func (e Edge) To() gonum.Node           { return e.T }
func (e Edge) ReversedEdge() gonum.Edge { return Edge{F: e.T, T: e.F, W: e.W} }
func (e Edge) Weight() float64          { return e.W }

// Attributes implements encoding.Attributer for DOT output.
func (e Edge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "weight", Value: strconv.FormatFloat(e.W, 'g', -1, 64)}}
}

// WeightedEdge is the name-level view of an edge.
type WeightedEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Graph is an immutable directed weighted graph keyed by character id.
// Node ids are assigned in sorted-name order.
type Graph struct {
	g     *simple.WeightedDirectedGraph
	names []string
	ids   map[string]int64
}

// Builder collects nodes and edges. Repeated keys have their weights summed.
type Builder struct {
	nodes   map[string]struct{}
	weights map[models.EdgeKey]float64
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:   make(map[string]struct{}),
		weights: make(map[models.EdgeKey]float64),
	}
}

// AddNode ensures name is a vertex even when it has no edges.
func (b *Builder) AddNode(name string) error {
	if name == "" {
		return fmt.Errorf("graph: empty node id: %w", apperr.ErrMalformedEdge)
	}
	b.nodes[name] = struct{}{}
	return nil
}

// Add folds edges into the builder. A self-loop or malformed edge aborts with
// apperr.ErrSelfLoop or apperr.ErrMalformedEdge and leaves the builder unchanged.
func (b *Builder) Add(edges ...models.AggregatedEdge) error {
	for _, e := range edges {
		if err := validate(e); err != nil {
			return err
		}
	}
	for _, e := range edges {
		b.nodes[e.Source] = struct{}{}
		b.nodes[e.Target] = struct{}{}
		b.weights[e.Key()] += float64(e.Frequency)
	}
	return nil
}

func validate(e models.AggregatedEdge) error {
	switch {
	case e.Source == "" || e.Target == "":
		return fmt.Errorf("graph: edge %s: empty endpoint: %w", e.Key(), apperr.ErrMalformedEdge)
	case e.Source == e.Target:
		return fmt.Errorf("graph: edge %s: %w", e.Key(), apperr.ErrSelfLoop)
	case e.Frequency <= 0:
		return fmt.Errorf("graph: edge %s: frequency %d: %w", e.Key(), e.Frequency, apperr.ErrMalformedEdge)
	}
	return nil
}

// Build materializes the graph.
func (b *Builder) Build() *Graph {
	names := make([]string, 0, len(b.nodes))
	for n := range b.nodes {
		names = append(names, n)
	}
	slices.Sort(names)

	gr := &Graph{
		g:     simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		names: names,
		ids:   make(map[string]int64, len(names)),
	}
	for i, n := range names {
		gr.ids[n] = int64(i)
		gr.g.AddNode(Node{id: int64(i), Name: n})
	}
	for k, w := range b.weights {
		gr.g.SetWeightedEdge(Edge{F: gr.node(k.Source), T: gr.node(k.Target), W: w})
	}
	return gr
}

// Build is a shorthand for a Builder fed with edges.
func Build(edges ...models.AggregatedEdge) (*Graph, error) {
	b := NewBuilder()
	if err := b.Add(edges...); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func (g *Graph) node(name string) Node {
	return Node{id: g.ids[name], Name: name}
}

// Directed exposes the underlying gonum graph for read-only algorithms.
func (g *Graph) Directed() *simple.WeightedDirectedGraph {
	return g.g
}

// Nodes returns every node name in id order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.names)
}

// Order returns the number of nodes.
func (g *Graph) Order() int {
	return len(g.names)
}

// Size returns the number of directed edges.
func (g *Graph) Size() int {
	return g.g.Edges().Len()
}

// Has reports whether name is a vertex.
func (g *Graph) Has(name string) bool {
	_, ok := g.ids[name]
	return ok
}

// ID returns the gonum id of name.
func (g *Graph) ID(name string) (int64, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// Name returns the character for a gonum id.
func (g *Graph) Name(id int64) string {
	if id < 0 || int(id) >= len(g.names) {
		return ""
	}
	return g.names[id]
}

// Weight returns the weight of u->v.
func (g *Graph) Weight(u, v string) (float64, bool) {
	uid, ok1 := g.ids[u]
	vid, ok2 := g.ids[v]
	if !ok1 || !ok2 || uid == vid {
		return 0, false
	}
	return g.g.Weight(uid, vid)
}

// Successors returns the out-neighbours of name, sorted.
func (g *Graph) Successors(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.g.From(id))
}

// Predecessors returns the in-neighbours of name, sorted.
func (g *Graph) Predecessors(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.g.To(id))
}

func (g *Graph) namesOf(it gonum.Nodes) []string {
	var out []string
	for it.Next() {
		out = append(out, g.names[it.Node().ID()])
	}
	slices.Sort(out)
	return out
}

// Edges returns every edge ordered by source then target.
func (g *Graph) Edges() []WeightedEdge {
	var out []WeightedEdge
	for it := g.g.WeightedEdges(); it.Next(); {
		e := it.WeightedEdge()
		out = append(out, WeightedEdge{
			Source: g.names[e.From().ID()],
			Target: g.names[e.To().ID()],
			Weight: e.Weight(),
		})
	}
	slices.SortFunc(out, func(a, b WeightedEdge) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Target, b.Target))
	})
	return out
}

// AggregatedEdges re-derives (source, target, frequency) rows from the graph,
// ordered by frequency descending then source and target. Histograms,
// chapters and contexts are not recoverable and are left empty.
func (g *Graph) AggregatedEdges() []models.AggregatedEdge {
	edges := g.Edges()
	out := make([]models.AggregatedEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, models.AggregatedEdge{
			Source:    e.Source,
			Target:    e.Target,
			Frequency: int(math.Round(e.Weight)),
		})
	}
	slices.SortFunc(out, func(a, b models.AggregatedEdge) int {
		return cmp.Or(
			cmp.Compare(b.Frequency, a.Frequency),
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.Target, b.Target),
		)
	})
	return out
}

// Undirected projects the graph onto an undirected graph; the weight of {u,v}
// is w(u->v) + w(v->u).
func (g *Graph) Undirected() *simple.WeightedUndirectedGraph {
	u := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i, n := range g.names {
		u.AddNode(Node{id: int64(i), Name: n})
	}
	for it := g.g.WeightedEdges(); it.Next(); {
		e := it.WeightedEdge()
		fid, tid := e.From().ID(), e.To().ID()
		w := e.Weight()
		if prev, ok := u.Weight(fid, tid); ok {
			w += prev
		}
		u.SetWeightedEdge(Edge{F: g.node(g.names[fid]), T: g.node(g.names[tid]), W: w})
	}
	return u
}

// CostGraph returns a copy whose edge weights are path costs under conv.
func (g *Graph) CostGraph(conv PathCost) *simple.WeightedDirectedGraph {
	c := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for i, n := range g.names {
		c.AddNode(Node{id: int64(i), Name: n})
	}
	for it := g.g.WeightedEdges(); it.Next(); {
		e := it.WeightedEdge()
		w := e.Weight()
		if conv == CostInverse {
			w = 1 / w
		}
		c.SetWeightedEdge(Edge{F: e.From().(Node), T: e.To().(Node), W: w})
	}
	return c
}

// ParsePathCost validates a path-cost name; the empty string means CostWeight.
func ParsePathCost(s string) (PathCost, error) {
	switch PathCost(s) {
	case "", CostWeight:
		return CostWeight, nil
	case CostInverse:
		return CostInverse, nil
	}
	return "", fmt.Errorf("graph: unknown path cost %q", s)
}
