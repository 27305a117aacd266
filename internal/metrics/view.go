package metrics

import (
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/Kkro1s/HongLouMeng/internal/graph"
	"github.com/Kkro1s/HongLouMeng/internal/models"
)

// view is a dense-index snapshot of a Graph. Index i is the gonum node id.
type view struct {
	g     *graph.Graph
	n     int
	names []string
	out   []map[int]float64
	in    []map[int]float64
	und   []map[int]float64
	cost  graph.PathCost

	ug       *simple.WeightedUndirectedGraph
	cg       *simple.WeightedDirectedGraph
	shortest *path.AllShortest
}

func newView(g *graph.Graph, cost graph.PathCost) *view {
	names := g.Nodes()
	v := &view{
		g:     g,
		n:     len(names),
		names: names,
		out:   make([]map[int]float64, len(names)),
		in:    make([]map[int]float64, len(names)),
		und:   make([]map[int]float64, len(names)),
		cost:  cost,
	}
	for i := range names {
		v.out[i] = map[int]float64{}
		v.in[i] = map[int]float64{}
		v.und[i] = map[int]float64{}
	}
	for _, e := range g.Edges() {
		s, _ := g.ID(e.Source)
		t, _ := g.ID(e.Target)
		v.out[s][int(t)] = e.Weight
		v.in[t][int(s)] = e.Weight
		v.und[s][int(t)] += e.Weight
		v.und[t][int(s)] += e.Weight
	}
	return v
}

func (v *view) edges() int {
	m := 0
	for _, o := range v.out {
		m += len(o)
	}
	return m
}

func (v *view) undirected() *simple.WeightedUndirectedGraph {
	if v.ug == nil {
		v.ug = v.g.Undirected()
	}
	return v.ug
}

func (v *view) costGraph() *simple.WeightedDirectedGraph {
	if v.cg == nil {
		v.cg = v.g.CostGraph(v.cost)
	}
	return v.cg
}

// paths returns all weighted shortest paths under the configured cost.
func (v *view) paths() *path.AllShortest {
	if v.shortest == nil {
		p := path.DijkstraAllPaths(v.costGraph())
		v.shortest = &p
	}
	return v.shortest
}

// degrees fills the structural fields, which are always defined.
func (v *view) degrees(recs []models.MetricsRecord) {
	for i := range recs {
		r := &recs[i]
		r.OutDegree = len(v.out[i])
		r.InDegree = len(v.in[i])
		r.Degree = r.InDegree + r.OutDegree
		for _, w := range v.out[i] {
			r.WeightedOutDegree += w
		}
		for _, w := range v.in[i] {
			r.WeightedInDegree += w
		}
		r.WeightedDegree = r.WeightedInDegree + r.WeightedOutDegree
		if v.n > 1 {
			r.DegreeCentrality = float64(r.Degree) / float64(v.n-1)
		}
	}
}

func (v *view) atLeast(n int) error {
	switch {
	case v.n == 0:
		return errEmptyGraph
	case v.n < n:
		return errTooFewNodes
	}
	return nil
}
