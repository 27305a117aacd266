package metrics

import (
	"gonum.org/v1/gonum/graph/topo"

	"github.com/Kkro1s/HongLouMeng/internal/models"
)

type connectivity struct {
	strong, weak   bool
	strongN, weakN int
}

func (v *view) connectivity() (connectivity, error) {
	if err := v.atLeast(1); err != nil {
		return connectivity{}, err
	}
	scc := topo.TarjanSCC(v.g.Directed())
	wcc := topo.ConnectedComponents(v.undirected())
	return connectivity{
		strong:  len(scc) == 1,
		weak:    len(wcc) == 1,
		strongN: len(scc),
		weakN:   len(wcc),
	}, nil
}

// properties computes the whole-graph aggregates and records failures on a.
func (v *view) properties(a *Analysis, parts [][]int) models.NetworkProperties {
	p := models.NetworkProperties{
		Nodes: v.n,
		Edges: v.edges(),
	}
	if v.n > 1 {
		p.Density = float64(p.Edges) / float64(v.n*(v.n-1))
	}
	for i, r := range a.Nodes {
		p.AvgDegree += float64(r.Degree)
		if i == 0 || r.Degree < p.MinDegree {
			p.MinDegree = r.Degree
		}
		p.MaxDegree = max(p.MaxDegree, r.Degree)
	}
	if v.n > 0 {
		p.AvgDegree /= float64(v.n)
	}

	p.Reciprocity = collect(a, Compute(MetricReciprocity, func() (float64, error) { return reciprocity(v) }), 0)
	p.Transitivity = collect(a, Compute(MetricTransitivity, func() (float64, error) { return transitivity(v), nil }), 0)

	conn := collect(a, Compute(MetricConnectivity, v.connectivity), connectivity{})
	p.StronglyConnected = conn.strong
	p.WeaklyConnected = conn.weak
	p.StrongComponents = conn.strongN
	p.WeakComponents = conn.weakN

	avg := Compute(MetricAvgPath, func() (float64, error) {
		if !conn.strong {
			return 0, errNotStronglyConnected
		}
		return averagePathLength(v)
	})
	if l := collect(a, avg, 0); avg.OK() {
		p.AveragePathLength = &l
	}

	p.Modularity = collect(a, Compute(MetricModularity, func() (float64, error) { return modularity(v, parts) }), 0)
	return p
}
