package metrics

import (
	"math"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/traverse"
)

// betweenness is the weighted shortest-path betweenness over ordered pairs,
// normalized by 1/((n-1)(n-2)).
func betweenness(v *view) ([]float64, error) {
	if err := v.atLeast(1); err != nil {
		return nil, err
	}
	out := make([]float64, v.n)
	if v.n < 3 {
		return out, nil
	}
	raw := network.BetweennessWeighted(v.costGraph(), *v.paths())
	scale := 1 / float64((v.n-1)*(v.n-2))
	for id, b := range raw {
		out[id] = b * scale
	}
	return out, nil
}

// closeness uses incoming distances with the Wasserman-Faust correction for
// partially reachable nodes.
func closeness(v *view) ([]float64, error) {
	if err := v.atLeast(1); err != nil {
		return nil, err
	}
	out := make([]float64, v.n)
	if v.n < 2 {
		return out, nil
	}
	p := v.paths()
	for u := 0; u < v.n; u++ {
		var (
			sum   float64
			reach int
		)
		for s := 0; s < v.n; s++ {
			if s == u {
				continue
			}
			d := p.Weight(int64(s), int64(u))
			if math.IsInf(d, 1) {
				continue
			}
			sum += d
			reach++
		}
		if sum > 0 {
			out[u] = float64(reach) / sum * float64(reach) / float64(v.n-1)
		}
	}
	return out, nil
}

// hops returns breadth-first hop distances from id in g; unreachable nodes are absent.
func hops(g traverse.Graph, from gonum.Node) map[int64]int {
	dist := make(map[int64]int)
	var bf traverse.BreadthFirst
	bf.Walk(g, from, func(n gonum.Node, d int) bool {
		dist[n.ID()] = d
		return false
	})
	return dist
}

// harmonic sums reciprocal hop distances on the undirected projection.
func harmonic(v *view) ([]float64, error) {
	if err := v.atLeast(1); err != nil {
		return nil, err
	}
	ug := v.undirected()
	out := make([]float64, v.n)
	for u := 0; u < v.n; u++ {
		for id, d := range hops(ug, ug.Node(int64(u))) {
			if int(id) != u && d > 0 {
				out[u] += 1 / float64(d)
			}
		}
	}
	return out, nil
}

// averagePathLength is the mean hop distance over all ordered pairs of the
// directed graph. Callers must ensure the graph is strongly connected.
func averagePathLength(v *view) (float64, error) {
	if err := v.atLeast(1); err != nil {
		return 0, err
	}
	if v.n == 1 {
		return 0, nil
	}
	dg := v.g.Directed()
	total := 0
	for u := 0; u < v.n; u++ {
		dist := hops(dg, dg.Node(int64(u)))
		if len(dist) != v.n {
			return 0, errNotStronglyConnected
		}
		for _, d := range dist {
			total += d
		}
	}
	return float64(total) / float64(v.n*(v.n-1)), nil
}
