package metrics

import "slices"

// Undirected triad classes.
const (
	Triad003 = "003"
	Triad102 = "102"
	Triad201 = "201"
	Triad300 = "300"
)

func emptyCensus() map[string]int {
	return map[string]int{Triad003: 0, Triad102: 0, Triad201: 0, Triad300: 0}
}

// triangles returns, per node, the number of triangles through it on the
// undirected projection.
func (v *view) triangles() []int {
	t := make([]int, v.n)
	for u := range v.und {
		for a := range v.und[u] {
			for b := range v.und[u] {
				if a < b {
					if _, ok := v.und[a][b]; ok {
						t[u]++
					}
				}
			}
		}
	}
	return t
}

// clustering is the unweighted local clustering coefficient.
func clustering(v *view) ([]float64, error) {
	if err := v.atLeast(1); err != nil {
		return nil, err
	}
	tri := v.triangles()
	out := make([]float64, v.n)
	for u := range out {
		k := len(v.und[u])
		if k >= 2 {
			out[u] = 2 * float64(tri[u]) / float64(k*(k-1))
		}
	}
	return out, nil
}

// transitivity is 3 * triangles / connected triples.
func transitivity(v *view) float64 {
	tri := v.triangles()
	var closed, triples float64
	for u := range tri {
		k := len(v.und[u])
		closed += float64(tri[u])
		triples += float64(k*(k-1)) / 2
	}
	if closed == 0 {
		return 0
	}
	return closed / triples
}

// coreNumbers peels minimum-degree nodes off the undirected projection.
func coreNumbers(v *view) []int {
	deg := make([]int, v.n)
	for u := range v.und {
		deg[u] = len(v.und[u])
	}
	core := make([]int, v.n)
	removed := make([]bool, v.n)
	k := 0
	for range v.n {
		u := -1
		for i := range deg {
			if !removed[i] && (u == -1 || deg[i] < deg[u]) {
				u = i
			}
		}
		k = max(k, deg[u])
		core[u] = k
		removed[u] = true
		for t := range v.und[u] {
			if !removed[t] {
				deg[t]--
			}
		}
	}
	return core
}

// neighbors returns every in- or out-neighbour of u, sorted.
func (v *view) neighbors(u int) []int {
	var out []int
	for t := range v.und[u] {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// mutual counts the directed ties between u and t, each worth 1.
func (v *view) mutual(u, t int) float64 {
	var w float64
	if _, ok := v.out[u][t]; ok {
		w++
	}
	if _, ok := v.out[t][u]; ok {
		w++
	}
	return w
}

func (v *view) normalizedMutual(u, t int) float64 {
	var total float64
	for _, w := range v.neighbors(u) {
		total += v.mutual(u, w)
	}
	if total == 0 {
		return 0
	}
	return v.mutual(u, t) / total
}

// constraint is Burt's structural-hole constraint on unweighted mutual ties.
// Isolated nodes score 0.
func constraint(v *view) ([]float64, error) {
	if err := v.atLeast(1); err != nil {
		return nil, err
	}
	out := make([]float64, v.n)
	for u := range out {
		nbrs := v.neighbors(u)
		for _, t := range nbrs {
			local := v.normalizedMutual(u, t)
			for _, w := range nbrs {
				local += v.normalizedMutual(u, w) * v.normalizedMutual(w, t)
			}
			out[u] += local * local
		}
	}
	return out, nil
}

// triadCensus classifies every unordered triple by its undirected edge count.
func triadCensus(v *view) map[string]int {
	census := emptyCensus()
	classes := [4]string{Triad003, Triad102, Triad201, Triad300}
	linked := func(a, b int) int {
		if _, ok := v.und[a][b]; ok {
			return 1
		}
		return 0
	}
	for a := 0; a < v.n; a++ {
		for b := a + 1; b < v.n; b++ {
			ab := linked(a, b)
			for c := b + 1; c < v.n; c++ {
				census[classes[ab+linked(a, c)+linked(b, c)]]++
			}
		}
	}
	return census
}

// reciprocity is the share of directed edges whose reverse also exists.
func reciprocity(v *view) (float64, error) {
	m := v.edges()
	if m == 0 {
		return 0, errNoEdges
	}
	mutual := 0
	for u := range v.out {
		for t := range v.out[u] {
			if _, ok := v.out[t][u]; ok {
				mutual++
			}
		}
	}
	return float64(mutual) / float64(m), nil
}
