package metrics

import (
	"cmp"
	"errors"
	"slices"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
)

// greedyModularity is Clauset-Newman-Moore agglomeration on the weighted
// undirected projection. Communities are returned largest first, ties broken
// by smallest member; members are sorted.
func greedyModularity(v *view) [][]int {
	comm := make([][]int, v.n)
	for i := range comm {
		comm[i] = []int{i}
	}
	var m2 float64
	strength := make([]float64, v.n)
	for u := range v.und {
		for _, w := range v.und[u] {
			strength[u] += w
			m2 += w
		}
	}
	if m2 > 0 {
		// between[i][j] is the total edge weight joining communities i and j.
		between := make([]map[int]float64, v.n)
		for u := range v.und {
			between[u] = make(map[int]float64, len(v.und[u]))
			for t, w := range v.und[u] {
				between[u][t] = w
			}
		}
		alive := make([]bool, v.n)
		for i := range alive {
			alive[i] = true
		}
		for {
			bi, bj, best := -1, -1, 0.0
			for i := range comm {
				if !alive[i] {
					continue
				}
				for j, w := range between[i] {
					if j <= i || !alive[j] {
						continue
					}
					dq := 2 * (w/m2 - strength[i]*strength[j]/(m2*m2))
					if dq > best || (dq == best && dq > 0 && (i < bi || (i == bi && j < bj))) {
						bi, bj, best = i, j, dq
					}
				}
			}
			if bi < 0 {
				break
			}
			comm[bi] = append(comm[bi], comm[bj]...)
			comm[bj] = nil
			alive[bj] = false
			strength[bi] += strength[bj]
			for k, w := range between[bj] {
				if k == bi {
					continue
				}
				between[bi][k] += w
				between[k][bi] += w
				delete(between[k], bj)
			}
			delete(between[bi], bj)
			between[bj] = nil
		}
	}

	var out [][]int
	for _, c := range comm {
		if len(c) > 0 {
			slices.Sort(c)
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b []int) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a[0], b[0]))
	})
	return out
}

// modularity scores parts on the weighted undirected projection.
func modularity(v *view, parts [][]int) (float64, error) {
	if v.edges() == 0 {
		return 0, errNoEdges
	}
	if len(parts) == 0 {
		return 0, errors.New("no partition")
	}
	ug := v.undirected()
	groups := make([][]gonum.Node, len(parts))
	for i, p := range parts {
		for _, id := range p {
			groups[i] = append(groups[i], ug.Node(int64(id)))
		}
	}
	return community.Q(ug, groups, 1), nil
}
