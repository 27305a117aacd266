package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/mat"
)

const (
	eigenMaxIter = 1000
	eigenTol     = 1e-6

	pageRankDamping = 0.85
	pageRankTol     = 1e-8
	// pageRankUnit is the rounding step applied to the result; gonum starts
	// from a random vector, so digits below the tolerance vary between runs.
	pageRankUnit = 1e-6

	hitsMaxIter = 100
	hitsTol     = 1e-8

	katzAlpha   = 0.1
	katzBeta    = 1.0
	katzMaxIter = 1000
	katzTol     = 1e-6
)

// eigenvector runs power iteration on (A+I) over incoming weighted edges,
// normalizing by the 2-norm each step.
func eigenvector(v *view) ([]float64, error) {
	if err := v.atLeast(2); err != nil {
		return nil, err
	}
	x := make([]float64, v.n)
	for i := range x {
		x[i] = 1 / float64(v.n)
	}
	for range eigenMaxIter {
		last := x
		x = append([]float64(nil), last...)
		for u := range v.out {
			for t, w := range v.out[u] {
				x[t] += last[u] * w
			}
		}
		norm := l2(x)
		if norm == 0 {
			norm = 1
		}
		for i := range x {
			x[i] /= norm
		}
		if l1diff(x, last) < float64(v.n)*eigenTol {
			return x, nil
		}
	}
	return nil, errNotConverged
}

// pageRank is edge-weighted PageRank with damping 0.85, rounded to
// pageRankUnit.
func pageRank(v *view) ([]float64, error) {
	if err := v.atLeast(2); err != nil {
		return nil, err
	}
	ranks := network.PageRank(v.g.Directed(), pageRankDamping, pageRankTol)
	out := make([]float64, v.n)
	for id, r := range ranks {
		out[id] = math.Round(r/pageRankUnit) * pageRankUnit
	}
	return out, nil
}

// hubsAuthorities is weighted HITS; both vectors are sum-normalized.
func hubsAuthorities(v *view) ([2][]float64, error) {
	var res [2][]float64
	if err := v.atLeast(2); err != nil {
		return res, err
	}
	if v.edges() == 0 {
		return res, errNoEdges
	}
	h := make([]float64, v.n)
	for i := range h {
		h[i] = 1 / float64(v.n)
	}
	var a []float64
	converged := false
	for range hitsMaxIter {
		last := h
		a = make([]float64, v.n)
		h = make([]float64, v.n)
		for u := range v.out {
			for t, w := range v.out[u] {
				a[t] += last[u] * w
			}
		}
		for u := range v.out {
			for t, w := range v.out[u] {
				h[u] += a[t] * w
			}
		}
		scale(h, 1/maxOf(h))
		scale(a, 1/maxOf(a))
		if l1diff(h, last) < hitsTol {
			converged = true
			break
		}
	}
	if !converged {
		return res, errNotConverged
	}
	scale(a, 1/sum(a))
	scale(h, 1/sum(h))
	res[0], res[1] = h, a
	return res, nil
}

// katz runs on the unweighted undirected projection.
func katz(v *view) ([]float64, error) {
	if err := v.atLeast(2); err != nil {
		return nil, err
	}
	x := make([]float64, v.n)
	for range katzMaxIter {
		last := x
		x = make([]float64, v.n)
		for u := range v.und {
			for t := range v.und[u] {
				x[t] += last[u]
			}
		}
		for i := range x {
			x[i] = katzAlpha*x[i] + katzBeta
		}
		if l1diff(x, last) < float64(v.n)*katzTol {
			norm := l2(x)
			if norm == 0 {
				return nil, errors.New("zero katz vector")
			}
			scale(x, 1/norm)
			return x, nil
		}
	}
	return nil, errNotConverged
}

// subgraph computes sum_j v_j(u)^2 exp(lambda_j) from the eigendecomposition
// of the unweighted undirected adjacency matrix.
func subgraph(v *view) ([]float64, error) {
	if err := v.atLeast(2); err != nil {
		return nil, err
	}
	adj := mat.NewSymDense(v.n, nil)
	for u := range v.und {
		for t := range v.und[u] {
			adj.SetSym(u, t, 1)
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(adj, true); !ok {
		return nil, errors.New("eigendecomposition failed")
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	out := make([]float64, v.n)
	for u := range out {
		for j, lambda := range vals {
			c := vecs.At(u, j)
			out[u] += c * c * math.Exp(lambda)
		}
	}
	return out, nil
}

func l2(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s)
}

func l1diff(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += math.Abs(a[i] - b[i])
	}
	return s
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}

func maxOf(x []float64) float64 {
	m := math.Inf(-1)
	for _, v := range x {
		m = max(m, v)
	}
	return m
}

func scale(x []float64, f float64) {
	for i := range x {
		x[i] *= f
	}
}
