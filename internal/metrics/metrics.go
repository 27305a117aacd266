// Package metrics computes per-node and whole-graph structural measures over
// an interaction graph. Every metric runs on its own: a metric that cannot be
// computed falls back to its default and its reason is kept in Failures.
package metrics

import (
	"errors"
	"fmt"

	"github.com/Kkro1s/HongLouMeng/internal/graph"
	"github.com/Kkro1s/HongLouMeng/internal/models"
)

// Metric names, as they appear in failure records and exports.
const (
	MetricBetweenness = "betweenness_centrality"
	MetricCloseness   = "closeness_centrality"
	MetricEigenvector = "eigenvector_centrality"
	MetricPageRank    = "pagerank"
	MetricClustering  = "clustering_coefficient"
	MetricKatz        = "katz_centrality"
	MetricHarmonic    = "harmonic_centrality"
	MetricHITS        = "hits"
	MetricSubgraph    = "subgraph_centrality"
	MetricCoreNumber  = "core_number"
	MetricConstraint  = "constraint"
	MetricCommunity   = "community"
	MetricTriads      = "triad_census"

	MetricReciprocity  = "reciprocity"
	MetricTransitivity = "transitivity"
	MetricConnectivity = "connectivity"
	MetricAvgPath      = "average_path_length"
	MetricModularity   = "modularity"
)

var (
	errEmptyGraph   = errors.New("graph has no nodes")
	errTooFewNodes  = errors.New("graph has fewer than 2 nodes")
	errNoEdges      = errors.New("graph has no edges")
	errNotConverged = errors.New("power iteration did not converge")

	errNotStronglyConnected = errors.New("graph is not strongly connected")
)

// Result is the outcome of one metric computation: a value or the reason it
// could not be computed.
type Result[T any] struct {
	Metric string
	Value  T
	Err    error
}

// OK reports whether the metric was computed.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Or returns the value, or def when the metric failed.
func (r Result[T]) Or(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}

// Compute runs fn and turns a returned error or a panic into a failed Result.
func Compute[T any](name string, fn func() (T, error)) (r Result[T]) {
	r.Metric = name
	defer func() {
		if p := recover(); p != nil {
			var zero T
			r.Value = zero
			r.Err = fmt.Errorf("panic: %v", p)
		}
	}()
	r.Value, r.Err = fn()
	return r
}

// Engine computes metrics. The zero value is not usable; call New.
type Engine struct {
	cost graph.PathCost
}

// Option configures an Engine.
type Option func(*Engine)

// WithPathCost selects the shortest-path cost convention used by betweenness
// and closeness.
func WithPathCost(c graph.PathCost) Option {
	return func(e *Engine) {
		e.cost = c
	}
}

// New returns an Engine. Path costs default to graph.CostWeight.
func New(opts ...Option) *Engine {
	e := &Engine{cost: graph.CostWeight}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analysis is the output of one Compute call.
type Analysis struct {
	Nodes       []models.MetricsRecord
	Network     models.NetworkProperties
	TriadCensus map[string]int
	Failures    []models.MetricFailure
}

// Node returns the record of name.
func (a *Analysis) Node(name string) (models.MetricsRecord, bool) {
	for _, r := range a.Nodes {
		if r.Character == name {
			return r, true
		}
	}
	return models.MetricsRecord{}, false
}

// Failed reports whether metric is among the recorded failures.
func (a *Analysis) Failed(metric string) bool {
	for _, f := range a.Failures {
		if f.Metric == metric {
			return true
		}
	}
	return false
}

func collect[T any](a *Analysis, r Result[T], def T) T {
	if r.Err != nil {
		a.Failures = append(a.Failures, models.MetricFailure{Metric: r.Metric, Reason: r.Err.Error()})
		return def
	}
	return r.Value
}

type vectorMetric struct {
	name string
	fn   func(*view) ([]float64, error)
	set  func(*models.MetricsRecord, float64)
}

var vectorMetrics = []vectorMetric{
	{MetricBetweenness, betweenness, func(r *models.MetricsRecord, x float64) { r.Betweenness = x }},
	{MetricCloseness, closeness, func(r *models.MetricsRecord, x float64) { r.Closeness = x }},
	{MetricEigenvector, eigenvector, func(r *models.MetricsRecord, x float64) { r.Eigenvector = x }},
	{MetricPageRank, pageRank, func(r *models.MetricsRecord, x float64) { r.PageRank = x }},
	{MetricClustering, clustering, func(r *models.MetricsRecord, x float64) { r.Clustering = x }},
	{MetricKatz, katz, func(r *models.MetricsRecord, x float64) { r.Katz = x }},
	{MetricHarmonic, harmonic, func(r *models.MetricsRecord, x float64) { r.Harmonic = x }},
	{MetricSubgraph, subgraph, func(r *models.MetricsRecord, x float64) { r.Subgraph = x }},
	{MetricConstraint, constraint, func(r *models.MetricsRecord, x float64) { r.Constraint = x }},
}

// Compute runs every metric over g. It never fails: metrics that cannot be
// computed keep their defaults and are listed in Analysis.Failures.
func (e *Engine) Compute(g *graph.Graph) *Analysis {
	v := newView(g, e.cost)
	a := &Analysis{Nodes: make([]models.MetricsRecord, v.n)}
	for i, name := range v.names {
		a.Nodes[i] = models.MetricsRecord{Character: name, Community: -1}
	}

	v.degrees(a.Nodes)

	for _, m := range vectorMetrics {
		vals := collect(a, Compute(m.name, func() ([]float64, error) { return m.fn(v) }), nil)
		for i := range vals {
			m.set(&a.Nodes[i], vals[i])
		}
	}

	hits := collect(a, Compute(MetricHITS, func() ([2][]float64, error) { return hubsAuthorities(v) }), [2][]float64{})
	for i := range hits[0] {
		a.Nodes[i].Hub = hits[0][i]
		a.Nodes[i].Authority = hits[1][i]
	}

	cores := collect(a, Compute(MetricCoreNumber, func() ([]int, error) { return coreNumbers(v), nil }), nil)
	for i := range cores {
		a.Nodes[i].CoreNumber = cores[i]
	}

	parts := collect(a, Compute(MetricCommunity, func() ([][]int, error) { return greedyModularity(v), nil }), nil)
	for c, members := range parts {
		for _, i := range members {
			a.Nodes[i].Community = c
		}
	}

	a.TriadCensus = collect(a, Compute(MetricTriads, func() (map[string]int, error) { return triadCensus(v), nil }), emptyCensus())
	a.Network = v.properties(a, parts)
	return a
}
