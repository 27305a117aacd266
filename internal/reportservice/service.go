// Package reportservice is the read and trigger surface shared by the REST API
// and the MCP server.
package reportservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Kkro1s/HongLouMeng/internal/aggregate"
	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/export"
	"github.com/Kkro1s/HongLouMeng/internal/extract"
	"github.com/Kkro1s/HongLouMeng/internal/graph"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/pipeline"
	"github.com/Kkro1s/HongLouMeng/internal/store"
)

// ErrRunInProgress is returned by Refresh while another run is executing.
var ErrRunInProgress = fmt.Errorf("run in progress: %w", apperr.ErrConflict)

// Runner triggers pipeline runs.
type Runner interface {
	Focal() string
	Refresh(ctx context.Context, st pipeline.Store, force bool) (*models.Report, error)
}

// CharacterDetail is one character with its metrics and incident edges in a run.
type CharacterDetail struct {
	ID      string                  `json:"id"`
	Aliases []string                `json:"aliases"`
	RunID   string                  `json:"run_id"`
	Metrics *models.MetricsRecord   `json:"metrics"`
	Edges   []models.AggregatedEdge `json:"edges"`
}

// NetworkView bundles the whole-graph results of a run.
type NetworkView struct {
	RunID       string                   `json:"run_id"`
	Properties  models.NetworkProperties `json:"properties"`
	TriadCensus map[string]int           `json:"triad_census"`
	Failures    []models.MetricFailure   `json:"failures"`
}

// EdgeFilter narrows Edges.
type EdgeFilter struct {
	Character    string
	MinFrequency int
	Type         models.InteractionType
	Limit        int
}

// Service coordinates the store, the alias table and the pipeline.
type Service struct {
	repo   store.Repository
	table  *alias.Table
	runner Runner

	running sync.Mutex
}

// NewService creates a new report service. runner may be nil for read-only use.
func NewService(repo store.Repository, table *alias.Table, runner Runner) *Service {
	return &Service{repo: repo, table: table, runner: runner}
}

// Table returns the alias table.
func (s *Service) Table() *alias.Table {
	return s.table
}

// ResolveRun returns runID, or the latest run id when runID is empty.
func (s *Service) ResolveRun(_ context.Context, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	focal := ""
	if s.runner != nil {
		focal = s.runner.Focal()
	}
	latest, err := s.repo.LatestRun(focal)
	if errors.Is(err, apperr.ErrNotFound) && focal != "" {
		latest, err = s.repo.LatestRun("")
	}
	if err != nil {
		return "", err
	}
	return latest.RunID, nil
}

// GetRun returns the summary of a run; empty runID means latest.
func (s *Service) GetRun(ctx context.Context, runID string) (*models.RunSummary, error) {
	id, err := s.ResolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetRun(id)
}

// ListRuns returns stored runs newest first.
func (s *Service) ListRuns(_ context.Context, limit, offset int) ([]models.RunSummary, int, error) {
	runs, total, err := s.repo.ListRuns(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	return runs, total, nil
}

// Report returns a full stored report.
func (s *Service) Report(ctx context.Context, runID string) (*models.Report, error) {
	id, err := s.ResolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.repo.Report(id)
}

// Edges returns the edges of a run matching f, in rank order.
func (s *Service) Edges(ctx context.Context, runID string, f EdgeFilter) ([]models.AggregatedEdge, string, error) {
	id, err := s.ResolveRun(ctx, runID)
	if err != nil {
		return nil, "", err
	}
	edges, err := s.repo.Edges(id)
	if err != nil {
		return nil, "", err
	}
	if f.Character != "" {
		if c, ok := s.table.Resolve(f.Character); ok {
			f.Character = c
		}
	}
	out := make([]models.AggregatedEdge, 0, len(edges))
	for _, e := range edges {
		if f.Character != "" && e.Source != f.Character && e.Target != f.Character {
			continue
		}
		if e.Frequency < f.MinFrequency {
			continue
		}
		if f.Type != "" && e.Types[f.Type] == 0 {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, id, nil
}

// Interactions returns the events of a run matching f and the total match count.
func (s *Service) Interactions(ctx context.Context, runID string, f store.EventFilter) ([]models.InteractionEvent, int, error) {
	id, err := s.ResolveRun(ctx, runID)
	if err != nil {
		return nil, 0, err
	}
	if f.Target != "" {
		if c, ok := s.table.Resolve(f.Target); ok {
			f.Target = c
		}
	}
	events, total, err := s.repo.Events(id, f)
	if err != nil {
		return nil, 0, err
	}
	if events == nil {
		events = []models.InteractionEvent{}
	}
	return events, total, nil
}

// Characters lists the alias table.
func (s *Service) Characters(_ context.Context) []models.Character {
	return s.table.Records()
}

// Character returns name (an id or alias) in a run. A character that never
// interacted in the run has nil Metrics and no edges.
func (s *Service) Character(ctx context.Context, runID, name string) (*CharacterDetail, error) {
	id, ok := s.table.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("character %q: %w", name, apperr.ErrNotFound)
	}
	run, err := s.ResolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	d := &CharacterDetail{ID: id, Aliases: s.table.Aliases(id), RunID: run}
	m, err := s.repo.NodeMetricsFor(run, id)
	switch {
	case err == nil:
		d.Metrics = m
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	d.Edges, _, err = s.Edges(ctx, run, EdgeFilter{Character: id})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Focal returns the focal character's metrics in a run.
func (s *Service) Focal(ctx context.Context, runID string) (*models.MetricsRecord, error) {
	sum, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.repo.NodeMetricsFor(sum.RunID, sum.FocalCharacter)
}

// NodeMetrics returns every node's metrics in a run.
func (s *Service) NodeMetrics(ctx context.Context, runID string) ([]models.MetricsRecord, error) {
	id, err := s.ResolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.repo.NodeMetrics(id)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []models.MetricsRecord{}
	}
	return nodes, nil
}

// Network returns the whole-graph results of a run.
func (s *Service) Network(ctx context.Context, runID string) (*NetworkView, error) {
	id, err := s.ResolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	props, err := s.repo.Network(id)
	if err != nil {
		return nil, err
	}
	triads, err := s.repo.TriadCensus(id)
	if err != nil {
		return nil, err
	}
	failures, err := s.repo.Failures(id)
	if err != nil {
		return nil, err
	}
	return &NetworkView{RunID: id, Properties: *props, TriadCensus: triads, Failures: failures}, nil
}

func (s *Service) graph(ctx context.Context, runID string) (*graph.Graph, *models.RunSummary, error) {
	sum, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.repo.Edges(sum.RunID)
	if err != nil {
		return nil, nil, err
	}
	g, err := export.Graph(&models.Report{FocalCharacter: sum.FocalCharacter, Edges: edges})
	if err != nil {
		return nil, nil, err
	}
	return g, sum, nil
}

// Graph returns the node-link view of a run.
func (s *Service) Graph(ctx context.Context, runID string) (graph.NodeLink, error) {
	g, sum, err := s.graph(ctx, runID)
	if err != nil {
		return graph.NodeLink{}, err
	}
	return g.NodeLink(sum.FocalCharacter), nil
}

// DOT returns the Graphviz rendering of a run.
func (s *Service) DOT(ctx context.Context, runID string) ([]byte, error) {
	g, _, err := s.graph(ctx, runID)
	if err != nil {
		return nil, err
	}
	return g.MarshalDOT("honglou")
}

// Refresh triggers a pipeline run. It returns nil when the corpus is unchanged
// and force is false, and ErrRunInProgress when a run is already executing.
func (s *Service) Refresh(ctx context.Context, force bool) (*models.Report, error) {
	if s.runner == nil {
		return nil, fmt.Errorf("no pipeline configured: %w", apperr.ErrNotFound)
	}
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()
	return s.runner.Refresh(ctx, s.repo, force)
}

// Extract runs the extractor over ad-hoc text. An empty focal uses the
// pipeline's focal character.
func (s *Service) Extract(_ context.Context, text, focal string, chapter int) ([]models.InteractionEvent, []models.AggregatedEdge, error) {
	if focal == "" && s.runner != nil {
		focal = s.runner.Focal()
	}
	if id, ok := s.table.Resolve(focal); ok {
		focal = id
	}
	ex, err := extract.New(s.table, focal)
	if err != nil {
		return nil, nil, err
	}
	events := ex.Text(chapter, text)
	if events == nil {
		events = []models.InteractionEvent{}
	}
	return events, aggregate.Fold(events), nil
}
