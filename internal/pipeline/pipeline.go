// Package pipeline runs the alias -> extract -> aggregate -> graph -> metrics
// stages over a chapter corpus and assembles the report.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Kkro1s/HongLouMeng/internal/aggregate"
	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/checksum"
	"github.com/Kkro1s/HongLouMeng/internal/corpus"
	"github.com/Kkro1s/HongLouMeng/internal/extract"
	"github.com/Kkro1s/HongLouMeng/internal/graph"
	"github.com/Kkro1s/HongLouMeng/internal/metrics"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/observe"
)

// Config holds the run settings.
type Config struct {
	Focal string
	// Dir is the chapter directory relative to the source root.
	Dir string
	// Chapters restricts loading; nil loads every discovered chapter.
	Chapters []int
	// SelectTop keeps the N chapters with the most focal mentions; 0 keeps all.
	SelectTop int
	Clean     bool
	Pattern   *regexp.Regexp
	Workers   int
	PathCost  graph.PathCost
}

// Run event kinds passed to an EventCallback.
const (
	KindStarted   = "started"
	KindCompleted = "completed"
	KindSkipped   = "skipped"
	KindFailed    = "failed"
)

// EventCallback observes run lifecycle changes. err is set only for KindFailed.
type EventCallback func(kind string, run models.RunSummary, err error)

// Pipeline is safe for concurrent use; each Run works on its own state.
type Pipeline struct {
	cfg       Config
	table     *alias.Table
	src       corpus.Source
	extractor *extract.Extractor
	engine    *metrics.Engine
	// settings fingerprints everything besides the chapter files that shapes a report.
	settings string

	logger   *slog.Logger
	observer *observe.Collector
	exporter Exporter
	callback EventCallback
	now      func() time.Time
	newID    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithObserver records run metrics in c.
func WithObserver(c *observe.Collector) Option {
	return func(p *Pipeline) { p.observer = c }
}

// WithExporter writes every refreshed report through e.
func WithExporter(e Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithCallback registers a lifecycle callback.
func WithCallback(cb EventCallback) Option {
	return func(p *Pipeline) { p.callback = cb }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// New validates cfg against table and returns a Pipeline reading from src.
func New(cfg Config, table *alias.Table, src corpus.Source, opts ...Option) (*Pipeline, error) {
	if table == nil {
		return nil, fmt.Errorf("pipeline: %w", apperr.ErrEmptyTable)
	}
	ex, err := extract.New(table, cfg.Focal)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PathCost == "" {
		cfg.PathCost = graph.CostWeight
	}
	p := &Pipeline{
		cfg:       cfg,
		table:     table,
		src:       src,
		extractor: ex,
		engine:    metrics.New(metrics.WithPathCost(cfg.PathCost)),
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.settings, err = p.fingerprint(); err != nil {
		return nil, err
	}
	return p, nil
}

// fingerprint hashes the analysis settings so a changed alias table, rule
// table or option invalidates the stored run like a changed chapter does.
func (p *Pipeline) fingerprint() (string, error) {
	doc := struct {
		Focal      string             `json:"focal"`
		Characters []models.Character `json:"characters"`
		Rules      extract.Rules      `json:"rules"`
		Chapters   []int              `json:"chapters"`
		SelectTop  int                `json:"select_top"`
		Clean      bool               `json:"clean"`
		Pattern    string             `json:"pattern"`
		PathCost   graph.PathCost     `json:"path_cost"`
	}{
		Focal:      p.cfg.Focal,
		Characters: p.table.Records(),
		Rules:      p.extractor.Rules(),
		Chapters:   p.cfg.Chapters,
		SelectTop:  p.cfg.SelectTop,
		Clean:      p.cfg.Clean,
		PathCost:   p.cfg.PathCost,
	}
	if p.cfg.Pattern != nil {
		doc.Pattern = p.cfg.Pattern.String()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("pipeline: fingerprint settings: %w", err)
	}
	return checksum.Sum(data), nil
}

// Focal returns the focal character.
func (p *Pipeline) Focal() string {
	return p.cfg.Focal
}

// Table returns the alias table in use.
func (p *Pipeline) Table() *alias.Table {
	return p.table
}

// Loader returns a corpus loader configured like the pipeline's own.
func (p *Pipeline) Loader() *corpus.Loader {
	opts := []corpus.Option{corpus.WithDir(p.cfg.Dir), corpus.WithLogger(p.logger)}
	if p.cfg.Pattern != nil {
		opts = append(opts, corpus.WithPattern(p.cfg.Pattern))
	}
	return corpus.NewLoader(p.src, opts...)
}

// load reads, cleans and selects the chapters of one run.
func (p *Pipeline) load() (*corpus.Result, error) {
	res, err := p.Loader().Load(p.cfg.Chapters)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load corpus: %w", err)
	}
	if p.observer != nil {
		p.observer.ChaptersMissed.Add(float64(len(res.Missing)))
	}
	res.Checksum = checksum.Corpus(map[string]string{
		"chapters": res.Checksum,
		"settings": p.settings,
	})
	if p.cfg.Clean {
		for i := range res.Chapters {
			res.Chapters[i].Text = corpus.Clean(res.Chapters[i].Text)
		}
	}
	if p.cfg.SelectTop > 0 {
		stats, keep := corpus.Select(res.Chapters, p.table, p.cfg.Focal, p.cfg.SelectTop)
		res.Chapters = corpus.Filter(res.Chapters, keep)
		p.logger.Info("chapters selected",
			slog.String("focal", p.cfg.Focal),
			slog.Int("available", len(stats)),
			slog.Int("selected", len(keep)))
	}
	return res, nil
}

// Run executes every stage and returns the report. It does not persist.
func (p *Pipeline) Run(ctx context.Context) (*models.Report, error) {
	res, err := p.load()
	if err != nil {
		return nil, err
	}
	return p.analyze(ctx, res)
}

func (p *Pipeline) analyze(ctx context.Context, res *corpus.Result) (*models.Report, error) {
	start := time.Now()
	chapters := res.Chapters

	events := make([][]models.InteractionEvent, len(chapters))
	sets := make([]*aggregate.Set, len(chapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, ch := range chapters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evs := p.extractor.Chapter(ch)
			set := aggregate.New()
			set.Add(evs...)
			events[i], sets[i] = evs, set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: extract: %w", err)
	}

	merged := aggregate.New()
	var all []models.InteractionEvent
	numbers := make([]int, 0, len(chapters))
	for i, ch := range chapters {
		merged.Merge(sets[i])
		all = append(all, events[i]...)
		numbers = append(numbers, ch.Number)
	}
	edges := merged.Edges()

	b := graph.NewBuilder()
	if err := b.AddNode(p.cfg.Focal); err != nil {
		return nil, fmt.Errorf("pipeline: seed focal: %w", err)
	}
	if err := b.Add(edges...); err != nil {
		return nil, fmt.Errorf("pipeline: build graph: %w", err)
	}
	an := p.engine.Compute(b.Build())

	r := &models.Report{
		RunID:          p.newID(),
		FocalCharacter: p.cfg.Focal,
		CreatedAt:      p.now(),
		CorpusChecksum: res.Checksum,
		Chapters:       numbers,
		Events:         all,
		Edges:          edges,
		Nodes:          an.Nodes,
		Network:        an.Network,
		TriadCensus:    an.TriadCensus,
		Failures:       an.Failures,
	}
	if r.Failures == nil {
		r.Failures = []models.MetricFailure{}
	}
	if focal, ok := an.Node(p.cfg.Focal); ok {
		r.Focal = &focal
	}

	for _, f := range r.Failures {
		p.logger.Warn("metric failed, using default",
			slog.String("metric", f.Metric),
			slog.String("error", f.Reason))
		if p.observer != nil {
			p.observer.MetricFailures.WithLabelValues(f.Metric).Inc()
		}
	}
	if p.observer != nil {
		p.observer.Chapters.Add(float64(len(chapters)))
		p.observer.Events.Set(float64(len(all)))
		p.observer.Edges.Set(float64(len(edges)))
	}
	p.logger.Info("pipeline run finished",
		slog.String("run_id", r.RunID),
		slog.String("focal", r.FocalCharacter),
		slog.Int("chapters", len(chapters)),
		slog.Int("events", len(all)),
		slog.Int("edges", len(edges)),
		slog.Int("failures", len(r.Failures)),
		slog.Duration("took", time.Since(start)))
	return r, nil
}
