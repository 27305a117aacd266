// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/api"
	"github.com/Kkro1s/HongLouMeng/internal/corpus"
	"github.com/Kkro1s/HongLouMeng/internal/export"
	"github.com/Kkro1s/HongLouMeng/internal/graph"
	"github.com/Kkro1s/HongLouMeng/internal/mcpserver"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/observe"
	"github.com/Kkro1s/HongLouMeng/internal/pipeline"
	"github.com/Kkro1s/HongLouMeng/internal/reportservice"
	"github.com/Kkro1s/HongLouMeng/internal/sse"
	"github.com/Kkro1s/HongLouMeng/internal/storage"
	"github.com/Kkro1s/HongLouMeng/internal/store"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg       *Config
	logger    *slog.Logger
	logFile   io.Closer
	db        *store.DB
	table     *alias.Table
	exporter  *export.Exporter
	collector *observe.Collector
	pipe      *pipeline.Pipeline
	svc       *reportservice.Service
}

func (rt *runtime) Close() {
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.Warn("close database", slog.String("error", err.Error()))
		}
	}
	if rt.logFile != nil {
		_ = rt.logFile.Close()
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger, teeing into a rotated file when configured.
func newLogger(cfg *Config, out io.Writer) (*slog.Logger, io.Closer) {
	if out == nil {
		out = os.Stdout
	}
	var closer io.Closer
	if cfg.App.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.App.LogFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(out, rotated)
		closer = rotated
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	})), closer
}

// loadTable reads the configured alias table or falls back to the built-in one.
// Aliases nested inside another character's alias are reported as warnings.
func loadTable(cfg *Config, logger *slog.Logger) (*alias.Table, error) {
	table := alias.Default()
	if cfg.Characters.Path != "" {
		t, err := alias.Load(cfg.Characters.Path)
		if err != nil {
			return nil, fmt.Errorf("load alias table: %w", err)
		}
		table = t
	}
	for _, o := range table.Overlaps() {
		logger.Warn("alias overlaps another character",
			slog.String("character", o.Character),
			slog.String("alias", o.Alias),
			slog.String("other", o.Other),
			slog.String("contained", o.Contained))
	}
	return table, nil
}

// bootstrap opens the store and builds the pipeline. cb may be nil.
func (app *application) bootstrap(cb pipeline.EventCallback) (_ *runtime, err error) {
	cfg := app.config
	logger, logFile := newLogger(cfg, app.logOut)
	slog.SetDefault(logger)

	rt := &runtime{cfg: cfg, logger: logger, logFile: logFile}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("corpus_path", cfg.Corpus.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("focal", cfg.Characters.Focal),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt.table, err = loadTable(cfg, logger)
	if err != nil {
		return nil, err
	}
	focal := cfg.Characters.Focal
	if id, ok := rt.table.Resolve(focal); ok {
		focal = id
	}

	src, err := storage.NewFS(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("init corpus: %w", err)
	}

	rt.db, err = store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	pcfg := pipeline.Config{
		Focal:     focal,
		Chapters:  cfg.Corpus.Chapters,
		SelectTop: cfg.Corpus.SelectTop,
		Clean:     cfg.Corpus.Clean,
		Workers:   cfg.Analysis.Workers,
	}
	if cfg.Corpus.Pattern != "" {
		if pcfg.Pattern, err = regexp.Compile(cfg.Corpus.Pattern); err != nil {
			return nil, fmt.Errorf("corpus pattern: %w", err)
		}
	}
	if pcfg.PathCost, err = graph.ParsePathCost(cfg.Analysis.PathCost); err != nil {
		return nil, err
	}

	rt.collector = observe.NewCollector("honglou")
	popts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(rt.collector),
	}
	if cfg.Output.Path != "" {
		if err := os.MkdirAll(cfg.Output.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		out, err := storage.NewFS(cfg.Output.Path)
		if err != nil {
			return nil, fmt.Errorf("init output: %w", err)
		}
		rt.exporter = export.New(out, export.WithLogger(logger))
		popts = append(popts, pipeline.WithExporter(rt.exporter))
	}
	if cb != nil {
		popts = append(popts, pipeline.WithCallback(cb))
	}

	rt.pipe, err = pipeline.New(pcfg, rt.table, src, popts...)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	rt.svc = reportservice.NewService(rt.db, rt.table, rt.pipe)
	return rt, nil
}

func logReport(logger *slog.Logger, r *models.Report) {
	if r == nil {
		logger.Info("Corpus unchanged, latest run kept")
		return
	}
	attrs := []any{
		slog.String("run_id", r.RunID),
		slog.String("focal", r.FocalCharacter),
		slog.Int("chapters", len(r.Chapters)),
		slog.Int("events", len(r.Events)),
		slog.Int("edges", len(r.Edges)),
		slog.Int("failures", len(r.Failures)),
	}
	if r.Focal != nil {
		attrs = append(attrs,
			slog.Int("focal_degree", r.Focal.Degree),
			slog.Float64("focal_pagerank", r.Focal.PageRank))
	}
	logger.Info("Run completed", attrs...)
}

// Analyze performs a single pipeline run, stores it and writes the exports.
func Analyze(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.bootstrap(nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	r, err := rt.svc.Refresh(ctx, app.force)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	logReport(rt.logger, r)
	return nil
}

// Chapters profiles focal mentions per chapter and writes the selection
// exports. It returns the profile and the chosen chapter numbers.
func Chapters(ctx context.Context, opts ...Option) ([]corpus.Stat, []int, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, nil, err
	}
	rt, err := app.bootstrap(nil)
	if err != nil {
		return nil, nil, err
	}
	defer rt.Close()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	res, err := rt.pipe.Loader().Load(rt.cfg.Corpus.Chapters)
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}
	if rt.cfg.Corpus.Clean {
		for i := range res.Chapters {
			res.Chapters[i].Text = corpus.Clean(res.Chapters[i].Text)
		}
	}
	stats, chosen := corpus.Select(res.Chapters, rt.table, rt.pipe.Focal(), rt.cfg.Corpus.SelectTop)
	if rt.exporter != nil {
		if err := rt.exporter.Selection(stats, chosen); err != nil {
			return nil, nil, fmt.Errorf("export selection: %w", err)
		}
	}
	rt.logger.Info("Chapters selected",
		slog.String("focal", rt.pipe.Focal()),
		slog.Int("available", len(stats)),
		slog.Int("selected", len(chosen)),
		slog.Int("missing", len(res.Missing)))
	return stats, chosen, nil
}

// ServeMCP serves the stored runs over the MCP stdio transport.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := app.bootstrap(nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting", slog.String("version", app.version))
	srv := mcpserver.New(rt.svc, app.version)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Run starts the HTTP server, the corpus watcher and the initial analysis.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := app.bootstrap(broker.PublishRunEvent)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	refresh := func(ctx context.Context) {
		r, err := rt.svc.Refresh(ctx, false)
		switch {
		case errors.Is(err, reportservice.ErrRunInProgress):
			logger.Debug("refresh skipped, run in progress")
		case err != nil:
			logger.Error("refresh failed", slog.String("error", err.Error()))
		default:
			logReport(logger, r)
		}
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rt.collector.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", rt.collector.Handler())

	// Mount API routes under /api; the SSE stream lives at /api/events.
	r.Mount("/api", api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Initial analysis, then re-analysis on corpus changes.
	g.Go(func() error {
		refresh(gCtx)
		if !cfg.Watch.Enabled {
			return nil
		}
		if err := pipeline.Watch(gCtx, cfg.Corpus.Path, cfg.Watch.Debounce, logger, refresh); err != nil {
			logger.Error("corpus watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
