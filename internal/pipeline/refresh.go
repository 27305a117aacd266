package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/observe"
)

// Store is the persistence the refresh loop needs.
type Store interface {
	LatestRun(focal string) (*models.RunSummary, error)
	SaveReport(r *models.Report) error
}

// Exporter writes a report to the output directory.
type Exporter interface {
	Export(r *models.Report) error
}

// Refresh runs the pipeline unless the corpus fingerprint matches the latest
// stored run of the focal character. force skips that check. It returns the
// new report, or nil when the run was skipped.
func (p *Pipeline) Refresh(ctx context.Context, st Store, force bool) (*models.Report, error) {
	start := time.Now()
	pending := models.RunSummary{FocalCharacter: p.cfg.Focal, CreatedAt: p.now()}

	res, err := p.load()
	if err != nil {
		return nil, p.fail(pending, start, err)
	}
	pending.CorpusChecksum = res.Checksum

	if !force {
		latest, err := st.LatestRun(p.cfg.Focal)
		switch {
		case err == nil && latest.CorpusChecksum == res.Checksum:
			p.logger.Debug("corpus unchanged, skipping run",
				slog.String("run_id", latest.RunID),
				slog.String("checksum", res.Checksum))
			p.observer.ObserveRun(observe.OutcomeSkipped, 0)
			p.notify(KindSkipped, *latest, nil)
			return nil, nil
		case err != nil && !errors.Is(err, apperr.ErrNotFound):
			return nil, p.fail(pending, start, fmt.Errorf("pipeline: latest run: %w", err))
		}
	}

	p.notify(KindStarted, pending, nil)
	r, err := p.analyze(ctx, res)
	if err != nil {
		return nil, p.fail(pending, start, err)
	}
	if err := st.SaveReport(r); err != nil {
		return nil, p.fail(r.Summary(), start, fmt.Errorf("pipeline: save report: %w", err))
	}
	if p.exporter != nil {
		if err := p.exporter.Export(r); err != nil {
			// The run is already stored; a failed export is not a failed run.
			p.logger.Warn("export failed",
				slog.String("run_id", r.RunID),
				slog.String("error", err.Error()))
		}
	}
	p.observer.ObserveRun(observe.OutcomeCompleted, time.Since(start))
	p.notify(KindCompleted, r.Summary(), nil)
	return r, nil
}

func (p *Pipeline) fail(run models.RunSummary, start time.Time, err error) error {
	p.logger.Error("pipeline run failed",
		slog.String("focal", run.FocalCharacter),
		slog.String("error", err.Error()))
	p.observer.ObserveRun(observe.OutcomeFailed, time.Since(start))
	p.notify(KindFailed, run, err)
	return err
}

func (p *Pipeline) notify(kind string, run models.RunSummary, err error) {
	if p.callback != nil {
		p.callback(kind, run, err)
	}
}
