package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logger "github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/logging"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
)

// Store records batch runs and their units.
type Store interface {
	CreateRun(ctx context.Context, run *models.ProcessingRun) error
	SaveUnit(ctx context.Context, unit *models.UnitResult, metrics []models.UnitMetric) error
	FinishRun(ctx context.Context, run *models.ProcessingRun) error
}

// Report summarises a batch. Outcomes are in input order.
type Report struct {
	RunID     string
	StartedAt time.Time
	Outcomes  []Outcome
	Succeeded int
	Flagged   int
	Skipped   int
	Failed    int
}

// Failures returns the outcomes that ended in an error.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == models.StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

func (r *Report) count(o Outcome) {
	switch o.Status {
	case models.StatusOK:
		r.Succeeded++
	case models.StatusFlagged:
		r.Flagged++
	case models.StatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Run processes files on a bounded pool of workers. A unit's failure does not
// stop the batch; cancelling ctx does, and units not yet started are reported
// as failed with the context error. store may be nil.
func (p *Processor) Run(ctx context.Context, files []string, store Store) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Outcomes:  make([]Outcome, len(files)),
	}
	log := p.log.With(zap.String("runID", report.RunID))
	ctx = logger.WithRunID(ctx, report.RunID)

	run := &models.ProcessingRun{ID: report.RunID, Aim: p.opts.Aim, StartedAt: report.StartedAt}
	if store != nil {
		if err := store.CreateRun(ctx, run); err != nil {
			return nil, err
		}
	}
	log.Info("Starting batch", zap.Int("files", len(files)), zap.Int("workers", p.opts.Workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			report.Outcomes[i] = p.ProcessFile(gctx, path)
			return nil
		})
	}
	g.Wait()

	for _, o := range report.Outcomes {
		report.count(o)
		if store != nil {
			if err := store.SaveUnit(ctx, unitModel(run.ID, o), o.Metrics.Models(0)); err != nil {
				log.Error("Failed to save unit result", zap.String("file", o.File), zap.Error(err))
			}
		}
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Total = len(files)
	run.Succeeded, run.Flagged, run.Skipped, run.Failed = report.Succeeded, report.Flagged, report.Skipped, report.Failed
	if store != nil {
		if err := store.FinishRun(ctx, run); err != nil {
			log.Error("Failed to finish run", zap.Error(err))
		}
	}

	log.Info("Finished batch",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("flagged", report.Flagged),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", finished.Sub(report.StartedAt)),
	)
	return report, nil
}

func unitModel(runID string, o Outcome) *models.UnitResult {
	u := &models.UnitResult{
		RunID:          runID,
		Subject:        o.Subject,
		File:           o.File,
		ExperimentID:   o.ExperimentID,
		Status:         o.Status,
		CleanedPath:    o.CleanedPath,
		EventsPath:     o.EventsPath,
		CleanedRows:    o.CleanedRows,
		EventRows:      o.EventRows,
		DroppedColumns: o.DroppedColumns,
	}
	if o.Err != nil {
		u.Error = o.Err.Error()
	}
	return u
}
