package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/pipeline"
)

// BatchFunc runs one batch.
type BatchFunc func(ctx context.Context) (*pipeline.Report, error)

// Scheduler runs the batch on a fixed interval and on demand, never more than
// one at a time.
type Scheduler struct {
	log      *zap.Logger
	interval time.Duration
	batch    BatchFunc

	mu      sync.Mutex
	running bool
	last    *pipeline.Report
	wg      sync.WaitGroup
}

func NewScheduler(log *zap.Logger, interval time.Duration, batch BatchFunc) *Scheduler {
	return &Scheduler{
		log:      log,
		interval: interval,
		batch:    batch,
	}
}

// Start runs the scheduler in a goroutine until ctx is cancelled. A
// non-positive interval disables periodic runs.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("Periodic batches disabled")
		return
	}
	s.log.Info("Starting batch scheduler...", zap.Duration("interval", s.interval))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("Batch scheduler stopped")
				return
			case <-ticker.C:
				if !s.Trigger(ctx) {
					s.log.Debug("Previous batch still running, skipping tick")
				}
			}
		}
	}()
}

// Trigger starts a batch in the background unless one is running.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runBatch(ctx)
	}()
	return true
}

func (s *Scheduler) runBatch(ctx context.Context) {
	report, err := s.batch(ctx)
	if err != nil {
		s.log.Error("Batch failed", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if report != nil {
		s.last = report
	}
}

// Running reports whether a batch is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Last returns the report of the most recent completed batch, or nil.
func (s *Scheduler) Last() *pipeline.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Wait blocks until in-flight batches return and, once its context is
// cancelled, the ticker loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
