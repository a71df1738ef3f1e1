package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/pipeline"
)

func TestTriggerRunsOneBatchAtATime(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	var calls atomic.Int32
	s := NewScheduler(zap.NewNop(), 0, func(ctx context.Context) (*pipeline.Report, error) {
		calls.Add(1)
		<-release
		return &pipeline.Report{RunID: "run-1", Succeeded: 2}, nil
	})

	if !s.Trigger(context.Background()) {
		t.Fatal("Expected the first trigger to start a batch")
	}
	if s.Trigger(context.Background()) {
		t.Error("Expected a second trigger to be refused while running")
	}
	if !s.Running() {
		t.Error("Expected Running to report the batch")
	}

	close(release)
	s.Wait()

	if s.Running() {
		t.Error("Expected the batch to be finished")
	}
	if last := s.Last(); last == nil || last.RunID != "run-1" {
		t.Errorf("Expected the last report to be kept, got %+v", last)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected one batch, got %d", calls.Load())
	}

	if !s.Trigger(context.Background()) {
		t.Error("Expected a new batch once the previous one finished")
	}
	s.Wait()
}

func TestFailedBatchKeepsLastReport(t *testing.T) {
	t.Parallel()
	fail := false
	s := NewScheduler(zap.NewNop(), 0, func(ctx context.Context) (*pipeline.Report, error) {
		if fail {
			return nil, errors.New("glob failed")
		}
		return &pipeline.Report{RunID: "good"}, nil
	})

	s.Trigger(context.Background())
	s.Wait()
	fail = true
	s.Trigger(context.Background())
	s.Wait()

	if last := s.Last(); last == nil || last.RunID != "good" {
		t.Errorf("Expected the last successful report, got %+v", last)
	}
}

func TestStartRunsOnInterval(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	s := NewScheduler(zap.NewNop(), 10*time.Millisecond, func(ctx context.Context) (*pipeline.Report, error) {
		calls.Add(1)
		return &pipeline.Report{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Wait()

	if calls.Load() < 2 {
		t.Errorf("Expected at least two periodic batches, got %d", calls.Load())
	}
}
