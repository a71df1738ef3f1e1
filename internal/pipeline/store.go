package pipeline

import (
	"context"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/repository"
)

// DBStore records batches through the repository into the configured database.
type DBStore struct{}

func (DBStore) CreateRun(ctx context.Context, run *models.ProcessingRun) error {
	return repository.CreateRun(ctx, run)
}

func (DBStore) SaveUnit(ctx context.Context, unit *models.UnitResult, metrics []models.UnitMetric) error {
	return repository.SaveUnitResultTx(ctx, unit, metrics)
}

func (DBStore) FinishRun(ctx context.Context, run *models.ProcessingRun) error {
	return repository.FinishRun(ctx, run)
}
