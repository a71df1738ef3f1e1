package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/database"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
)

// ErrNotFound is returned when a requested run or unit does not exist.
var ErrNotFound = errors.New("not found")

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateRun inserts a new processing run.
func CreateRun(ctx context.Context, run *models.ProcessingRun) error {
	return database.DB.WithContext(ctx).Create(run).Error
}

// FinishRun stores the final counters and finish time of a run.
func FinishRun(ctx context.Context, run *models.ProcessingRun) error {
	return database.DB.WithContext(ctx).Model(&models.ProcessingRun{ID: run.ID}).
		Select("FinishedAt", "Total", "Succeeded", "Flagged", "Skipped", "Failed").
		Updates(run).Error
}

// SaveUnitResultTx saves a unit outcome and its metrics in a single transaction.
func SaveUnitResultTx(ctx context.Context, unit *models.UnitResult, metrics []models.UnitMetric) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Run").Create(unit).Error; err != nil {
			return err
		}
		if len(metrics) == 0 {
			return nil
		}
		for i := range metrics {
			metrics[i].UnitResultID = unit.ID
		}
		return tx.Create(&metrics).Error
	})
}

// ListRuns returns the most recent runs first.
func ListRuns(ctx context.Context, limit int) ([]models.ProcessingRun, error) {
	var runs []models.ProcessingRun
	q := database.DB.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&runs).Error
	return runs, err
}

func GetRun(ctx context.Context, id string) (*models.ProcessingRun, error) {
	var run models.ProcessingRun
	if err := database.DB.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// ListUnitResults returns a run's units, optionally only those with status.
func ListUnitResults(ctx context.Context, runID, status string) ([]models.UnitResult, error) {
	var units []models.UnitResult
	q := database.DB.WithContext(ctx).Where("run_id = ?", runID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("subject, experiment_id").Find(&units).Error
	return units, err
}

func GetUnitResult(ctx context.Context, id int) (*models.UnitResult, error) {
	var unit models.UnitResult
	if err := database.DB.WithContext(ctx).First(&unit, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &unit, nil
}

func GetUnitMetrics(ctx context.Context, unitID int) ([]models.UnitMetric, error) {
	var rows []models.UnitMetric
	err := database.DB.WithContext(ctx).Where("unit_result_id = ?", unitID).Order("metric_key").Find(&rows).Error
	return rows, err
}
