package repository

import (
	"context"
	"time"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/database"
)

type TimelineDataPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type CorrelationDataPoint struct {
	XValue float64 `json:"xValue"`
	YValue float64 `json:"yValue"`
}

// GetMetricTimeline returns, per run, the mean of a metric over the run's
// units. An empty experimentID includes every experiment.
func GetMetricTimeline(ctx context.Context, metricKey, experimentID string) ([]TimelineDataPoint, error) {
	var data []TimelineDataPoint
	query := `
		SELECT
			r.started_at AS date,
			AVG(m.metric_value) AS value
		FROM unit_metrics m
		JOIN unit_results u ON m.unit_result_id = u.id
		JOIN processing_runs r ON u.run_id = r.id
		WHERE m.metric_key = ? AND (? = '' OR u.experiment_id = ?)
		GROUP BY r.id, r.started_at
		ORDER BY r.started_at;
	`
	err := database.DB.WithContext(ctx).Raw(query, metricKey, experimentID, experimentID).Scan(&data).Error
	return data, err
}

// GetMetricCorrelation pairs two metrics of the same unit across a run.
func GetMetricCorrelation(ctx context.Context, runID, xKey, yKey string) ([]CorrelationDataPoint, error) {
	var data []CorrelationDataPoint
	query := `
		SELECT
			x.metric_value AS x_value,
			y.metric_value AS y_value
		FROM unit_metrics x
		JOIN unit_metrics y ON x.unit_result_id = y.unit_result_id
		JOIN unit_results u ON x.unit_result_id = u.id
		WHERE u.run_id = ? AND x.metric_key = ? AND y.metric_key = ?
		ORDER BY u.id;
	`
	err := database.DB.WithContext(ctx).Raw(query, runID, xKey, yKey).Scan(&data).Error
	return data, err
}
