// Package metrics computes quality-control metrics over event records.
package metrics

import (
	"math"
	"sort"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

// Metric keys.
const (
	EventCount            = "event_count"
	NegativeOnsetCount    = "negative_onset_count"
	NegativeDurationCount = "negative_duration_count"
	MissingOnsetCount     = "missing_onset_count"
	MissingDurationCount  = "missing_duration_count"
	MissingResponseCount  = "missing_response_count"
	ResponseRate          = "response_rate"
	OnsetSpan             = "onset_span"
	MeanResponseTime      = "mean_response_time"
	ResponseTimeSD        = "response_time_sd"
	Accuracy              = "accuracy"
)

type MetricResult struct {
	Value      float64 `json:"value"`
	Calculated bool    `json:"calculated"`
	SampleSize int     `json:"sampleSize,omitempty"`
}

// Results maps metric keys to their results.
type Results map[string]MetricResult

// Calculate computes every QC metric for an event record. Metrics whose
// columns are absent are reported as not calculated.
func Calculate(events *table.Record) Results {
	times := responseTimes(events)
	return Results{
		EventCount:            MetricResult{Value: float64(events.Len()), Calculated: true, SampleSize: events.Len()},
		NegativeOnsetCount:    countNegative(events, "onset"),
		NegativeDurationCount: countNegative(events, "duration"),
		MissingOnsetCount:     countMissing(events, "onset"),
		MissingDurationCount:  countMissing(events, "duration"),
		MissingResponseCount:  countMissing(events, "response_time"),
		ResponseRate:          calculateResponseRate(events),
		OnsetSpan:             calculateOnsetSpan(events),
		MeanResponseTime:      calculateMean(times),
		ResponseTimeSD:        calculateSD(times),
		Accuracy:              calculateAccuracy(events),
	}
}

// Flagged reports whether any event has a negative or missing onset or
// duration. Such records are written but marked for review.
func (r Results) Flagged() bool {
	for _, k := range []string{NegativeOnsetCount, NegativeDurationCount, MissingOnsetCount, MissingDurationCount} {
		if r[k].Value > 0 {
			return true
		}
	}
	return false
}

// Models converts the calculated metrics to rows for a unit result, ordered by
// key.
func (r Results) Models(unitID int) []models.UnitMetric {
	keys := make([]string, 0, len(r))
	for k, v := range r {
		if v.Calculated {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]models.UnitMetric, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.UnitMetric{
			UnitResultID: unitID,
			MetricKey:    k,
			MetricValue:  r[k].Value,
			SampleSize:   r[k].SampleSize,
		})
	}
	return out
}

func countNegative(rec *table.Record, col string) MetricResult {
	if !rec.Has(col) {
		return MetricResult{}
	}
	var count, n int
	for _, v := range rec.Column(col) {
		f, ok := v.Float()
		if !ok {
			continue
		}
		n++
		if f < 0 {
			count++
		}
	}
	return MetricResult{Value: float64(count), Calculated: true, SampleSize: n}
}

func countMissing(rec *table.Record, col string) MetricResult {
	if !rec.Has(col) {
		return MetricResult{}
	}
	var count int
	for _, v := range rec.Column(col) {
		if v.IsMissing() {
			count++
		}
	}
	return MetricResult{Value: float64(count), Calculated: true, SampleSize: rec.Len()}
}

func calculateResponseRate(rec *table.Record) MetricResult {
	if !rec.Has("response_time") || rec.Len() == 0 {
		return MetricResult{}
	}
	missing := countMissing(rec, "response_time")
	answered := float64(rec.Len()) - missing.Value
	return MetricResult{Value: answered / float64(rec.Len()), Calculated: true, SampleSize: rec.Len()}
}

// calculateOnsetSpan is the time from the first to the last onset.
func calculateOnsetSpan(rec *table.Record) MetricResult {
	if !rec.Has("onset") {
		return MetricResult{}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	var n int
	for _, v := range rec.Column("onset") {
		f, ok := v.Float()
		if !ok {
			continue
		}
		n++
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if n == 0 {
		return MetricResult{}
	}
	return MetricResult{Value: hi - lo, Calculated: true, SampleSize: n}
}

func calculateAccuracy(rec *table.Record) MetricResult {
	if !rec.Has("correct") {
		return MetricResult{}
	}
	var sum float64
	var n int
	for _, v := range rec.Column("correct") {
		if f, ok := v.Float(); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return MetricResult{}
	}
	return MetricResult{Value: sum / float64(n), Calculated: true, SampleSize: n}
}
