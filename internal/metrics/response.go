package metrics

import (
	"math"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

// responseTimes returns the answered trials' response times.
func responseTimes(rec *table.Record) []float64 {
	var times []float64
	for _, v := range rec.Column("response_time") {
		if f, ok := v.Float(); ok {
			times = append(times, f)
		}
	}
	return times
}

func calculateMean(times []float64) MetricResult {
	if len(times) == 0 {
		return MetricResult{}
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return MetricResult{Value: sum / float64(len(times)), Calculated: true, SampleSize: len(times)}
}

// calculateSD is the population standard deviation of the response times.
func calculateSD(times []float64) MetricResult {
	if len(times) <= 1 {
		return MetricResult{}
	}
	avg := calculateMean(times).Value
	var sumSquaredDiff float64
	for _, t := range times {
		diff := t - avg
		sumSquaredDiff += diff * diff
	}
	variance := sumSquaredDiff / float64(len(times))
	return MetricResult{Value: math.Sqrt(variance), Calculated: true, SampleSize: len(times)}
}
