package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/repository"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

// MetricTimeline returns echarts options plotting a metric's per-run mean.
func (h *RunsHandler) MetricTimeline(c *gin.Context) {
	metricKey := c.Param("key")
	experimentID := c.Query("experiment")

	data, err := repository.GetMetricTimeline(c.Request.Context(), metricKey, experimentID)
	if err != nil {
		h.log.Error("Failed to get timeline data", zap.Error(err), zap.String("metricKey", metricKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load timeline data"})
		return
	}
	writeChart(c, h.log, generateTimelineChart(data, metricLabel(metricKey)))
}

// RunCorrelation returns echarts options plotting two metrics against each
// other over a run's units.
func (h *RunsHandler) RunCorrelation(c *gin.Context) {
	xKey, yKey := c.Query("x"), c.Query("y")
	if xKey == "" || yKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both x and y metrics are required"})
		return
	}
	data, err := repository.GetMetricCorrelation(c.Request.Context(), c.Param("id"), xKey, yKey)
	if err != nil {
		h.log.Error("Failed to get correlation data", zap.Error(err), zap.String("x", xKey), zap.String("y", yKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load correlation data"})
		return
	}
	writeChart(c, h.log, generateCorrelationChart(data, xKey, yKey))
}

// UnitTimeline returns echarts options plotting a unit's events, one series
// per trial type, onset against duration.
func (h *RunsHandler) UnitTimeline(c *gin.Context) {
	id, ok := unitID(c)
	if !ok {
		return
	}
	unit, err := repository.GetUnitResult(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get unit")
		return
	}
	if unit.EventsPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unit has no event file"})
		return
	}
	rec, err := table.ReadFile(unit.EventsPath)
	if err != nil {
		h.log.Error("Failed to read event file", zap.Error(err), zap.String("path", unit.EventsPath))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read event file"})
		return
	}
	writeChart(c, h.log, generateEventChart(rec, unit.Subject+" "+unit.ExperimentID))
}

type jsonChart interface {
	JSON() map[string]interface{}
}

func writeChart(c *gin.Context, log *zap.Logger, chart jsonChart) {
	body, err := json.Marshal(chart.JSON())
	if err != nil {
		log.Error("Failed to encode chart", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode chart"})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func metricLabel(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

func generateTimelineChart(data []repository.TimelineDataPoint, label string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Metric Over Runs",
			Subtitle: label,
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	// Data points are [date, value] pairs.
	items := make([]opts.LineData, 0, len(data))
	for _, point := range data {
		items = append(items, opts.LineData{Value: []interface{}{point.Date, point.Value}})
	}

	line.AddSeries(label, items).SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}

func generateCorrelationChart(data []repository.CorrelationDataPoint, xKey, yKey string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Metric Correlation"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: metricLabel(xKey)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: metricLabel(yKey)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	items := make([]opts.ScatterData, 0, len(data))
	for _, point := range data {
		items = append(items, opts.ScatterData{Value: []interface{}{point.XValue, point.YValue}})
	}

	scatter.AddSeries("Units", items)
	return scatter
}

func generateEventChart(rec *table.Record, title string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Events", Subtitle: title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "onset (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "duration (s)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	series := make(map[string][]opts.ScatterData)
	for i := 0; i < rec.Len(); i++ {
		onset, ok := rec.Get(i, "onset").Float()
		if !ok {
			continue
		}
		duration, _ := rec.Get(i, "duration").Float()
		name := rec.Get(i, "trial_type").Text()
		if name == "" {
			name = "events"
		}
		series[name] = append(series[name], opts.ScatterData{Value: []interface{}{onset, duration}})
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		scatter.AddSeries(name, series[name])
	}
	return scatter
}
