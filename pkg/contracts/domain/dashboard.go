package domain

import (
	"time"
)

// ChartKind selects how a renderer draws a chart's table.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartPie     ChartKind = "pie"
	ChartScatter ChartKind = "scatter"
	ChartHeatmap ChartKind = "heatmap"
)

func (k ChartKind) Valid() bool {
	switch k {
	case ChartBar, ChartPie, ChartScatter, ChartHeatmap:
		return true
	}
	return false
}

// MetricCard is one headline number. Delta is the indicator shown next to
// the value, a fixed share of it.
type MetricCard struct {
	Key   Measure `json:"key"`
	Label string  `json:"label"`
	Value int64   `json:"value"`
	Delta float64 `json:"delta"`
}

// Chart is a computed chart: its presentation fields plus the table to plot.
type Chart struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Kind       ChartKind      `json:"kind"`
	XLabel     string         `json:"x_label,omitempty"`
	YLabel     string         `json:"y_label,omitempty"`
	ValueLabel string         `json:"value_label,omitempty"`
	Table      AggregateTable `json:"table"`
}

// Footer carries the page footer shown under the charts.
type Footer struct {
	Year   int    `json:"year"`
	Source string `json:"source"`
	About  string `json:"about"`
}

// Dashboard is everything one render pass produces for a dataset and range.
type Dashboard struct {
	Dataset     DatasetInfo  `json:"dataset"`
	Range       DateRange    `json:"range"`
	RecordCount int          `json:"record_count"`
	Metrics     []MetricCard `json:"metrics"`
	Charts      []Chart      `json:"charts"`
	Footer      Footer       `json:"footer"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Chart returns the chart with the given id.
func (d *Dashboard) Chart(id string) (Chart, bool) {
	for _, c := range d.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}
