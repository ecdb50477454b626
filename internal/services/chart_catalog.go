package services

import (
	"fmt"

	"bikedash/internal/dataprocessing"
	"bikedash/pkg/contracts/domain"
)

// ChartSpec describes one chart as a grouping over the filtered records.
// TotalColumn, when set, appends the per-row sum of the measures.
type ChartSpec struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Kind        domain.ChartKind   `json:"kind"`
	Keys        []domain.Dimension `json:"keys"`
	Measures    []domain.Measure   `json:"measures"`
	Reducer     domain.Reducer     `json:"reducer"`
	TotalColumn domain.Measure     `json:"total_column,omitempty"`
	XLabel      string             `json:"x_label,omitempty"`
	YLabel      string             `json:"y_label,omitempty"`
	ValueLabel  string             `json:"value_label,omitempty"`
}

// Compute runs the chart's grouping over records.
func (s ChartSpec) Compute(records []domain.RentalRecord) (domain.Chart, error) {
	table, err := dataprocessing.GroupAndReduce(records, s.Keys, s.Measures, s.Reducer)
	if err != nil {
		return domain.Chart{}, fmt.Errorf("chart %s: %w", s.ID, err)
	}
	if s.TotalColumn != "" {
		if table, err = dataprocessing.AddTotalColumn(table, s.TotalColumn); err != nil {
			return domain.Chart{}, fmt.Errorf("chart %s: %w", s.ID, err)
		}
	}
	return domain.Chart{
		ID:         s.ID,
		Title:      s.Title,
		Kind:       s.Kind,
		XLabel:     s.XLabel,
		YLabel:     s.YLabel,
		ValueLabel: s.ValueLabel,
		Table:      table,
	}, nil
}

const labelRentals = "Jumlah Sewa"

// comparison builds the row-count scatter used for every pair of
// categorical attributes.
func comparison(id string, x, y domain.Dimension, xLabel, yLabel string) ChartSpec {
	return ChartSpec{
		ID:         id,
		Title:      fmt.Sprintf("Perbandingan antara %s dan %s", xLabel, yLabel),
		Kind:       domain.ChartScatter,
		Keys:       []domain.Dimension{x, y},
		Reducer:    domain.ReducerCount,
		XLabel:     xLabel,
		YLabel:     yLabel,
		ValueLabel: labelRentals,
	}
}

// DefaultCharts returns the full catalog in page order.
func DefaultCharts() []ChartSpec {
	return []ChartSpec{
		{
			ID:       "weather_mean",
			Title:    "Rata-rata Pengguna Sepeda Berdasarkan Kondisi Cuaca",
			Kind:     domain.ChartBar,
			Keys:     []domain.Dimension{domain.DimensionWeather},
			Measures: []domain.Measure{domain.MeasureCasual, domain.MeasureRegistered},
			Reducer:  domain.ReducerMean,
			XLabel:   "Kondisi Cuaca",
			YLabel:   "Jumlah Pengguna",
		},
		{
			ID:          "weekday_share",
			Title:       "Proporsi Penggunaan Sepeda di Hari Kerja vs Hari Libur",
			Kind:        domain.ChartPie,
			Keys:        []domain.Dimension{domain.DimensionWeekday},
			Measures:    []domain.Measure{domain.MeasureCasual, domain.MeasureRegistered},
			Reducer:     domain.ReducerSum,
			TotalColumn: domain.MeasureTotal,
			XLabel:      "Hari Kerja/Hari Libur",
			ValueLabel:  labelRentals,
		},
		comparison("season_weather", domain.DimensionSeason, domain.DimensionWeather, "Season", "Weather_condition"),
		comparison("weekday_month", domain.DimensionWeekday, domain.DimensionMonth, "Weekday", "Month"),
		comparison("year_weather", domain.DimensionYear, domain.DimensionWeather, "Year", "Weather_condition"),
		{
			ID:         "season_weather_density",
			Title:      "Rata-rata Sewa per Season dan Weather_condition",
			Kind:       domain.ChartHeatmap,
			Keys:       []domain.Dimension{domain.DimensionSeason, domain.DimensionWeather},
			Measures:   []domain.Measure{domain.MeasureCount},
			Reducer:    domain.ReducerMean,
			XLabel:     "Season",
			YLabel:     "Weather_condition",
			ValueLabel: labelRentals,
		},
		{
			ID:         "workingday_share",
			Title:      "Proporsi Sewa Hari Kerja dan Hari Libur",
			Kind:       domain.ChartPie,
			Keys:       []domain.Dimension{domain.DimensionWorkingDay},
			Measures:   []domain.Measure{domain.MeasureCount},
			Reducer:    domain.ReducerSum,
			XLabel:     "Hari Kerja/Hari Libur",
			ValueLabel: labelRentals,
		},
	}
}

// ChartCatalog is the ordered set of enabled charts.
type ChartCatalog struct {
	specs []ChartSpec
	byID  map[string]int
}

// NewChartCatalog enables the listed chart ids in catalog order. An empty
// list enables every chart; an unknown id fails with ErrUnknownChart.
func NewChartCatalog(enabled []string) (*ChartCatalog, error) {
	all := DefaultCharts()
	if len(enabled) > 0 {
		want := make(map[string]bool, len(enabled))
		for _, id := range enabled {
			want[id] = true
		}
		selected := make([]ChartSpec, 0, len(want))
		for _, spec := range all {
			if want[spec.ID] {
				selected = append(selected, spec)
				delete(want, spec.ID)
			}
		}
		for _, id := range enabled {
			if want[id] {
				return nil, fmt.Errorf("%w: %s", ErrUnknownChart, id)
			}
		}
		all = selected
	}

	c := &ChartCatalog{specs: all, byID: make(map[string]int, len(all))}
	for i, spec := range all {
		c.byID[spec.ID] = i
	}
	return c, nil
}

// Specs returns the enabled charts in catalog order.
func (c *ChartCatalog) Specs() []ChartSpec {
	out := make([]ChartSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

// IDs returns the enabled chart ids in catalog order.
func (c *ChartCatalog) IDs() []string {
	ids := make([]string, len(c.specs))
	for i, spec := range c.specs {
		ids[i] = spec.ID
	}
	return ids
}

// Get returns the enabled chart with the given id.
func (c *ChartCatalog) Get(id string) (ChartSpec, error) {
	i, ok := c.byID[id]
	if !ok {
		return ChartSpec{}, fmt.Errorf("%w: %s", ErrUnknownChart, id)
	}
	return c.specs[i], nil
}

// Select narrows the enabled charts to ids, keeping catalog order. An empty
// selection returns every enabled chart.
func (c *ChartCatalog) Select(ids []string) ([]ChartSpec, error) {
	if len(ids) == 0 {
		return c.Specs(), nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChart, id)
		}
		want[id] = true
	}
	out := make([]ChartSpec, 0, len(want))
	for _, spec := range c.specs {
		if want[spec.ID] {
			out = append(out, spec)
		}
	}
	return out, nil
}
