package exporter

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"bikedash/pkg/contracts/domain"
)

// ErrEmptyChart is returned when a chart table has nothing to draw.
var ErrEmptyChart = errors.New("chart has no data to draw")

// Default canvas size.
const (
	DefaultWidth  = 960
	DefaultHeight = 540
)

var seriesColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorOrange,
	chart.ColorRed,
	chart.ColorYellow,
	chart.ColorCyan,
	chart.ColorAlternateGray,
}

// PNGRenderer draws computed charts with go-chart.
type PNGRenderer struct {
	Width  int
	Height int
}

// NewPNGRenderer creates a renderer; non-positive sizes fall back to the defaults.
func NewPNGRenderer(width, height int) *PNGRenderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &PNGRenderer{Width: width, Height: height}
}

// Render writes c as a PNG image.
func (p *PNGRenderer) Render(w io.Writer, c domain.Chart) error {
	if c.Table.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyChart, c.ID)
	}

	var err error
	switch c.Kind {
	case domain.ChartBar:
		err = p.renderBar(w, c)
	case domain.ChartPie:
		err = p.renderPie(w, c)
	case domain.ChartScatter:
		err = p.renderGrid(w, c, false)
	case domain.ChartHeatmap:
		err = p.renderGrid(w, c, true)
	default:
		return fmt.Errorf("unsupported chart kind %q", c.Kind)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", c.ID, err)
	}
	return nil
}

func titleStyle() chart.Style {
	return chart.Style{FontSize: 13}
}

// renderBar draws one bar per group, stacking the value columns when there
// is more than one.
func (p *PNGRenderer) renderBar(w io.Writer, c domain.Chart) error {
	key := c.Table.Keys[0]
	columns := c.Table.ValueColumns()

	if len(columns) == 1 {
		bars := make([]chart.Value, 0, c.Table.Len())
		top := 0.0
		for _, row := range c.Table.Rows {
			v := row.Value(columns[0])
			bars = append(bars, chart.Value{Label: row.Key(key), Value: v})
			top = math.Max(top, v)
		}
		if top <= 0 {
			top = 1
		}
		graph := chart.BarChart{
			Title:      c.Title,
			TitleStyle: titleStyle(),
			Width:      p.Width,
			Height:     p.Height,
			BarWidth:   p.barWidth(len(bars)),
			Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
			YAxis: chart.YAxis{
				Name:  c.YLabel,
				Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			},
			Bars: bars,
		}
		return graph.Render(chart.PNG, w)
	}

	bars := make([]chart.StackedBar, 0, c.Table.Len())
	for _, row := range c.Table.Rows {
		values := make([]chart.Value, len(columns))
		for i, m := range columns {
			values[i] = chart.Value{
				Label: string(m),
				Value: row.Value(m),
				Style: chart.Style{FillColor: seriesColors[i%len(seriesColors)], StrokeColor: seriesColors[i%len(seriesColors)]},
			}
		}
		bars = append(bars, chart.StackedBar{Name: row.Key(key), Values: values})
	}
	graph := chart.StackedBarChart{
		Title:      c.Title,
		TitleStyle: titleStyle(),
		Width:      p.Width,
		Height:     p.Height,
		BarSpacing: 40,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Bars:       bars,
	}
	return graph.Render(chart.PNG, w)
}

func (p *PNGRenderer) barWidth(n int) int {
	width := p.Width / (2*n + 1)
	if width > 80 {
		return 80
	}
	if width < 8 {
		return 8
	}
	return width
}

// renderPie draws the share of every group. Tables with a total column plot
// it; otherwise the first value column.
func (p *PNGRenderer) renderPie(w io.Writer, c domain.Chart) error {
	key := c.Table.Keys[0]
	measure := c.Table.ValueColumns()[0]
	for _, m := range c.Table.Measures {
		if m == domain.MeasureTotal {
			measure = m
		}
	}

	values := make([]chart.Value, 0, c.Table.Len())
	for _, row := range c.Table.Rows {
		if v := row.Value(measure); v > 0 {
			values = append(values, chart.Value{Label: row.Key(key), Value: v})
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyChart, c.ID)
	}

	graph := chart.PieChart{
		Title:      c.Title,
		TitleStyle: titleStyle(),
		Width:      p.Width,
		Height:     p.Height,
		Values:     values,
	}
	return graph.Render(chart.PNG, w)
}

// renderGrid places every group on a categorical grid built from the table
// levels. Scatter charts scale the dot with the value; heatmaps keep the dot
// size and colour it instead.
func (p *PNGRenderer) renderGrid(w io.Writer, c domain.Chart, heat bool) error {
	if len(c.Table.Keys) != 2 {
		return fmt.Errorf("grid charts need two keys, got %d", len(c.Table.Keys))
	}
	xKey, yKey := c.Table.Keys[0], c.Table.Keys[1]
	xLevels, yLevels := c.Table.Levels[xKey], c.Table.Levels[yKey]
	measure := c.Table.ValueColumns()[0]

	xs := make([]float64, 0, c.Table.Len())
	ys := make([]float64, 0, c.Table.Len())
	vs := make([]float64, 0, c.Table.Len())
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, row := range c.Table.Rows {
		v := row.Value(measure)
		xs = append(xs, float64(indexOf(xLevels, row.Key(xKey))+1))
		ys = append(ys, float64(indexOf(yLevels, row.Key(yKey))+1))
		vs = append(vs, v)
		minV, maxV = math.Min(minV, v), math.Max(maxV, v)
	}

	style := chart.Style{StrokeWidth: chart.Disabled, DotWidth: 6}
	if heat {
		style.DotWidth = 18
		style.DotColorProvider = func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
			if maxV == minV {
				return chart.Viridis(1, 0, 1)
			}
			return chart.Viridis(vs[index], minV, maxV)
		}
	} else {
		style.DotColor = chart.ColorBlue
		style.DotWidthProvider = func(_, _ chart.Range, index int, _, _ float64) float64 {
			if maxV <= 0 {
				return 4
			}
			return 4 + 16*vs[index]/maxV
		}
	}

	graph := chart.Chart{
		Title:      c.Title,
		TitleStyle: titleStyle(),
		Width:      p.Width,
		Height:     p.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  c.XLabel,
			Ticks: levelTicks(xLevels),
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(xLevels) + 1)},
		},
		YAxis: chart.YAxis{
			Name:  c.YLabel,
			Ticks: levelTicks(yLevels),
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(yLevels) + 1)},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: c.ValueLabel, XValues: xs, YValues: ys, Style: style},
		},
	}
	return graph.Render(chart.PNG, w)
}

// levelTicks labels positions 1..n with the levels, leaving the padding
// positions 0 and n+1 blank.
func levelTicks(levels []string) []chart.Tick {
	ticks := make([]chart.Tick, 0, len(levels)+2)
	ticks = append(ticks, chart.Tick{Value: 0, Label: ""})
	for i, level := range levels {
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: level})
	}
	return append(ticks, chart.Tick{Value: float64(len(levels) + 1), Label: ""})
}

func indexOf(levels []string, v string) int {
	for i, l := range levels {
		if l == v {
			return i
		}
	}
	return -1
}
