package exporter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bikedash/internal/config"
	"bikedash/internal/services"
	"bikedash/internal/shared/testutil"
	"bikedash/pkg/contracts/domain"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func computeChart(t *testing.T, id string) domain.Chart {
	t.Helper()
	catalog, err := services.NewChartCatalog(nil)
	require.NoError(t, err)
	spec, err := catalog.Get(id)
	require.NoError(t, err)
	chart, err := spec.Compute(testutil.FixtureRecords())
	require.NoError(t, err)
	return chart
}

func testDashboard(t *testing.T) *domain.Dashboard {
	t.Helper()
	ds := testutil.FixtureDataset("ds-1")
	var charts []domain.Chart
	for _, spec := range services.DefaultCharts() {
		charts = append(charts, computeChart(t, spec.ID))
	}
	return &domain.Dashboard{
		Dataset:     ds.DatasetInfo,
		Range:       ds.Bounds,
		RecordCount: len(ds.Records),
		Metrics:     services.Metrics(ds.Records, 0.02),
		Charts:      charts,
		Footer:      domain.Footer{Year: 2024},
		GeneratedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "csv starts with a BOM")
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteTable(t *testing.T) {
	tests := []struct {
		name    string
		chartID string
		want    [][]string
	}{
		{
			name:    "mean table keeps two decimals",
			chartID: "weather_mean",
			want: [][]string{
				{"weather_condition", "casual", "registered", "rows"},
				{"Clear", "15.00", "150.00", "2"},
				{"Misty", "7.00", "70.00", "1"},
				{"Light Rain", "10.00", "100.00", "2"},
			},
		},
		{
			name:    "count table has no measure columns",
			chartID: "season_weather",
			want: [][]string{
				{"season", "weather_condition", "rows"},
				{"Spring", "Clear", "2"},
				{"Spring", "Light Rain", "1"},
				{"Summer", "Misty", "1"},
				{"Summer", "Light Rain", "1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chart := computeChart(t, tt.chartID)
			var buf bytes.Buffer
			require.NoError(t, NewCSVWriter(nil).WriteTable(&buf, chart.Table))

			got := readCSV(t, buf.Bytes())
			require.Len(t, got, len(tt.want))
			assert.Equal(t, tt.want[0], got[0])
			assert.ElementsMatch(t, tt.want[1:], got[1:])
		})
	}
}

func TestCSVWriter_SumTablePrintsIntegers(t *testing.T) {
	chart := computeChart(t, "weekday_share")
	records := TableRecords(chart.Table)
	headers := TableHeaders(chart.Table)

	assert.Equal(t, []string{"weekday", "casual", "registered", "total", "rows"}, headers)
	for _, record := range records {
		if record[0] == domain.WeekdaySaturday.String() {
			assert.Equal(t, []string{"Saturday", "10", "100", "110", "1"}, record)
		}
	}
}

func TestCSVWriter_WriteTableFile(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(&config.Paths{ExportDir: dir})
	chart := computeChart(t, "workingday_share")

	path, err := writer.WriteTableFile("charts/workingday.csv", chart.Table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "charts", "workingday.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := readCSV(t, data)
	assert.Equal(t, []string{"is_working_day", "count", "rows"}, got[0])
	assert.Len(t, got, 3)

	abs := filepath.Join(t.TempDir(), "abs.csv")
	path, err = writer.WriteTableFile(abs, chart.Table)
	require.NoError(t, err)
	assert.Equal(t, abs, path)

	entries, err := os.ReadDir(filepath.Join(dir, "charts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestSaveFileKeepsOldContentOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	err := SaveFile(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestWorkbookExporter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	dash := testDashboard(t)

	var buf bytes.Buffer
	require.NoError(t, NewWorkbookExporter(logger).Write(&buf, dash))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, len(dash.Charts)+1)
	assert.Equal(t, SummarySheet, sheets[0])
	for i, chart := range dash.Charts {
		assert.Equal(t, chart.ID, sheets[i+1])
	}

	name, err := f.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "day.csv", name)

	period, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2011-01-01 s/d 2011-01-05", period)

	label, err := f.GetCellValue(SummarySheet, "A8")
	require.NoError(t, err)
	assert.Equal(t, "Total Sewa", label)
	total, err := f.GetCellValue(SummarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "627", total)

	rows, err := f.GetRows("season_weather")
	require.NoError(t, err)
	require.Len(t, rows, 7, "title, blank, header and four groups")
	assert.Equal(t, "Perbandingan antara Season dan Weather_condition", rows[0][0])
	assert.Equal(t, []string{"season", "weather_condition", "rows"}, rows[2])
}

func TestPNGRenderer(t *testing.T) {
	renderer := NewPNGRenderer(0, 0)
	assert.Equal(t, DefaultWidth, renderer.Width)
	assert.Equal(t, DefaultHeight, renderer.Height)

	small := NewPNGRenderer(480, 320)
	for _, spec := range services.DefaultCharts() {
		t.Run(spec.ID, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, small.Render(&buf, computeChart(t, spec.ID)))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature), "png signature")
		})
	}
}

func TestPNGRendererErrors(t *testing.T) {
	renderer := NewPNGRenderer(480, 320)

	empty := computeChart(t, "weather_mean")
	empty.Table.Rows = nil
	err := renderer.Render(&bytes.Buffer{}, empty)
	assert.ErrorIs(t, err, ErrEmptyChart)

	unknown := computeChart(t, "weather_mean")
	unknown.Kind = "radar"
	err = renderer.Render(&bytes.Buffer{}, unknown)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "radar"))
}
