package dataprocessing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bikedash/internal/shared/testutil"
	"bikedash/pkg/contracts/domain"
)

const cleanCSV = `datetime,season,weather_condition,weekday,month,year,workingday,casual,registered,count
2011-01-01,Spring,Misty,Sat,Jan,2011,0,331,654,985
2011-01-02,Spring,Misty,Sun,Jan,2011,0,131,670,801
2011-01-03,Spring,Clear,Mon,Jan,2011,1,120,1229,1349
`

const uciCSV = `instant,dteday,season,yr,mnth,holiday,weekday,workingday,weathersit,temp,casual,registered,cnt
1,2011-01-01,1,0,1,0,6,0,2,0.344167,331,654,985
2,2011-01-02,1,0,1,0,0,0,2,0.363478,131,670,801
3,2012-06-03,2,1,6,0,0,0,1,0.196364,120,1229,1300
`

func newTestLoader(t *testing.T) *Loader {
	logger, _ := testutil.NewTestLogger(t)
	return NewLoader(logger)
}

func TestLoaderLoadCSV(t *testing.T) {
	loader := newTestLoader(t)

	result, err := loader.Load(context.Background(), strings.NewReader(cleanCSV), domain.FormatCSV)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	first := result.Records[0]
	assert.Equal(t, day(1), first.Timestamp)
	assert.Equal(t, domain.SeasonSpring, first.Season)
	assert.Equal(t, domain.WeatherMisty, first.WeatherCondition)
	assert.Equal(t, domain.WeekdaySaturday, first.Weekday)
	assert.Equal(t, domain.Month(1), first.Month)
	assert.Equal(t, domain.Year(2011), first.Year)
	assert.Equal(t, domain.DayOff, first.WorkingDay)
	assert.Equal(t, 331, first.Casual)
	assert.Equal(t, 985, first.Count)

	assert.Equal(t, domain.DayWorking, result.Records[2].WorkingDay)
	assert.Equal(t, domain.FormatCSV, result.Format)
	assert.Equal(t, day(1), result.Bounds.Start)
	assert.Equal(t, day(3), result.Bounds.End)
	assert.Equal(t, 0, result.InconsistentTotals)
}

func TestLoaderAcceptsUCILayout(t *testing.T) {
	loader := newTestLoader(t)

	result, err := loader.Load(context.Background(), strings.NewReader(uciCSV), domain.FormatCSV)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	last := result.Records[2]
	assert.Equal(t, domain.SeasonSummer, last.Season)
	assert.Equal(t, domain.Year(2012), last.Year)
	assert.Equal(t, domain.Month(6), last.Month)
	assert.Equal(t, domain.WeekdaySunday, last.Weekday)
	assert.Equal(t, domain.WeatherClear, last.WeatherCondition)
	assert.Equal(t, 1, result.InconsistentTotals, "1300 != 120 + 1229")
}

func TestLoaderRejectsBadInput(t *testing.T) {
	header := "datetime,season,weather_condition,weekday,month,year,workingday,casual,registered,count\n"

	tests := []struct {
		name       string
		input      string
		wantColumn string
		wantRow    int
		wantIs     error
		wantFlag   bool
	}{
		{
			name:       "bad timestamp",
			input:      header + "2011-01-01,Spring,Clear,Sat,Jan,2011,0,1,2,3\nnot-a-date,Spring,Clear,Sun,Jan,2011,0,1,2,3\n",
			wantColumn: ColumnTimestamp,
			wantRow:    2,
		},
		{
			name:       "unknown season",
			input:      header + "2011-01-01,Monsoon,Clear,Sat,Jan,2011,0,1,2,3\n",
			wantColumn: ColumnSeason,
			wantRow:    1,
			wantIs:     ErrUnknownCategory,
		},
		{
			name:       "unknown weather",
			input:      header + "2011-01-01,Spring,Sunny,Sat,Jan,2011,0,1,2,3\n",
			wantColumn: ColumnWeather,
			wantRow:    1,
			wantIs:     ErrUnknownCategory,
		},
		{
			name:       "negative count",
			input:      header + "2011-01-01,Spring,Clear,Sat,Jan,2011,0,-1,2,1\n",
			wantColumn: ColumnCasual,
			wantRow:    1,
			wantIs:     ErrNegativeCount,
		},
		{
			name:       "non numeric registered",
			input:      header + "2011-01-01,Spring,Clear,Sat,Jan,2011,0,1,many,3\n",
			wantColumn: ColumnRegistered,
			wantRow:    1,
		},
		{
			name:     "working day flag out of domain",
			input:    header + "2011-01-01,Spring,Clear,Sat,Jan,2011,0,1,2,3\n2011-01-02,Spring,Clear,Sun,Jan,2011,2,1,2,3\n",
			wantRow:  2,
			wantFlag: true,
		},
		{
			name:       "missing column",
			input:      "datetime,season,weather_condition,weekday,month,year,casual,registered,count\n2011-01-01,Spring,Clear,Sat,Jan,2011,1,2,3\n",
			wantColumn: ColumnWorkingDay,
			wantIs:     ErrMissingColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newTestLoader(t)
			result, err := loader.Load(context.Background(), strings.NewReader(tt.input), domain.FormatCSV)
			require.Error(t, err)
			assert.Nil(t, result, "no partial dataset")
			assert.True(t, IsInputError(err))

			if tt.wantFlag {
				var flagErr *InvalidFlagError
				require.True(t, errors.As(err, &flagErr))
				assert.Equal(t, tt.wantRow, flagErr.Row)
				assert.Equal(t, "2", flagErr.Value)
				return
			}

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "got %T: %v", err, err)
			assert.Equal(t, tt.wantColumn, parseErr.Column)
			assert.Equal(t, tt.wantRow, parseErr.Row)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestLoaderStripsByteOrderMark(t *testing.T) {
	loader := newTestLoader(t)

	result, err := loader.Load(context.Background(), strings.NewReader("\ufeff"+cleanCSV), domain.FormatCSV)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	assert.Equal(t, day(1), result.Records[0].Timestamp)
}

func TestLoaderRejectsRaggedRows(t *testing.T) {
	input := "datetime,season,weather_condition,weekday,month,year,workingday,casual,registered,count\n" +
		"2011-01-01,Spring,Clear,Sat,Jan,2011,0,1,2,3\n" +
		"2011-01-02,Spring,Clear\n"

	_, err := newTestLoader(t).Load(context.Background(), strings.NewReader(input), domain.FormatCSV)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.True(t, IsInputError(err))
	assert.NotContains(t, err.Error(), "header")

	var parseErr *ParseError
	assert.False(t, errors.As(err, &parseErr))
}

func TestLoaderEmptyInput(t *testing.T) {
	loader := newTestLoader(t)

	for _, input := range []string{"", "   \n", "datetime,season,weather_condition,weekday,month,year,workingday,casual,registered,count\n"} {
		_, err := loader.Load(context.Background(), strings.NewReader(input), domain.FormatCSV)
		assert.ErrorIs(t, err, ErrEmptyInput, "input %q", input)
	}
}

func TestLoaderLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"datetime", "season", "weather_condition", "weekday", "month", "year", "workingday", "casual", "registered", "count"},
		{"2011-01-01", "Spring", "Misty", "Saturday", "January", 2011, 0, 331, 654, 985},
		{"2011-01-03", "Spring", "Clear", "Monday", "January", 2011, 1, 120, 1229, 1349},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	loader := newTestLoader(t)
	result, err := loader.Load(context.Background(), bytes.NewReader(buf.Bytes()), domain.FormatXLSX)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, domain.FormatXLSX, result.Format)
	assert.Equal(t, domain.DayWorking, result.Records[1].WorkingDay)
	assert.Equal(t, 1229, result.Records[1].Registered)
}

func TestLoaderLoadXLSXDateCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"dteday", "season", "weathersit", "weekday", "mnth", "yr", "workingday", "casual", "registered", "cnt"},
		{time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), 1, 2, 6, 1, 0, 0, 331, 654, 985},
		{time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), 1, 1, 1, 1, 0, 1, 120, 1229, 1349},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := newTestLoader(t).Load(context.Background(), bytes.NewReader(buf.Bytes()), domain.FormatXLSX)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, day(1), result.Records[0].Timestamp)
	assert.Equal(t, day(3), result.Records[1].Timestamp)
	assert.Equal(t, domain.WeatherMisty, result.Records[0].WeatherCondition)
}

func TestExcelSerialToDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		date1904 bool
		want     string
	}{
		{name: "serial", input: "40544", want: "2011-01-01 00:00:00"},
		{name: "serial with time", input: "40544.5", want: "2011-01-01 12:00:00"},
		{name: "1904 system", input: "39082", date1904: true, want: "2011-01-01 00:00:00"},
		{name: "iso text unchanged", input: "2011-01-01", want: "2011-01-01"},
		{name: "blank unchanged", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, excelSerialToDate(tt.input, tt.date1904))
		})
	}
}

func TestLoaderRejectsCorruptWorkbook(t *testing.T) {
	_, err := newTestLoader(t).Load(context.Background(), strings.NewReader("not a zip archive"), domain.FormatXLSX)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.True(t, IsInputError(err))
}

func TestLoaderLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "day.csv")
	require.NoError(t, os.WriteFile(path, []byte(cleanCSV), 0o644))

	loader := newTestLoader(t)

	result, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, result.Records, 3)

	tests := []struct {
		name string
		path string
	}{
		{name: "absent file", path: filepath.Join(dir, "missing.csv")},
		{name: "empty path", path: ""},
		{name: "directory", path: filepath.Join(dir, "sub.csv")},
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadFile(context.Background(), tt.path)
			var missing *MissingFileError
			require.True(t, errors.As(err, &missing), "got %v", err)
			assert.Equal(t, tt.path, missing.Path)
			assert.False(t, IsInputError(err))
		})
	}

	t.Run("absent file with unsupported extension", func(t *testing.T) {
		_, err := loader.LoadFile(context.Background(), filepath.Join(dir, "day.json"))
		var missing *MissingFileError
		assert.True(t, errors.As(err, &missing), "got %v", err)
	})

	t.Run("present file with unsupported extension", func(t *testing.T) {
		jsonPath := filepath.Join(dir, "day.json")
		require.NoError(t, os.WriteFile(jsonPath, []byte(cleanCSV), 0o644))
		_, err := loader.LoadFile(context.Background(), jsonPath)
		require.Error(t, err)
		var missing *MissingFileError
		assert.False(t, errors.As(err, &missing))
		assert.Contains(t, err.Error(), "unsupported file type")
	})
}

func TestLoaderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader(t).Load(ctx, strings.NewReader(cleanCSV), domain.FormatCSV)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatFromName(t *testing.T) {
	f, err := FormatFromName("Day.CSV")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatCSV, f)

	f, err = FormatFromName("report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatXLSX, f)

	_, err = FormatFromName("report.xls")
	assert.Error(t, err)
}

func TestParseCount(t *testing.T) {
	n, err := parseCount("12.0")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseCount("12.5")
	assert.Error(t, err)

	_, err = parseCount("-3")
	assert.ErrorIs(t, err, ErrNegativeCount)
}
