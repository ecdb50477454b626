package dataprocessing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"bikedash/pkg/contracts/domain"
)

// Canonical column names of the rental dataset.
const (
	ColumnSeason     = "season"
	ColumnWeather    = "weather_condition"
	ColumnWeekday    = "weekday"
	ColumnMonth      = "month"
	ColumnYear       = "year"
	ColumnWorkingDay = "workingday"
	ColumnCasual     = "casual"
	ColumnRegistered = "registered"
	ColumnCount      = "count"
)

// RequiredColumns must all be present in the header, under their canonical
// name or one of the accepted aliases.
var RequiredColumns = []string{
	ColumnTimestamp, ColumnSeason, ColumnWeather, ColumnWeekday, ColumnMonth,
	ColumnYear, ColumnWorkingDay, ColumnCasual, ColumnRegistered, ColumnCount,
}

// columnAliases maps header spellings, including the UCI day.csv names, to
// canonical columns.
var columnAliases = map[string]string{
	"datetime": ColumnTimestamp, "dteday": ColumnTimestamp, "date": ColumnTimestamp,
	"season":            ColumnSeason,
	"weather_condition": ColumnWeather, "weathersit": ColumnWeather, "weather": ColumnWeather,
	"weekday": ColumnWeekday, "day_of_week": ColumnWeekday,
	"month": ColumnMonth, "mnth": ColumnMonth,
	"year": ColumnYear, "yr": ColumnYear,
	"workingday": ColumnWorkingDay, "working_day": ColumnWorkingDay, "is_working_day": ColumnWorkingDay,
	"casual":     ColumnCasual,
	"registered": ColumnRegistered,
	"count":      ColumnCount, "cnt": ColumnCount, "total": ColumnCount,
}

// cancelCheckEvery is how many rows are parsed between context checks.
const cancelCheckEvery = 1024

var utf8BOM = []byte("\xef\xbb\xbf")

// LoadResult is a parsed dataset before it is given an identity.
type LoadResult struct {
	Records            []domain.RentalRecord
	Format             domain.FileFormat
	Bounds             domain.DateRange
	InconsistentTotals int
}

// Loader turns CSV or XLSX input into rental records.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader logging under the "loader" component.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// FormatFromName picks the input format from a file extension.
func FormatFromName(name string) (domain.FileFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return domain.FormatCSV, nil
	case ".xlsx":
		return domain.FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(name))
}

// LoadFile reads a dataset from disk. An absent or unreadable path is a
// MissingFileError.
func (l *Loader) LoadFile(ctx context.Context, path string) (*LoadResult, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &MissingFileError{Path: path, Err: errors.New("no path given")}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &MissingFileError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &MissingFileError{Path: path, Err: errors.New("path is a directory")}
	}

	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &MissingFileError{Path: path, Err: err}
	}
	defer f.Close()

	l.logger.InfoContext(ctx, "Loading dataset file",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int64("size_bytes", info.Size()))

	return l.Load(ctx, f, format)
}

// Load parses a dataset from r. The whole load fails on the first bad cell.
func (l *Loader) Load(ctx context.Context, r io.Reader, format domain.FileFormat) (*LoadResult, error) {
	if r == nil {
		return nil, &MissingFileError{Path: "<stream>", Err: errors.New("no input stream")}
	}

	var (
		rows [][]string
		err  error
	)
	switch format {
	case domain.FormatCSV:
		rows, err = readCSV(r)
	case domain.FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	result, err := l.buildRecords(ctx, rows)
	if err != nil {
		l.logger.WarnContext(ctx, "Dataset rejected",
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return nil, err
	}
	result.Format = format

	l.logger.InfoContext(ctx, "Dataset parsed",
		slog.String("format", string(format)),
		slog.Int("records", len(result.Records)),
		slog.Int("inconsistent_totals", result.InconsistentTotals),
		slog.Time("start", result.Bounds.Start),
		slog.Time("end", result.Bounds.End))

	return result, nil
}

// readCSV loads the input as a data frame of plain strings; typed parsing
// happens in buildRecords.
func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		if strings.Contains(df.Err.Error(), "empty") {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("read csv: %w: %v", ErrMalformedInput, df.Err)
	}
	return df.Records(), nil
}

// readXLSX reads the first sheet of a workbook. Cells are read raw so
// numbers keep their full value, and date serials in the timestamp column
// are rewritten as ISO dates.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w: %v", sheets[0], ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return rows, nil
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	col := timestampColumn(rows[0])
	if col < 0 {
		return rows, nil
	}
	for _, row := range rows[1:] {
		if col < len(row) {
			row[col] = excelSerialToDate(row[col], date1904)
		}
	}
	return rows, nil
}

// timestampColumn finds the header position of the timestamp column, or -1.
func timestampColumn(header []string) int {
	for i, name := range header {
		if columnAliases[normalizeHeader(name)] == ColumnTimestamp {
			return i
		}
	}
	return -1
}

// excelSerialToDate rewrites a numeric date serial as "2006-01-02 15:04:05".
// Anything that is not a serial is returned unchanged.
func excelSerialToDate(v string, date1904 bool) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || serial <= 0 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return v
	}
	return t.Round(time.Second).Format("2006-01-02 15:04:05")
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

// mapHeader resolves canonical column positions.
func mapHeader(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(RequiredColumns))
	for i, name := range header {
		canonical, ok := columnAliases[normalizeHeader(name)]
		if !ok {
			continue
		}
		if _, dup := positions[canonical]; !dup {
			positions[canonical] = i
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := positions[col]; !ok {
			return nil, &ParseError{Column: col, Err: ErrMissingColumn}
		}
	}
	return positions, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func (l *Loader) buildRecords(ctx context.Context, rows [][]string) (*LoadResult, error) {
	for len(rows) > 0 && isBlank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) < 2 {
		return nil, ErrEmptyInput
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}
	l.logger.DebugContext(ctx, "Header mapped", slog.Any("columns", cols))

	data := rows[1:]
	stamps := make([]string, len(data))
	for i, row := range data {
		stamps[i] = cell(row, cols[ColumnTimestamp])
	}
	timestamps, err := ParseTimestamps(stamps)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{Records: make([]domain.RentalRecord, 0, len(data))}
	for i, row := range data {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := parseRow(i+1, row, cols)
		if err != nil {
			return nil, err
		}
		rec.Timestamp = timestamps[i]
		if rec.Count != rec.Casual+rec.Registered {
			result.InconsistentTotals++
		}
		result.Records = append(result.Records, rec)
	}
	result.Bounds = Bounds(result.Records)
	return result, nil
}

func parseRow(rowNum int, row []string, cols map[string]int) (domain.RentalRecord, error) {
	var rec domain.RentalRecord
	var err error

	fail := func(column string, err error) (domain.RentalRecord, error) {
		return domain.RentalRecord{}, &ParseError{Row: rowNum, Column: column, Value: cell(row, cols[column]), Err: err}
	}

	if rec.Season, err = domain.ParseSeason(cell(row, cols[ColumnSeason])); err != nil {
		return fail(ColumnSeason, err)
	}
	if rec.WeatherCondition, err = domain.ParseWeatherCondition(cell(row, cols[ColumnWeather])); err != nil {
		return fail(ColumnWeather, err)
	}
	if rec.Weekday, err = domain.ParseWeekday(cell(row, cols[ColumnWeekday])); err != nil {
		return fail(ColumnWeekday, err)
	}
	if rec.Month, err = domain.ParseMonth(cell(row, cols[ColumnMonth])); err != nil {
		return fail(ColumnMonth, err)
	}
	if rec.Year, err = domain.ParseYear(cell(row, cols[ColumnYear])); err != nil {
		return fail(ColumnYear, err)
	}
	if rec.WorkingDay, err = parseWorkingDay(rowNum, cell(row, cols[ColumnWorkingDay])); err != nil {
		var flagErr *InvalidFlagError
		if errors.As(err, &flagErr) {
			return domain.RentalRecord{}, err
		}
		return fail(ColumnWorkingDay, err)
	}
	if rec.Casual, err = parseCount(cell(row, cols[ColumnCasual])); err != nil {
		return fail(ColumnCasual, err)
	}
	if rec.Registered, err = parseCount(cell(row, cols[ColumnRegistered])); err != nil {
		return fail(ColumnRegistered, err)
	}
	if rec.Count, err = parseCount(cell(row, cols[ColumnCount])); err != nil {
		return fail(ColumnCount, err)
	}
	return rec, nil
}

// parseWorkingDay accepts the raw 0/1 flag, or an already derived label.
func parseWorkingDay(rowNum int, v string) (domain.WorkingDay, error) {
	flag, err := strconv.Atoi(v)
	if err != nil {
		return domain.ParseWorkingDay(v)
	}
	w, err := DeriveWorkingDayLabel(flag)
	if err != nil {
		return 0, &InvalidFlagError{Row: rowNum, Value: v}
	}
	return w, nil
}

// parseCount accepts non-negative integers, including integral floats such
// as "12.0" written by spreadsheet exports.
func parseCount(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not an integer")
		}
		n = int(f)
	}
	if n < 0 {
		return 0, ErrNegativeCount
	}
	return n, nil
}
