package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"bikedash/pkg/contracts/domain"
)

// SummarySheet is the first sheet of every workbook.
const SummarySheet = "Ringkasan"

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// WorkbookExporter writes dashboards as xlsx workbooks.
type WorkbookExporter struct {
	logger *slog.Logger
}

// NewWorkbookExporter creates a workbook exporter.
func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger.With(slog.String("component", "workbook_exporter"))}
}

// Write renders dash as a workbook: a summary sheet with the dataset, range
// and metric cards, then one sheet per chart table.
func (e *WorkbookExporter) Write(w io.Writer, dash *domain.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummary(f, dash, bold); err != nil {
		return err
	}

	for _, chart := range dash.Charts {
		if err := writeChartSheet(f, chart, bold); err != nil {
			return fmt.Errorf("chart %s: %w", chart.ID, err)
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Debug("Workbook written",
		slog.String("dataset_id", dash.Dataset.ID),
		slog.Int("sheets", len(dash.Charts)+1))
	return nil
}

func writeSummary(f *excelize.File, dash *domain.Dashboard, bold int) error {
	rows := [][]interface{}{
		{"Dataset", dash.Dataset.Name},
		{"Periode", formatRange(dash.Range)},
		{"Jumlah Data", dash.RecordCount},
		{},
		{"Metrik", "Nilai", "Delta"},
	}
	for _, card := range dash.Metrics {
		rows = append(rows, []interface{}{card.Label, card.Value, card.Delta})
	}
	if err := setRows(f, SummarySheet, 1, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "A3", bold); err != nil {
		return err
	}
	return f.SetCellStyle(SummarySheet, "A5", "C5", bold)
}

func writeChartSheet(f *excelize.File, chart domain.Chart, bold int) error {
	sheet := sheetName(chart.ID)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := TableHeaders(chart.Table)
	rows := [][]interface{}{{chart.Title}, {}, toRow(headers)}
	for _, row := range chart.Table.Rows {
		cells := make([]interface{}, 0, len(headers))
		for _, d := range chart.Table.Keys {
			cells = append(cells, row.Key(d))
		}
		if chart.Table.Reducer != domain.ReducerCount {
			for _, m := range chart.Table.Measures {
				cells = append(cells, row.Value(m))
			}
		}
		rows = append(rows, append(cells, row.Count))
	}
	if err := setRows(f, sheet, 1, rows); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 3)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A3", last, bold)
}

func setRows(f *excelize.File, sheet string, first int, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, first+i)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toRow(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func sheetName(id string) string {
	if len(id) > maxSheetName {
		return id[:maxSheetName]
	}
	return id
}
