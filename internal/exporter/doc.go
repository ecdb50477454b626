// Package exporter turns computed dashboards into files.
//
// CSVWriter streams a chart's aggregate table as CSV, WorkbookExporter writes
// a whole dashboard as an xlsx workbook (a "Ringkasan" summary sheet plus one
// sheet per chart) and PNGRenderer draws a single chart with go-chart.
//
// Example usage:
//
//	renderer := exporter.NewPNGRenderer(cfg.Dashboard.RenderWidth, cfg.Dashboard.RenderHeight)
//	err := renderer.Render(w, chart)
//
//	workbook := exporter.NewWorkbookExporter(logger)
//	err = workbook.Write(w, dashboard)
package exporter
