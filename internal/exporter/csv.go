package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"bikedash/internal/config"
	"bikedash/pkg/contracts/domain"
)

// utf8BOM helps Excel recognise UTF-8 CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a CSV writer. Relative file paths resolve into the
// export directory of paths; paths may be nil when only streams are written.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Encode writes the header and records to w.
func (c *CSVWriter) Encode(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSV writes a CSV file, creating its directory. It returns the path
// actually written.
func (c *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := c.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	err := SaveFile(fullPath, func(w io.Writer) error {
		return c.Encode(w, options)
	})
	return fullPath, err
}

// WriteTable streams an aggregate table as CSV.
func (c *CSVWriter) WriteTable(w io.Writer, table domain.AggregateTable) error {
	return c.Encode(w, WriteOptions{
		Headers:   TableHeaders(table),
		Records:   TableRecords(table),
		BOMPrefix: true,
	})
}

// WriteTableFile writes an aggregate table to filePath.
func (c *CSVWriter) WriteTableFile(filePath string, table domain.AggregateTable) (string, error) {
	return c.WriteCSV(filePath, WriteOptions{
		Headers:   TableHeaders(table),
		Records:   TableRecords(table),
		BOMPrefix: true,
	})
}

// TableHeaders lists the key dimensions, the value columns and the group size.
func TableHeaders(table domain.AggregateTable) []string {
	headers := make([]string, 0, len(table.Keys)+len(table.Measures)+1)
	for _, d := range table.Keys {
		headers = append(headers, string(d))
	}
	if table.Reducer != domain.ReducerCount {
		for _, m := range table.Measures {
			headers = append(headers, string(m))
		}
	}
	return append(headers, "rows")
}

// TableRecords renders the table rows in the order of TableHeaders.
func TableRecords(table domain.AggregateTable) [][]string {
	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := make([]string, 0, len(table.Keys)+len(table.Measures)+1)
		for _, d := range table.Keys {
			record = append(record, row.Key(d))
		}
		if table.Reducer != domain.ReducerCount {
			for _, m := range table.Measures {
				record = append(record, formatValue(table.Reducer, row.Value(m)))
			}
		}
		records = append(records, append(record, formatInt(int64(row.Count))))
	}
	return records
}

// SaveFile creates path's directory and writes the file through a temporary
// sibling, so readers never observe a partial export.
func SaveFile(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// resolvePath maps relative paths into the export directory.
func (c *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || c.paths == nil {
		return filePath
	}
	return c.paths.ExportPath(filePath)
}
