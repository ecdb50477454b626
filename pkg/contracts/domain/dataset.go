package domain

import (
	"time"
)

// DatasetSource records how a dataset reached the service.
type DatasetSource string

const (
	SourceUpload DatasetSource = "upload"
	SourceFile   DatasetSource = "file"
	SourceCLI    DatasetSource = "cli"
)

// FileFormat of a dataset on disk or in an upload.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
)

// DatasetInfo is the metadata returned by the dataset endpoints.
type DatasetInfo struct {
	ID                 string        `json:"id" validate:"required,uuid"`
	Name               string        `json:"name" validate:"required"`
	Source             DatasetSource `json:"source" validate:"required,oneof=upload file cli"`
	Format             FileFormat    `json:"format" validate:"required,oneof=csv xlsx"`
	LoadedAt           time.Time     `json:"loaded_at"`
	Bounds             DateRange     `json:"bounds"`
	RecordCount        int           `json:"record_count" validate:"min=0"`
	InconsistentTotals int           `json:"inconsistent_totals" validate:"min=0"`
}

// Dataset is a loaded record set. Records are read-only once the dataset
// has been built.
type Dataset struct {
	DatasetInfo
	Records []RentalRecord `json:"-"`
}
