package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat marks a file whose extension the loader cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyFile marks a zero-byte upload.
	ErrEmptyFile = errors.New("file is empty")
	// ErrFileTooLarge marks an upload above the configured limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// allowedExtensions are the data file extensions the loader understands.
var allowedExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".xlsx": true,
}

// FileValidator checks data files before they reach the loader
type FileValidator struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewFileValidator creates a validator; maxBytes <= 0 disables the size check.
func NewFileValidator(logger *slog.Logger, maxBytes int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:   logger.With(slog.String("component", "file_validator")),
		maxBytes: maxBytes,
	}
}

// MaxBytes returns the configured upload limit.
func (v *FileValidator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateUpload checks an uploaded file's name and declared size.
func (v *FileValidator) ValidateUpload(name string, size int64) error {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))

	if !allowedExtensions[ext] {
		v.logger.Warn("Rejected upload with unsupported extension",
			slog.String("file", base),
			slog.String("extension", ext))
		return fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFormat, base)
	}

	// Office lock files share the extension but carry no data.
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejected temporary Excel file", slog.String("file", base))
		return fmt.Errorf("%w: %q is a temporary Excel file", ErrUnsupportedFormat, base)
	}

	if size == 0 {
		v.logger.Warn("Rejected empty upload", slog.String("file", base))
		return fmt.Errorf("%w: %q", ErrEmptyFile, base)
	}

	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("Rejected oversized upload",
			slog.String("file", base),
			slog.Int64("size", size),
			slog.Int64("limit", v.maxBytes))
		return fmt.Errorf("%w: %q is %d bytes, limit is %d", ErrFileTooLarge, base, size, v.maxBytes)
	}

	return nil
}

// ValidateDataFile checks that path names a readable data file with a
// supported extension.
func (v *FileValidator) ValidateDataFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return fmt.Errorf("file %s does not exist: %w", path, err)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	if err := v.ValidateUpload(path, info.Size()); err != nil {
		return err
	}

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// IsRejection reports whether err came from ValidateUpload.
func IsRejection(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrEmptyFile) || errors.Is(err, ErrFileTooLarge)
}
