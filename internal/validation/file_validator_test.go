package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(maxBytes int64) *FileValidator {
	return NewFileValidator(slog.New(slog.NewJSONHandler(io.Discard, nil)), maxBytes)
}

func TestFileValidator_ValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr error
	}{
		{name: "csv", file: "day.csv", size: 100},
		{name: "uppercase xlsx", file: "DAY.XLSX", size: 100},
		{name: "txt treated as csv", file: "day.txt", size: 1},
		{name: "path components ignored", file: "../../tmp/day.csv", size: 1},
		{name: "exactly at limit", file: "day.csv", size: 1024},
		{name: "json rejected", file: "day.json", size: 100, wantErr: ErrUnsupportedFormat},
		{name: "legacy xls rejected", file: "day.xls", size: 100, wantErr: ErrUnsupportedFormat},
		{name: "no extension", file: "day", size: 100, wantErr: ErrUnsupportedFormat},
		{name: "excel lock file", file: "~$day.xlsx", size: 165, wantErr: ErrUnsupportedFormat},
		{name: "empty", file: "day.csv", size: 0, wantErr: ErrEmptyFile},
		{name: "too large", file: "day.csv", size: 1025, wantErr: ErrFileTooLarge},
	}

	v := newTestValidator(1024)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpload(tt.file, tt.size)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsRejection(err))
		})
	}
}

func TestFileValidator_NoSizeLimit(t *testing.T) {
	v := newTestValidator(0)
	assert.NoError(t, v.ValidateUpload("day.csv", 1<<40))
	assert.Equal(t, int64(0), v.MaxBytes())
}

func TestFileValidator_ValidateDataFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name: "readable csv",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "day.csv")
				require.NoError(t, os.WriteFile(path, []byte("datetime,season\n"), 0644))
				return path
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.csv")
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name: "empty file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "day.csv")
				require.NoError(t, os.WriteFile(path, nil, 0644))
				return path
			},
			wantErr:       true,
			errorContains: "empty",
		},
	}

	v := newTestValidator(1 << 20)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDataFile(tt.setupFunc(t))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := newTestValidator(0)

	dir := filepath.Join(t.TempDir(), "exports", "nested")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.Error(t, v.ValidateOutputDirectory(filepath.Join(file, "sub")))
}
