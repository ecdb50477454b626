package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bikedash/internal/dataprocessing"
)

// ErrNoRentalFiles is returned when a directory holds no CSV or XLSX file.
var ErrNoRentalFiles = errors.New("no rental data files found")

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if dir == "" {
		return d.basePath
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindRentalFiles lists the files in dir the loader accepts, oldest first.
// Hidden files (including in-flight exports) are skipped.
func (d *Discovery) FindRentalFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, err := dataprocessing.FormatFromName(name); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// LatestRentalFile returns the most recently modified rental file in dir.
// A missing directory or one without rental files is a
// dataprocessing.MissingFileError.
func (d *Discovery) LatestRentalFile(dir string) (FileInfo, error) {
	fullPath := d.resolve(dir)
	files, err := d.FindRentalFiles(dir)
	if err != nil {
		return FileInfo{}, &dataprocessing.MissingFileError{Path: fullPath, Err: err}
	}
	latest, ok := GetLatestFile(files)
	if !ok {
		return FileInfo{}, &dataprocessing.MissingFileError{Path: fullPath, Err: ErrNoRentalFiles}
	}
	return latest, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if !file.ModTime.Before(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
