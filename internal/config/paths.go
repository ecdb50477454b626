package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains the resolved application directories
type Paths struct {
	BaseDir   string
	DataDir   string
	ExportDir string
	LogsDir   string
}

// GetPaths resolves the configured directories. Relative entries are joined
// to BaseDir; an empty BaseDir means the directory of the running executable.
func GetPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		// Resolve symlinks to get the actual executable location
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
		}
		base = filepath.Dir(exe)
	}

	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", base, err)
	}

	resolve := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(abs, p)
	}

	return &Paths{
		BaseDir:   abs,
		DataDir:   resolve(cfg.DataDir, DefaultDataDir),
		ExportDir: resolve(cfg.ExportDir, DefaultExportDir),
		LogsDir:   resolve(cfg.LogsDir, DefaultLogsDir),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// DataPath returns a path inside the data directory
func (p *Paths) DataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// ExportPath returns a path inside the export directory
func (p *Paths) ExportPath(filename string) string {
	return filepath.Join(p.ExportDir, filename)
}

// LogPath returns a path inside the logs directory
func (p *Paths) LogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// ExportFileName builds a timestamped export name such as
// "dashboard_2011-01-01_2011-12-31_20240501T101500.xlsx".
func ExportFileName(prefix, ext string, from, to, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s_%s_%s_%s.%s", prefix,
		from.Format("2006-01-02"), to.Format("2006-01-02"), now.Format("20060102T150405"), ext)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
