package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/internal/dataprocessing"
)

// touch creates name under dir with the given modification time.
func touch(t *testing.T, dir, name string, mod time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestFindRentalFiles(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{
			name:  "csv and xlsx in modification order",
			files: []string{"day.csv", "hour.xlsx", "DAY2.CSV"},
			want:  []string{"day.csv", "hour.xlsx", "DAY2.CSV"},
		},
		{
			name:  "other types skipped",
			files: []string{"day.csv", "notes.pdf", "old.xls", "chart.png"},
			want:  []string{"day.csv"},
		},
		{
			name:  "hidden files skipped",
			files: []string{".day.csv.123", "day.csv"},
			want:  []string{"day.csv"},
		},
		{
			name:  "empty directory",
			files: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for i, name := range tt.files {
				touch(t, dir, name, base.Add(time.Duration(i)*time.Minute))
			}

			found, err := NewDiscovery(dir).FindRentalFiles("")
			require.NoError(t, err)

			var names []string
			for _, f := range found {
				names = append(names, f.Name)
				assert.Equal(t, filepath.Join(dir, f.Name), f.Path)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestFindRentalFiles_RelativeDirectory(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "data"), 0755))
	touch(t, filepath.Join(base, "data"), "day.csv", time.Now())

	found, err := NewDiscovery(base).FindRentalFiles("data")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(base, "data", "day.csv"), found[0].Path)
}

func TestLatestRentalFile(t *testing.T) {
	t.Run("newest wins", func(t *testing.T) {
		dir := t.TempDir()
		now := time.Now()
		touch(t, dir, "new.xlsx", now)
		touch(t, dir, "old.csv", now.Add(-time.Hour))

		latest, err := NewDiscovery(dir).LatestRentalFile("")
		require.NoError(t, err)
		assert.Equal(t, "new.xlsx", latest.Name)
	})

	t.Run("no rental files", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "readme.txt.bak", time.Now())

		_, err := NewDiscovery(dir).LatestRentalFile("")
		var missing *dataprocessing.MissingFileError
		require.ErrorAs(t, err, &missing)
		assert.ErrorIs(t, err, ErrNoRentalFiles)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewDiscovery(t.TempDir()).LatestRentalFile("absent")
		var missing *dataprocessing.MissingFileError
		assert.ErrorAs(t, err, &missing)
	})
}

func TestGetLatestFile(t *testing.T) {
	now := time.Now()
	_, ok := GetLatestFile(nil)
	assert.False(t, ok)

	latest, ok := GetLatestFile([]FileInfo{
		{Name: "a", ModTime: now.Add(-time.Minute)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-time.Hour)},
	})
	assert.True(t, ok)
	assert.Equal(t, "b", latest.Name)
}
