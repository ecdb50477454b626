package main

import (
	"bytes"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/internal/app"
	"bikedash/internal/config"
	"bikedash/internal/shared/testutil"
	handlers "bikedash/internal/transport/http"
)

func newApp(t *testing.T) *app.Application {
	t.Helper()
	pages, err := templates()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Telemetry.EnableMetrics = false
	cfg.Telemetry.EnableTracing = false
	cfg.Dashboard.FooterYear = 2024

	application, err := app.New(cfg, pages, slog.New(testutil.NewBufferedSlogHandler(nil)))
	require.NoError(t, err)
	t.Cleanup(application.WebSocketHub.Stop)
	return application
}

func TestEmbeddedTemplates(t *testing.T) {
	pages, err := templates()
	require.NoError(t, err)

	_, err = fs.Stat(pages, handlers.PageTemplate)
	assert.NoError(t, err)
}

func TestPageRendersEmptyState(t *testing.T) {
	application := newApp(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Dashboard Peminjaman Sepeda")
	assert.Contains(t, body, "Belum ada data")
	assert.Contains(t, body, "&copy; 2024")
}

func TestPageRendersDashboard(t *testing.T) {
	application := newApp(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "day.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(testutil.RentalCSV))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?start=2011-01-01&end=2011-01-05", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Total Sewa")
	assert.Contains(t, body, "627")
	assert.Contains(t, body, "charts/weather_mean.png?end=2011-01-05&amp;start=2011-01-01")
	assert.Contains(t, body, "export.xlsx?end=2011-01-05&amp;start=2011-01-01")
	assert.NotContains(t, body, "Belum ada data")
}
