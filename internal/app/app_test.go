package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/internal/config"
	"bikedash/internal/shared/testutil"
	"bikedash/pkg/contracts/events"
)

var testTemplates = fstest.MapFS{
	"index.html": &fstest.MapFile{Data: []byte(
		`<title>{{.Title}}</title>{{with .Dashboard}}<p id="count">{{thousands (index .Metrics 2).Value}}</p>{{end}}<p class="msg">{{.Message}}</p>`,
	)},
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Telemetry.EnableTracing = false
	cfg.Telemetry.EnableMetrics = true
	cfg.Dashboard.FooterYear = 2024
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*Application, *testutil.BufferedSlogHandler) {
	t.Helper()
	logs := testutil.NewBufferedSlogHandler(nil)
	app, err := New(cfg, testTemplates, slog.New(logs))
	require.NoError(t, err)
	t.Cleanup(app.WebSocketHub.Stop)
	return app, logs
}

func get(app *Application, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func upload(t *testing.T, handler http.Handler, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNew_Routes(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "health", target: "/api/health", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "readiness without data is degraded", target: "/api/health/ready", wantStatus: http.StatusOK, wantBody: `"degraded"`},
		{name: "liveness", target: "/api/health/live", wantStatus: http.StatusOK, wantBody: `"alive"`},
		{name: "version", target: "/api/version", wantStatus: http.StatusOK, wantBody: `"version"`},
		{name: "empty dataset list", target: "/api/datasets", wantStatus: http.StatusOK, wantBody: `"count":0`},
		{name: "dashboard without data", target: "/api/datasets/latest/dashboard", wantStatus: http.StatusNotFound, wantBody: `NO_DATASET`},
		{name: "chart catalog", target: "/api/datasets/latest/charts", wantStatus: http.StatusOK, wantBody: `weather_mean`},
		{name: "page without data", target: "/", wantStatus: http.StatusOK, wantBody: "Belum ada data"},
		{name: "prometheus", target: "/metrics", wantStatus: http.StatusOK},
		{name: "unknown route", target: "/api/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(app, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestNew_SecurityHeaders(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))

	rec := get(app, "/")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestNew_Errors(t *testing.T) {
	t.Run("unknown chart in config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Dashboard.Charts = []string{"weather_mean", "radar"}
		_, err := New(cfg, testTemplates, slog.New(testutil.NewBufferedSlogHandler(nil)))
		assert.Error(t, err)
	})

	t.Run("missing page template", func(t *testing.T) {
		_, err := New(testConfig(t), fstest.MapFS{}, slog.New(testutil.NewBufferedSlogHandler(nil)))
		assert.Error(t, err)
	})
}

func TestApplication_UploadThenView(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))

	rec := upload(t, app.Router, "day.csv", testutil.RentalCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = get(app, "/api/datasets/latest/dashboard?start=2011-01-01&end=2011-01-05")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dash map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, float64(5), dash["record_count"])

	rec = get(app, "/")
	assert.Contains(t, rec.Body.String(), `<p id="count">627</p>`)

	rec = get(app, "/api/datasets/latest/charts/weather_mean.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = get(app, "/api/health/ready")
	assert.Contains(t, rec.Body.String(), `"ready"`)
}

func TestApplication_LoadDataFile(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Dashboard.DataFile = testutil.WriteFile(t, "day.csv", testutil.RentalCSV)
		app, logs := newTestApp(t, cfg)

		app.loadDataFile(context.Background())

		assert.Equal(t, 1, app.DatasetService.Count())
		assert.True(t, logs.ContainsMessage("Startup dataset loaded"))
	})

	t.Run("missing", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Dashboard.DataFile = cfg.Paths.BaseDir + "/absent.csv"
		app, logs := newTestApp(t, cfg)

		app.loadDataFile(context.Background())

		assert.Equal(t, 0, app.DatasetService.Count())
		assert.True(t, logs.ContainsMessage("Startup data file missing, starting empty"))
		assert.Error(t, app.performStartupHealthCheck(context.Background()))
	})

	t.Run("malformed", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Dashboard.DataFile = testutil.WriteFile(t, "day.csv", "not,a,rental,file\n1,2,3,4\n")
		app, logs := newTestApp(t, cfg)

		app.loadDataFile(context.Background())

		assert.Equal(t, 0, app.DatasetService.Count())
		assert.True(t, logs.ContainsMessage("Startup data file could not be loaded, starting empty"))
	})

	t.Run("unset", func(t *testing.T) {
		app, _ := newTestApp(t, testConfig(t))
		app.loadDataFile(context.Background())
		assert.Equal(t, 0, app.DatasetService.Count())
	})
}

func TestApplication_WebSocketAnnouncesUploads(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t))
	app.WebSocketHub.Start()
	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)

	rec := upload(t, app.Router, "day.csv", testutil.RentalCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeDatasetLoaded, msg.Type)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), msg.TraceID)
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.ShutdownTimeout = 2 * time.Second
	app, logs := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx, cancel))
	require.NoError(t, app.Stop(context.Background()))

	assert.True(t, logs.ContainsMessage("Application started successfully"))
	assert.True(t, logs.ContainsMessage("Application shutdown complete"))
}
