package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/internal/config"
)

func testTelemetryConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		ServiceName:   "bikedash-test",
		Environment:   "test",
		EnableTracing: true,
		EnableMetrics: true,
	}
}

func TestOTelInitialization(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	providers, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelDisabled(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	providers, err := InitializeOTel(config.TelemetryConfig{ServiceName: "off"}, logger)
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer, "falls back to the global tracer")
	assert.NotNil(t, providers.Meter, "falls back to the global meter")
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestTraceCorrelation(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	providers, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Len(t, traceID, 32)
	assert.Empty(t, TraceIDFromContext(context.Background()))

	RecordError(ctx, errors.New("boom"))
	RecordError(ctx, nil)
}

func TestDashboardMetricsExposed(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	providers, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewDashboardMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordDatasetLoad(ctx, "upload", "csv", 731, 20*time.Millisecond, nil)
	metrics.RecordDatasetLoad(ctx, "upload", "csv", 0, time.Millisecond, errors.New("bad row"))
	metrics.RecordDashboardBuild(ctx, 7, 5*time.Millisecond, nil)
	metrics.RecordChartRender(ctx, "weather_mean", "png")
	metrics.RecordWebSocketClients(ctx, 1)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "dataset_loads_total")
	assert.Contains(t, body, "dataset_load_errors_total")
	assert.Contains(t, body, "dataset_rows_loaded_total")
	assert.Contains(t, body, "dashboard_builds_total")
	assert.Contains(t, body, "chart_renders_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestNilDashboardMetricsAreSafe(t *testing.T) {
	var m *DashboardMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordDatasetLoad(ctx, "cli", "xlsx", 1, time.Second, nil)
		m.RecordDashboardBuild(ctx, 1, time.Second, nil)
		m.RecordChartRender(ctx, "weekday_share", "png")
		m.RecordWebSocketClients(ctx, -1)
	})
}
