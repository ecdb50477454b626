package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"bikedash/internal/config"
)

// MeterName is the instrumentation scope for every tracer and meter.
const MeterName = "bikedash"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// PrometheusHTTP serves the registry the exporter writes to. Nil when
	// metrics are disabled.
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics according to cfg. Disabled
// signals fall back to the global no-op providers so callers never need to
// nil-check Tracer or Meter.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Tracer: otel.Tracer(MeterName),
		Meter:  otel.Meter(MeterName),
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func initializeTracing(cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	// Without a console exporter spans are still created so trace ids reach the logs.
	if cfg.TraceToConsole {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(res *resource.Resource, providers *OTelProviders) error {
	// A private registry keeps repeated initialization (tests, CLI) from
	// colliding on the process-wide default registerer.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	otel.SetMeterProvider(mp)
	return nil
}

// Shutdown flushes and stops the providers that were started.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// DashboardMetrics holds the application instruments.
type DashboardMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	DatasetLoadsTotal   metric.Int64Counter
	DatasetLoadErrors   metric.Int64Counter
	DatasetRowsLoaded   metric.Int64Counter
	DatasetLoadDuration metric.Float64Histogram

	DashboardBuildsTotal   metric.Int64Counter
	DashboardBuildDuration metric.Float64Histogram
	ChartRendersTotal      metric.Int64Counter

	WebSocketClients metric.Int64UpDownCounter
}

// NewDashboardMetrics creates every instrument on meter. A no-op meter
// yields working no-op instruments.
func NewDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	m := &DashboardMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of active HTTP requests")); err != nil {
		return nil, err
	}
	if m.DatasetLoadsTotal, err = meter.Int64Counter("dataset_loads_total",
		metric.WithDescription("Total number of datasets loaded")); err != nil {
		return nil, err
	}
	if m.DatasetLoadErrors, err = meter.Int64Counter("dataset_load_errors_total",
		metric.WithDescription("Total number of rejected dataset loads")); err != nil {
		return nil, err
	}
	if m.DatasetRowsLoaded, err = meter.Int64Counter("dataset_rows_loaded_total",
		metric.WithDescription("Total number of rental records ingested")); err != nil {
		return nil, err
	}
	if m.DatasetLoadDuration, err = meter.Float64Histogram("dataset_load_duration_seconds",
		metric.WithDescription("Dataset ingestion duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.DashboardBuildsTotal, err = meter.Int64Counter("dashboard_builds_total",
		metric.WithDescription("Total number of dashboard builds")); err != nil {
		return nil, err
	}
	if m.DashboardBuildDuration, err = meter.Float64Histogram("dashboard_build_duration_seconds",
		metric.WithDescription("Dashboard build duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.ChartRendersTotal, err = meter.Int64Counter("chart_renders_total",
		metric.WithDescription("Total number of rendered chart images")); err != nil {
		return nil, err
	}
	if m.WebSocketClients, err = meter.Int64UpDownCounter("websocket_clients",
		metric.WithDescription("Number of connected websocket clients")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDatasetLoad records one ingestion attempt.
func (m *DashboardMetrics) RecordDatasetLoad(ctx context.Context, source, format string, rows int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("dataset.source", source),
		attribute.String("dataset.format", format),
	)
	m.DatasetLoadDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.DatasetLoadErrors.Add(ctx, 1, attrs)
		return
	}
	m.DatasetLoadsTotal.Add(ctx, 1, attrs)
	m.DatasetRowsLoaded.Add(ctx, int64(rows), attrs)
}

// RecordDashboardBuild records one dashboard build.
func (m *DashboardMetrics) RecordDashboardBuild(ctx context.Context, charts int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.Int("charts", charts),
	)
	m.DashboardBuildsTotal.Add(ctx, 1, attrs)
	m.DashboardBuildDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordChartRender counts one rendered chart image.
func (m *DashboardMetrics) RecordChartRender(ctx context.Context, chartID, format string) {
	if m == nil {
		return
	}
	m.ChartRendersTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("chart.id", chartID),
		attribute.String("chart.format", format),
	))
}

// RecordWebSocketClients adjusts the connected client gauge by delta.
func (m *DashboardMetrics) RecordWebSocketClients(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from ctx.
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// StartSpan starts a span on the global tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
