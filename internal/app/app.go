package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bikedash/internal/config"
	"bikedash/internal/dataprocessing"
	apierrors "bikedash/internal/errors"
	"bikedash/internal/exporter"
	"bikedash/internal/infrastructure"
	customMiddleware "bikedash/internal/middleware"
	"bikedash/internal/services"
	handlers "bikedash/internal/transport/http"
	"bikedash/internal/validation"
	ws "bikedash/internal/websocket"
	"bikedash/pkg/contracts"
	"bikedash/pkg/contracts/domain"
)

const AppName = "Bikedash - Dashboard Peminjaman Sepeda"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	SystemMetrics *infrastructure.SystemMetricsCollector
	Templates     fs.FS

	WebSocketHub     *ws.Hub
	DatasetService   *services.DatasetService
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
}

// NewApplication loads the configuration and logger, then builds the
// application around the page templates in templates.
func NewApplication(templates fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, templates, logger)
}

// New wires every component for cfg. Nothing is started until Start.
func New(cfg *config.Config, templates fs.FS, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.NewDashboardMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}
	systemMetrics, err := infrastructure.NewSystemMetricsCollector(otelProviders.Meter, config.RuntimeMetricsInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		SystemMetrics: systemMetrics,
		Templates:     templates,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	dash := a.Config.Dashboard

	catalog, err := services.NewChartCatalog(dash.Charts)
	if err != nil {
		return err
	}

	a.WebSocketHub = ws.NewHub(a.Metrics, a.Logger)

	a.DatasetService = services.NewDatasetService(
		services.NewDatasetStore(dash.MaxDatasets),
		dataprocessing.NewLoader(a.Logger),
		validation.NewFileValidator(a.Logger, dash.MaxUploadBytes),
		a.Metrics,
		a.Logger,
	)
	a.DatasetService.SetPublisher(a.WebSocketHub)

	a.DashboardService = services.NewDashboardService(a.DatasetService, catalog, dash, a.Metrics, a.Logger)

	a.HealthService = services.NewHealthService(
		contracts.Version,
		contracts.BuildTime,
		contracts.GitCommit,
		config.PathsConfig{
			BaseDir:   a.Paths.BaseDir,
			DataDir:   a.Paths.DataDir,
			ExportDir: a.Paths.ExportDir,
			LogsDir:   a.Paths.LogsDir,
		},
		a.DatasetService,
		a.WebSocketHub,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// These do not wrap the ResponseWriter, so the websocket upgrade survives them.
	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	page, err := handlers.NewPageHandler(a.Templates, a.DatasetService, a.DashboardService, a.Logger)
	if err != nil {
		return err
	}

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.StructuredLogger(a.Logger))
			r.Use(middleware.Recoverer)
			r.Method(http.MethodGet, "/", page)
		})
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.With(customMiddleware.StructuredLogger(a.Logger)).Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	validator := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	datasetHandler := handlers.NewDatasetHandler(a.DatasetService, validator, a.Config.Dashboard.MaxUploadBytes, a.Logger, errorHandler)
	dashboardHandler := handlers.NewDashboardHandler(
		a.DashboardService,
		validator,
		exporter.NewPNGRenderer(a.Config.Dashboard.RenderWidth, a.Config.Dashboard.RenderHeight),
		a.Metrics,
		a.Logger,
		errorHandler,
	)
	clientLogHandler := handlers.NewClientLogHandler(validator, a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

		healthHandler.Register(r)
		r.Mount("/datasets", datasetHandler.Routes(dashboardHandler.Register))
		r.Post("/logs", clientLogHandler.Handle)
	})
}

// getCORSConfig returns the CORS settings for the configured origins.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// loadDataFile loads the configured fixed-path dataset. A missing or
// unreadable file is logged and the server starts without data.
func (a *Application) loadDataFile(ctx context.Context) {
	path := a.Config.Dashboard.DataFile
	if path == "" {
		return
	}

	info, err := a.DatasetService.LoadFile(ctx, path, domain.SourceFile)
	var missing *dataprocessing.MissingFileError
	switch {
	case err == nil:
		a.Logger.InfoContext(ctx, "Startup dataset loaded",
			slog.String("dataset_id", info.ID),
			slog.String("path", path),
			slog.Int("records", info.RecordCount))
	case errors.As(err, &missing):
		a.Logger.WarnContext(ctx, "Startup data file missing, starting empty",
			slog.String("path", missing.Path),
			slog.String("error", err.Error()))
	default:
		a.Logger.ErrorContext(ctx, "Startup data file could not be loaded, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// Start starts the hub, loads the startup dataset and serves HTTP in the
// background. A listener failure cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("base_dir", a.Paths.BaseDir),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("export_dir", a.Paths.ExportDir),
		slog.String("logs_dir", a.Paths.LogsDir))

	a.WebSocketHub.Start()
	go a.SystemMetrics.Start(ctx)
	a.loadDataFile(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()
	a.SystemMetrics.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted or the listener fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck verifies the working directories are writable.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Exports": a.Paths.ExportDir,
		"Logs":    a.Paths.LogsDir,
	}
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(testFile)
	}

	if path := a.Config.Dashboard.DataFile; path != "" && !config.FileExists(path) {
		warnings = append(warnings, fmt.Sprintf("data file not found: %s", path))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
