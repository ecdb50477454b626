package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"bikedash/internal/config"
	"bikedash/pkg/contracts"
)

// Health status values.
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// DatasetCounter reports how many datasets are loaded.
type DatasetCounter interface {
	Count() int
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	paths     config.PathsConfig
	datasets  DatasetCounter
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	DatasetsLoaded   int     `json:"datasets_loaded"`
	ExportFiles      int     `json:"export_files"`
	ExportSizeBytes  int64   `json:"export_size_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. clients may be nil when the
// websocket hub is disabled.
func NewHealthService(version, buildTime, buildID string, paths config.PathsConfig, datasets DatasetCounter, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "health_service"))

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		buildID:   buildID,
		paths:     paths,
		datasets:  datasets,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the service can answer dashboard requests.
// An empty store is degraded rather than not ready: uploads still work.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	checks := map[string]ServiceHealth{
		"datasets":  hs.checkDatasetHealth(),
		"websocket": hs.checkWebSocketHealth(),
		"exports":   hs.checkExportHealth(),
	}
	for name, check := range checks {
		status.Services[name] = check
		switch check.Status {
		case StatusNotReady:
			status.Status = StatusNotReady
		case StatusDegraded:
			if status.Status == StatusReady {
				status.Status = StatusDegraded
			}
		}
	}

	if status.Status != StatusReady {
		hs.logger.InfoContext(ctx, "Readiness check not fully ready",
			slog.String("status", status.Status))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
		"api_version":  contracts.APIVersion,
		"data_format":  contracts.DataFormatVersion,
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	var files int
	var size int64
	filepath.WalkDir(hs.paths.ExportDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			size += info.Size()
		}
		return nil
	})

	stats := SystemStats{
		UptimeSeconds:   time.Since(hs.startTime).Seconds(),
		ExportFiles:     files,
		ExportSizeBytes: size,
		GoVersion:       runtime.Version(),
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
	}
	if hs.datasets != nil {
		stats.DatasetsLoaded = hs.datasets.Count()
	}
	if hs.clients != nil {
		stats.WebSocketClients = hs.clients.ClientCount()
	}
	return stats
}

func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.datasets == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "dataset store not initialized"}
	}
	n := hs.datasets.Count()
	if n == 0 {
		return ServiceHealth{Status: StatusDegraded, Message: "no dataset loaded"}
	}
	return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d dataset(s) loaded", n)}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: StatusDegraded, Message: "websocket hub disabled"}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d client(s) connected", hs.clients.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkExportHealth only reports; the export directory is created lazily.
func (hs *HealthService) checkExportHealth() ServiceHealth {
	dir := hs.paths.ExportDir
	if dir == "" {
		return ServiceHealth{Status: StatusReady, Message: "exports streamed only"}
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ServiceHealth{Status: StatusDegraded, Message: fmt.Sprintf("export directory not found: %s", dir)}
	}
	return ServiceHealth{Status: StatusReady, Message: "export directory available"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     hs.SystemStats(ctx),
	}
}
