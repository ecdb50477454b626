package config

import "time"

// Application constants
const (
	AppName    = "bikedash"
	AppTitle   = "Dashboard Peminjaman Sepeda"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. BIKEDASH_SERVER_PORT.
	EnvPrefix = "BIKEDASH"

	// Rate Limiting
	DefaultRateLimit = 50 // requests per second
	DefaultBurstSize = 100

	// Network Timeouts
	DefaultRequestTimeout = 30 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second

	// Telemetry
	RuntimeMetricsInterval = 15 * time.Second

	// File Paths (relative to the base directory)
	DefaultDataDir   = "data"
	DefaultExportDir = "data/exports"
	DefaultLogsDir   = "logs"
	DefaultLogFile   = "logs/bikedash.log"

	// Dashboard
	DefaultDeltaRatio     = 0.02
	DefaultMaxUploadBytes = 10 << 20
	DefaultMaxDatasets    = 20
	DefaultRenderWidth    = 1024
	DefaultRenderHeight   = 512
)
