package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against BaseDir, which defaults to the executable's directory.
type PathsConfig struct {
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// DashboardConfig controls what a render pass produces.
type DashboardConfig struct {
	// DataFile is loaded at startup when set. Relative to the working directory.
	DataFile string `yaml:"data_file" envconfig:"DATA_FILE"`
	// DeltaRatio is the share of each headline metric shown as its delta.
	DeltaRatio float64 `yaml:"delta_ratio" envconfig:"DELTA_RATIO"`
	// Charts lists the enabled chart ids; empty enables the whole catalog.
	Charts         []string `yaml:"charts" envconfig:"CHARTS"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	MaxDatasets    int      `yaml:"max_datasets" envconfig:"MAX_DATASETS"`
	RenderWidth    int      `yaml:"render_width" envconfig:"RENDER_WIDTH"`
	RenderHeight   int      `yaml:"render_height" envconfig:"RENDER_HEIGHT"`
	// FooterYear overrides the copyright year; zero uses the current year.
	FooterYear int `yaml:"footer_year" envconfig:"FOOTER_YEAR"`
}

// TelemetryConfig configures tracing and metrics export.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing  bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics  bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceToConsole bool   `yaml:"trace_to_console" envconfig:"TRACE_TO_CONSOLE"`
}

// Load builds the configuration in three layers: Default(), then the YAML
// file if one is found, then BIKEDASH_* environment variables. Only
// variables that are set override the layers below them.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file; an empty path skips the file layer.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := loadFromFile(configFile, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values on cfg; keys absent from the file keep
// their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	if c.Dashboard.DeltaRatio < 0 || c.Dashboard.DeltaRatio > 1 {
		return fmt.Errorf("dashboard delta ratio must be within [0, 1], got %v", c.Dashboard.DeltaRatio)
	}

	if c.Dashboard.MaxUploadBytes <= 0 {
		return fmt.Errorf("dashboard max upload bytes must be positive")
	}

	if c.Dashboard.MaxDatasets <= 0 {
		return fmt.Errorf("dashboard max datasets must be positive")
	}

	if c.Dashboard.RenderWidth < 200 || c.Dashboard.RenderHeight < 150 {
		return fmt.Errorf("chart render size %dx%d is too small", c.Dashboard.RenderWidth, c.Dashboard.RenderHeight)
	}

	// Logs are always structured JSON
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    DefaultLogFile,
			Development: false,
		},
		Paths: PathsConfig{
			DataDir:   DefaultDataDir,
			ExportDir: DefaultExportDir,
			LogsDir:   DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Dashboard: DashboardConfig{
			DeltaRatio:     DefaultDeltaRatio,
			MaxUploadBytes: DefaultMaxUploadBytes,
			MaxDatasets:    DefaultMaxDatasets,
			RenderWidth:    DefaultRenderWidth,
			RenderHeight:   DefaultRenderHeight,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			Environment:   "development",
			EnableTracing: false,
			EnableMetrics: true,
		},
	}
}
