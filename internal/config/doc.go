// Package config provides configuration management for bikedash.
//
// # Configuration Sources
//
// Configuration is built in layers, each overriding the one before:
//
//	1. Default() values (lowest priority)
//	2. A YAML file: $BIKEDASH_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Environment variables (highest priority)
//
// The binaries call godotenv.Load first, so a .env file next to the process
// feeds the environment layer.
//
// # Environment Variables
//
// All environment variables follow the pattern BIKEDASH_<SECTION>_<FIELD>:
//
//	BIKEDASH_SERVER_PORT=8080
//	BIKEDASH_LOGGING_LEVEL=debug
//	BIKEDASH_DASHBOARD_DATA_FILE=data/day.csv
//	BIKEDASH_DASHBOARD_CHARTS=weather_mean,weekday_share
//	BIKEDASH_DASHBOARD_DELTA_RATIO=0.02
//
// # Path Management
//
// GetPaths resolves the data, export and log directories against a base
// directory, the executable's directory unless BIKEDASH_PATHS_BASE_DIR is set.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
