// Package app wires the dashboard server together: configuration, logging,
// telemetry, the dataset and dashboard services, the websocket hub and the
// chi router.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, BIKEDASH_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Build the chart catalog, dataset store and services
//	4. Set up the router and the HTTP server
//
// Start runs the hub, loads the configured startup file and begins serving.
// A missing startup file is logged and the server starts empty.
//
// # Usage
//
//	application, err := app.NewApplication(templates)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM, then shuts the server, the hub and the
// telemetry providers down in that order. The package never calls os.Exit.
package app
