// Package services implements the dashboard's business logic between the
// HTTP handlers and the aggregation pipeline.
//
// # Services
//
//	- DatasetService: validates, parses and stores uploaded or on-disk
//	  rental files, and announces dataset events to a Publisher
//	- DashboardService: resolves a dataset and date range, computes the
//	  headline metrics and every enabled chart of the ChartCatalog
//	- HealthService: health, readiness and liveness reports
//
// # Concurrency
//
// DatasetStore guards its map with a sync.RWMutex. Loaded records are never
// mutated, so DashboardService computes chart tables concurrently with an
// errgroup and honours the request context for cancellation.
//
// # Errors
//
// Services wrap failures with fmt.Errorf("...: %w", err) and return the
// sentinels in errors.go or the pipeline's typed errors; the HTTP layer maps
// them to problem responses.
package services
