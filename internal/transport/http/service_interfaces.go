package http

import (
	"context"
	"io"

	"bikedash/internal/services"
	api "bikedash/pkg/contracts/api/v1"
	"bikedash/pkg/contracts/domain"
)

// DatasetServiceInterface defines the dataset operations used by the handlers
type DatasetServiceInterface interface {
	LoadUpload(ctx context.Context, name string, size int64, r io.Reader) (domain.DatasetInfo, error)
	Get(ctx context.Context, id string) (*domain.Dataset, error)
	List(ctx context.Context) []domain.DatasetInfo
	Delete(ctx context.Context, id string) error
}

// DashboardServiceInterface defines the dashboard operations used by the handlers
type DashboardServiceInterface interface {
	Build(ctx context.Context, datasetID string, q api.DashboardQuery) (*domain.Dashboard, error)
	Chart(ctx context.Context, datasetID, chartID string, q api.DashboardQuery) (domain.Chart, error)
	Catalog() *services.ChartCatalog
	Footer() domain.Footer
}

// HealthServiceInterface defines the health operations used by the handlers
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
	GetDetailedHealth(ctx context.Context) map[string]interface{}
}
