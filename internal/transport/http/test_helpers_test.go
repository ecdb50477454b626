package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikedash/internal/config"
	apierrors "bikedash/internal/errors"
	customMiddleware "bikedash/internal/middleware"
	"bikedash/internal/services"
	"bikedash/internal/shared/testutil"
	api "bikedash/pkg/contracts/api/v1"
	"bikedash/pkg/contracts/domain"
)

const testDatasetID = "6f1c2f0e-8a3b-4c1d-9e2f-0a1b2c3d4e5f"

// MockDatasetService is a mock implementation of DatasetServiceInterface
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) LoadUpload(ctx context.Context, name string, size int64, r io.Reader) (domain.DatasetInfo, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(name, size, string(body))
	return args.Get(0).(domain.DatasetInfo), args.Error(1)
}

func (m *MockDatasetService) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetService) List(ctx context.Context) []domain.DatasetInfo {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.DatasetInfo)
}

func (m *MockDatasetService) Delete(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
	catalog *services.ChartCatalog
}

func (m *MockDashboardService) Build(ctx context.Context, datasetID string, q api.DashboardQuery) (*domain.Dashboard, error) {
	args := m.Called(datasetID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockDashboardService) Chart(ctx context.Context, datasetID, chartID string, q api.DashboardQuery) (domain.Chart, error) {
	args := m.Called(datasetID, chartID, q)
	return args.Get(0).(domain.Chart), args.Error(1)
}

func (m *MockDashboardService) Catalog() *services.ChartCatalog {
	return m.catalog
}

func (m *MockDashboardService) Footer() domain.Footer {
	return domain.Footer{Year: 2024, Source: services.FooterSource}
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func (m *MockHealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

// fixtureProvider serves the shared fixture dataset for any id.
type fixtureProvider struct{}

func (fixtureProvider) Get(_ context.Context, id string) (*domain.Dataset, error) {
	ds := testutil.FixtureDataset(testDatasetID)
	return ds, nil
}

type handlerDeps struct {
	logger       *slog.Logger
	logs         *testutil.BufferedSlogHandler
	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.ValidationMiddleware
}

func newHandlerDeps(t *testing.T) handlerDeps {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return handlerDeps{
		logger:       logger,
		logs:         logs,
		errorHandler: errorHandler,
		validator:    customMiddleware.NewValidationMiddleware(logger, errorHandler),
	}
}

// newFixtureDashboards builds a real dashboard service over the fixture
// dataset.
func newFixtureDashboards(t *testing.T) *services.DashboardService {
	t.Helper()
	catalog, err := services.NewChartCatalog(nil)
	require.NoError(t, err)
	cfg := config.DashboardConfig{DeltaRatio: 0.02, FooterYear: 2024}
	return services.NewDashboardService(fixtureProvider{}, catalog, cfg, nil, nil)
}

func newCatalog(t *testing.T) *services.ChartCatalog {
	t.Helper()
	catalog, err := services.NewChartCatalog(nil)
	require.NoError(t, err)
	return catalog
}

func serve(router http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// datasetRouter mounts the dataset and dashboard routes the way the
// application does.
func datasetRouter(datasets *DatasetHandler, dashboards *DashboardHandler) chi.Router {
	r := chi.NewRouter()
	if dashboards == nil {
		r.Mount("/api/datasets", datasets.Routes())
		return r
	}
	r.Mount("/api/datasets", datasets.Routes(dashboards.Register))
	return r
}
