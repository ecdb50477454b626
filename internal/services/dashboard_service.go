package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"bikedash/internal/config"
	"bikedash/internal/dataprocessing"
	"bikedash/internal/infrastructure"
	api "bikedash/pkg/contracts/api/v1"
	"bikedash/pkg/contracts/domain"
)

// DateLayout is the layout of range bounds in queries.
const DateLayout = "2006-01-02"

// Footer texts shown under the charts.
const (
	FooterSource = "Data Peminjaman Sepeda Publik."
	FooterAbout  = "Dashboard ini memvisualisasikan penggunaan sepeda berdasarkan kondisi cuaca, musim, " +
		"dan lebih banyak faktor lainnya."
)

// metricLabels are the headline cards in page order.
var metricLabels = []struct {
	key   domain.Measure
	label string
}{
	{domain.MeasureCasual, "Pengguna Kasual"},
	{domain.MeasureRegistered, "Pengguna Terdaftar"},
	{domain.MeasureCount, "Total Sewa"},
}

// DatasetProvider resolves a dataset id, including "latest".
type DatasetProvider interface {
	Get(ctx context.Context, id string) (*domain.Dataset, error)
}

// DashboardService assembles metrics and charts for a dataset and range.
type DashboardService struct {
	datasets DatasetProvider
	catalog  *ChartCatalog
	cfg      config.DashboardConfig
	metrics  *infrastructure.DashboardMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewDashboardService creates a dashboard service. metrics may be nil.
func NewDashboardService(datasets DatasetProvider, catalog *ChartCatalog, cfg config.DashboardConfig, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		datasets: datasets,
		catalog:  catalog,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "dashboard_service")),
		now:      time.Now,
	}
}

// Catalog returns the enabled charts.
func (s *DashboardService) Catalog() *ChartCatalog {
	return s.catalog
}

// Build resolves the dataset and range, then computes the metrics and every
// selected chart. Chart tables are computed concurrently; the first failure
// cancels the rest.
func (s *DashboardService) Build(ctx context.Context, datasetID string, q api.DashboardQuery) (*domain.Dashboard, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dashboard.build",
		attribute.String("dataset.id", datasetID))
	defer span.End()

	start := time.Now()
	dashboard, err := s.build(ctx, datasetID, q)
	charts := 0
	if dashboard != nil {
		charts = len(dashboard.Charts)
	}
	s.metrics.RecordDashboardBuild(ctx, charts, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "Dashboard built",
		slog.String("dataset_id", dashboard.Dataset.ID),
		slog.Int("records", dashboard.RecordCount),
		slog.Int("charts", charts),
		slog.Duration("duration", time.Since(start)))
	return dashboard, nil
}

func (s *DashboardService) build(ctx context.Context, datasetID string, q api.DashboardQuery) (*domain.Dashboard, error) {
	ds, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	specs, err := s.catalog.Select(q.Charts)
	if err != nil {
		return nil, err
	}
	r, err := ResolveRange(ds.Bounds, q)
	if err != nil {
		return nil, err
	}

	filtered := dataprocessing.FilterByRange(ds.Records, r)

	charts := make([]domain.Chart, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chart, err := spec.Compute(filtered)
			if err != nil {
				return err
			}
			charts[i] = chart
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build dashboard for %s: %w", ds.ID, err)
	}

	return &domain.Dashboard{
		Dataset:     ds.DatasetInfo,
		Range:       r,
		RecordCount: len(filtered),
		Metrics:     Metrics(filtered, s.cfg.DeltaRatio),
		Charts:      charts,
		Footer:      s.Footer(),
		GeneratedAt: s.now().UTC(),
	}, nil
}

// Chart computes a single enabled chart for a dataset and range.
func (s *DashboardService) Chart(ctx context.Context, datasetID, chartID string, q api.DashboardQuery) (domain.Chart, error) {
	spec, err := s.catalog.Get(chartID)
	if err != nil {
		return domain.Chart{}, err
	}
	ds, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return domain.Chart{}, err
	}
	r, err := ResolveRange(ds.Bounds, q)
	if err != nil {
		return domain.Chart{}, err
	}
	return spec.Compute(dataprocessing.FilterByRange(ds.Records, r))
}

// Footer returns the page footer, with the configured year or the current one.
func (s *DashboardService) Footer() domain.Footer {
	year := s.cfg.FooterYear
	if year == 0 {
		year = s.now().Year()
	}
	return domain.Footer{Year: year, Source: FooterSource, About: FooterAbout}
}

// Metrics sums casual, registered and count over records. Each card's delta
// is its value scaled by ratio.
func Metrics(records []domain.RentalRecord, ratio float64) []domain.MetricCard {
	cards := make([]domain.MetricCard, len(metricLabels))
	for i, m := range metricLabels {
		value := dataprocessing.Sum(records, m.key)
		cards[i] = domain.MetricCard{
			Key:   m.key,
			Label: m.label,
			Value: value,
			Delta: float64(value) * ratio,
		}
	}
	return cards
}

// ResolveRange turns the query bounds into a DateRange. No dates selects
// the dataset bounds, a lone start selects that day and an end before the
// start collapses onto the start.
func ResolveRange(bounds domain.DateRange, q api.DashboardQuery) (domain.DateRange, error) {
	start, err := parseBound("start", q.Start)
	if err != nil {
		return domain.DateRange{}, err
	}
	end, err := parseBound("end", q.End)
	if err != nil {
		return domain.DateRange{}, err
	}

	switch {
	case start.IsZero() && end.IsZero():
		return bounds, nil
	case end.IsZero():
		return domain.SingleDate(start), nil
	case start.IsZero():
		return domain.NewDateRange(bounds.Start, end), nil
	}
	return domain.NewDateRange(start, end), nil
}

func parseBound(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not YYYY-MM-DD", ErrInvalidRange, name, value)
	}
	return t, nil
}
