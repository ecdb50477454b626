package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"bikedash/internal/dataprocessing"
	"bikedash/internal/infrastructure"
	"bikedash/internal/validation"
	"bikedash/pkg/contracts/domain"
	"bikedash/pkg/contracts/events"
)

// latestID addresses the most recently loaded dataset.
const latestID = "latest"

// DatasetStore keeps loaded datasets in memory, evicting the oldest once
// max datasets are held.
type DatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*domain.Dataset
	order    []string // load order, oldest first
	max      int
}

// NewDatasetStore creates a store holding at most max datasets. A max of
// zero or less means unbounded.
func NewDatasetStore(max int) *DatasetStore {
	return &DatasetStore{
		datasets: make(map[string]*domain.Dataset),
		max:      max,
	}
}

// Put adds ds and returns the dataset evicted to make room, if any.
func (s *DatasetStore) Put(ds *domain.Dataset) *domain.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.datasets[ds.ID]; exists {
		s.removeLocked(ds.ID)
	}
	s.datasets[ds.ID] = ds
	s.order = append(s.order, ds.ID)

	if s.max > 0 && len(s.order) > s.max {
		oldest := s.order[0]
		evicted := s.datasets[oldest]
		s.removeLocked(oldest)
		return evicted
	}
	return nil
}

// Get returns the dataset with id. "latest" and "" address the most
// recently loaded dataset.
func (s *DatasetStore) Get(id string) (*domain.Dataset, error) {
	if id == "" || id == latestID {
		return s.Latest()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return ds, nil
}

// Latest returns the most recently loaded dataset, or ErrNoDataset.
func (s *DatasetStore) Latest() (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, ErrNoDataset
	}
	return s.datasets[s.order[len(s.order)-1]], nil
}

// List returns the metadata of every dataset, newest first.
func (s *DatasetStore) List() []domain.DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DatasetInfo, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.datasets[s.order[i]].DatasetInfo)
	}
	return out
}

// Delete removes the dataset with id and returns it.
func (s *DatasetStore) Delete(id string) (*domain.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == latestID && len(s.order) > 0 {
		id = s.order[len(s.order)-1]
	}
	ds, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	s.removeLocked(id)
	return ds, nil
}

// Len is the number of held datasets.
func (s *DatasetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *DatasetStore) removeLocked(id string) {
	delete(s.datasets, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Publisher pushes dataset events to connected pages.
type Publisher interface {
	Publish(ctx context.Context, msg events.WebSocketMessage)
}

// DatasetService loads datasets into the store and announces changes.
type DatasetService struct {
	store     *DatasetStore
	loader    *dataprocessing.Loader
	validator *validation.FileValidator
	metrics   *infrastructure.DashboardMetrics
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewDatasetService creates a dataset service. metrics may be nil.
func NewDatasetService(store *DatasetStore, loader *dataprocessing.Loader, validator *validation.FileValidator, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		store:     store,
		loader:    loader,
		validator: validator,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "dataset_service")),
		now:       time.Now,
	}
}

// SetPublisher attaches the event publisher. Without one, events are dropped.
func (s *DatasetService) SetPublisher(p Publisher) {
	s.publisher = p
}

// LoadUpload validates and parses an uploaded file. size is the declared
// part size; the reader is still bounded by the caller.
func (s *DatasetService) LoadUpload(ctx context.Context, name string, size int64, r io.Reader) (domain.DatasetInfo, error) {
	if err := s.validator.ValidateUpload(name, size); err != nil {
		s.metrics.RecordDatasetLoad(ctx, string(domain.SourceUpload), "", 0, 0, err)
		return domain.DatasetInfo{}, err
	}
	format, err := dataprocessing.FormatFromName(name)
	if err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("%w: %v", validation.ErrUnsupportedFormat, err)
	}

	return s.load(ctx, filepath.Base(name), domain.SourceUpload, format, func(ctx context.Context) (*dataprocessing.LoadResult, error) {
		return s.loader.Load(ctx, r, format)
	})
}

// LoadFile parses a dataset from disk. A missing path is a MissingFileError,
// an existing file with an unsupported extension is ErrUnsupportedFormat.
// Loads of unknown formats are recorded without a format label.
func (s *DatasetService) LoadFile(ctx context.Context, path string, source domain.DatasetSource) (domain.DatasetInfo, error) {
	format, formatErr := dataprocessing.FormatFromName(path)
	return s.load(ctx, filepath.Base(path), source, format, func(ctx context.Context) (*dataprocessing.LoadResult, error) {
		result, err := s.loader.LoadFile(ctx, path)
		var missing *dataprocessing.MissingFileError
		if err != nil && formatErr != nil && !errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %v", validation.ErrUnsupportedFormat, formatErr)
		}
		return result, err
	})
}

func (s *DatasetService) load(ctx context.Context, name string, source domain.DatasetSource, format domain.FileFormat, parse func(context.Context) (*dataprocessing.LoadResult, error)) (domain.DatasetInfo, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dataset.load",
		attribute.String("dataset.name", name),
		attribute.String("dataset.source", string(source)),
	)
	defer span.End()

	start := time.Now()
	result, err := parse(ctx)
	s.metrics.RecordDatasetLoad(ctx, string(source), string(format), resultRows(result), time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "Dataset load failed",
			slog.String("name", name),
			slog.String("source", string(source)),
			slog.String("error", err.Error()))
		return domain.DatasetInfo{}, fmt.Errorf("load %s: %w", name, err)
	}

	ds := &domain.Dataset{
		DatasetInfo: domain.DatasetInfo{
			ID:                 uuid.NewString(),
			Name:               name,
			Source:             source,
			Format:             result.Format,
			LoadedAt:           s.now().UTC(),
			Bounds:             result.Bounds,
			RecordCount:        len(result.Records),
			InconsistentTotals: result.InconsistentTotals,
		},
		Records: result.Records,
	}

	if evicted := s.store.Put(ds); evicted != nil {
		s.logger.InfoContext(ctx, "Dataset evicted",
			slog.String("dataset_id", evicted.ID),
			slog.String("name", evicted.Name))
		s.publish(ctx, events.MessageTypeDatasetRemoved, evicted.DatasetInfo)
	}

	s.logger.InfoContext(ctx, "Dataset loaded",
		slog.String("dataset_id", ds.ID),
		slog.String("name", name),
		slog.String("source", string(source)),
		slog.Int("records", ds.RecordCount),
		slog.Int("inconsistent_totals", ds.InconsistentTotals),
		slog.Duration("duration", time.Since(start)))

	s.publish(ctx, events.MessageTypeDatasetLoaded, ds.DatasetInfo)
	return ds.DatasetInfo, nil
}

func resultRows(r *dataprocessing.LoadResult) int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// Get returns a dataset by id or "latest".
func (s *DatasetService) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	return s.store.Get(id)
}

// List returns dataset metadata, newest first.
func (s *DatasetService) List(ctx context.Context) []domain.DatasetInfo {
	return s.store.List()
}

// Delete removes a dataset and announces it.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	ds, err := s.store.Delete(id)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Dataset removed",
		slog.String("dataset_id", ds.ID),
		slog.String("name", ds.Name))
	s.publish(ctx, events.MessageTypeDatasetRemoved, ds.DatasetInfo)
	return nil
}

// Count is the number of loaded datasets.
func (s *DatasetService) Count() int {
	return s.store.Len()
}

func (s *DatasetService) publish(ctx context.Context, msgType events.MessageType, info domain.DatasetInfo) {
	if s.publisher == nil {
		return
	}
	msg := events.NewMessage(msgType, events.DatasetEvent{Dataset: info})
	msg.TraceID = infrastructure.GetTraceID(ctx)
	s.publisher.Publish(ctx, msg)
}
