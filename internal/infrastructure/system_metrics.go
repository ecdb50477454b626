package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics records Go runtime gauges for the dashboard process.
type SystemMetrics struct {
	goroutines  metric.Int64Gauge
	heapInUse   metric.Int64Gauge
	heapObjects metric.Int64Gauge
	gcPause     metric.Float64Histogram
	uptime      metric.Float64Gauge

	lastNumGC uint32
}

// NewSystemMetrics creates the runtime instruments on meter.
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"bikedash_runtime_goroutines",
		metric.WithDescription("Number of live goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapInUse, err := meter.Int64Gauge(
		"bikedash_runtime_heap_inuse_bytes",
		metric.WithDescription("Heap bytes in use, datasets included"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	heapObjects, err := meter.Int64Gauge(
		"bikedash_runtime_heap_objects",
		metric.WithDescription("Allocated heap objects"),
	)
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram(
		"bikedash_runtime_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64Gauge(
		"bikedash_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		goroutines:  goroutines,
		heapInUse:   heapInUse,
		heapObjects: heapObjects,
		gcPause:     gcPause,
		uptime:      uptime,
	}, nil
}

// SystemStats holds one runtime sample.
type SystemStats struct {
	Goroutines    int64
	HeapInUse     int64
	HeapObjects   int64
	GCCount       uint32
	LastGCPause   time.Duration
	ProcessUptime time.Duration
	Timestamp     time.Time
}

// Collect samples the runtime and records the gauges. GC pauses are recorded
// once per collection observed since the previous sample.
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := &SystemStats{
		Goroutines:    int64(runtime.NumGoroutine()),
		HeapInUse:     int64(mem.HeapInuse),
		HeapObjects:   int64(mem.HeapObjects),
		GCCount:       mem.NumGC,
		LastGCPause:   time.Duration(mem.PauseNs[(mem.NumGC+255)%256]),
		ProcessUptime: time.Since(startTime),
		Timestamp:     time.Now(),
	}

	sm.goroutines.Record(ctx, stats.Goroutines)
	sm.heapInUse.Record(ctx, stats.HeapInUse)
	sm.heapObjects.Record(ctx, stats.HeapObjects)
	sm.uptime.Record(ctx, stats.ProcessUptime.Seconds())

	if mem.NumGC != sm.lastNumGC && stats.LastGCPause > 0 {
		sm.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}
	sm.lastNumGC = mem.NumGC

	return stats
}

// SystemMetricsCollector samples SystemMetrics on a fixed interval.
type SystemMetricsCollector struct {
	metrics   *SystemMetrics
	startTime time.Time
	interval  time.Duration

	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSystemMetricsCollector creates a new system metrics collector
func NewSystemMetricsCollector(meter metric.Meter, interval time.Duration) (*SystemMetricsCollector, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("collection interval must be positive, got %s", interval)
	}
	metrics, err := NewSystemMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics: %w", err)
	}

	return &SystemMetricsCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start collects until Stop is called or ctx is done. It blocks.
func (smc *SystemMetricsCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(smc.interval)
	defer ticker.Stop()

	smc.sample(ctx)

	for {
		select {
		case <-ticker.C:
			smc.sample(ctx)
		case <-smc.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends collection. It is safe to call more than once.
func (smc *SystemMetricsCollector) Stop() {
	smc.stopOnce.Do(func() { close(smc.stopCh) })
}

// CurrentStats samples and records the runtime immediately.
func (smc *SystemMetricsCollector) CurrentStats(ctx context.Context) *SystemStats {
	return smc.sample(ctx)
}

func (smc *SystemMetricsCollector) sample(ctx context.Context) *SystemStats {
	smc.mu.Lock()
	defer smc.mu.Unlock()
	return smc.metrics.Collect(ctx, smc.startTime)
}
