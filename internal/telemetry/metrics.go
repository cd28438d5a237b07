package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetricsMeterName is the name used for the sync metrics meter
const SyncMetricsMeterName = "github.com/stacklok/fitness-sync-server/sync"

// SyncMetrics holds the instruments recorded by sync runs. A nil
// *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	syncDuration     metric.Float64Histogram
	rowsWritten      metric.Int64Counter
	resourceFailures metric.Int64Counter
	retries          metric.Int64Counter
	contention       metric.Int64Counter
}

// NewSyncMetrics creates the sync instruments. A nil provider yields nil metrics.
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"fitsync_sync_duration_seconds",
		metric.WithDescription("Duration of sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	rowsWritten, err := meter.Int64Counter(
		"fitsync_rows_written_total",
		metric.WithDescription("Calendar entries written per sync phase"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	resourceFailures, err := meter.Int64Counter(
		"fitsync_resource_failures_total",
		metric.WithDescription("Statistics resources skipped after a failed fetch"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"fitsync_sync_retries_total",
		metric.WithDescription("Failed sync attempts that were retried"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	contention, err := meter.Int64Counter(
		"fitsync_lock_contention_total",
		metric.WithDescription("Sync runs abandoned because another run held the user lock"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration:     syncDuration,
		rowsWritten:      rowsWritten,
		resourceFailures: resourceFailures,
		retries:          retries,
		contention:       contention,
	}, nil
}

// RecordSyncDuration records how long a sync run took, retries included
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.syncDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordRowsWritten adds the entries written by a phase
func (m *SyncMetrics) RecordRowsWritten(ctx context.Context, phase string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.rowsWritten.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("phase", phase)))
}

// RecordResourceFailure counts a statistics resource that could not be fetched
func (m *SyncMetrics) RecordResourceFailure(ctx context.Context, resource string) {
	if m == nil {
		return
	}
	m.resourceFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("resource", resource)))
}

// RecordRetry counts a failed attempt that will be retried
func (m *SyncMetrics) RecordRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1)
}

// RecordLockContention counts a run abandoned on lock contention
func (m *SyncMetrics) RecordLockContention(ctx context.Context) {
	if m == nil {
		return
	}
	m.contention.Add(ctx, 1)
}
