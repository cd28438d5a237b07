package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/fitness-sync-server/internal/fitbit"
	"github.com/stacklok/fitness-sync-server/internal/snapshot"
	"github.com/stacklok/fitness-sync-server/internal/table"
)

const (
	// Period is the span requested from each time series endpoint
	Period = "3m"

	// HeartResource is the resource whose entries carry heart-rate zones
	HeartResource = "activities/heart"

	heartRateZonesKey = "heartRateZones"
)

// Resources are the daily statistics merged on every run, in column order
var Resources = []string{
	HeartResource,
	"activities/steps",
	"activities/calories",
	"activities/distance",
	"activities/floors",
	"activities/elevation",
	"activities/minutesSedentary",
	"activities/minutesVeryActive",
}

// StatisticsMerger fetches and merges the daily statistics resources
type StatisticsMerger struct {
	resources         []string
	sink              snapshot.Sink
	now               func() time.Time
	onResourceFailure func(resource string)
}

// MergerOption configures a StatisticsMerger
type MergerOption func(*StatisticsMerger)

// WithResources overrides the merged resources
func WithResources(resources ...string) MergerOption {
	return func(m *StatisticsMerger) {
		m.resources = resources
	}
}

// WithSnapshotSink sets where the unfiltered merged table is copied to
func WithSnapshotSink(sink snapshot.Sink) MergerOption {
	return func(m *StatisticsMerger) {
		m.sink = sink
	}
}

// WithResourceFailureHook registers a callback for every skipped resource
func WithResourceFailureHook(fn func(resource string)) MergerOption {
	return func(m *StatisticsMerger) {
		m.onResourceFailure = fn
	}
}

// WithMergerClock overrides the time used to name snapshots
func WithMergerClock(now func() time.Time) MergerOption {
	return func(m *StatisticsMerger) {
		m.now = now
	}
}

// NewStatisticsMerger creates a merger over Resources
func NewStatisticsMerger(opts ...MergerOption) *StatisticsMerger {
	m := &StatisticsMerger{
		resources: Resources,
		sink:      snapshot.NopSink{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge implements StatisticsSource
func (m *StatisticsMerger) Merge(
	ctx context.Context,
	client fitbit.Client,
	userID string,
	window Window,
	cursor *time.Time,
) ([]table.Row, error) {
	tables := make([][]table.Row, len(m.resources))
	errs := make([]error, len(m.resources))

	var g errgroup.Group
	for i, resource := range m.resources {
		g.Go(func() error {
			series, err := client.TimeSeries(ctx, resource, window.From, Period)
			if err != nil {
				errs[i] = &ResourceFetchError{Resource: resource, Err: err}
				return nil
			}
			tables[i] = SeriesRows(series)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		failed++
		var rfe *ResourceFetchError
		if errors.As(err, &rfe) && m.onResourceFailure != nil {
			m.onResourceFailure(rfe.Resource)
		}
		slog.Warn("Skipping statistics resource",
			"user", userID,
			"error", err)
	}
	if failed == len(m.resources) {
		return nil, fmt.Errorf("%w: %w", ErrAllResourcesFailed, errors.Join(errs...))
	}

	merged := table.OuterJoin(tables...)
	snapshot.WriteBestEffort(ctx, m.sink, userID, m.now(), merged)

	rows := table.FilterSince(merged, StatisticsSince(window, cursor))
	slog.Debug("Merged statistics",
		"user", userID,
		"resources", len(m.resources)-failed,
		"rows", len(merged),
		"new_rows", len(rows))
	return rows, nil
}

// ColumnName returns the column a resource's values are stored under
func ColumnName(resource string) string {
	if i := strings.LastIndex(resource, "/"); i >= 0 {
		return resource[i+1:]
	}
	return resource
}

// ZoneColumnName returns the column holding minutes spent in a heart-rate zone
func ZoneColumnName(minValue, maxValue table.Value) string {
	return fmt.Sprintf("HR_zone_min_%s_max_%s", minValue.String(), maxValue.String())
}

// SeriesRows turns a series into one row per date. Scalar values become a
// single column named after the resource. Heart-rate entries become one
// column per zone holding the zone's minutes.
func SeriesRows(series *fitbit.Series) []table.Row {
	column := ColumnName(series.Resource)
	rows := make([]table.Row, 0, len(series.Points))
	for _, p := range series.Points {
		row := table.Row{Timestamp: p.Date.UTC()}
		switch p.Value.Kind {
		case table.KindScalar:
			row.Set(column, p.Value)
		case table.KindObject:
			zones, ok := p.Value.Object.Get(heartRateZonesKey)
			if !ok || zones.Kind != table.KindObjectList {
				slog.Warn("Unhandled series value shape",
					"resource", series.Resource,
					"date", p.Date.Format(fitbit.DateLayout),
					"value", p.Value.String())
				continue
			}
			for _, zone := range zones.Objects {
				minValue, _ := zone.Get("min")
				maxValue, _ := zone.Get("max")
				minutes, ok := zone.Get("minutes")
				if !ok {
					minutes = table.Null()
				}
				row.Set(ZoneColumnName(minValue, maxValue), minutes)
			}
		default:
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
