// Package writer persists synced rows as calendar entries in the destination store
package writer

import (
	"context"
	"time"

	"github.com/stacklok/fitness-sync-server/internal/report"
	"github.com/stacklok/fitness-sync-server/internal/table"
)

//go:generate mockgen -destination=mocks/mock_writer.go -package=mocks -source=writer.go CalendarStore,SyncWriter

const (
	// StatisticsFieldSlug is the calendar field holding daily statistics
	StatisticsFieldSlug = "fitbit-statistics"
	// StatisticsTitle is the title of every statistics entry
	StatisticsTitle = "Fitbit statistics"
	// ActivitiesFieldSlug is the calendar field holding logged activities
	ActivitiesFieldSlug = "fitbit-activities"
	// DefaultActivityTitle is used when an activity has no name
	DefaultActivityTitle = "Fitbit activity"

	// ActivityNameColumn holds the activity name used as entry title
	ActivityNameColumn = "activityName"

	// ActivityIDColumn holds the upstream log ID that tells activities with the same start apart
	ActivityIDColumn = "logId"

	// statisticsDateOffset places daily rows at midday UTC
	statisticsDateOffset = 12 * time.Hour
)

// CalendarEntry is one unit written to a user's calendar
type CalendarEntry struct {
	FieldSlug string
	Title     string
	Date      time.Time
	// Key separates entries sharing a slug and date. Empty for statistics.
	Key       string
	Data      table.Row
	Report    []report.Row
}

// CalendarStore is the destination calendar
type CalendarStore interface {
	// ClearCalendar removes the user's entries dated within [from, to]. Clearing an empty range succeeds.
	ClearCalendar(ctx context.Context, userID string, from, to time.Time) error
	// AddRow upserts an entry keyed by user, field slug, date and entry key
	AddRow(ctx context.Context, userID string, entry *CalendarEntry) error
}

// SyncWriter writes a sync phase's rows to the calendar
type SyncWriter interface {
	// Clear removes the user's entries dated within [from, to]
	Clear(ctx context.Context, userID string, from, to time.Time) error
	// WriteStatistics writes one entry per merged statistics row and returns how many were written
	WriteStatistics(ctx context.Context, userID string, rows []table.Row) (int, error)
	// WriteActivities writes one entry per activity and returns how many were written
	WriteActivities(ctx context.Context, userID string, rows []table.Row) (int, error)
}

// StatisticsEntry builds the calendar entry for a merged statistics row
func StatisticsEntry(row table.Row) *CalendarEntry {
	return &CalendarEntry{
		FieldSlug: StatisticsFieldSlug,
		Title:     StatisticsTitle,
		Date:      row.Timestamp.UTC().Add(statisticsDateOffset),
		Data:      row,
		Report:    report.FromRow(row),
	}
}

// ActivityEntry builds the calendar entry for a flattened activity row
func ActivityEntry(row table.Row) *CalendarEntry {
	title := DefaultActivityTitle
	if v, ok := row.Get(ActivityNameColumn); ok && v.Kind == table.KindScalar {
		if s := v.String(); s != "" {
			title = s
		}
	}
	var key string
	if v, ok := row.Get(ActivityIDColumn); ok && v.Kind == table.KindScalar {
		key = v.String()
	}
	return &CalendarEntry{
		FieldSlug: ActivitiesFieldSlug,
		Title:     title,
		Date:      row.Timestamp.UTC(),
		Key:       key,
		Data:      row,
		Report:    report.FromRow(row),
	}
}
