package writer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/fitness-sync-server/internal/table"
)

// DefaultWorkers is the number of concurrent calendar writes per batch
const DefaultWorkers = 10

// CalendarWriter fans a batch of rows out to a CalendarStore with bounded concurrency
type CalendarWriter struct {
	store   CalendarStore
	workers int
}

// Option configures a CalendarWriter
type Option func(*CalendarWriter)

// WithWorkers sets the pool width. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(w *CalendarWriter) {
		if n > 0 {
			w.workers = n
		}
	}
}

// NewCalendarWriter creates a CalendarWriter over store
func NewCalendarWriter(store CalendarStore, opts ...Option) *CalendarWriter {
	w := &CalendarWriter{
		store:   store,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Clear implements SyncWriter
func (w *CalendarWriter) Clear(ctx context.Context, userID string, from, to time.Time) error {
	if err := w.store.ClearCalendar(ctx, userID, from, to); err != nil {
		return fmt.Errorf("failed to clear calendar: %w", err)
	}
	slog.Debug("Cleared calendar",
		"user", userID,
		"from", from,
		"to", to)
	return nil
}

// WriteStatistics implements SyncWriter
func (w *CalendarWriter) WriteStatistics(ctx context.Context, userID string, rows []table.Row) (int, error) {
	return w.write(ctx, userID, StatisticsFieldSlug, rows, StatisticsEntry)
}

// WriteActivities implements SyncWriter
func (w *CalendarWriter) WriteActivities(ctx context.Context, userID string, rows []table.Row) (int, error) {
	return w.write(ctx, userID, ActivitiesFieldSlug, rows, ActivityEntry)
}

// write runs one AddRow per row. The first failure cancels the remaining
// writes and is returned once every started write has finished.
func (w *CalendarWriter) write(
	ctx context.Context,
	userID string,
	fieldSlug string,
	rows []table.Row,
	entryFn func(table.Row) *CalendarEntry,
) (int, error) {
	if len(rows) == 0 {
		slog.Debug("No new rows to write",
			"user", userID,
			"field", fieldSlug)
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for _, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry := entryFn(row)
			if err := w.store.AddRow(gctx, userID, entry); err != nil {
				return fmt.Errorf("failed to write %s entry at %s: %w",
					fieldSlug, entry.Date.Format(time.RFC3339), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	slog.Info("Wrote calendar entries",
		"user", userID,
		"field", fieldSlug,
		"count", len(rows))
	return len(rows), nil
}
