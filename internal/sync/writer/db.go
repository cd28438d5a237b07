package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/fitness-sync-server/internal/report"
)

const (
	clearCalendarQuery = `
DELETE FROM calendar_entries
WHERE user_id = $1 AND entry_date >= $2 AND entry_date <= $3`

	upsertEntryQuery = `
INSERT INTO calendar_entries (id, user_id, field_slug, entry_date, entry_key, title, data)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, field_slug, entry_date, entry_key) DO UPDATE SET
    title = EXCLUDED.title,
    data = EXCLUDED.data,
    updated_at = now()
RETURNING id`

	deleteReportRowsQuery = `DELETE FROM calendar_report_rows WHERE entry_id = $1`
)

var reportRowColumns = []string{"entry_id", "position", "element_slug", "value", "alt_value", "choice_slugs"}

// dbCalendarStore keeps calendar entries in Postgres. Each AddRow replaces the
// entry and its report rows in a single transaction.
type dbCalendarStore struct {
	pool *pgxpool.Pool
}

// NewDBCalendarStore creates a new database-backed calendar store.
// The caller is responsible for closing the pool when done.
func NewDBCalendarStore(pool *pgxpool.Pool) (CalendarStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbCalendarStore{pool: pool}, nil
}

func (d *dbCalendarStore) ClearCalendar(ctx context.Context, userID string, from, to time.Time) error {
	tag, err := d.pool.Exec(ctx, clearCalendarQuery, userID, from.UTC(), to.UTC())
	if err != nil {
		return fmt.Errorf("failed to clear calendar for user %s: %w", userID, err)
	}
	slog.Debug("Cleared calendar entries",
		"user", userID,
		"deleted", tag.RowsAffected())
	return nil
}

func (d *dbCalendarStore) AddRow(ctx context.Context, userID string, entry *CalendarEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal entry data: %w", err)
	}
	reportRows, err := reportCopyRows(entry.Report)
	if err != nil {
		return err
	}

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			slog.Warn("Failed to roll back calendar write",
				"user", userID,
				"error", rollbackErr)
		}
	}()

	var entryID uuid.UUID
	err = tx.QueryRow(ctx, upsertEntryQuery,
		uuid.New(), userID, entry.FieldSlug, entry.Date.UTC(), entry.Key, entry.Title, data,
	).Scan(&entryID)
	if err != nil {
		return fmt.Errorf("failed to upsert calendar entry: %w", err)
	}

	if _, err := tx.Exec(ctx, deleteReportRowsQuery, entryID); err != nil {
		return fmt.Errorf("failed to delete report rows: %w", err)
	}

	if len(reportRows) > 0 {
		for i := range reportRows {
			reportRows[i][0] = entryID
		}
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"calendar_report_rows"},
			reportRowColumns,
			pgx.CopyFromRows(reportRows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy report rows: %w", err)
		}
		if int(copied) != len(reportRows) {
			return fmt.Errorf("copy count mismatch: expected %d, got %d", len(reportRows), copied)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// reportCopyRows encodes report rows for COPY. JSON columns are sent as
// encoded documents; the entry ID is filled in once known.
func reportCopyRows(rows []report.Row) ([][]any, error) {
	out := make([][]any, 0, len(rows))
	for i, r := range rows {
		value, err := json.Marshal(r.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value of %s: %w", r.ElementSlug, err)
		}
		alt, err := json.Marshal(r.AltValue)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal alt value of %s: %w", r.ElementSlug, err)
		}
		out = append(out, []any{nil, int32(i), r.ElementSlug, value, alt, r.ChoiceSlugs})
	}
	return out, nil
}
