package writer

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/fitness-sync-server/internal/config"
)

// NewCalendarStore creates a CalendarStore based on the configured storage type.
//
// For file-based storage, entries are kept as one JSON document per user under
// the configured data directory.
//
// For database storage, entries go to the calendar_entries and
// calendar_report_rows tables. The pool parameter must not be nil.
func NewCalendarStore(cfg *config.Config, pool *pgxpool.Pool) (CalendarStore, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBCalendarStore(pool)
	case config.StorageTypeFile:
		return NewFileCalendarStore(cfg.GetDataDir())
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.GetStorageType())
	}
}

// NewSyncWriter creates the CalendarWriter used by sync runs
func NewSyncWriter(cfg *config.Config, store CalendarStore) SyncWriter {
	return NewCalendarWriter(store, WithWorkers(cfg.Sync.GetWorkers()))
}
