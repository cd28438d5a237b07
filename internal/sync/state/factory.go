package state

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/fitness-sync-server/internal/config"
)

// NewUserStore creates a UserStore based on the configured storage type.
//
// For file-based storage, it returns a store that keeps one JSON document per
// user under the configured data directory.
//
// For database storage, it returns a store backed by the sync_users table.
// The pool parameter must not be nil when database storage is configured.
func NewUserStore(cfg *config.Config, pool *pgxpool.Pool) (UserStore, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBUserStore(pool), nil
	case config.StorageTypeFile:
		return NewFileUserStore(cfg.GetDataDir())
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.GetStorageType())
	}
}
