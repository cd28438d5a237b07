// Package storage creates the storage-backed components of the sync engine
// as a family, so users, calendar entries and locks always share one backend.
package storage

import (
	"context"
	"fmt"

	"github.com/stacklok/fitness-sync-server/internal/config"
	"github.com/stacklok/fitness-sync-server/internal/lock"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
	"github.com/stacklok/fitness-sync-server/internal/sync/writer"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components.
//
// The factory encapsulates the creation of:
// - UserStore: credentials, cursor and sync status per user
// - CalendarStore: the calendar entries written by sync runs
// - Locker: per-user sync locks
//
// It also owns the lifecycle of storage resources such as connection pools.
type Factory interface {
	// CreateUserStore creates the store for users and their sync status
	CreateUserStore(ctx context.Context) (state.UserStore, error)

	// CreateCalendarStore creates the store calendar entries are written to
	CreateCalendarStore(ctx context.Context) (writer.CalendarStore, error)

	// CreateLocker creates the per-user sync locker. Repeated calls return
	// lockers that exclude each other.
	CreateLocker(ctx context.Context) (lock.Locker, error)

	// CheckReadiness reports whether the backend can serve requests
	CheckReadiness(ctx context.Context) error

	// Cleanup releases any resources held by this factory
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg)
	case config.StorageTypeFile:
		return NewFileFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}
