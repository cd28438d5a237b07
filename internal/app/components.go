package app

import (
	"github.com/stacklok/fitness-sync-server/internal/app/storage"
	"github.com/stacklok/fitness-sync-server/internal/events"
	"github.com/stacklok/fitness-sync-server/internal/sync/coordinator"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator schedules and runs syncs
	SyncCoordinator coordinator.Coordinator

	// UserStore holds users, their cursors and sync status
	UserStore state.UserStore

	// Publisher receives sync outcome events
	Publisher events.Publisher

	// StorageFactory owns the storage resources
	StorageFactory storage.Factory
}
