package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/stacklok/fitness-sync-server/internal/config"
	"github.com/stacklok/fitness-sync-server/internal/lock"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
	"github.com/stacklok/fitness-sync-server/internal/sync/writer"
)

// FileFactory creates components persisting to JSON files under the data
// directory. Locks are process-local.
type FileFactory struct {
	config  *config.Config
	dataDir string
	locker  *lock.MemoryLocker
}

var _ Factory = (*FileFactory)(nil)

// NewFileFactory creates a file-based storage factory, ensuring the data
// directory exists
func NewFileFactory(cfg *config.Config) (*FileFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	slog.Info("Creating file-based storage factory", "data_dir", dataDir)

	return &FileFactory{
		config:  cfg,
		dataDir: dataDir,
		locker:  lock.NewMemoryLocker(),
	}, nil
}

// CreateUserStore implements Factory
func (f *FileFactory) CreateUserStore(_ context.Context) (state.UserStore, error) {
	slog.Debug("Creating file-based user store")
	return state.NewUserStore(f.config, nil)
}

// CreateCalendarStore implements Factory
func (f *FileFactory) CreateCalendarStore(_ context.Context) (writer.CalendarStore, error) {
	slog.Debug("Creating file-based calendar store")
	return writer.NewCalendarStore(f.config, nil)
}

// CreateLocker implements Factory. Every call returns the same locker.
func (f *FileFactory) CreateLocker(_ context.Context) (lock.Locker, error) {
	return f.locker, nil
}

// CheckReadiness implements Factory
func (f *FileFactory) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(f.dataDir)
	if err != nil {
		return fmt.Errorf("data directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", f.dataDir)
	}
	return nil
}

// Cleanup implements Factory. File storage holds no resources.
func (*FileFactory) Cleanup() {
	slog.Debug("Cleaning up file storage factory (no-op)")
}
