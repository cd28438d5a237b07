package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/fitness-sync-server/internal/config"
	"github.com/stacklok/fitness-sync-server/internal/lock"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
	"github.com/stacklok/fitness-sync-server/internal/sync/writer"
)

// DatabaseFactory creates PostgreSQL-backed storage components sharing one
// connection pool
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory connects to the configured PostgreSQL database
func NewDatabaseFactory(ctx context.Context, cfg *config.Config) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}

	slog.Info("Creating database-backed storage factory",
		"host", cfg.Database.Host,
		"database", cfg.Database.Database)

	pool, err := buildDatabaseConnectionPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	return &DatabaseFactory{config: cfg, pool: pool}, nil
}

// CreateUserStore implements Factory
func (d *DatabaseFactory) CreateUserStore(_ context.Context) (state.UserStore, error) {
	slog.Debug("Creating database-backed user store")
	return state.NewUserStore(d.config, d.pool)
}

// CreateCalendarStore implements Factory
func (d *DatabaseFactory) CreateCalendarStore(_ context.Context) (writer.CalendarStore, error) {
	slog.Debug("Creating database-backed calendar store")
	return writer.NewCalendarStore(d.config, d.pool)
}

// CreateLocker implements Factory. Locks live in the sync_locks table and
// are shared by every process connected to the database.
func (d *DatabaseFactory) CreateLocker(_ context.Context) (lock.Locker, error) {
	slog.Debug("Creating database-backed locker")
	return lock.NewPostgresLocker(d.pool), nil
}

// CheckReadiness implements Factory
func (d *DatabaseFactory) CheckReadiness(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return nil
}

// Cleanup closes the connection pool
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}

// buildDatabaseConnectionPool creates a connection pool with the configured limits
func buildDatabaseConnectionPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	slog.Info("Database connection pool created successfully",
		"max_conns", poolConfig.MaxConns,
		"min_conns", poolConfig.MinConns)
	return pool, nil
}

func buildPoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	connStr, err := cfg.GetConnectionString()
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime != "" {
		lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connMaxLifetime: %w", err)
		}
		poolConfig.MaxConnLifetime = lifetime
	}
	return poolConfig, nil
}
