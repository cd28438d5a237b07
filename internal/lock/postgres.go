package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by PostgresLocker
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	// acquireLeaseQuery inserts the lease or takes over an expired one. No row
	// is returned when an unexpired lease exists.
	acquireLeaseQuery = `
INSERT INTO sync_locks (lock_key, token, expires_at)
VALUES ($1, $2, now() + make_interval(secs => $3))
ON CONFLICT (lock_key) DO UPDATE
    SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
    WHERE sync_locks.expires_at <= now()
RETURNING token`

	releaseLeaseQuery = `DELETE FROM sync_locks WHERE lock_key = $1 AND token = $2`
)

// PostgresLocker stores leases in the sync_locks table so that every server
// sharing the database observes the same holders
type PostgresLocker struct {
	db Querier
}

// NewPostgresLocker creates a Locker backed by db
func NewPostgresLocker(db Querier) *PostgresLocker {
	return &PostgresLocker{db: db}
}

// Acquire implements Locker
func (p *PostgresLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	var got string
	err := p.db.QueryRow(ctx, acquireLeaseQuery, key, token, ttl.Seconds()).Scan(&got)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLockContention
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return &postgresLease{db: p.db, key: key, token: got}, nil
}

type postgresLease struct {
	db    Querier
	key   string
	token string
}

func (l *postgresLease) Key() string {
	return l.key
}

func (l *postgresLease) Release(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, releaseLeaseQuery, l.key, l.token); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}
