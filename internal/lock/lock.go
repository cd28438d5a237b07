// Package lock provides non-blocking, expiring mutual exclusion keyed by name.
package lock

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/mock_locker.go -package=mocks -source=lock.go Locker,Lease

// ErrLockContention is returned by Acquire when another unexpired holder owns the key
var ErrLockContention = errors.New("lock is held by another owner")

// DefaultTTL bounds how long a lease survives without being released
const DefaultTTL = 600 * time.Second

// Lease is a held lock. Only the lease that acquired a key can release it.
type Lease interface {
	// Key returns the locked key
	Key() string
	// Release frees the key. Releasing an expired or superseded lease is a no-op.
	Release(ctx context.Context) error
}

// Locker acquires leases on keys
type Locker interface {
	// Acquire takes the key for ttl without waiting. It returns ErrLockContention
	// when the key is held by an unexpired lease.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// UserKey returns the lock key used for a user's sync runs
func UserKey(userID string) string {
	return "sync:" + userID
}
