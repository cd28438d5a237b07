package coordinator

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/stacklok/fitness-sync-server/internal/config"
	"github.com/stacklok/fitness-sync-server/internal/lock"
	"github.com/stacklok/fitness-sync-server/internal/retry"
)

const (
	// basePollingInterval is the longest interval between checks for due syncs
	basePollingInterval = 2 * time.Minute
	// pollingJitter is the maximum random offset applied to the polling interval
	pollingJitter = 30 * time.Second
)

// policyFromConfig builds the run retry policy. Lock contention abandons
// the run without consuming a retry.
func policyFromConfig(cfg *config.SyncConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.Retry.GetMaxAttempts(),
		Delay:       cfg.Retry.GetDelay(),
		Abandon:     isAbandoned,
	}
}

func isAbandoned(err error) bool {
	return errors.Is(err, lock.ErrLockContention)
}

// pollingBase returns how often due syncs are checked for a sync interval
func pollingBase(interval time.Duration) time.Duration {
	if interval > 0 && interval < basePollingInterval {
		return interval
	}
	return basePollingInterval
}

// calculatePollingInterval returns base with a random jitter applied, so
// that replicas don't poll the user store at the same moment. The jitter
// never exceeds a quarter of base.
func calculatePollingInterval(base time.Duration) time.Duration {
	jitter := min(pollingJitter, base/4)
	if jitter <= 0 {
		return base
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	offset := time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	return base + offset
}
