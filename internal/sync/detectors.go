package sync

import (
	"time"

	"github.com/stacklok/fitness-sync-server/internal/status"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
)

// AutomaticSyncChecker decides whether a scheduled sync is due
type AutomaticSyncChecker interface {
	// IsIntervalSyncNeeded reports whether interval has elapsed since the
	// user's last attempt, and when the next sync is due
	IsIntervalSyncNeeded(user *state.User, now time.Time) (bool, time.Time)
}

// InProgressDetector recognises runs that are still underway
type InProgressDetector interface {
	// IsInProgress reports whether the user's last run started recently and has not finished
	IsInProgress(user *state.User, now time.Time) bool
}

// DefaultAutomaticSyncChecker implements AutomaticSyncChecker
type DefaultAutomaticSyncChecker struct {
	Interval time.Duration
}

// IsIntervalSyncNeeded implements AutomaticSyncChecker. A user that never
// attempted a sync is always due.
func (d *DefaultAutomaticSyncChecker) IsIntervalSyncNeeded(user *state.User, now time.Time) (bool, time.Time) {
	last := user.Sync.LastAttempt
	if last == nil {
		return true, now.Add(d.Interval)
	}
	next := last.Add(d.Interval)
	if !now.Before(next) {
		return true, now.Add(d.Interval)
	}
	return false, next
}

// DefaultInProgressDetector implements InProgressDetector. A run whose
// last attempt is older than StaleAfter is treated as dead, since its lock
// has expired by then.
type DefaultInProgressDetector struct {
	StaleAfter time.Duration
}

// IsInProgress implements InProgressDetector
func (d *DefaultInProgressDetector) IsInProgress(user *state.User, now time.Time) bool {
	phase := user.Sync.Phase
	if phase == "" || phase == status.SyncPhaseIdle || phase.IsTerminal() {
		return false
	}
	if user.Sync.LastAttempt == nil {
		return false
	}
	return now.Sub(*user.Sync.LastAttempt) < d.StaleAfter
}
