package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/fitness-sync-server/internal/events"
	"github.com/stacklok/fitness-sync-server/internal/lock"
	"github.com/stacklok/fitness-sync-server/internal/otel"
	"github.com/stacklok/fitness-sync-server/internal/retry"
	"github.com/stacklok/fitness-sync-server/internal/status"
	pkgsync "github.com/stacklok/fitness-sync-server/internal/sync"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
)

// TriggerSync implements Coordinator. The run is detached from any
// caller context and its outcome only reaches the logs, metrics and events.
func (c *defaultCoordinator) TriggerSync(userID string) error {
	if userID == "" {
		return ErrUserRequired
	}

	task := taskName(userID)
	ctx := context.WithoutCancel(c.baseCtx)

	c.running.Add(1)
	go func() {
		defer c.running.Done()
		err := c.runSync(ctx, userID)
		switch {
		case err == nil:
		case errors.Is(err, lock.ErrLockContention), errors.Is(err, ErrSyncNotAllowed):
			slog.Info("Sync skipped", "task", task, "user", userID, "reason", err)
		default:
			slog.Error("Sync failed", "task", task, "user", userID, "error", err)
		}
	}()

	slog.Info("Sync triggered", "task", task, "user", userID)
	return nil
}

// SyncNow implements Coordinator
func (c *defaultCoordinator) SyncNow(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	return c.runSync(ctx, userID)
}

func taskName(userID string) string {
	return "sync-" + userID
}

// runSync runs attempts under the retry policy and records the final outcome
func (c *defaultCoordinator) runSync(ctx context.Context, userID string) error {
	task := taskName(userID)
	start := c.now()
	ctx, span := otel.StartSpan(ctx, c.tracer, task,
		trace.WithAttributes(otel.AttrUserID.String(userID)),
	)
	defer span.End()

	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		err = fmt.Errorf("failed to load user %s: %w", userID, err)
		otel.RecordError(span, err)
		return err
	}
	if reason := c.manager.ShouldSync(user, start, true); !reason.ShouldSync() {
		return fmt.Errorf("%w: %s", ErrSyncNotAllowed, reason)
	}

	policy := c.policy
	policy.OnFailure = func(attempt int, err error) {
		if isAbandoned(err) {
			c.syncMetrics.RecordLockContention(ctx)
			return
		}
		if uint(attempt) < policy.MaxAttempts {
			c.syncMetrics.RecordRetry(ctx)
		}
	}

	var (
		result   *pkgsync.Result
		attempts int
	)
	err = retry.Do(ctx, policy, task, func(ctx context.Context, attempt int) error {
		attempts = attempt
		span.SetAttributes(otel.AttrSyncAttempt.Int(attempt))
		return c.withLock(ctx, userID, func(ctx context.Context) error {
			var err error
			result, err = c.attempt(ctx, userID, attempt)
			return err
		})
	})
	if isAbandoned(err) {
		return err
	}

	duration := c.now().Sub(start)
	c.syncMetrics.RecordSyncDuration(ctx, duration, err == nil)
	c.publish(ctx, userID, attempts, result, err, duration)

	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("sync failed after %d attempts: %w", attempts, err)
	}
	return nil
}

// withLock runs fn while holding the user's sync lock. The lease is
// released on every exit path.
func (c *defaultCoordinator) withLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	slog.Info("Sync phase", "user", userID, "phase", status.SyncPhaseAcquiringLock)

	lease, err := c.locker.Acquire(ctx, lock.UserKey(userID), c.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire sync lock for %s: %w", userID, err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to release sync lock", "user", userID, "key", lease.Key(), "error", err)
		}
	}()

	return fn(ctx)
}

// attempt performs one sync with a freshly loaded user, so that a cursor
// persisted by a concurrent run is never overwritten with a stale one
func (c *defaultCoordinator) attempt(ctx context.Context, userID string, attempt int) (*pkgsync.Result, error) {
	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	attemptCount := c.markSyncing(ctx, userID)
	slog.Info("Starting sync operation", "user", userID, "attempt", attempt, "attempt_count", attemptCount)

	result, err := c.manager.PerformSync(ctx, user)
	c.markFinished(ctx, userID, err)
	return result, err
}

func (c *defaultCoordinator) markSyncing(ctx context.Context, userID string) int {
	now := c.now()
	var attemptCount int
	_, err := c.users.UpdateStatusAtomically(ctx, userID, func(s *status.SyncStatus) bool {
		s.Phase = status.SyncPhaseSyncing
		s.Message = "Sync in progress"
		s.LastAttempt = &now
		s.AttemptCount++
		attemptCount = s.AttemptCount
		return true
	})
	if err != nil {
		slog.Warn("Failed to persist syncing status", "user", userID, "error", err)
	}
	return attemptCount
}

func (c *defaultCoordinator) markFinished(ctx context.Context, userID string, syncErr error) {
	_, err := c.users.UpdateStatusAtomically(ctx, userID, func(s *status.SyncStatus) bool {
		if syncErr != nil {
			s.Phase = status.SyncPhaseFailed
			s.Message = failureMessage(syncErr)
			return true
		}
		s.Phase = status.SyncPhaseSuccess
		s.Message = "Sync completed successfully"
		s.AttemptCount = 0
		return true
	})
	if err != nil {
		slog.Error("Error updating sync status", "user", userID, "error", err)
	}
}

func failureMessage(err error) string {
	var syncErr *pkgsync.Error
	if errors.As(err, &syncErr) {
		return syncErr.Message
	}
	return err.Error()
}

func (c *defaultCoordinator) publish(
	ctx context.Context,
	userID string,
	attempts int,
	result *pkgsync.Result,
	syncErr error,
	duration time.Duration,
) {
	event := &events.SyncEvent{
		Type:       events.TypeSyncCompleted,
		UserID:     userID,
		Attempts:   attempts,
		Duration:   duration,
		OccurredAt: c.now().UTC(),
	}
	if result != nil {
		event.StatisticsRows = result.StatisticsRows
		event.ActivityRows = result.ActivityRows
	}
	if syncErr != nil {
		event.Type = events.TypeSyncFailed
		event.Error = failureMessage(syncErr)
	} else if result != nil {
		cursor := result.Cursor
		event.Cursor = &cursor
	}

	if err := c.publisher.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish sync event", "user", userID, "type", event.Type, "error", err)
	}
}

// StatusPhaseObserver returns a phase observer that records the current
// phase on the user's status record
func StatusPhaseObserver(users state.UserStore) pkgsync.PhaseObserver {
	return func(ctx context.Context, userID string, phase status.SyncPhase) {
		_, err := users.UpdateStatusAtomically(ctx, userID, func(s *status.SyncStatus) bool {
			if s.Phase == phase {
				return false
			}
			s.Phase = phase
			return true
		})
		if err != nil {
			slog.Warn("Failed to persist sync phase", "user", userID, "phase", phase, "error", err)
		}
	}
}
