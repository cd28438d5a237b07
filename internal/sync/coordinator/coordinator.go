package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/fitness-sync-server/internal/config"
	"github.com/stacklok/fitness-sync-server/internal/events"
	"github.com/stacklok/fitness-sync-server/internal/lock"
	"github.com/stacklok/fitness-sync-server/internal/retry"
	pkgsync "github.com/stacklok/fitness-sync-server/internal/sync"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
	"github.com/stacklok/fitness-sync-server/internal/telemetry"
)

// ErrUserRequired is returned when a sync is triggered without a user
var ErrUserRequired = errors.New("user ID is required")

// ErrSyncNotAllowed is returned when a user cannot be synced right now
var ErrSyncNotAllowed = errors.New("sync not allowed")

const coordinatorTracerScope = "github.com/stacklok/fitness-sync-server/internal/sync/coordinator"

// Coordinator triggers and schedules sync runs for all users
type Coordinator interface {
	// Start checks for due syncs until ctx is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop ends scheduling. In-flight runs keep going.
	Stop() error

	// TriggerSync starts a detached run for userID and returns once it is accepted
	TriggerSync(userID string) error

	// SyncNow runs a sync for userID and returns its final outcome
	SyncNow(ctx context.Context, userID string) error

	// Wait blocks until every triggered run has finished
	Wait()
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager   pkgsync.Manager
	users     state.UserStore
	locker    lock.Locker
	publisher events.Publisher

	policy   retry.Policy
	lockTTL  time.Duration
	pollBase time.Duration
	baseCtx  context.Context
	now      func() time.Time

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
	running    sync.WaitGroup

	syncMetrics *telemetry.SyncMetrics
	tracer      trace.Tracer
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithPublisher sets where final outcomes are published
func WithPublisher(p events.Publisher) Option {
	return func(c *defaultCoordinator) {
		c.publisher = p
	}
}

// WithRetryPolicy overrides the retry policy built from the configuration.
// The abandon check is kept when the policy has none.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *defaultCoordinator) {
		if p.Abandon == nil {
			p.Abandon = isAbandoned
		}
		c.policy = p
	}
}

// WithBaseContext sets the context triggered runs are detached from
func WithBaseContext(ctx context.Context) Option {
	return func(c *defaultCoordinator) {
		c.baseCtx = ctx
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *defaultCoordinator) {
		c.now = now
	}
}

// WithTracerProvider enables tracing of sync runs
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *defaultCoordinator) {
		if tp != nil {
			c.tracer = tp.Tracer(coordinatorTracerScope)
		}
	}
}

// New creates a new coordinator with injected dependencies
func New(
	manager pkgsync.Manager,
	users state.UserStore,
	locker lock.Locker,
	cfg *config.SyncConfig,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		manager:   manager,
		users:     users,
		locker:    locker,
		publisher: events.NopPublisher{},
		policy:    policyFromConfig(cfg),
		lockTTL:   cfg.GetLockTTL(),
		pollBase:  pollingBase(cfg.GetInterval()),
		baseCtx:   context.Background(),
		now:       time.Now,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background sync scheduling for all users
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting background sync coordinator", "polling_base", c.pollBase)

	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		close(c.done)
		slog.Info("Background sync coordinator shutting down")
	}()

	pollingInterval := calculatePollingInterval(c.pollBase)
	slog.Info("Configured coordinator polling interval",
		"base_interval", c.pollBase,
		"actual_interval", pollingInterval)

	ticker := time.NewTicker(pollingInterval)
	defer ticker.Stop()

	c.scheduleDueSyncs(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.scheduleDueSyncs(coordCtx)

			// Recalculate interval with new jitter for next iteration
			ticker.Reset(calculatePollingInterval(c.pollBase))
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()
	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		<-c.done
	}
	return nil
}

// Wait implements Coordinator
func (c *defaultCoordinator) Wait() {
	c.running.Wait()
}

// scheduleDueSyncs triggers a run for every user the manager considers due
func (c *defaultCoordinator) scheduleDueSyncs(ctx context.Context) {
	users, err := c.users.ListUsers(ctx)
	if err != nil {
		slog.Error("Error listing users for sync", "error", err)
		return
	}

	now := c.now()
	for _, user := range users {
		reason := c.manager.ShouldSync(user, now, false)
		if !reason.ShouldSync() {
			slog.Debug("User does not need sync",
				"user", user.ID,
				"reason", reason.String())
			continue
		}
		slog.Info("Scheduling sync", "user", user.ID, "reason", reason.String())
		if err := c.TriggerSync(user.ID); err != nil {
			slog.Error("Error triggering sync", "user", user.ID, "error", err)
		}
	}
}
