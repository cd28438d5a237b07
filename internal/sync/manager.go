package sync

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/fitness-sync-server/internal/fitbit"
	"github.com/stacklok/fitness-sync-server/internal/otel"
	"github.com/stacklok/fitness-sync-server/internal/sources"
	"github.com/stacklok/fitness-sync-server/internal/status"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
	"github.com/stacklok/fitness-sync-server/internal/sync/writer"
	"github.com/stacklok/fitness-sync-server/internal/telemetry"
)

// Reason explains why a sync should or should not run
type Reason string

// Sync reasons
const (
	ReasonNoCredentials     Reason = "no-upstream-credentials"
	ReasonAlreadyInProgress Reason = "sync-already-in-progress"
	ReasonManualRequested   Reason = "manual-sync-requested"
	ReasonNeverSynced       Reason = "never-synced"
	ReasonIntervalElapsed   Reason = "sync-interval-elapsed"
	ReasonUpToDate          Reason = "up-to-date"
)

// ShouldSync reports whether the reason calls for a sync
func (r Reason) ShouldSync() bool {
	switch r {
	case ReasonManualRequested, ReasonNeverSynced, ReasonIntervalElapsed:
		return true
	default:
		return false
	}
}

func (r Reason) String() string {
	return string(r)
}

// Phase names used for row metrics
const (
	metricPhaseStatistics = "statistics"
	metricPhaseActivities = "activities"
)

// Defaults for the scheduling checks
const (
	DefaultSyncInterval       = time.Hour
	DefaultInProgressTimeout  = 600 * time.Second
	DefaultLookbackDays       = 90
	defaultManagerTracerScope = "github.com/stacklok/fitness-sync-server/internal/sync"
)

// Result describes what a run did
type Result struct {
	Window         sources.Window
	StatisticsRows int
	ActivityRows   int
	// Cursor is the run's start time, persisted as LastSyncTS on success
	Cursor time.Time
}

// Error is a failure outside the statistics and activities phases
type Error struct {
	Err     error
	Message string
	Phase   status.SyncPhase
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SyncFailure reports a run in which at least one data phase failed. The
// cursor is left unchanged.
type SyncFailure struct {
	StatisticsOK bool
	ActivitiesOK bool
	Err          error
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("sync incomplete (statistics ok: %t, activities ok: %t): %v",
		e.StatisticsOK, e.ActivitiesOK, e.Err)
}

func (e *SyncFailure) Unwrap() error {
	return e.Err
}

// PhaseObserver is told about every phase a run enters
type PhaseObserver func(ctx context.Context, userID string, phase status.SyncPhase)

//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/fitness-sync-server/internal/sync Manager

// Manager runs a single user's sync
type Manager interface {
	// ShouldSync decides whether a sync should run for user at now
	ShouldSync(user *state.User, now time.Time, manual bool) Reason

	// PerformSync runs every phase once. It does not lock, retry or update
	// the user's status record.
	PerformSync(ctx context.Context, user *state.User) (*Result, error)
}

// Option configures the default manager
type Option func(*defaultSyncManager)

// WithSyncInterval sets the interval between scheduled syncs
func WithSyncInterval(interval time.Duration) Option {
	return func(m *defaultSyncManager) {
		m.interval = &DefaultAutomaticSyncChecker{Interval: interval}
	}
}

// WithInProgressTimeout sets how long a started run counts as in progress
func WithInProgressTimeout(timeout time.Duration) Option {
	return func(m *defaultSyncManager) {
		m.inProgress = &DefaultInProgressDetector{StaleAfter: timeout}
	}
}

// WithLookbackDays sets how far back a run without a cursor reads
func WithLookbackDays(days int) Option {
	return func(m *defaultSyncManager) {
		m.lookbackDays = days
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *defaultSyncManager) {
		m.now = now
	}
}

// WithPhaseObserver registers fn to be called on every phase transition
func WithPhaseObserver(fn PhaseObserver) Option {
	return func(m *defaultSyncManager) {
		m.observer = fn
	}
}

// WithTracerProvider enables tracing of sync phases
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *defaultSyncManager) {
		if tp != nil {
			m.tracer = tp.Tracer(defaultManagerTracerScope)
		}
	}
}

// WithSyncMetrics records written rows on metrics
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(m *defaultSyncManager) {
		m.metrics = metrics
	}
}

type defaultSyncManager struct {
	users      state.UserStore
	clients    fitbit.ClientFactory
	statistics sources.StatisticsSource
	activities sources.ActivitySource
	writer     writer.SyncWriter

	interval     AutomaticSyncChecker
	inProgress   InProgressDetector
	lookbackDays int
	now          func() time.Time
	observer     PhaseObserver
	tracer       trace.Tracer
	metrics      *telemetry.SyncMetrics
}

// NewDefaultSyncManager creates a Manager reading upstream data through
// clients and writing it through w
func NewDefaultSyncManager(
	users state.UserStore,
	clients fitbit.ClientFactory,
	statistics sources.StatisticsSource,
	activities sources.ActivitySource,
	w writer.SyncWriter,
	opts ...Option,
) Manager {
	m := &defaultSyncManager{
		users:        users,
		clients:      clients,
		statistics:   statistics,
		activities:   activities,
		writer:       w,
		interval:     &DefaultAutomaticSyncChecker{Interval: DefaultSyncInterval},
		inProgress:   &DefaultInProgressDetector{StaleAfter: DefaultInProgressTimeout},
		lookbackDays: DefaultLookbackDays,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShouldSync implements Manager
func (m *defaultSyncManager) ShouldSync(user *state.User, now time.Time, manual bool) Reason {
	if !user.HasCredentials() {
		return ReasonNoCredentials
	}
	if m.inProgress.IsInProgress(user, now) {
		return ReasonAlreadyInProgress
	}
	if manual {
		return ReasonManualRequested
	}
	if user.Sync.LastAttempt == nil {
		return ReasonNeverSynced
	}
	if due, next := m.interval.IsIntervalSyncNeeded(user, now); !due {
		slog.Debug("Sync not due yet", "user", user.ID, "next_sync", next)
		return ReasonUpToDate
	}
	return ReasonIntervalElapsed
}

// PerformSync implements Manager
func (m *defaultSyncManager) PerformSync(ctx context.Context, user *state.User) (*Result, error) {
	now := m.now().UTC()
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.PerformSync",
		trace.WithAttributes(
			otel.AttrUserID.String(user.ID),
			otel.AttrHasCursor.Bool(user.LastSyncTS != nil),
		),
	)
	defer span.End()

	m.enter(ctx, user.ID, status.SyncPhaseWindowing)
	window := sources.NewWindow(user.LastSyncTS, now, m.lookbackDays)
	span.SetAttributes(
		otel.AttrWindowFrom.String(window.From.Format(time.RFC3339)),
		otel.AttrWindowTo.String(window.To.Format(time.RFC3339)),
	)
	slog.Info("Sync window computed",
		"user", user.ID,
		"from", window.From,
		"to", window.To,
		"has_cursor", user.LastSyncTS != nil)

	if err := m.writer.Clear(ctx, user.ID, window.From, window.To); err != nil {
		syncErr := &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to clear calendar: %v", err),
			Phase:   status.SyncPhaseWindowing,
		}
		otel.RecordError(span, syncErr)
		return nil, syncErr
	}

	result := &Result{Window: window, Cursor: now}
	connector := m.clients.Connector(ctx, user)

	statsErr := m.runPhase(ctx, user.ID, status.SyncPhaseFetchingStatistics, func(ctx context.Context) error {
		client, err := connector.Client()
		if err != nil {
			return err
		}
		rows, err := m.statistics.Merge(ctx, client, user.ID, window, user.LastSyncTS)
		if err != nil {
			return err
		}
		m.enter(ctx, user.ID, status.SyncPhaseWritingStatistics)
		n, err := m.writer.WriteStatistics(ctx, user.ID, rows)
		if err != nil {
			return err
		}
		result.StatisticsRows = n
		m.metrics.RecordRowsWritten(ctx, metricPhaseStatistics, n)
		return nil
	})

	activitiesOK := false
	var activitiesErr error
	if statsErr == nil {
		activitiesErr = m.runPhase(ctx, user.ID, status.SyncPhaseFetchingActivities, func(ctx context.Context) error {
			client, err := connector.Client()
			if err != nil {
				return err
			}
			rows, err := m.activities.Fetch(ctx, client, window.From)
			if err != nil {
				return err
			}
			m.enter(ctx, user.ID, status.SyncPhaseWritingActivities)
			n, err := m.writer.WriteActivities(ctx, user.ID, rows)
			if err != nil {
				return err
			}
			result.ActivityRows = n
			m.metrics.RecordRowsWritten(ctx, metricPhaseActivities, n)
			return nil
		})
		activitiesOK = activitiesErr == nil
	} else {
		slog.Info("Skipping activities after statistics failure", "user", user.ID)
	}

	if statsErr != nil || activitiesErr != nil {
		failure := &SyncFailure{StatisticsOK: statsErr == nil, ActivitiesOK: activitiesOK, Err: statsErr}
		if statsErr == nil {
			failure.Err = activitiesErr
		}
		otel.RecordError(span, failure)
		return result, failure
	}

	m.enter(ctx, user.ID, status.SyncPhaseFinalizing)
	if err := m.users.SetLastSync(ctx, user.ID, now); err != nil {
		syncErr := &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to persist sync cursor: %v", err),
			Phase:   status.SyncPhaseFinalizing,
		}
		otel.RecordError(span, syncErr)
		return result, syncErr
	}

	span.SetAttributes(otel.AttrResultCount.Int(result.StatisticsRows + result.ActivityRows))
	slog.Info("Sync completed",
		"user", user.ID,
		"statistics_rows", result.StatisticsRows,
		"activity_rows", result.ActivityRows,
		"cursor", now)
	return result, nil
}

// runPhase runs fn as phase, converting a panic into an error. The
// returned error is only used for reporting.
func (m *defaultSyncManager) runPhase(
	ctx context.Context,
	userID string,
	phase status.SyncPhase,
	fn func(context.Context) error,
) (err error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync."+string(phase),
		trace.WithAttributes(otel.AttrUserID.String(userID), otel.AttrSyncPhase.String(string(phase))),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", phase, r)
			slog.Error("Sync phase panicked",
				"user", userID,
				"phase", phase,
				"error", err,
				"stack", string(debug.Stack()))
		}
		if err != nil {
			otel.RecordError(span, err)
		}
	}()

	m.enter(ctx, userID, phase)
	if err = fn(ctx); err != nil {
		slog.Error("Sync phase failed", "user", userID, "phase", phase, "error", err)
	}
	return err
}

func (m *defaultSyncManager) enter(ctx context.Context, userID string, phase status.SyncPhase) {
	slog.Info("Sync phase", "user", userID, "phase", phase)
	trace.SpanFromContext(ctx).AddEvent("phase", trace.WithAttributes(attribute.String("phase", string(phase))))
	if m.observer != nil {
		m.observer(ctx, userID, phase)
	}
}
