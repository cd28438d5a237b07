package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/fitness-sync-server/internal/api"
	"github.com/stacklok/fitness-sync-server/internal/app/storage"
	"github.com/stacklok/fitness-sync-server/internal/config"
	"github.com/stacklok/fitness-sync-server/internal/events"
	"github.com/stacklok/fitness-sync-server/internal/fitbit"
	"github.com/stacklok/fitness-sync-server/internal/snapshot"
	"github.com/stacklok/fitness-sync-server/internal/sources"
	pkgsync "github.com/stacklok/fitness-sync-server/internal/sync"
	"github.com/stacklok/fitness-sync-server/internal/sync/coordinator"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
	"github.com/stacklok/fitness-sync-server/internal/sync/writer"
	"github.com/stacklok/fitness-sync-server/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// AppOption configures the application builder
//
//nolint:revive // This name is fine
type AppOption func(*appConfig) error

// appConfig collects the builder inputs. Component overrides exist mainly
// for tests.
type appConfig struct {
	config *config.Config

	// Optional component overrides
	storageFactory storage.Factory
	syncManager    pkgsync.Manager
	clientFactory  fitbit.ClientFactory
	publisher      events.Publisher

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...AppOption) (*appConfig, error) {
	cfg := &appConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return cfg, nil
}

// NewFitnessSyncApp builds the application from its options
func NewFitnessSyncApp(ctx context.Context, opts ...AppOption) (*FitnessSyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.storageFactory == nil {
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			cfg.storageFactory.Cleanup()
		}
	}()

	components, err := buildSyncComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, components)
	if err != nil {
		_ = components.Publisher.Close()
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	return &FitnessSyncApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: func() {
			cfg.storageFactory.Cleanup()
			cancel()
		},
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) AppOption {
	return func(cfg *appConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) AppOption {
	return func(cfg *appConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) AppOption {
	return func(cfg *appConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory injects the storage factory
func WithStorageFactory(f storage.Factory) AppOption {
	return func(cfg *appConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithSyncManager injects the sync manager
func WithSyncManager(sm pkgsync.Manager) AppOption {
	return func(cfg *appConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithClientFactory injects the upstream client factory
func WithClientFactory(f fitbit.ClientFactory) AppOption {
	return func(cfg *appConfig) error {
		cfg.clientFactory = f
		return nil
	}
}

// WithPublisher injects the sync event publisher
func WithPublisher(p events.Publisher) AppOption {
	return func(cfg *appConfig) error {
		cfg.publisher = p
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP and sync metrics
func WithMeterProvider(mp metric.MeterProvider) AppOption {
	return func(cfg *appConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for HTTP and sync spans
func WithTracerProvider(tp trace.TracerProvider) AppOption {
	return func(cfg *appConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler mounts h at /metrics
func WithMetricsHandler(h http.Handler) AppOption {
	return func(cfg *appConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildSyncComponents wires stores, sources, writer, manager and coordinator
func buildSyncComponents(ctx context.Context, b *appConfig) (*AppComponents, error) {
	slog.Info("Initializing sync components")

	users, err := b.storageFactory.CreateUserStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create user store: %w", err)
	}
	locker, err := b.storageFactory.CreateLocker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create locker: %w", err)
	}

	syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	if syncMetrics != nil {
		slog.Info("Sync metrics enabled")
	}

	if b.syncManager == nil {
		b.syncManager, err = buildSyncManager(ctx, b, users, syncMetrics)
		if err != nil {
			return nil, err
		}
	}

	if b.publisher == nil {
		b.publisher = events.New(&b.config.Events)
	}

	syncCoordinator := coordinator.New(b.syncManager, users, locker, &b.config.Sync,
		coordinator.WithSyncMetrics(syncMetrics),
		coordinator.WithPublisher(b.publisher),
		coordinator.WithTracerProvider(b.tracerProvider),
		coordinator.WithBaseContext(ctx),
	)
	slog.Info("Sync components initialized successfully")

	return &AppComponents{
		SyncCoordinator: syncCoordinator,
		UserStore:       users,
		Publisher:       b.publisher,
		StorageFactory:  b.storageFactory,
	}, nil
}

func buildSyncManager(
	ctx context.Context,
	b *appConfig,
	users state.UserStore,
	syncMetrics *telemetry.SyncMetrics,
) (pkgsync.Manager, error) {
	calendar, err := b.storageFactory.CreateCalendarStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar store: %w", err)
	}

	sink, err := snapshot.New(ctx, b.config.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot sink: %w", err)
	}

	if b.clientFactory == nil {
		upstream := &b.config.Upstream
		secret, err := upstream.GetClientSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to read upstream client secret: %w", err)
		}
		b.clientFactory = fitbit.NewOAuthClientFactory(
			upstream.GetBaseURL(),
			fitbit.NewOAuthConfig(upstream.ClientID, secret, upstream.GetTokenURL()),
			users,
			upstream.GetTimeout(),
		)
	}

	statistics := sources.NewStatisticsMerger(
		sources.WithSnapshotSink(sink),
		sources.WithResourceFailureHook(func(resource string) {
			syncMetrics.RecordResourceFailure(ctx, resource)
		}),
	)

	syncCfg := &b.config.Sync
	return pkgsync.NewDefaultSyncManager(
		users,
		b.clientFactory,
		statistics,
		sources.NewActivityFetcher(),
		writer.NewSyncWriter(b.config, calendar),
		pkgsync.WithSyncInterval(syncCfg.GetInterval()),
		pkgsync.WithInProgressTimeout(syncCfg.GetLockTTL()),
		pkgsync.WithLookbackDays(syncCfg.GetLookbackDays()),
		pkgsync.WithPhaseObserver(coordinator.StatusPhaseObserver(users)),
		pkgsync.WithTracerProvider(b.tracerProvider),
		pkgsync.WithSyncMetrics(syncMetrics),
	), nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *appConfig, components *AppComponents) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Instrumentation wraps everything else so rejected requests are seen too
	if b.meterProvider != nil || b.tracerProvider != nil {
		instrumentation, err := telemetry.NewHTTPInstrumentation(b.tracerProvider, b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP instrumentation: %w", err)
		}
		b.middlewares = append([]func(http.Handler) http.Handler{instrumentation.Middleware}, b.middlewares...)
		slog.Info("HTTP instrumentation enabled")
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
		api.WithReadinessCheck(components.StorageFactory.CheckReadiness),
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	router := api.NewServer(components.SyncCoordinator, components.UserStore, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
