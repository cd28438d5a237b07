package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"

	storagemocks "github.com/stacklok/fitness-sync-server/internal/app/storage/mocks"
	"github.com/stacklok/fitness-sync-server/internal/config"
	"github.com/stacklok/fitness-sync-server/internal/events"
	fitbitmocks "github.com/stacklok/fitness-sync-server/internal/fitbit/mocks"
	"github.com/stacklok/fitness-sync-server/internal/lock"
	syncmocks "github.com/stacklok/fitness-sync-server/internal/sync/mocks"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
	statemocks "github.com/stacklok/fitness-sync-server/internal/sync/state/mocks"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage:  config.StorageConfig{Type: config.StorageTypeFile, DataDir: t.TempDir()},
		Snapshot: config.SnapshotConfig{Type: config.SnapshotTypeNone},
		Upstream: config.UpstreamConfig{ClientID: "client"},
	}
}

func TestBaseConfig(t *testing.T) {
	t.Parallel()

	_, err := baseConfig()
	require.ErrorContains(t, err, "config cannot be nil")

	cfg, err := baseConfig(WithConfig(&config.Config{}))
	require.NoError(t, err)
	assert.Equal(t, defaultHTTPAddress, cfg.address)
	assert.Equal(t, defaultRequestTimeout, cfg.requestTimeout)
}

func TestWithAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "valid address", address: ":9999", want: ":9999"},
		{name: "valid address with host", address: "127.0.0.1:9999", want: "127.0.0.1:9999"},
		{name: "localhost", address: "localhost:9999", want: "localhost:9999"},
		{name: "empty address", address: "", wantErr: true},
		{name: "empty port", address: ":", wantErr: true},
		{name: "missing port", address: "127.0.0.1", wantErr: true},
		{name: "port out of range", address: "localhost:999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &appConfig{}
			err := WithAddress(tt.address)(cfg)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.address)
		})
	}
}

func TestNewFitnessSyncApp_FileStorage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cfg := fileConfig(t)

	app, err := NewFitnessSyncApp(context.Background(),
		WithConfig(cfg),
		WithAddress("127.0.0.1:0"),
		WithClientFactory(fitbitmocks.NewMockClientFactory(ctrl)),
		WithPublisher(events.NopPublisher{}),
		WithMeterProvider(noop.NewMeterProvider()),
		WithTracerProvider(tracenoop.NewTracerProvider()),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("fitsync_sync_duration_seconds 0"))
		})),
	)
	require.NoError(t, err)
	defer app.Close()

	assert.Same(t, cfg, app.GetConfig())
	require.NotNil(t, app.components.UserStore)

	require.NoError(t, app.components.UserStore.SaveUser(context.Background(),
		&state.User{ID: "u1", AccessToken: "a", RefreshToken: "r"}))

	handler := app.GetHTTPServer().Handler
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/readiness", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/users/u1/sync", http.StatusOK},
		{http.MethodGet, "/v1/users/missing/sync", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestNewFitnessSyncApp_SyncNowUsesInjectedManager(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cfg := fileConfig(t)
	cfg.Sync.Retry.MaxAttempts = 1
	manager := syncmocks.NewMockManager(ctrl)

	app, err := NewFitnessSyncApp(context.Background(),
		WithConfig(cfg),
		WithSyncManager(manager),
		WithPublisher(events.NopPublisher{}),
	)
	require.NoError(t, err)
	defer app.Close()

	err = app.SyncNow(context.Background(), "missing")
	require.ErrorIs(t, err, state.ErrUserNotFound)
}

func TestNewFitnessSyncApp_MissingClientSecret(t *testing.T) {
	t.Setenv(config.ClientSecretEnv, "")

	_, err := NewFitnessSyncApp(context.Background(),
		WithConfig(fileConfig(t)),
		WithPublisher(events.NopPublisher{}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read upstream client secret")
}

func TestNewFitnessSyncApp_BuildsOAuthClientFactory(t *testing.T) {
	t.Setenv(config.ClientSecretEnv, "s3cret")

	app, err := NewFitnessSyncApp(context.Background(),
		WithConfig(fileConfig(t)),
		WithPublisher(events.NopPublisher{}),
	)
	require.NoError(t, err)
	app.Close()
}

func TestNewFitnessSyncApp_StorageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(f *storagemocks.MockFactory, ctrl *gomock.Controller)
		wantErr string
	}{
		{
			name: "user store",
			setup: func(f *storagemocks.MockFactory, _ *gomock.Controller) {
				f.EXPECT().CreateUserStore(gomock.Any()).Return(nil, errors.New("disk full"))
			},
			wantErr: "failed to create user store",
		},
		{
			name: "locker",
			setup: func(f *storagemocks.MockFactory, ctrl *gomock.Controller) {
				f.EXPECT().CreateUserStore(gomock.Any()).Return(statemocks.NewMockUserStore(ctrl), nil)
				f.EXPECT().CreateLocker(gomock.Any()).Return(nil, errors.New("no table"))
			},
			wantErr: "failed to create locker",
		},
		{
			name: "calendar store",
			setup: func(f *storagemocks.MockFactory, ctrl *gomock.Controller) {
				f.EXPECT().CreateUserStore(gomock.Any()).Return(statemocks.NewMockUserStore(ctrl), nil)
				f.EXPECT().CreateLocker(gomock.Any()).Return(lock.NewMemoryLocker(), nil)
				f.EXPECT().CreateCalendarStore(gomock.Any()).Return(nil, errors.New("no table"))
			},
			wantErr: "failed to create calendar store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			factory := storagemocks.NewMockFactory(ctrl)
			tt.setup(factory, ctrl)
			factory.EXPECT().Cleanup()

			_, err := NewFitnessSyncApp(context.Background(),
				WithConfig(&config.Config{}),
				WithStorageFactory(factory),
			)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildHTTPServer_PrependsTelemetryMiddlewares(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	var seen []string
	custom := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	b, err := baseConfig(
		WithConfig(&config.Config{}),
		WithMiddlewares(custom),
		WithMeterProvider(noop.NewMeterProvider()),
		WithTracerProvider(tracenoop.NewTracerProvider()),
	)
	require.NoError(t, err)

	server, err := buildHTTPServer(b, &AppComponents{
		SyncCoordinator: newFakeCoordinator(),
		UserStore:       statemocks.NewMockUserStore(ctrl),
		StorageFactory:  storagemocks.NewMockFactory(ctrl),
	})
	require.NoError(t, err)
	require.Len(t, b.middlewares, 2)

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/health"}, seen)
}
