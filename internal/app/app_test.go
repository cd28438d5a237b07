package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	storagemocks "github.com/stacklok/fitness-sync-server/internal/app/storage/mocks"
	"github.com/stacklok/fitness-sync-server/internal/config"
	eventmocks "github.com/stacklok/fitness-sync-server/internal/events/mocks"
	statemocks "github.com/stacklok/fitness-sync-server/internal/sync/state/mocks"
)

// fakeCoordinator implements coordinator.Coordinator for lifecycle tests
type fakeCoordinator struct {
	mu          sync.Mutex
	startCalled bool
	stopCalled  bool
	synced      []string
	syncErr     error
	stop        chan struct{}
	runs        sync.WaitGroup
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{stop: make(chan struct{})}
}

func (f *fakeCoordinator) Start(ctx context.Context) error {
	f.mu.Lock()
	f.startCalled = true
	f.mu.Unlock()
	select {
	case <-ctx.Done():
	case <-f.stop:
	}
	return nil
}

func (f *fakeCoordinator) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopCalled {
		close(f.stop)
	}
	f.stopCalled = true
	return nil
}

func (*fakeCoordinator) TriggerSync(string) error {
	return nil
}

func (f *fakeCoordinator) SyncNow(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, userID)
	return f.syncErr
}

func (f *fakeCoordinator) Wait() {
	f.runs.Wait()
}

func (f *fakeCoordinator) wasStartCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalled
}

func (f *fakeCoordinator) wasStopCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalled
}

type testApp struct {
	app       *FitnessSyncApp
	coord     *fakeCoordinator
	factory   *storagemocks.MockFactory
	publisher *eventmocks.MockPublisher
	users     *statemocks.MockUserStore
}

// createTestApp builds a FitnessSyncApp around fakes without going through
// NewFitnessSyncApp
func createTestApp(t *testing.T, ctrl *gomock.Controller, addr string) *testApp {
	t.Helper()

	ta := &testApp{
		coord:     newFakeCoordinator(),
		factory:   storagemocks.NewMockFactory(ctrl),
		publisher: eventmocks.NewMockPublisher(ctrl),
		users:     statemocks.NewMockUserStore(ctrl),
	}
	components := &AppComponents{
		SyncCoordinator: ta.coord,
		UserStore:       ta.users,
		Publisher:       ta.publisher,
		StorageFactory:  ta.factory,
	}

	appCfg, err := baseConfig(WithConfig(&config.Config{}), WithAddress(addr))
	require.NoError(t, err)
	server, err := buildHTTPServer(appCfg, components)
	require.NoError(t, err)

	appCtx, cancel := context.WithCancel(context.Background())
	ta.app = &FitnessSyncApp{
		config:     appCfg.config,
		components: components,
		httpServer: server,
		ctx:        appCtx,
		cancelFunc: func() {
			ta.factory.Cleanup()
			cancel()
		},
	}
	return ta
}

func TestFitnessSyncApp_StartStop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ta := createTestApp(t, ctrl, "127.0.0.1:0")
	ta.publisher.EXPECT().Close().Return(nil)
	ta.factory.EXPECT().Cleanup()

	errChan := make(chan error, 1)
	go func() {
		errChan <- ta.app.Start()
	}()

	require.Eventually(t, ta.coord.wasStartCalled, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ta.app.Stop(5*time.Second))
	assert.True(t, ta.coord.wasStopCalled())

	select {
	case err := <-errChan:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestFitnessSyncApp_StartFailsOnBusyPort(t *testing.T) {
	t.Parallel()

	busy := httptest.NewServer(http.NotFoundHandler())
	defer busy.Close()

	ctrl := gomock.NewController(t)
	ta := createTestApp(t, ctrl, busy.Listener.Addr().String())

	err := ta.app.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP server failed")

	ta.publisher.EXPECT().Close().Return(nil)
	ta.factory.EXPECT().Cleanup()
	ta.app.Close()
}

func TestFitnessSyncApp_StopDoesNotWaitPastTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ta := createTestApp(t, ctrl, "127.0.0.1:0")
	ta.publisher.EXPECT().Close().Return(errors.New("broker gone"))
	ta.factory.EXPECT().Cleanup()

	ta.coord.runs.Add(1)
	defer ta.coord.runs.Done()

	start := time.Now()
	require.NoError(t, ta.app.Stop(50*time.Millisecond))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFitnessSyncApp_CloseOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ta := createTestApp(t, ctrl, "127.0.0.1:0")
	ta.publisher.EXPECT().Close().Return(nil).Times(1)
	ta.factory.EXPECT().Cleanup().Times(1)

	ta.app.Close()
	ta.app.Close()
}

func TestFitnessSyncApp_SyncNow(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ta := createTestApp(t, ctrl, "127.0.0.1:0")

	require.NoError(t, ta.app.SyncNow(context.Background(), "u1"))

	ta.coord.syncErr = errors.New("sync failed after 3 attempts")
	require.ErrorContains(t, ta.app.SyncNow(context.Background(), "u2"), "3 attempts")
	assert.Equal(t, []string{"u1", "u2"}, ta.coord.synced)
}

func TestFitnessSyncApp_ReadinessUsesStorage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ta := createTestApp(t, ctrl, "127.0.0.1:0")

	gomock.InOrder(
		ta.factory.EXPECT().CheckReadiness(gomock.Any()).Return(nil),
		ta.factory.EXPECT().CheckReadiness(gomock.Any()).Return(errors.New("database not reachable")),
	)

	handler := ta.app.GetHTTPServer().Handler

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
