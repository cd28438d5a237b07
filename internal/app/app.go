// Package app provides application lifecycle management for the sync server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/stacklok/fitness-sync-server/internal/config"
)

// FitnessSyncApp encapsulates all components needed to run the sync server.
// It provides lifecycle management and graceful shutdown capabilities.
type FitnessSyncApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// Start starts the scheduler in the background and serves HTTP.
// It blocks until the HTTP server stops or fails.
func (app *FitnessSyncApp) Start() error {
	go func() {
		if err := app.components.SyncCoordinator.Start(app.ctx); err != nil {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop stops scheduling, shuts the HTTP server down and waits up to timeout
// for in-flight sync runs before releasing resources
func (app *FitnessSyncApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.SyncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var shutdownErr error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server forced to shutdown: %w", err)
	}

	if !app.waitForRuns(shutdownCtx) {
		slog.Warn("Sync runs still in progress at shutdown", "timeout", timeout)
	}

	app.Close()

	if shutdownErr != nil {
		return shutdownErr
	}
	slog.Info("Server shutdown complete")
	return nil
}

// SyncNow runs a sync for userID in the foreground
func (app *FitnessSyncApp) SyncNow(ctx context.Context, userID string) error {
	return app.components.SyncCoordinator.SyncNow(ctx, userID)
}

// Close releases the publisher and storage. It is called by Stop and by
// callers that never started the server.
func (app *FitnessSyncApp) Close() {
	app.closeOnce.Do(func() {
		if app.components.Publisher != nil {
			if err := app.components.Publisher.Close(); err != nil {
				slog.Warn("Failed to close event publisher", "error", err)
			}
		}
		if app.cancelFunc != nil {
			app.cancelFunc()
		}
	})
}

// waitForRuns reports whether all triggered runs finished before ctx ended
func (app *FitnessSyncApp) waitForRuns(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		app.components.SyncCoordinator.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// GetConfig returns the application configuration
func (app *FitnessSyncApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *FitnessSyncApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
