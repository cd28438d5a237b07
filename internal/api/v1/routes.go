// Package v1 provides the sync trigger and status API.
package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/fitness-sync-server/internal/api/common"
	"github.com/stacklok/fitness-sync-server/internal/status"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
)

//go:generate mockgen -destination=mocks/mock_routes.go -package=mocks -source=routes.go SyncTrigger,UserReader

// SyncTrigger starts detached sync runs
type SyncTrigger interface {
	TriggerSync(userID string) error
}

// UserReader loads users for status reporting
type UserReader interface {
	GetUser(ctx context.Context, id string) (*state.User, error)
}

// SyncAcceptedResponse is returned when a sync has been triggered
type SyncAcceptedResponse struct {
	UserID string `json:"userId"`
	Status string `json:"status" example:"accepted"`
}

// SyncStatusResponse reports a user's sync state. Credentials are never included.
type SyncStatusResponse struct {
	UserID     string            `json:"userId"`
	LastSyncTS *time.Time        `json:"lastSyncTs,omitempty"`
	Sync       status.SyncStatus `json:"sync"`
}

// Routes holds the handlers' dependencies
type Routes struct {
	trigger SyncTrigger
	users   UserReader
}

// Router creates the v1 router
func Router(trigger SyncTrigger, users UserReader) http.Handler {
	routes := &Routes{trigger: trigger, users: users}

	r := chi.NewRouter()
	r.Post("/users/{userID}/sync", routes.triggerSync)
	r.Get("/users/{userID}/sync", routes.getSyncStatus)
	return r
}

// triggerSync handles POST /v1/users/{userID}/sync
//
// @Summary		Trigger a sync
// @Description	Start a background sync for the user. The outcome is not reported to the caller.
// @Tags			sync
// @Produce		json
// @Param			userID	path		string	true	"User ID"
// @Success		202		{object}	SyncAcceptedResponse
// @Failure		400		{object}	map[string]string
// @Router			/v1/users/{userID}/sync [post]
func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		common.WriteErrorResponse(w, "user ID is required", http.StatusBadRequest)
		return
	}

	if err := rr.trigger.TriggerSync(userID); err != nil {
		slog.Error("Failed to trigger sync", "user", userID, "error", err)
		common.WriteErrorResponse(w, "failed to trigger sync", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, SyncAcceptedResponse{UserID: userID, Status: "accepted"}, http.StatusAccepted)
}

// getSyncStatus handles GET /v1/users/{userID}/sync
//
// @Summary		Get sync status
// @Description	Get the cursor and status of the user's most recent sync
// @Tags			sync
// @Produce		json
// @Param			userID	path		string	true	"User ID"
// @Success		200		{object}	SyncStatusResponse
// @Failure		400		{object}	map[string]string
// @Failure		404		{object}	map[string]string
// @Router			/v1/users/{userID}/sync [get]
func (rr *Routes) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		common.WriteErrorResponse(w, "user ID is required", http.StatusBadRequest)
		return
	}

	user, err := rr.users.GetUser(r.Context(), userID)
	if errors.Is(err, state.ErrUserNotFound) {
		common.WriteErrorResponse(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to load user", "user", userID, "error", err)
		common.WriteErrorResponse(w, "failed to load sync status", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, SyncStatusResponse{
		UserID:     user.ID,
		LastSyncTS: user.LastSyncTS,
		Sync:       user.Sync,
	}, http.StatusOK)
}
