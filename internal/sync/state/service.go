// Package state contains the user records the sync server persists: upstream
// credentials, the incremental sync cursor and the status of the latest run.
package state

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"github.com/stacklok/fitness-sync-server/internal/status"
)

// ErrUserNotFound is returned when a user can't be found.
var ErrUserNotFound = errors.New("user not found")

// User is a person whose fitness data is synced into the calendar store
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	TokenExpiry  time.Time `json:"tokenExpiry,omitempty"`

	// LastSyncTS is the start time of the last fully successful run.
	// Nil until the first success.
	LastSyncTS *time.Time `json:"lastSyncTs,omitempty"`

	// Sync is the status of the most recent run
	Sync status.SyncStatus `json:"sync"`
}

// Token returns the user's upstream credentials
func (u *User) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       u.TokenExpiry,
	}
}

// HasCredentials reports whether the user can be synced
func (u *User) HasCredentials() bool {
	return u.AccessToken != "" || u.RefreshToken != ""
}

// UserStore persists users and their sync state.
//
//go:generate mockgen -destination=mocks/mock_user_store.go -package=mocks github.com/stacklok/fitness-sync-server/internal/sync/state UserStore
type UserStore interface {
	// ListUsers returns every user ordered by ID.
	ListUsers(ctx context.Context) ([]*User, error)
	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)
	// SaveUser creates or replaces the user record.
	SaveUser(ctx context.Context, user *User) error
	// UpdateTokens stores refreshed upstream credentials.
	UpdateTokens(ctx context.Context, id string, token *oauth2.Token) error
	// SetLastSync advances the user's sync cursor.
	SetLastSync(ctx context.Context, id string, ts time.Time) error
	// UpdateSyncStatus overrides the status of the user's latest run.
	UpdateSyncStatus(ctx context.Context, id string, syncStatus *status.SyncStatus) error
	// UpdateStatusAtomically fetches the user's sync status, applies
	// testAndUpdateFn to it and stores the result if the function reports a
	// change, all as a single atomic action. It returns whether the status was
	// modified.
	UpdateStatusAtomically(
		ctx context.Context,
		id string,
		testAndUpdateFn func(syncStatus *status.SyncStatus) bool,
	) (bool, error)
}
