package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"github.com/stacklok/fitness-sync-server/internal/status"
)

const userColumns = `id, name, access_token, refresh_token, token_expiry, last_sync_ts,
    sync_phase, sync_message, last_attempt, attempt_count`

const (
	listUsersQuery = `SELECT ` + userColumns + ` FROM sync_users ORDER BY id`

	getUserQuery = `SELECT ` + userColumns + ` FROM sync_users WHERE id = $1`

	getUserForUpdateQuery = getUserQuery + ` FOR UPDATE`

	upsertUserQuery = `
INSERT INTO sync_users (` + userColumns + `, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    access_token = EXCLUDED.access_token,
    refresh_token = EXCLUDED.refresh_token,
    token_expiry = EXCLUDED.token_expiry,
    last_sync_ts = EXCLUDED.last_sync_ts,
    sync_phase = EXCLUDED.sync_phase,
    sync_message = EXCLUDED.sync_message,
    last_attempt = EXCLUDED.last_attempt,
    attempt_count = EXCLUDED.attempt_count,
    updated_at = now()`

	updateTokensQuery = `
UPDATE sync_users SET
    access_token = $2,
    refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
    token_expiry = $4,
    updated_at = now()
WHERE id = $1`

	setLastSyncQuery = `UPDATE sync_users SET last_sync_ts = $2, updated_at = now() WHERE id = $1`

	updateSyncStatusQuery = `
UPDATE sync_users SET
    sync_phase = $2,
    sync_message = $3,
    last_attempt = $4,
    attempt_count = $5,
    updated_at = now()
WHERE id = $1`
)

type dbUserStore struct {
	pool *pgxpool.Pool
}

// NewDBUserStore creates a new database-backed user store
func NewDBUserStore(pool *pgxpool.Pool) UserStore {
	return &dbUserStore{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u       User
		expiry  *time.Time
		phase   string
		attempt int32
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.AccessToken, &u.RefreshToken, &expiry, &u.LastSyncTS,
		&phase, &u.Sync.Message, &u.Sync.LastAttempt, &attempt,
	)
	if err != nil {
		return nil, err
	}
	if expiry != nil {
		u.TokenExpiry = *expiry
	}
	u.Sync.Phase = status.SyncPhase(phase)
	u.Sync.AttemptCount = int(attempt)
	return &u, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (d *dbUserStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := d.pool.Query(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *dbUserStore) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(d.pool.QueryRow(ctx, getUserQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return u, nil
}

func (d *dbUserStore) SaveUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	phase := u.Sync.Phase
	if phase == "" {
		phase = status.SyncPhaseIdle
	}
	_, err := d.pool.Exec(ctx, upsertUserQuery,
		u.ID, u.Name, u.AccessToken, u.RefreshToken, nullableTime(u.TokenExpiry), u.LastSyncTS,
		string(phase), u.Sync.Message, u.Sync.LastAttempt, int32(u.Sync.AttemptCount))
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", u.ID, err)
	}
	return nil
}

// execOne runs an update that must touch exactly one user row
func (d *dbUserStore) execOne(ctx context.Context, id, query string, args ...any) error {
	tag, err := d.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (d *dbUserStore) UpdateTokens(ctx context.Context, id string, token *oauth2.Token) error {
	err := d.execOne(ctx, id, updateTokensQuery, token.AccessToken, token.RefreshToken, nullableTime(token.Expiry))
	if err != nil {
		return fmt.Errorf("failed to update tokens for user %s: %w", id, err)
	}
	return nil
}

func (d *dbUserStore) SetLastSync(ctx context.Context, id string, ts time.Time) error {
	if err := d.execOne(ctx, id, setLastSyncQuery, ts.UTC()); err != nil {
		return fmt.Errorf("failed to set last sync for user %s: %w", id, err)
	}
	return nil
}

func (d *dbUserStore) UpdateSyncStatus(ctx context.Context, id string, s *status.SyncStatus) error {
	err := d.execOne(ctx, id, updateSyncStatusQuery, string(s.Phase), s.Message, s.LastAttempt, int32(s.AttemptCount))
	if err != nil {
		return fmt.Errorf("failed to update sync status for user %s: %w", id, err)
	}
	return nil
}

func (d *dbUserStore) UpdateStatusAtomically(
	ctx context.Context,
	id string,
	testAndUpdateFn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := scanUser(tx.QueryRow(ctx, getUserForUpdateQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, err
	}

	if !testAndUpdateFn(&u.Sync) {
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, updateSyncStatusQuery,
		id, string(u.Sync.Phase), u.Sync.Message, u.Sync.LastAttempt, int32(u.Sync.AttemptCount))
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
