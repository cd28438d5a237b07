package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/oauth2"

	"github.com/stacklok/fitness-sync-server/internal/status"
)

const (
	usersDirName = "users"
	lockFileName = ".lock"
	userFileExt  = ".json"

	lockRetryDelay = 20 * time.Millisecond
)

// fileUserStore keeps one JSON document per user. Writes go through a temp
// file and a rename, and every read-modify-write holds an flock on the users
// directory so that a CLI invocation and a running server can share it.
type fileUserStore struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileUserStore creates a file-based user store rooted at dataDir
func NewFileUserStore(dataDir string) (UserStore, error) {
	dir := filepath.Join(dataDir, usersDirName)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create users directory: %w", err)
	}
	return &fileUserStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

// ValidateUserID rejects IDs that are empty or unsafe to use as a file name
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user ID is required")
	}
	if !filepath.IsLocal(id) || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("invalid user ID %q", id)
	}
	return nil
}

func (f *fileUserStore) path(id string) string {
	return filepath.Join(f.dir, id+userFileExt)
}

func (f *fileUserStore) withLock(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock user store: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock user store")
	}
	defer func() { _ = f.lock.Unlock() }()

	return fn()
}

func (f *fileUserStore) read(id string) (*User, error) {
	// #nosec G304 -- path is built from the store directory and a validated ID
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to read user %s: %w", id, err)
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %w", id, err)
	}
	return &user, nil
}

func (f *fileUserStore) write(user *User) error {
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}

	filePath := f.path(user.ID)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary user file %s: %w", user.ID, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename user file %s: %w", user.ID, err)
	}
	return nil
}

// mutate loads the user, applies fn and writes the result back when fn reports a change
func (f *fileUserStore) mutate(ctx context.Context, id string, fn func(*User) bool) (bool, error) {
	if err := ValidateUserID(id); err != nil {
		return false, err
	}
	var changed bool
	err := f.withLock(ctx, func() error {
		user, err := f.read(id)
		if err != nil {
			return err
		}
		if changed = fn(user); !changed {
			return nil
		}
		return f.write(user)
	})
	return changed, err
}

func (f *fileUserStore) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := f.withLock(ctx, func() error {
		entries, err := os.ReadDir(f.dir)
		if err != nil {
			return fmt.Errorf("failed to read users directory: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != userFileExt {
				continue
			}
			user, err := f.read(strings.TrimSuffix(name, userFileExt))
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(users, func(a, b *User) int { return strings.Compare(a.ID, b.ID) })
	return users, nil
}

func (f *fileUserStore) GetUser(ctx context.Context, id string) (*User, error) {
	if err := ValidateUserID(id); err != nil {
		return nil, err
	}
	var user *User
	err := f.withLock(ctx, func() error {
		var err error
		user, err = f.read(id)
		return err
	})
	return user, err
}

func (f *fileUserStore) SaveUser(ctx context.Context, user *User) error {
	if err := ValidateUserID(user.ID); err != nil {
		return err
	}
	return f.withLock(ctx, func() error {
		return f.write(user)
	})
}

func (f *fileUserStore) UpdateTokens(ctx context.Context, id string, token *oauth2.Token) error {
	_, err := f.mutate(ctx, id, func(u *User) bool {
		u.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			u.RefreshToken = token.RefreshToken
		}
		u.TokenExpiry = token.Expiry
		return true
	})
	return err
}

func (f *fileUserStore) SetLastSync(ctx context.Context, id string, ts time.Time) error {
	_, err := f.mutate(ctx, id, func(u *User) bool {
		utc := ts.UTC()
		u.LastSyncTS = &utc
		return true
	})
	return err
}

func (f *fileUserStore) UpdateSyncStatus(ctx context.Context, id string, syncStatus *status.SyncStatus) error {
	_, err := f.mutate(ctx, id, func(u *User) bool {
		u.Sync = *syncStatus
		return true
	})
	return err
}

func (f *fileUserStore) UpdateStatusAtomically(
	ctx context.Context,
	id string,
	testAndUpdateFn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	return f.mutate(ctx, id, func(u *User) bool {
		return testAndUpdateFn(&u.Sync)
	})
}
