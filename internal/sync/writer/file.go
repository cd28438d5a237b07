package writer

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
	"github.com/google/uuid"

	"github.com/stacklok/fitness-sync-server/internal/report"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
)

const (
	calendarDirName  = "calendar"
	calendarFileExt  = ".json"
	calendarLockName = ".lock"

	lockRetryDelay = 20 * time.Millisecond
)

// storedEntry is the on-disk form of a calendar entry
type storedEntry struct {
	ID        string          `json:"id"`
	FieldSlug string          `json:"field_slug"`
	Date      time.Time       `json:"date"`
	Key       string          `json:"key,omitempty"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data"`
	Report    []report.Row    `json:"report"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (e *storedEntry) matches(other *storedEntry) bool {
	return e.FieldSlug == other.FieldSlug && e.Date.Equal(other.Date) && e.Key == other.Key
}

// fileCalendarStore keeps one JSON document per user holding that user's
// entries ordered by date. Writers share an flock on the calendar directory.
type fileCalendarStore struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
	now  func() time.Time
}

// NewFileCalendarStore creates a file-based calendar store rooted at dataDir
func NewFileCalendarStore(dataDir string) (CalendarStore, error) {
	dir := filepath.Join(dataDir, calendarDirName)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create calendar directory: %w", err)
	}
	return &fileCalendarStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, calendarLockName)),
		now:  time.Now,
	}, nil
}

func (f *fileCalendarStore) path(userID string) string {
	return filepath.Join(f.dir, userID+calendarFileExt)
}

func (f *fileCalendarStore) update(ctx context.Context, userID string, fn func([]storedEntry) []storedEntry) error {
	if err := state.ValidateUserID(userID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock calendar store: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock calendar store")
	}
	defer func() { _ = f.lock.Unlock() }()

	entries, err := f.read(userID)
	if err != nil {
		return err
	}
	return f.write(userID, fn(entries))
}

func (f *fileCalendarStore) read(userID string) ([]storedEntry, error) {
	// #nosec G304 -- path is built from the store directory and a validated ID
	data, err := os.ReadFile(f.path(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read calendar of %s: %w", userID, err)
	}
	var entries []storedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal calendar of %s: %w", userID, err)
	}
	return entries, nil
}

func (f *fileCalendarStore) write(userID string, entries []storedEntry) error {
	slices.SortStableFunc(entries, func(a, b storedEntry) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.FieldSlug, b.FieldSlug)
	})
	if entries == nil {
		entries = []storedEntry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calendar of %s: %w", userID, err)
	}

	filePath := f.path(userID)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary calendar file %s: %w", userID, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename calendar file %s: %w", userID, err)
	}
	return nil
}

func (f *fileCalendarStore) ClearCalendar(ctx context.Context, userID string, from, to time.Time) error {
	return f.update(ctx, userID, func(entries []storedEntry) []storedEntry {
		return slices.DeleteFunc(entries, func(e storedEntry) bool {
			return !e.Date.Before(from) && !e.Date.After(to)
		})
	})
}

func (f *fileCalendarStore) AddRow(ctx context.Context, userID string, entry *CalendarEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal entry data: %w", err)
	}
	stored := storedEntry{
		FieldSlug: entry.FieldSlug,
		Date:      entry.Date.UTC(),
		Key:       entry.Key,
		Title:     entry.Title,
		Data:      data,
		Report:    entry.Report,
		UpdatedAt: f.now().UTC(),
	}

	return f.update(ctx, userID, func(entries []storedEntry) []storedEntry {
		i := slices.IndexFunc(entries, func(e storedEntry) bool {
			return e.matches(&stored)
		})
		if i >= 0 {
			stored.ID = entries[i].ID
			entries[i] = stored
			return entries
		}
		stored.ID = uuid.NewString()
		return append(entries, stored)
	})
}

// list returns the stored entries of a user ordered by date
func (f *fileCalendarStore) list(userID string) ([]storedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(userID)
}
