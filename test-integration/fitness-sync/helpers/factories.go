package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stacklok/fitness-sync-server/internal/sync/state"
)

// CalendarEntry is the stored form of a calendar entry as read back by tests
type CalendarEntry struct {
	FieldSlug string         `json:"field_slug"`
	Date      time.Time      `json:"date"`
	Title     string         `json:"title"`
	Data      map[string]any `json:"data"`
}

// WriteConfigYAML writes a file storage configuration pointing at upstream
func WriteConfigYAML(dir string, upstream *FakeUpstream) string {
	secretPath := filepath.Join(dir, "client-secret")
	if err := os.WriteFile(secretPath, []byte("secret\n"), 0600); err != nil {
		panic(err)
	}

	body := fmt.Sprintf(`upstream:
  baseURL: %s
  tokenURL: %s
  clientID: integration
  clientSecretFile: %s
  timeout: 5s
storage:
  type: file
  dataDir: %s
sync:
  interval: 1h
  lookbackDays: 7
  retry:
    maxAttempts: 1
snapshot:
  type: file
  dir: %s
`, upstream.URL(), upstream.TokenURL(), secretPath, filepath.Join(dir, "data"), filepath.Join(dir, "snapshots"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		panic(err)
	}
	return path
}

// SeedUser stores a user with upstream tokens under dir's data directory
func SeedUser(ctx context.Context, dir string, user *state.User) error {
	store, err := state.NewFileUserStore(filepath.Join(dir, "data"))
	if err != nil {
		return err
	}
	return store.SaveUser(ctx, user)
}

// LoadUser reads a user back from dir's data directory
func LoadUser(ctx context.Context, dir, userID string) (*state.User, error) {
	store, err := state.NewFileUserStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, err
	}
	return store.GetUser(ctx, userID)
}

// ReadCalendar returns the stored calendar entries of userID
func ReadCalendar(dir, userID string) ([]CalendarEntry, error) {
	data, err := os.ReadFile(filepath.Join(dir, "data", "calendar", userID+".json"))
	if err != nil {
		return nil, err
	}
	var entries []CalendarEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// EntriesBySlug returns the entries with the given field slug
func EntriesBySlug(entries []CalendarEntry, slug string) []CalendarEntry {
	var out []CalendarEntry
	for _, e := range entries {
		if e.FieldSlug == slug {
			out = append(out, e)
		}
	}
	return out
}
