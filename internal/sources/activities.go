package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/stacklok/fitness-sync-server/internal/fitbit"
	"github.com/stacklok/fitness-sync-server/internal/table"
)

const (
	// DefaultMaxPages bounds how many activity pages a single fetch follows
	DefaultMaxPages = 1000

	startTimeKey = "startTime"
)

var (
	errMissingStartTime = errors.New("activity has no startTime")
	errNotAnObject      = errors.New("activity is not a JSON object")
)

// naiveLayouts are accepted startTime layouts that carry no zone; they are read as UTC
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ActivityFetcher follows the paginated activity log and flattens each entry
type ActivityFetcher struct {
	maxPages int
}

// FetcherOption configures an ActivityFetcher
type FetcherOption func(*ActivityFetcher)

// WithMaxPages bounds the number of pages followed
func WithMaxPages(n int) FetcherOption {
	return func(f *ActivityFetcher) {
		if n > 0 {
			f.maxPages = n
		}
	}
}

// NewActivityFetcher creates an ActivityFetcher
func NewActivityFetcher(opts ...FetcherOption) *ActivityFetcher {
	f := &ActivityFetcher{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements ActivitySource. Pagination stops at an empty or invalid
// next link, a link already visited, or the page limit. A page that cannot
// be fetched fails the whole fetch; an entry that cannot be parsed is skipped.
func (f *ActivityFetcher) Fetch(ctx context.Context, client fitbit.Client, from time.Time) ([]table.Row, error) {
	pageURL := client.ActivitiesFirstPageURL(from)
	seen := make(map[string]struct{})

	var rows []table.Row
	skipped := 0
	for pages := 0; pageURL != ""; pages++ {
		if pages >= f.maxPages {
			slog.Warn("Stopping activity pagination at page limit",
				"max_pages", f.maxPages)
			break
		}
		seen[pageURL] = struct{}{}

		page, err := client.ActivitiesPage(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch activity page %d: %w", pages+1, err)
		}

		for _, raw := range page.Activities {
			row, err := ParseActivity(raw)
			if err != nil {
				skipped++
				slog.Warn("Skipping activity",
					"error", err,
					"payload", string(raw))
				continue
			}
			rows = append(rows, table.FlattenActivity(row))
		}

		next, ok := validNextURL(page.Next)
		if !ok {
			if page.Next != "" {
				slog.Warn("Stopping activity pagination at invalid next link",
					"next", page.Next)
			}
			break
		}
		if _, dup := seen[next]; dup {
			slog.Warn("Stopping activity pagination at repeated next link",
				"next", next)
			break
		}
		pageURL = next
	}

	slog.Debug("Fetched activities",
		"rows", len(rows),
		"skipped", skipped)
	return rows, nil
}

// validNextURL accepts only absolute http(s) links
func validNextURL(next string) (string, bool) {
	if next == "" {
		return "", false
	}
	u, err := url.Parse(next)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

// ParseActivity turns a raw activity entry into a row keyed by its startTime.
// The startTime column is removed and nested objects become dotted columns.
func ParseActivity(raw json.RawMessage) (table.Row, error) {
	if !gjson.ValidBytes(raw) {
		return table.Row{}, &ActivityParseError{Payload: string(raw), Err: errNotAnObject}
	}
	v := table.FromJSON(gjson.ParseBytes(raw))
	if v.Kind != table.KindObject {
		return table.Row{}, &ActivityParseError{Payload: string(raw), Err: errNotAnObject}
	}

	start, ok := v.Object.Get(startTimeKey)
	if !ok || start.Kind != table.KindScalar {
		return table.Row{}, &ActivityParseError{Payload: string(raw), Err: errMissingStartTime}
	}
	ts, err := ParseStartTime(start.String())
	if err != nil {
		return table.Row{}, &ActivityParseError{Payload: string(raw), Err: err}
	}

	return table.Row{
		Timestamp: ts,
		Columns:   table.Normalize(v.Object.Without(startTimeKey)),
	}, nil
}

// ParseStartTime parses an activity start time. Times without a zone are read as UTC.
func ParseStartTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid startTime %q", s)
}
