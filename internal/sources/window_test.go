package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)
	recent := time.Date(2024, 5, 18, 9, 45, 0, 0, time.UTC)
	ancient := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 5)

	tests := []struct {
		name     string
		cursor   *time.Time
		wantFrom time.Time
	}{
		{
			name:     "no cursor uses lookback",
			cursor:   nil,
			wantFrom: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "recent cursor truncated to midnight",
			cursor:   &recent,
			wantFrom: time.Date(2024, 5, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "cursor older than lookback",
			cursor:   &ancient,
			wantFrom: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "cursor ahead of clock",
			cursor:   &future,
			wantFrom: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := NewWindow(tt.cursor, now, 90)
			assert.Equal(t, tt.wantFrom, w.From)
			assert.Equal(t, now.Add(24*time.Hour), w.To)
			assert.False(t, w.From.After(w.To))
		})
	}
}

func TestNewWindow_ConvertsToUTC(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2024, 5, 21, 5, 0, 0, 0, zone)

	w := NewWindow(nil, now, 0)

	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.UTC, w.To.Location())
}

func TestStatisticsSince(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)
	sameDay := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	ancient := time.Date(2023, 1, 1, 8, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 5)

	tests := []struct {
		name   string
		cursor *time.Time
		want   *time.Time
	}{
		{
			name:   "no cursor keeps every row",
			cursor: nil,
			want:   nil,
		},
		{
			name:   "cursor earlier the same day keeps that day's row",
			cursor: &sameDay,
			want:   ptr(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:   "cursor older than lookback starts at its day",
			cursor: &ancient,
			want:   ptr(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:   "cursor ahead of clock is capped at the window start",
			cursor: &future,
			want:   ptr(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := NewWindow(tt.cursor, now, 90)
			got := StatisticsSince(w, tt.cursor)
			assert.Equal(t, tt.want, got)
			if got != nil {
				assert.False(t, got.After(w.From), "rows from the cleared window start are always kept")
			}
		})
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
