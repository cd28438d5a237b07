package writer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/fitness-sync-server/internal/table"
)

func newFileStore(t *testing.T) *fileCalendarStore {
	t.Helper()
	store, err := NewFileCalendarStore(t.TempDir())
	require.NoError(t, err)
	return store.(*fileCalendarStore)
}

func TestFileCalendarStore_AddRowUpserts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFileStore(t)
	row := table.Row{
		Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Columns:   []table.Field{{Name: "steps", Value: table.Scalar("10")}},
	}

	require.NoError(t, store.AddRow(ctx, "user-1", StatisticsEntry(row)))
	first, err := store.list("user-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	row.Columns[0].Value = table.Scalar("20")
	require.NoError(t, store.AddRow(ctx, "user-1", StatisticsEntry(row)))

	entries, err := store.list("user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first[0].ID, entries[0].ID)
	assert.JSONEq(t, `{"steps":"20"}`, string(entries[0].Data))
	assert.Equal(t, "20", entries[0].Report[0].Value)
}

func TestFileCalendarStore_ClearCalendar(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFileStore(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		row := table.Row{Timestamp: start.AddDate(0, 0, i)}
		require.NoError(t, store.AddRow(ctx, "user-1", ActivityEntry(row)))
	}
	require.NoError(t, store.AddRow(ctx, "user-2", ActivityEntry(table.Row{Timestamp: start.AddDate(0, 0, 2)})))

	require.NoError(t, store.ClearCalendar(ctx, "user-1", start.AddDate(0, 0, 1), start.AddDate(0, 0, 3)))

	entries, err := store.list("user-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, start, entries[0].Date)
	assert.Equal(t, start.AddDate(0, 0, 4), entries[1].Date)

	other, err := store.list("user-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	// Clearing again and clearing an unknown user both succeed
	require.NoError(t, store.ClearCalendar(ctx, "user-1", start.AddDate(0, 0, 1), start.AddDate(0, 0, 3)))
	require.NoError(t, store.ClearCalendar(ctx, "nobody", start, start.AddDate(1, 0, 0)))
}

func TestFileCalendarStore_KeepsSlugsApart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFileStore(t)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.AddRow(ctx, "user-1", &CalendarEntry{FieldSlug: StatisticsFieldSlug, Date: ts}))
	require.NoError(t, store.AddRow(ctx, "user-1", &CalendarEntry{FieldSlug: ActivitiesFieldSlug, Date: ts}))

	entries, err := store.list("user-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileCalendarStore_RejectsUnsafeUser(t *testing.T) {
	t.Parallel()

	store := newFileStore(t)
	err := store.AddRow(context.Background(), "../escape", &CalendarEntry{})
	assert.Error(t, err)
}

func TestFileCalendarStore_WithCalendarWriter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFileStore(t)
	w := NewCalendarWriter(store)

	n, err := w.WriteStatistics(ctx, "user-1", dailyRows(15))
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	entries, err := store.list("user-1")
	require.NoError(t, err)
	require.Len(t, entries, 15)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Date.Before(entries[i].Date))
	}

	var data map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Data, &data))
	assert.Contains(t, data, "steps")
}

func TestFileCalendarStore_ActivitiesWithSameStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFileStore(t)
	start := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	activity := func(logID int64, name string) table.Row {
		return table.Row{Timestamp: start, Columns: []table.Field{
			{Name: ActivityIDColumn, Value: table.Scalar(logID)},
			{Name: ActivityNameColumn, Value: table.Scalar(name)},
		}}
	}

	require.NoError(t, store.AddRow(ctx, "user-1", ActivityEntry(activity(1, "Walk"))))
	require.NoError(t, store.AddRow(ctx, "user-1", ActivityEntry(activity(2, "Walk (watch)"))))
	require.NoError(t, store.AddRow(ctx, "user-1", ActivityEntry(activity(1, "Walk"))))

	entries, err := store.list("user-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.ElementsMatch(t, []string{"1", "2"}, []string{entries[0].Key, entries[1].Key})
}
