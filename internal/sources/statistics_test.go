package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/fitness-sync-server/internal/fitbit"
	fitbitmocks "github.com/stacklok/fitness-sync-server/internal/fitbit/mocks"
	snapshotmocks "github.com/stacklok/fitness-sync-server/internal/snapshot/mocks"
	"github.com/stacklok/fitness-sync-server/internal/table"
)

var testWindow = Window{
	From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
}

func mustSeries(t *testing.T, resource, body string) *fitbit.Series {
	t.Helper()
	series, err := fitbit.ParseSeries(resource, []byte(body))
	require.NoError(t, err)
	return series
}

func TestSeriesRows_HeartRateZones(t *testing.T) {
	t.Parallel()

	series := mustSeries(t, HeartResource, `{"activities-heart":[{"dateTime":"2024-01-01","value":{
		"customHeartRateZones":[],
		"heartRateZones":[
			{"caloriesOut":1500.5,"max":94,"min":30,"minutes":1200,"name":"Out of Range"},
			{"caloriesOut":200,"max":132,"min":94,"minutes":45,"name":"Fat Burn"}
		],
		"restingHeartRate":61
	}}]}`)

	rows := SeriesRows(series)

	require.Len(t, rows, 1)
	assert.Equal(t, testWindow.From, rows[0].Timestamp)
	assert.Equal(t, []string{"HR_zone_min_30_max_94", "HR_zone_min_94_max_132"}, rows[0].Names())
	v, _ := rows[0].Get("HR_zone_min_30_max_94")
	assert.Equal(t, table.Scalar(int64(1200)), v)
	v, _ = rows[0].Get("HR_zone_min_94_max_132")
	assert.Equal(t, table.Scalar(int64(45)), v)
}

func TestSeriesRows_ScalarAndUnexpectedShapes(t *testing.T) {
	t.Parallel()

	series := mustSeries(t, "activities/steps", `{"activities-steps":[
		{"dateTime":"2024-01-01","value":"1234"},
		{"dateTime":"2024-01-02","value":{"unexpected":true}},
		{"dateTime":"2024-01-03","value":null}
	]}`)

	rows := SeriesRows(series)

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"steps"}, rows[0].Names())
}

func TestColumnName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "minutesSedentary", ColumnName("activities/minutesSedentary"))
	assert.Equal(t, "steps", ColumnName("steps"))
}

func expectSeries(client *fitbitmocks.MockClient, bodies map[string]string, failures map[string]error) {
	client.EXPECT().
		TimeSeries(gomock.Any(), gomock.Any(), testWindow.From, Period).
		DoAndReturn(func(_ context.Context, resource string, _ time.Time, _ string) (*fitbit.Series, error) {
			if err, ok := failures[resource]; ok {
				return nil, err
			}
			body, ok := bodies[resource]
			if !ok {
				body = fmt.Sprintf(`{%q:[]}`, fitbit.SeriesKey(resource))
			}
			return fitbit.ParseSeries(resource, []byte(body))
		}).
		AnyTimes()
}

func TestStatisticsMerger_MergesAndSnapshots(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := fitbitmocks.NewMockClient(ctrl)
	sink := snapshotmocks.NewMockSink(ctrl)
	at := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	expectSeries(client, map[string]string{
		"activities/steps": `{"activities-steps":[
			{"dateTime":"2024-01-01","value":"100"},
			{"dateTime":"2024-01-02","value":"200"}]}`,
		"activities/calories": `{"activities-calories":[
			{"dateTime":"2024-01-02","value":"2000"},
			{"dateTime":"2024-01-03","value":"2100"}]}`,
	}, nil)

	var snapshotRows []table.Row
	sink.EXPECT().Write(gomock.Any(), "user-1", at, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ time.Time, rows []table.Row) error {
			snapshotRows = rows
			return nil
		}).
		Times(2)

	merger := NewStatisticsMerger(
		WithResources("activities/steps", "activities/calories"),
		WithSnapshotSink(sink),
		WithMergerClock(func() time.Time { return at }),
	)
	cursor := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	rows, err := merger.Merge(context.Background(), client, "user-1", testWindow, &cursor)

	require.NoError(t, err)
	require.Len(t, snapshotRows, 3, "snapshot holds the unfiltered table")
	require.Len(t, rows, 2)
	assert.Equal(t, cursor, rows[0].Timestamp)
	assert.Equal(t, []string{"steps", "calories"}, rows[0].Names())
	assert.Equal(t, []string{"calories"}, rows[1].Names())

	again, err := merger.Merge(context.Background(), client, "user-1", testWindow, &cursor)
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func TestStatisticsMerger_KeepsCursorDay(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := fitbitmocks.NewMockClient(ctrl)
	expectSeries(client, map[string]string{
		"activities/steps": `{"activities-steps":[
			{"dateTime":"2024-01-01","value":"100"},
			{"dateTime":"2024-01-02","value":"200"},
			{"dateTime":"2024-01-03","value":"300"}]}`,
	}, nil)

	merger := NewStatisticsMerger(WithResources("activities/steps"))
	// A run earlier on 01-02 left the cursor mid-day
	cursor := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

	rows, err := merger.Merge(context.Background(), client, "user-1", testWindow, &cursor)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), rows[0].Timestamp)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), rows[1].Timestamp)
}

func TestStatisticsMerger_PartialFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := fitbitmocks.NewMockClient(ctrl)
	expectSeries(client, map[string]string{
		"activities/steps": `{"activities-steps":[{"dateTime":"2024-01-01","value":"100"}]}`,
	}, map[string]error{
		"activities/calories": errors.New("rate limited"),
	})

	var mu sync.Mutex
	var failed []string
	merger := NewStatisticsMerger(
		WithResources("activities/steps", "activities/calories"),
		WithResourceFailureHook(func(resource string) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, resource)
		}),
	)

	rows, err := merger.Merge(context.Background(), client, "user-1", testWindow, nil)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"steps"}, rows[0].Names())
	assert.Equal(t, []string{"activities/calories"}, failed)
}

func TestStatisticsMerger_AllFail(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := fitbitmocks.NewMockClient(ctrl)
	boom := errors.New("upstream down")
	expectSeries(client, nil, map[string]error{
		"activities/steps":    boom,
		"activities/calories": boom,
	})

	merger := NewStatisticsMerger(WithResources("activities/steps", "activities/calories"))

	rows, err := merger.Merge(context.Background(), client, "user-1", testWindow, nil)

	require.Error(t, err)
	assert.Nil(t, rows)
	assert.ErrorIs(t, err, ErrAllResourcesFailed)
	assert.ErrorIs(t, err, boom)
	var rfe *ResourceFetchError
	require.ErrorAs(t, err, &rfe)
}

func TestStatisticsMerger_SnapshotFailureIsIgnored(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := fitbitmocks.NewMockClient(ctrl)
	sink := snapshotmocks.NewMockSink(ctrl)
	expectSeries(client, map[string]string{
		"activities/steps": `{"activities-steps":[{"dateTime":"2024-01-01","value":"100"}]}`,
	}, nil)
	sink.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	merger := NewStatisticsMerger(WithResources("activities/steps"), WithSnapshotSink(sink))

	rows, err := merger.Merge(context.Background(), client, "user-1", testWindow, nil)

	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStatisticsMerger_DefaultResources(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := fitbitmocks.NewMockClient(ctrl)

	var mu sync.Mutex
	requested := map[string]bool{}
	client.EXPECT().
		TimeSeries(gomock.Any(), gomock.Any(), gomock.Any(), Period).
		DoAndReturn(func(_ context.Context, resource string, _ time.Time, _ string) (*fitbit.Series, error) {
			mu.Lock()
			requested[resource] = true
			mu.Unlock()
			return &fitbit.Series{Resource: resource}, nil
		}).
		Times(len(Resources))

	_, err := NewStatisticsMerger().Merge(context.Background(), client, "user-1", testWindow, nil)

	require.NoError(t, err)
	for _, r := range Resources {
		assert.True(t, requested[r], r)
	}
}
