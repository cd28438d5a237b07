package table

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestOuterJoin(t *testing.T) {
	t.Parallel()

	steps := []Row{
		{Timestamp: day(2), Columns: []Field{{Name: "steps", Value: Scalar(int64(200))}}},
		{Timestamp: day(1), Columns: []Field{{Name: "steps", Value: Scalar(int64(100))}}},
	}
	calories := []Row{
		{Timestamp: day(3), Columns: []Field{{Name: "calories", Value: Scalar(int64(3000))}}},
		{Timestamp: day(1), Columns: []Field{{Name: "calories", Value: Scalar(int64(2000))}}},
	}

	merged := OuterJoin(steps, calories)

	require.Len(t, merged, 3)
	assert.Equal(t, day(1), merged[0].Timestamp)
	assert.Equal(t, []string{"steps", "calories"}, merged[0].Names())
	assert.Equal(t, []string{"steps"}, merged[1].Names())
	assert.Equal(t, []string{"calories"}, merged[2].Names())
}

func TestOuterJoin_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, OuterJoin())
	assert.Empty(t, OuterJoin(nil, []Row{}))
}

func TestFilterSince(t *testing.T) {
	t.Parallel()

	rows := []Row{{Timestamp: day(1)}, {Timestamp: day(2)}, {Timestamp: day(3)}}

	assert.Len(t, FilterSince(rows, nil), 3)

	cursor := day(2)
	filtered := FilterSince(rows, &cursor)
	require.Len(t, filtered, 2)
	assert.Equal(t, day(2), filtered[0].Timestamp)

	midday := day(2).Add(12 * time.Hour)
	assert.Len(t, FilterSince(rows, &midday), 1)

	// Same cursor yields the same rows
	assert.Equal(t, filtered, FilterSince(rows, &cursor))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Timestamp: day(1), Columns: []Field{{Name: "steps", Value: Scalar(int64(10))}}},
		{Timestamp: day(2), Columns: []Field{{Name: "calories", Value: Scalar(1.5)}}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	assert.Equal(t,
		"datetime,steps,calories\n"+
			"2024-01-01T00:00:00Z,10,\n"+
			"2024-01-02T00:00:00Z,,1.5\n",
		buf.String())
}

func TestRowMarshalJSON_KeepsColumnOrder(t *testing.T) {
	t.Parallel()

	row := Row{Columns: []Field{
		{Name: "z", Value: Scalar("last")},
		{Name: "a", Value: ScalarList(int64(1), int64(2))},
		{Name: "m", Value: Null()},
	}}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last","a":[1,2],"m":null}`, string(data))
}
