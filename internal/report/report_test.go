package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/fitness-sync-server/internal/table"
)

func TestFromRow(t *testing.T) {
	t.Parallel()

	row := table.Row{
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Columns: []table.Field{
			{Name: "steps", Value: table.Scalar(int64(9000))},
			{Name: "HR_zone_min_0_max_94", Value: table.Scalar(int64(600))},
			{Name: "notes", Value: table.Null()},
		},
	}

	rows := FromRow(row)

	require.Len(t, rows, 3)
	assert.Equal(t, Row{ElementSlug: "steps", Value: int64(9000), AltValue: int64(9000)}, rows[0])
	assert.Equal(t, "HR_zone_min_0_max_94", rows[1].ElementSlug)
	assert.Nil(t, rows[2].Value)
	for _, r := range rows {
		assert.Equal(t, r.Value, r.AltValue)
		assert.Nil(t, r.ChoiceSlugs)
	}
}

func TestFromRow_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, FromRow(table.Row{}))
}

func TestRow_JSONShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Row{ElementSlug: "calories", Value: 12.5, AltValue: 12.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"element_slug":"calories","value":12.5,"alt_value":12.5,"choice_slugs":null}`, string(data))
}
