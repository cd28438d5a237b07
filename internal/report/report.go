// Package report pivots wide calendar rows into the long element/value form
// stored alongside each calendar entry.
package report

import "github.com/stacklok/fitness-sync-server/internal/table"

// Row is one element of a calendar entry's report
type Row struct {
	ElementSlug string   `json:"element_slug"`
	Value       any      `json:"value"`
	AltValue    any      `json:"alt_value"`
	ChoiceSlugs []string `json:"choice_slugs"`
}

// FromRow emits one report row per column of the given row, in column order
func FromRow(row table.Row) []Row {
	out := make([]Row, 0, len(row.Columns))
	for _, col := range row.Columns {
		value := col.Value.Interface()
		out = append(out, Row{
			ElementSlug: col.Name,
			Value:       value,
			AltValue:    value,
		})
	}
	return out
}
