package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"time"
)

// TimestampColumn is the name of the index column in exported tables
const TimestampColumn = "datetime"

// Row is a single timestamp-keyed record with ordered columns
type Row struct {
	Timestamp time.Time
	Columns   []Field
}

// Get returns the value of the named column
func (r *Row) Get(name string) (Value, bool) {
	return Object(r.Columns).Get(name)
}

// Set replaces the named column or appends it when absent
func (r *Row) Set(name string, v Value) {
	for i := range r.Columns {
		if r.Columns[i].Name == name {
			r.Columns[i].Value = v
			return
		}
	}
	r.Columns = append(r.Columns, Field{Name: name, Value: v})
}

// Names returns the column names in order
func (r *Row) Names() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// MarshalJSON encodes the row columns as an ordered object
func (r Row) MarshalJSON() ([]byte, error) {
	return marshalFields(r.Columns)
}

// OuterJoin merges per-source tables on timestamp. The result is ordered by
// timestamp and each row carries the columns of every table that had an entry
// for that timestamp, in table order.
func OuterJoin(tables ...[]Row) []Row {
	index := make(map[time.Time]int)
	var merged []Row
	for _, tbl := range tables {
		for _, row := range tbl {
			key := row.Timestamp.UTC()
			pos, ok := index[key]
			if !ok {
				pos = len(merged)
				index[key] = pos
				merged = append(merged, Row{Timestamp: key})
			}
			for _, col := range row.Columns {
				merged[pos].Set(col.Name, col.Value)
			}
		}
	}
	slices.SortStableFunc(merged, func(a, b Row) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return merged
}

// FilterSince keeps rows whose timestamp is at or after since. A nil since keeps every row.
func FilterSince(rows []Row, since *time.Time) []Row {
	if since == nil {
		return slices.Clone(rows)
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !r.Timestamp.Before(*since) {
			out = append(out, r)
		}
	}
	return out
}

// ColumnNames returns the union of column names across rows in first-seen order
func ColumnNames(rows []Row) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range rows {
		for _, c := range r.Columns {
			if _, ok := seen[c.Name]; ok {
				continue
			}
			seen[c.Name] = struct{}{}
			names = append(names, c.Name)
		}
	}
	return names
}

// WriteCSV writes rows as CSV with the timestamp as the first column.
// Cells for columns a row does not carry are left empty.
func WriteCSV(w io.Writer, rows []Row) error {
	names := ColumnNames(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{TimestampColumn}, names...)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(names)+1)
	for _, r := range rows {
		record[0] = r.Timestamp.UTC().Format(time.RFC3339)
		for i, name := range names {
			v, _ := r.Get(name)
			record[i+1] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", record[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}
