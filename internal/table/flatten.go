package table

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

const (
	// PathSeparator joins nested object keys into a column name
	PathSeparator = "."

	zoneNameKey = "zoneName"
	nameKey     = "name"
	orderKey    = "order"
)

// durationColumns are activity columns holding durations in milliseconds
var durationColumns = map[string]struct{}{
	"duration":         {},
	"activeDuration":   {},
	"originalDuration": {},
}

// Normalize flattens nested objects into dotted column names. Lists are kept
// as-is so FlattenActivity can decide how to expand them.
func Normalize(obj Object) []Field {
	var out []Field
	normalizeInto(&out, "", obj)
	return out
}

func normalizeInto(out *[]Field, prefix string, obj Object) {
	for _, f := range obj {
		name := f.Name
		if prefix != "" {
			name = prefix + PathSeparator + f.Name
		}
		if f.Value.Kind == KindObject {
			normalizeInto(out, name, f.Value.Object)
			continue
		}
		*out = append(*out, Field{Name: name, Value: f.Value})
	}
}

// FlattenActivity rewrites an activity row so every column holds a scalar or a
// list of scalars:
//   - millisecond duration columns become h:mm:ss strings
//   - lists of heart-rate zone objects (marked by zoneName) are dropped
//   - other lists of objects are replaced, in place, by one column per entry
//     named "<last path segment>: <label>"
func FlattenActivity(row Row) Row {
	out := Row{Timestamp: row.Timestamp, Columns: make([]Field, 0, len(row.Columns))}
	for _, col := range row.Columns {
		switch {
		case isDurationColumn(col.Name) && col.Value.IsNumber():
			ms, _ := col.Value.Float()
			out.Columns = append(out.Columns, Field{Name: col.Name, Value: Scalar(FormatMillis(ms))})
		case col.Value.Kind == KindObjectList && len(col.Value.Objects) > 0:
			if col.Value.Objects[0].Has(zoneNameKey) {
				continue
			}
			out.Columns = append(out.Columns, expandObjectList(col.Name, col.Value.Objects)...)
		default:
			out.Columns = append(out.Columns, col)
		}
	}
	return out
}

func isDurationColumn(name string) bool {
	_, ok := durationColumns[LastSegment(name)]
	return ok
}

// LastSegment returns the final component of a dotted column path
func LastSegment(name string) string {
	if i := strings.LastIndex(name, PathSeparator); i >= 0 {
		return name[i+len(PathSeparator):]
	}
	return name
}

func expandObjectList(column string, entries []Object) []Field {
	sorted := slices.Clone(entries)
	if sorted[0].Has(orderKey) {
		slices.SortStableFunc(sorted, func(a, b Object) int {
			return cmp.Compare(orderOf(a), orderOf(b))
		})
	}

	prefix := LastSegment(column)
	fields := make([]Field, 0, len(sorted))
	for i, entry := range sorted {
		label, ok := entryLabel(entry)
		if !ok {
			label = fmt.Sprintf("unnamed-%d", i)
			slog.Warn("Unhandled activity list entry shape",
				"column", column,
				"entry", entry.Inline(),
				"label", label)
		}
		fields = append(fields, Field{
			Name:  prefix + ": " + label,
			Value: Scalar(entry.Without(nameKey).Inline()),
		})
	}
	return fields
}

// orderOf returns the entry's order, sorting entries without one last
func orderOf(o Object) float64 {
	v, ok := o.Get(orderKey)
	if !ok {
		return float64(1 << 53)
	}
	f, ok := v.Float()
	if !ok {
		return float64(1 << 53)
	}
	return f
}

func entryLabel(o Object) (string, bool) {
	for _, key := range []string{zoneNameKey, nameKey} {
		if v, ok := o.Get(key); ok && v.Kind == KindScalar {
			if s := v.String(); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// FormatMillis renders a millisecond duration as h:mm:ss
func FormatMillis(ms float64) string {
	d := time.Duration(ms) * time.Millisecond
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
