// Package table provides the tagged value model used to turn nested upstream
// payloads into flat, timestamp-keyed rows.
package table

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind identifies the shape held by a Value
type Kind int

const (
	// KindNull is an absent or JSON null value
	KindNull Kind = iota
	// KindScalar is a string, number or boolean
	KindScalar
	// KindScalarList is a list whose entries are not objects (possibly empty)
	KindScalarList
	// KindObjectList is a non-empty list of objects
	KindObjectList
	// KindObject is a single object
	KindObject
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindScalarList:
		return "scalar-list"
	case KindObjectList:
		return "object-list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a tagged union over the shapes found in upstream payloads.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind    Kind
	Scalar  any
	Scalars []any
	Objects []Object
	Object  Object
}

// Field is a named value. Objects and rows keep fields in payload order.
type Field struct {
	Name  string
	Value Value
}

// Object is an ordered set of fields
type Object []Field

// Null returns a null value
func Null() Value {
	return Value{Kind: KindNull}
}

// Scalar wraps a string, number or boolean
func Scalar(v any) Value {
	if v == nil {
		return Null()
	}
	return Value{Kind: KindScalar, Scalar: v}
}

// ScalarList wraps a list of scalars
func ScalarList(vs ...any) Value {
	if vs == nil {
		vs = []any{}
	}
	return Value{Kind: KindScalarList, Scalars: vs}
}

// ObjectList wraps a list of objects
func ObjectList(objs ...Object) Value {
	return Value{Kind: KindObjectList, Objects: objs}
}

// ObjectValue wraps a single object
func ObjectValue(obj Object) Value {
	return Value{Kind: KindObject, Object: obj}
}

// FromJSON builds a Value from a gjson result, preserving object key order
func FromJSON(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null()
	case gjson.String:
		return Scalar(r.Str)
	case gjson.True, gjson.False:
		return Scalar(r.Bool())
	case gjson.Number:
		return Scalar(parseNumber(r))
	case gjson.JSON:
		if r.IsObject() {
			return ObjectValue(objectFromJSON(r))
		}
		return listFromJSON(r)
	}
	return Null()
}

func parseNumber(r gjson.Result) any {
	if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
		return i
	}
	return r.Num
}

func objectFromJSON(r gjson.Result) Object {
	obj := Object{}
	r.ForEach(func(key, value gjson.Result) bool {
		obj = append(obj, Field{Name: key.String(), Value: FromJSON(value)})
		return true
	})
	return obj
}

// listFromJSON classifies a list by its first entry: a list that starts with an
// object is an object list and non-object entries are logged and skipped.
func listFromJSON(r gjson.Result) Value {
	entries := r.Array()
	if len(entries) == 0 || !entries[0].IsObject() {
		scalars := make([]any, 0, len(entries))
		for _, e := range entries {
			if e.IsObject() || e.IsArray() {
				scalars = append(scalars, e.Raw)
				continue
			}
			scalars = append(scalars, FromJSON(e).Scalar)
		}
		return ScalarList(scalars...)
	}

	objs := make([]Object, 0, len(entries))
	for i, e := range entries {
		if !e.IsObject() {
			slog.Warn("Skipping non-object entry in object list",
				"index", i,
				"value", e.Raw)
			continue
		}
		objs = append(objs, objectFromJSON(e))
	}
	return ObjectList(objs...)
}

// Float returns the value as a float64 when it is numeric, or a string that parses as a number
func (v Value) Float() (float64, bool) {
	if v.Kind != KindScalar {
		return 0, false
	}
	switch s := v.Scalar.(type) {
	case int64:
		return float64(s), true
	case int:
		return float64(s), true
	case float64:
		return s, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// IsNumber reports whether the value holds a JSON number
func (v Value) IsNumber() bool {
	if v.Kind != KindScalar {
		return false
	}
	switch v.Scalar.(type) {
	case int64, int, float64:
		return true
	}
	return false
}

// Interface converts the value into plain Go values suitable for JSON encoding
func (v Value) Interface() any {
	switch v.Kind {
	case KindScalar:
		return v.Scalar
	case KindScalarList:
		return v.Scalars
	case KindObjectList:
		out := make([]any, len(v.Objects))
		for i, o := range v.Objects {
			out[i] = o
		}
		return out
	case KindObject:
		return v.Object
	default:
		return nil
	}
}

// MarshalJSON encodes the value as the JSON it was parsed from
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// String renders the value in the terse inline form used for flattened columns
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindScalar:
		return formatScalar(v.Scalar)
	case KindScalarList:
		parts := make([]string, len(v.Scalars))
		for i, s := range v.Scalars {
			parts[i] = formatScalar(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObjectList:
		parts := make([]string, len(v.Objects))
		for i, o := range v.Objects {
			parts[i] = o.Inline()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		return v.Object.Inline()
	}
	return ""
}

func formatScalar(s any) string {
	switch x := s.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Get returns the named field value
func (o Object) Get(name string) (Value, bool) {
	for _, f := range o {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether the object carries the named field
func (o Object) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// Without returns a copy of the object with the named field removed
func (o Object) Without(name string) Object {
	out := make(Object, 0, len(o))
	for _, f := range o {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return out
}

// Inline renders the object as "key: value, key: value" with quote and brace
// characters stripped
func (o Object) Inline() string {
	parts := make([]string, len(o))
	for i, f := range o {
		parts[i] = f.Name + ": " + f.Value.String()
	}
	return inlineReplacer.Replace(strings.Join(parts, ", "))
}

var inlineReplacer = strings.NewReplacer(`"`, "", "'", "", "{", "", "}", "")

// MarshalJSON encodes the object with its fields in order
func (o Object) MarshalJSON() ([]byte, error) {
	return marshalFields(o)
}

func marshalFields(fields []Field) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", f.Name, err)
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
