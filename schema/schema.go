// Package schema gives positional meaning to the fields of a batch row.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/prognoshealth/factsetfunctions/batch"
)

// Kind decides how a column value is read from a row.
type Kind int

const (
	// Scalar values are taken as received.
	Scalar Kind = iota
	// TriState values are kept only when they read "true" or "false" in any
	// case and are lower cased. Anything else drops the field.
	TriState
)

// Column is a named position in a row.
type Column struct {
	Name string
	Kind Kind
}

// Schema is the ordered list of columns for one endpoint.
type Schema []Column

// New returns a schema of Scalar columns.
func New(names ...string) Schema {
	s := make(Schema, 0, len(names))
	for _, name := range names {
		s = append(s, Column{Name: name, Kind: Scalar})
	}

	return s
}

// With returns a copy of the schema with column appended.
func (s Schema) With(column Column) Schema {
	out := make(Schema, len(s), len(s)+1)
	copy(out, s)
	return append(out, column)
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}

	return names
}

// Width returns the number of row fields read against the schema. Fields past
// the last column are ignored so an over-long row never fails the batch.
func (s Schema) Width(row batch.Row) int {
	if len(row.Fields) < len(s) {
		return len(row.Fields)
	}

	return len(s)
}

// Extract reads the row against the schema. Absent and null columns are
// skipped, never defaulted.
func (s Schema) Extract(row batch.Row) Fields {
	width := s.Width(row)
	fields := make(Fields, 0, width)

	for i := 0; i < width; i++ {
		v := row.Fields[i]
		if v == nil {
			continue
		}

		column := s[i]

		if column.Kind == TriState {
			b := strings.ToLower(Text(v))
			if b != "true" && b != "false" {
				continue
			}
			v = b
		}

		fields = append(fields, Field{Name: column.Name, Value: v})
	}

	return fields
}

// Field is a named non-null value taken from a row.
type Field struct {
	Name  string
	Value interface{}
}

// Fields keeps schema order.
type Fields []Field

// Get returns the value for name.
func (f Fields) Get(name string) (interface{}, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}

	return nil, false
}

// Map returns the fields keyed by name.
func (f Fields) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(f))
	for _, field := range f {
		m[field.Name] = field.Value
	}

	return m
}

// Text renders a scalar the way it is sent upstream.
func Text(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Int reads an integer valued field, accepting numbers and numeric text.
func Int(v interface{}) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0, false
			}
			return floatInt(f)
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	case float64:
		return floatInt(t)
	case int:
		return t, true
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}

// floatInt converts integral floats that fit an int64.
func floatInt(f float64) (int, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}

	return int(f), true
}
