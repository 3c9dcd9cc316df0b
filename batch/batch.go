// Package batch decodes the row envelope sent by a Snowflake external function
// and encodes the reply envelope in the same row oriented shape.
//
// Request:
//
//	{"data": [[0, "Tesla Inc.", "US", null, "www.tesla.com"], ...]}
//
// Reply:
//
//	{"data": [[0, [{"name": "Tesla Inc.", ...}]], ...]}
package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Row is one decoded input row. Index is assigned by the caller and defines
// the output position; Fields holds the remaining elements positionally.
type Row struct {
	Index  int64
	Fields []interface{}
}

// OutputRow is the value returned for a Row. Value always carries the echoed
// input fields and collects whatever the endpoint attaches afterwards.
type OutputRow struct {
	Index int64
	Value map[string]interface{}
}

// NewOutputRow returns an output row for index with a copy of fields.
func NewOutputRow(index int64, fields map[string]interface{}) *OutputRow {
	value := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		value[k] = v
	}

	return &OutputRow{Index: index, Value: value}
}

// ValidationError marks a batch that was rejected before any outbound call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Malformed returns a ValidationError describing a malformed envelope.
func Malformed(format string, args ...interface{}) error {
	return &ValidationError{Message: "malformed batch: " + fmt.Sprintf(format, args...)}
}

// CheckLimit fails when rows exceeds max.
func CheckLimit(rows []Row, max int) error {
	if len(rows) > max {
		return &ValidationError{Message: fmt.Sprintf("Too many rows in batch; Set MAX_BATCH_ROWS=%d", max)}
	}

	return nil
}

// Decode parses the request envelope into rows in the order received.
//
// Numbers are kept as json.Number so echoed values keep their original text.
func Decode(body []byte) ([]Row, error) {
	var envelope map[string]interface{}

	d := json.NewDecoder(bytes.NewReader(body))
	d.UseNumber()

	if err := d.Decode(&envelope); err != nil {
		return nil, Malformed("%v", err)
	}

	raw, ok := envelope["data"]
	if !ok {
		return nil, Malformed("missing \"data\" array")
	}

	data, ok := raw.([]interface{})
	if !ok {
		return nil, Malformed("\"data\" is not an array")
	}

	rows := make([]Row, 0, len(data))
	seen := make(map[int64]bool, len(data))

	for pos, r := range data {
		elements, ok := r.([]interface{})
		if !ok || len(elements) == 0 {
			return nil, Malformed("row %d is not a non-empty array", pos)
		}

		index, err := rowIndex(elements[0])
		if err != nil {
			return nil, Malformed("row %d: %v", pos, err)
		}

		if seen[index] {
			return nil, Malformed("row %d: duplicate index %d", pos, index)
		}
		seen[index] = true

		rows = append(rows, Row{Index: index, Fields: elements[1:]})
	}

	return rows, nil
}

func rowIndex(v interface{}) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, errors.Errorf("index %v is not numeric", v)
	}

	if i, err := n.Int64(); err == nil {
		return i, nil
	}

	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errors.Errorf("index %s is not an integer", n)
	}

	return int64(f), nil
}

// SortByIndex orders rows by ascending caller index.
func SortByIndex(rows []*OutputRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Index < rows[j].Index
	})
}

// Encode renders rows into the reply envelope in the order given.
func Encode(rows []*OutputRow) ([]byte, error) {
	data := make([][]interface{}, 0, len(rows))

	for _, row := range rows {
		value := row.Value
		if value == nil {
			value = map[string]interface{}{}
		}

		data = append(data, []interface{}{row.Index, []interface{}{value}})
	}

	buf := new(bytes.Buffer)
	e := json.NewEncoder(buf)
	e.SetEscapeHTML(false)

	if err := e.Encode(map[string]interface{}{"data": data}); err != nil {
		return nil, errors.Wrap(err, "failed encoding reply")
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
