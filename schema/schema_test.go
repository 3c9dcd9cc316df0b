package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prognoshealth/factsetfunctions/batch"
)

var match = New("name", "country", "state", "url").With(Column{Name: "includeParent", Kind: TriState})

func TestSchema_Names(t *testing.T) {
	assert.Equal(t, []string{"name", "country", "state", "url", "includeParent"}, match.Names())
}

func TestSchema_With_doesNotShare(t *testing.T) {
	base := New("a", "b")
	one := base.With(Column{Name: "c"})
	two := base.With(Column{Name: "d"})

	assert.Equal(t, []string{"a", "b", "c"}, one.Names())
	assert.Equal(t, []string{"a", "b", "d"}, two.Names())
	assert.Len(t, base, 2)
}

func TestSchema_Width(t *testing.T) {
	cases := []struct {
		fields   []interface{}
		expected int
	}{
		{[]interface{}{}, 0},
		{[]interface{}{"a", "b"}, 2},
		{[]interface{}{"a", "b", "c", "d", "e"}, 5},
		{[]interface{}{"a", "b", "c", "d", "e", "f", "g"}, 5},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, match.Width(batch.Row{Fields: c.fields}))
	}
}

func TestSchema_Extract(t *testing.T) {
	row := batch.Row{Index: 0, Fields: []interface{}{"Tesla Inc.", "US", nil, "www.tesla.com"}}

	fields := match.Extract(row)

	assert.Equal(t, Fields{
		{Name: "name", Value: "Tesla Inc."},
		{Name: "country", Value: "US"},
		{Name: "url", Value: "www.tesla.com"},
	}, fields)
}

func TestSchema_Extract_overLong(t *testing.T) {
	row := batch.Row{Fields: []interface{}{"n", nil, nil, nil, "TRUE", "extra", "more"}}

	fields := match.Extract(row)

	assert.Equal(t, map[string]interface{}{"name": "n", "includeParent": "true"}, fields.Map())
}

func TestSchema_Extract_triState(t *testing.T) {
	cases := []struct {
		value    interface{}
		expected interface{}
		present  bool
	}{
		{"true", "true", true},
		{"False", "false", true},
		{"TRUE", "true", true},
		{true, "true", true},
		{"yes", nil, false},
		{"", nil, false},
		{json.Number("1"), nil, false},
		{nil, nil, false},
	}

	for _, c := range cases {
		row := batch.Row{Fields: []interface{}{"n", nil, nil, nil, c.value}}

		v, ok := match.Extract(row).Get("includeParent")
		assert.Equal(t, c.present, ok, c.value)
		assert.Equal(t, c.expected, v, c.value)
	}
}

func TestFields_Get_missing(t *testing.T) {
	_, ok := Fields{}.Get("name")
	assert.False(t, ok)
}

func TestText(t *testing.T) {
	assert.Equal(t, "abc", Text("abc"))
	assert.Equal(t, "12.50", Text(json.Number("12.50")))
	assert.Equal(t, "false", Text(false))
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "7", Text(7))
}

func TestInt(t *testing.T) {
	cases := []struct {
		value    interface{}
		expected int
		ok       bool
	}{
		{json.Number("3"), 3, true},
		{json.Number("3.0"), 3, true},
		{json.Number("3.5"), 0, false},
		{"12", 12, true},
		{" 4 ", 4, true},
		{"x", 0, false},
		{float64(2), 2, true},
		{2.5, 0, false},
		{5, 5, true},
		{int64(6), 6, true},
		{nil, 0, false},
		{json.Number("1e300"), 0, false},
		{json.Number("-1e300"), 0, false},
		{1e300, 0, false},
		{-1e300, 0, false},
		{json.Number("4e2"), 400, true},
	}

	for _, c := range cases {
		i, ok := Int(c.value)
		assert.Equal(t, c.ok, ok, c.value)
		assert.Equal(t, c.expected, i, c.value)
	}
}
