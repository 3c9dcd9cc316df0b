package taskgroup

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prognoshealth/factsetfunctions/batch"
	"github.com/prognoshealth/factsetfunctions/schema"
)

var decisions = schema.New("name", "taskId", "rowIndex")

func TestGroup(t *testing.T) {
	rows := []batch.Row{
		{Index: 0, Fields: []interface{}{"a", "t1", json.Number("0")}},
		{Index: 1, Fields: []interface{}{"b", "t2", json.Number("0")}},
		{Index: 2, Fields: []interface{}{"c", "t1", json.Number("1")}},
		{Index: 3, Fields: []interface{}{"d", nil, json.Number("0")}},
		{Index: 4, Fields: []interface{}{"e"}},
		{Index: 5, Fields: []interface{}{"f", "", json.Number("0")}},
		{Index: 6, Fields: []interface{}{"g", "t1", json.Number("2")}},
	}

	g := Group(rows, decisions, "taskId")

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"t1", "t2"}, g.IDs())
	assert.Equal(t, []int64{0, 2, 6}, g.Members("t1"))
	assert.Equal(t, []int64{1}, g.Members("t2"))
	assert.Nil(t, g.Members("t3"))
}

func TestGroup_empty(t *testing.T) {
	g := Group(nil, decisions, "taskId")

	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.IDs())
}

func TestGroups_IDs_copy(t *testing.T) {
	g := Group([]batch.Row{{Index: 0, Fields: []interface{}{"a", "t1"}}}, decisions, "taskId")

	ids := g.IDs()
	ids[0] = "changed"

	assert.Equal(t, []string{"t1"}, g.IDs())
}
