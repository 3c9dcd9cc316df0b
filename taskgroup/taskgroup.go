// Package taskgroup groups batch rows by the upstream task they reference so
// each task is fetched once per invocation.
package taskgroup

import (
	"github.com/prognoshealth/factsetfunctions/batch"
	"github.com/prognoshealth/factsetfunctions/schema"
)

// Groups maps task ids to the caller indices of the rows referencing them.
// Ids are kept in first seen order.
type Groups struct {
	order   []string
	members map[string][]int64
}

// Group reads field from every row against s and groups the rows by its
// value. Rows without a task id are not part of any group.
func Group(rows []batch.Row, s schema.Schema, field string) *Groups {
	g := &Groups{members: make(map[string][]int64)}

	for _, row := range rows {
		v, ok := s.Extract(row).Get(field)
		if !ok {
			continue
		}

		id := schema.Text(v)
		if id == "" {
			continue
		}

		if _, seen := g.members[id]; !seen {
			g.order = append(g.order, id)
		}

		g.members[id] = append(g.members[id], row.Index)
	}

	return g
}

// IDs returns each distinct task id exactly once.
func (g *Groups) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Members returns the caller indices referencing id.
func (g *Groups) Members(id string) []int64 {
	return g.members[id]
}

// Len returns the number of distinct task ids.
func (g *Groups) Len() int {
	return len(g.order)
}
