// Package reconcile attaches upstream results to the output rows that asked
// for them.
//
// Rows are addressed by position in the received batch, which is also the
// position of the row in any batch request sent upstream. Faults found while
// matching are row scoped: the affected row is annotated or skipped and a Gap
// is reported, the batch itself never fails here.
package reconcile

import (
	"fmt"

	"github.com/prognoshealth/factsetfunctions/batch"
	"github.com/prognoshealth/factsetfunctions/schema"
)

// Output row keys written by the reconciler.
const (
	KeyResponse  = "response"
	KeyStatus    = "status"
	KeyRowIndex  = "rowIndex"
	KeyMapStatus = "mapStatus"
	KeyEntityID  = "entityId"
	KeyLenData   = "len_data"
	KeyError     = "error"
	KeyTaskID    = "taskId"
	KeyTaskState = "taskStatus"

	Mapped = "MAPPED"
)

// Gap describes a result that could not be matched to a row, or a row that
// could not be matched to a result.
type Gap struct {
	Position int
	Reason   string
}

func (g Gap) String() string {
	return fmt.Sprintf("position %d: %s", g.Position, g.Reason)
}

// Direct merges the result of a call made for a single row onto that row.
func Direct(row *batch.OutputRow, status int, response interface{}) {
	row.Value[KeyStatus] = status
	row.Value[KeyResponse] = response
}

// ByRowIndex matches each result object to the row at the position named by
// its rowIndex member. Results for the same row are appended in the order
// upstream delivered them. Results with a missing or out of range rowIndex are
// skipped.
func ByRowIndex(rows []*batch.OutputRow, results []interface{}) []Gap {
	var gaps []Gap

	for i, result := range results {
		obj, ok := result.(map[string]interface{})
		if !ok {
			gaps = append(gaps, Gap{Position: -1, Reason: fmt.Sprintf("result %d is not an object", i)})
			continue
		}

		pos, ok := schema.Int(obj[KeyRowIndex])
		if !ok {
			gaps = append(gaps, Gap{Position: -1, Reason: fmt.Sprintf("result %d has no rowIndex", i)})
			continue
		}

		if pos < 0 || pos >= len(rows) {
			gaps = append(gaps, Gap{Position: pos, Reason: fmt.Sprintf("result %d rowIndex outside batch of %d rows", i, len(rows))})
			continue
		}

		row := rows[pos]
		existing, _ := row.Value[KeyResponse].([]interface{})
		row.Value[KeyResponse] = append(existing, obj)
	}

	return gaps
}

// Positional attaches results[i] to rows[i] and records i as the row's
// rowIndex. Surplus results are reported as gaps; rows without a result are
// left untouched.
func Positional(rows []*batch.OutputRow, results []interface{}) []Gap {
	var gaps []Gap

	for i, result := range results {
		if i >= len(rows) {
			gaps = append(gaps, Gap{Position: i, Reason: fmt.Sprintf("result %d has no row in batch of %d rows", i, len(rows))})
			continue
		}

		rows[i].Value[KeyResponse] = result
		rows[i].Value[KeyRowIndex] = i
	}

	return gaps
}

// Broadcast attaches the task created for the whole batch to every row. Each
// row's rowIndex is its position in the upload, which is the offset its
// decision will have in the task's results. Without a taskId in created every
// row is marked instead.
func Broadcast(rows []*batch.OutputRow, created interface{}) []Gap {
	obj, _ := created.(map[string]interface{})
	taskID, ok := obj[KeyTaskID]

	if !ok {
		for _, row := range rows {
			row.Value[KeyError] = "taskId not found"
		}
		return []Gap{{Position: -1, Reason: "task response has no taskId"}}
	}

	for pos, row := range rows {
		row.Value[KeyTaskID] = taskID
		row.Value[KeyTaskState] = obj[KeyStatus]
		row.Value[KeyRowIndex] = pos
	}

	return nil
}

// TaskRef is a row's reference into the results of an upstream task.
type TaskRef struct {
	TaskID    string
	Offset    int
	HasOffset bool
}

// Outcome is the fetched result set of one task. A non-empty Failure means
// the call failed and Status holds the status to report on dependent rows.
type Outcome struct {
	Status  int
	Data    []interface{}
	Failure string
}

// Failed reports whether the task's call failed.
func (o Outcome) Failed() bool {
	return o.Failure != ""
}

// ByTaskOffset resolves every row's TaskRef against the fetched outcomes.
// refs is aligned with rows.
//
// A failed task gives its status and failure text to each dependent row. A
// successful one gives data[offset]; mapStatus is copied onto the row and
// entityId too when the row is MAPPED. An offset past the end of data sets
// len_data instead.
func ByTaskOffset(rows []*batch.OutputRow, refs []TaskRef, outcomes map[string]Outcome) []Gap {
	var gaps []Gap

	for pos, row := range rows {
		if pos >= len(refs) || refs[pos].TaskID == "" {
			row.Value[KeyError] = "taskId not found"
			gaps = append(gaps, Gap{Position: pos, Reason: "row has no taskId"})
			continue
		}

		ref := refs[pos]

		outcome, ok := outcomes[ref.TaskID]
		if !ok {
			row.Value[KeyError] = "taskId not found"
			gaps = append(gaps, Gap{Position: pos, Reason: fmt.Sprintf("no result for task %s", ref.TaskID)})
			continue
		}

		row.Value[KeyStatus] = outcome.Status

		if outcome.Failed() {
			row.Value[KeyResponse] = outcome.Failure
			continue
		}

		if !ref.HasOffset {
			row.Value[KeyError] = "rowIndex not found"
			gaps = append(gaps, Gap{Position: pos, Reason: "row has no rowIndex"})
			continue
		}

		if ref.Offset < 0 || ref.Offset >= len(outcome.Data) {
			row.Value[KeyLenData] = len(outcome.Data)
			gaps = append(gaps, Gap{Position: pos, Reason: fmt.Sprintf("rowIndex %d outside %d results of task %s", ref.Offset, len(outcome.Data), ref.TaskID)})
			continue
		}

		result := outcome.Data[ref.Offset]
		row.Value[KeyResponse] = result

		obj, ok := result.(map[string]interface{})
		if !ok {
			continue
		}

		mapStatus, ok := obj[KeyMapStatus]
		if !ok {
			continue
		}

		row.Value[KeyMapStatus] = mapStatus
		if mapStatus == Mapped {
			if entityID, ok := obj[KeyEntityID]; ok {
				row.Value[KeyEntityID] = entityID
			}
		}
	}

	return gaps
}
