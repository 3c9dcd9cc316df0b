// Package endpoint holds the external functions served by the proxy: entity
// matching against the FactSet Concordance API and identifier lookups against
// the Symbology API.
package endpoint

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/prognoshealth/factsetfunctions/batch"
	"github.com/prognoshealth/factsetfunctions/billing"
	"github.com/prognoshealth/factsetfunctions/factset"
	"github.com/prognoshealth/factsetfunctions/function"
	"github.com/prognoshealth/factsetfunctions/reconcile"
	"github.com/prognoshealth/factsetfunctions/request"
	"github.com/prognoshealth/factsetfunctions/schema"
	"github.com/prognoshealth/factsetfunctions/taskgroup"
)

// DecisionsPageSize is the number of decisions requested per task. Only the
// first page is fetched, which covers every offset a full company-decisions
// batch can reference because the batch ceiling is the page size.
const DecisionsPageSize = 1000

var (
	entitySchema = schema.New("name", "country", "state", "url")

	companyMatchSchema = entitySchema.With(schema.Column{Name: "includeParent", Kind: schema.TriState})

	decisionsSchema = schema.New("name", "country", "state", "url", "taskId", "rowIndex")

	// form fields naming the csv column that holds each schema column
	entityTaskColumns = []string{"nameColumn", "countryColumn", "stateColumn", "urlColumn"}
)

// echo returns one output row per input row carrying its non-null fields.
func echo(rows []batch.Row, s schema.Schema) []*batch.OutputRow {
	out := make([]*batch.OutputRow, len(rows))
	for i, row := range rows {
		out[i] = batch.NewOutputRow(row.Index, s.Extract(row).Map())
	}

	return out
}

func results(data interface{}, path string) ([]interface{}, error) {
	list, ok := data.([]interface{})
	if !ok {
		return nil, errors.Errorf("data from %s is not a list", path)
	}

	return list, nil
}

func logGaps(logger *zap.Logger, gaps []reconcile.Gap) {
	for _, gap := range gaps {
		logger.Warn("unmatched result", zap.Stringer("gap", gap))
	}
}

// CompanyMatch matches a single company by query.
type CompanyMatch struct{}

func (CompanyMatch) Name() string      { return "company-match" }
func (CompanyMatch) MaxBatchRows() int { return 1 }

func (CompanyMatch) Invoke(inv *function.Invocation) ([]*batch.OutputRow, error) {
	out := make([]*batch.OutputRow, 0, len(inv.Rows))

	for _, row := range inv.Rows {
		fields := companyMatchSchema.Extract(row)

		result, err := inv.Client.Call(inv.Context, request.Query(factset.CompanyMatchPath, fields))
		inv.Record("company-match", result)
		if err != nil {
			return nil, err
		}

		data, err := result.Data()
		if err != nil {
			return nil, err
		}

		o := batch.NewOutputRow(row.Index, fields.Map())
		reconcile.Direct(o, result.StatusCode, data)
		out = append(out, o)
	}

	return out, nil
}

// CompanyMatchBatch matches up to 25 companies in one call. Upstream answers
// with candidate matches naming the input position they belong to.
type CompanyMatchBatch struct{}

func (CompanyMatchBatch) Name() string      { return "company-match-batch" }
func (CompanyMatchBatch) MaxBatchRows() int { return 25 }

func (CompanyMatchBatch) Invoke(inv *function.Invocation) ([]*batch.OutputRow, error) {
	out := echo(inv.Rows, entitySchema)

	result, err := inv.Client.Call(inv.Context, request.Body(factset.CompanyMatchPath, "input", inv.Rows, entitySchema))
	inv.Record("company-match", result)
	if err != nil {
		return nil, err
	}

	data, err := result.Data()
	if err != nil {
		return nil, err
	}

	list, err := results(data, factset.CompanyMatchPath)
	if err != nil {
		return nil, err
	}

	logGaps(inv.Logger, reconcile.ByRowIndex(out, list))

	inv.Debug[billing.KeyAPIResponse] = data
	inv.Debug[billing.KeyAPIStatus] = result.StatusCode

	return out, nil
}

// EntityTask uploads the batch as a csv file, creating an asynchronous
// matching task. Every row is told the task id and its offset in the file;
// CompanyDecisions reads the outcome later.
type EntityTask struct {
	// TaskName names new tasks. Defaults to NewTaskName.
	TaskName func() string
}

// NewTaskName returns "Snowflake_" followed by a random 32 digit hex id.
func NewTaskName() string {
	return "Snowflake_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (EntityTask) Name() string      { return "entity-task" }
func (EntityTask) MaxBatchRows() int { return 1000 }

func (e EntityTask) Invoke(inv *function.Invocation) ([]*batch.OutputRow, error) {
	name := NewTaskName
	if e.TaskName != nil {
		name = e.TaskName
	}

	out := echo(inv.Rows, entitySchema)

	file := request.File(factset.EntityTaskPath, name(), inv.Rows, entitySchema, entityTaskColumns)
	inv.Debug[billing.KeyFile] = file.Contents()

	result, err := inv.Client.Call(inv.Context, file)
	inv.Record("entity-task", result)
	if err != nil {
		return nil, err
	}

	data, err := result.Data()
	if err != nil {
		return nil, err
	}

	logGaps(inv.Logger, reconcile.Broadcast(out, data))

	inv.Debug[billing.KeyAPIResponse] = data
	inv.Debug[billing.KeyAPIStatus] = result.StatusCode

	return out, nil
}

// CompanyDecisions fetches the decisions of the tasks the rows reference,
// one call per distinct task, and gives each row the decision at its offset.
// A failed call only affects the rows of its task.
type CompanyDecisions struct{}

func (CompanyDecisions) Name() string      { return "company-decisions" }
func (CompanyDecisions) MaxBatchRows() int { return DecisionsPageSize }

func (CompanyDecisions) Invoke(inv *function.Invocation) ([]*batch.OutputRow, error) {
	inv.Meter.PerCall = true

	out := echo(inv.Rows, decisionsSchema)
	groups := taskgroup.Group(inv.Rows, decisionsSchema, "taskId")

	outcomes := make(map[string]reconcile.Outcome, groups.Len())
	for _, id := range groups.IDs() {
		outcomes[id] = fetchDecisions(inv, id)
	}

	logGaps(inv.Logger, reconcile.ByTaskOffset(out, taskRefs(inv.Rows, groups), outcomes))

	return out, nil
}

// taskRefs returns the task reference of every row, aligned with rows. Task
// ids come from the groups; rows outside every group keep an empty TaskID.
func taskRefs(rows []batch.Row, groups *taskgroup.Groups) []reconcile.TaskRef {
	refs := make([]reconcile.TaskRef, len(rows))

	positions := make(map[int64]int, len(rows))
	for pos, row := range rows {
		positions[row.Index] = pos

		if v, ok := decisionsSchema.Extract(row).Get("rowIndex"); ok {
			refs[pos].Offset, refs[pos].HasOffset = schema.Int(v)
		}
	}

	for _, id := range groups.IDs() {
		for _, index := range groups.Members(id) {
			refs[positions[index]].TaskID = id
		}
	}

	return refs
}

func fetchDecisions(inv *function.Invocation, taskID string) reconcile.Outcome {
	req := &request.QueryRequest{
		Path: factset.CompanyDecisionsPath,
		Params: url.Values{
			"taskId": {taskID},
			"offset": {"0"},
			"limit":  {strconv.Itoa(DecisionsPageSize)},
		},
	}

	result, err := inv.Client.Call(inv.Context, req)
	inv.Record(taskID, result)
	if err != nil {
		return failed(inv, taskID, err)
	}

	data, err := result.Data()
	if err != nil {
		return failed(inv, taskID, err)
	}

	list, err := results(data, factset.CompanyDecisionsPath)
	if err != nil {
		return failed(inv, taskID, err)
	}

	return reconcile.Outcome{Status: result.StatusCode, Data: list}
}

func failed(inv *function.Invocation, taskID string, err error) reconcile.Outcome {
	status, message := function.Reply(err)

	inv.Logger.Warn("task decisions failed",
		zap.String("task_id", taskID),
		zap.Int("status", status),
		zap.Error(err))

	return reconcile.Outcome{Status: status, Failure: message}
}
