package endpoint

import (
	"github.com/prognoshealth/factsetfunctions/batch"
	"github.com/prognoshealth/factsetfunctions/billing"
	"github.com/prognoshealth/factsetfunctions/factset"
	"github.com/prognoshealth/factsetfunctions/function"
	"github.com/prognoshealth/factsetfunctions/reconcile"
	"github.com/prognoshealth/factsetfunctions/request"
	"github.com/prognoshealth/factsetfunctions/schema"
)

var (
	symbologySchema      = schema.New("ids")
	symbologyBatchSchema = schema.New("id")
)

// Symbology translates the identifiers of a single row. The whole upstream
// body becomes the row's response.
type Symbology struct{}

func (Symbology) Name() string      { return "symbology" }
func (Symbology) MaxBatchRows() int { return 1 }

func (Symbology) Invoke(inv *function.Invocation) ([]*batch.OutputRow, error) {
	out := make([]*batch.OutputRow, 0, len(inv.Rows))

	for _, row := range inv.Rows {
		fields := symbologySchema.Extract(row)

		result, err := inv.Client.Call(inv.Context, request.Query(factset.SymbologyPath, fields))
		inv.Record("symbology", result)
		if err != nil {
			return nil, err
		}

		body, err := result.JSON()
		if err != nil {
			return nil, err
		}

		o := batch.NewOutputRow(row.Index, fields.Map())
		reconcile.Direct(o, result.StatusCode, body)
		out = append(out, o)
	}

	return out, nil
}

// SymbologyBatch translates one identifier per row in a single call.
// Upstream answers in request order.
type SymbologyBatch struct{}

func (SymbologyBatch) Name() string      { return "symbology-batch" }
func (SymbologyBatch) MaxBatchRows() int { return 1000 }

func (SymbologyBatch) Invoke(inv *function.Invocation) ([]*batch.OutputRow, error) {
	out := echo(inv.Rows, symbologyBatchSchema)

	result, err := inv.Client.Call(inv.Context, request.Values(factset.SymbologyPath, "ids", inv.Rows))
	inv.Record("symbology", result)
	if err != nil {
		return nil, err
	}

	data, err := result.Data()
	if err != nil {
		return nil, err
	}

	list, err := results(data, factset.SymbologyPath)
	if err != nil {
		return nil, err
	}

	logGaps(inv.Logger, reconcile.Positional(out, list))

	inv.Debug[billing.KeyAPIResponse] = data
	inv.Debug[billing.KeyAPIStatus] = result.StatusCode

	return out, nil
}
