// Package function runs one Snowflake external function batch against an
// Endpoint: decode, validate, fetch credentials, call upstream, reconcile,
// annotate and encode. Any failure outside the endpoint's row scoped handling
// turns the whole invocation into a single text reply.
package function

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/prognoshealth/factsetfunctions/batch"
	"github.com/prognoshealth/factsetfunctions/billing"
	"github.com/prognoshealth/factsetfunctions/config"
	"github.com/prognoshealth/factsetfunctions/factset"
	"github.com/prognoshealth/factsetfunctions/lambdautils"
	"github.com/prognoshealth/factsetfunctions/secrets"
)

// Endpoint is one external function: a fixed batch ceiling plus the logic that
// turns decoded rows into output rows.
type Endpoint interface {
	Name() string
	MaxBatchRows() int
	// Invoke returns one output row per input row. A returned error fails the
	// whole batch; row scoped faults must be absorbed into the rows instead.
	Invoke(inv *Invocation) ([]*batch.OutputRow, error)
}

// Invocation is the state of one batch as seen by an endpoint.
type Invocation struct {
	Context context.Context
	Rows    []batch.Row
	Client  *factset.Client
	Meter   *billing.Meter
	Logger  *zap.Logger
	// Debug holds extra entries for the debug block on the first row.
	Debug map[string]interface{}
}

// Record meters an upstream call. A nil result is ignored.
func (inv *Invocation) Record(label string, result *factset.Result) {
	if result == nil {
		return
	}

	inv.Meter.Record(label, result.Elapsed)
}

// Controller runs batches. It holds no per invocation state and is safe for
// concurrent use.
type Controller struct {
	Config      *config.Config
	Credentials secrets.Provider
	Logger      *zap.Logger

	doer    factset.Doer
	nowFunc func() time.Time
}

// NewController returns a controller fetching credentials from provider on
// every invocation.
func NewController(cfg *config.Config, provider secrets.Provider, logger *zap.Logger) *Controller {
	return &Controller{Config: cfg, Credentials: provider, Logger: logger}
}

// WithDoer replaces the upstream transport, mostly for stubbing.
func (c *Controller) WithDoer(d factset.Doer) *Controller {
	c.doer = d
	return c
}

func (c *Controller) now() time.Time {
	if c.nowFunc != nil {
		return c.nowFunc()
	}

	return time.Now()
}

func (c *Controller) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return zap.NewNop()
}

// Handle runs the batch in body against ep and returns the reply.
func (c *Controller) Handle(ctx context.Context, ep Endpoint, body []byte) events.APIGatewayProxyResponse {
	logger := lambdautils.Logger(ctx, c.logger()).With(zap.String("endpoint", ep.Name()))

	rows, state, err := c.run(ctx, ep, body, logger)
	if err != nil {
		return c.fail(logger, state, err)
	}

	reply, err := batch.Encode(rows)
	if err != nil {
		return c.fail(logger, Encoded, err)
	}

	logger.Info("batch completed", zap.Int("rows", len(rows)))

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(reply),
	}
}

func (c *Controller) run(ctx context.Context, ep Endpoint, body []byte, logger *zap.Logger) ([]*batch.OutputRow, State, error) {
	rows, err := batch.Decode(body)
	if err != nil {
		return nil, Received, err
	}

	logger.Info("batch received", zap.Int("rows", len(rows)), zap.Int("max", ep.MaxBatchRows()))

	if err := batch.CheckLimit(rows, ep.MaxBatchRows()); err != nil {
		return nil, Received, err
	}

	if len(rows) == 0 {
		return []*batch.OutputRow{}, Validated, nil
	}

	begin := c.now()
	creds, err := c.Credentials.Credentials(ctx)
	elapsed := c.now().Sub(begin)

	if err != nil {
		return nil, Validated, err
	}

	logger.Debug("credentials retrieved", zap.Duration("elapsed", elapsed))

	client := factset.NewClient(c.Config.BaseURL, c.Config.Timeout(), creds.APIUser, creds.APIKey)
	client.Logger = logger
	if c.doer != nil {
		client.WithDoer(c.doer)
	}

	inv := &Invocation{
		Context: ctx,
		Rows:    rows,
		Client:  client,
		Meter:   billing.NewMeter(len(rows), elapsed),
		Logger:  logger,
		Debug:   map[string]interface{}{},
	}

	out, err := ep.Invoke(inv)
	if err != nil {
		return nil, Called, err
	}

	if len(out) != len(rows) {
		return nil, Reconciled, errors.Errorf("%s returned %d rows for a batch of %d", ep.Name(), len(out), len(rows))
	}

	batch.SortByIndex(out)

	debug := inv.Meter.Debug()
	for k, v := range inv.Debug {
		debug[k] = v
	}
	billing.Annotate(out, debug)

	return out, Reconciled, nil
}

func (c *Controller) fail(logger *zap.Logger, state State, err error) events.APIGatewayProxyResponse {
	status, message := Reply(err)

	logger.Error("batch failed",
		zap.Stringer("state", state),
		zap.Int("status", status),
		zap.Error(err))

	return TextResponse(status, message)
}

// Failure returns the reply for an error raised before a batch could be run.
func (c *Controller) Failure(ctx context.Context, err error) events.APIGatewayProxyResponse {
	return c.fail(lambdautils.Logger(ctx, c.logger()), Received, err)
}

// Reply maps an invocation failure to its status code and message. Upstream
// timeouts and non-2xx responses keep their own status and text, everything
// else is a 400 with the error text.
func Reply(err error) (int, string) {
	var serr factset.StatusError
	if errors.As(err, &serr) {
		return serr.Status(), serr.Error()
	}

	var verr *batch.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Error()
	}

	return http.StatusBadRequest, err.Error()
}

// TextResponse returns a plain text reply.
func TextResponse(status int, message string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       message,
	}
}
