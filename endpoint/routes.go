package endpoint

import (
	"github.com/aws/aws-lambda-go/events"

	"github.com/prognoshealth/factsetfunctions/function"
	"github.com/prognoshealth/factsetfunctions/proxy"
)

// Route binds an endpoint to the path it is served on.
type Route struct {
	Path     string
	Endpoint function.Endpoint
}

// Routes returns every endpoint with its path.
func Routes() []Route {
	return []Route{
		{"/concordance/company-match", CompanyMatch{}},
		{"/concordance/company-match/batch", CompanyMatchBatch{}},
		{"/concordance/entity-task", EntityTask{}},
		{"/concordance/company-decisions", CompanyDecisions{}},
		{"/symbology/factset", Symbology{}},
		{"/symbology/factset/batch", SymbologyBatch{}},
	}
}

// Register adds a POST route per endpoint to router, each run by c.
func Register(router *proxy.Router, c *function.Controller) {
	for _, r := range Routes() {
		router.POST(r.Path, Handler(c, r.Endpoint))
	}
}

// Handler returns a route handler running ep with the request body.
func Handler(c *function.Controller, ep function.Endpoint) proxy.RouteHandler {
	return func(ctx *proxy.RouteContext) (events.APIGatewayProxyResponse, error) {
		body, err := ctx.Body()
		if err != nil {
			return c.Failure(ctx.Context, err), nil
		}

		return c.Handle(ctx.Context, ep, body), nil
	}
}
