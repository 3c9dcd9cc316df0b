package proxy

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

// ErrorHandler turns an error returned by a route into a response.
type ErrorHandler func(context.Context, events.APIGatewayProxyRequest, error) (events.APIGatewayProxyResponse, error)

// CatchAllHandler answers requests no route matched.
type CatchAllHandler func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Router dispatches API Gateway proxy requests to the first route, in the
// order added, whose method and path match.
//
// Unmatched requests go to CatchAll when set and are an error otherwise.
// Route errors go through CatchError when set.
//
// Example:
//
//	router := &proxy.Router{}
//	router.POST("/concordance/company-match", func(ctx *proxy.RouteContext) (events.APIGatewayProxyResponse, error) {
//		body, err := ctx.Body()
//		if err != nil {
//			return events.APIGatewayProxyResponse{}, err
//		}
//		return controller.Handle(ctx.Context, endpoint, body), nil
//	})
//
//	if !router.Valid() {
//		return router.BuildErrors()
//	}
//
//	lambda.Start(router.Route)
type Router struct {
	Routes     []*Route
	CatchAll   CatchAllHandler
	CatchError ErrorHandler

	errors []error
}

// Valid reports whether every route was built.
func (router *Router) Valid() bool {
	return len(router.errors) == 0
}

// AddRoute appends route.
func (router *Router) AddRoute(route *Route) {
	router.Routes = append(router.Routes, route)
}

// AddBuildError records a route that failed to build.
func (router *Router) AddBuildError(err error) {
	router.errors = append(router.errors, err)
}

// BuildErrors returns one error listing every route build failure, or nil.
func (router *Router) BuildErrors() error {
	if router.Valid() {
		return nil
	}

	msgs := make([]string, len(router.errors))
	for i, err := range router.errors {
		msgs[i] = err.Error()
	}

	return errors.Errorf("failed building router: %s", strings.Join(msgs, "; "))
}

// AddRouteIfNoError takes the result of NewRoute and appends the route or
// records the error.
func (router *Router) AddRouteIfNoError(route *Route, err error) {
	if err != nil {
		router.AddBuildError(err)
		return
	}

	router.AddRoute(route)
}

// GET adds a GET route for pattern. External functions are always POSTed,
// so nothing outside the router's own tests registers GET routes.
func (router *Router) GET(pattern string, handler RouteHandler) {
	router.AddRouteIfNoError(NewRoute(GET, pattern, handler))
}

// POST adds a POST route for pattern. External functions are always POSTed.
func (router *Router) POST(pattern string, handler RouteHandler) {
	router.AddRouteIfNoError(NewRoute(POST, pattern, handler))
}

// AddCatchAllHandler sets CatchAll.
func (router *Router) AddCatchAllHandler(handler CatchAllHandler) {
	router.CatchAll = handler
}

// AddErrorHandler sets CatchError.
func (router *Router) AddErrorHandler(handler ErrorHandler) {
	router.CatchError = handler
}

func (router *Router) dispatch(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	for _, route := range router.Routes {
		if matched, groups := route.IsMatch(request); matched {
			return route.Follow(ctx, request, groups)
		}
	}

	if router.CatchAll != nil {
		return router.CatchAll(ctx, request)
	}

	return events.APIGatewayProxyResponse{}, fmt.Errorf("'%s %s' not found", request.HTTPMethod, request.Path)
}

// Route answers request. It has the signature lambda.Start expects.
func (router *Router) Route(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	response, err := router.dispatch(ctx, request)

	if err != nil && router.CatchError != nil {
		return router.CatchError(ctx, request, err)
	}

	return response, err
}
