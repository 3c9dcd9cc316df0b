package proxy

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

// RouteHandler answers a matched request.
type RouteHandler func(*RouteContext) (events.APIGatewayProxyResponse, error)

// Route pairs a method with an anchored path pattern. A trailing slash on the
// request path is tolerated.
type Route struct {
	Method  HttpMethod
	Regex   *regexp.Regexp
	Handler RouteHandler
}

// NewRoute compiles pattern into a route.
func NewRoute(method HttpMethod, pattern string, handler RouteHandler) (*Route, error) {
	rx, err := regexp.Compile("^" + pattern + "/?$")
	if err != nil {
		return nil, errors.Wrapf(err, "failed compiling regex pattern '%s'", pattern)
	}

	return &Route{Method: method, Regex: rx, Handler: handler}, nil
}

func (route *Route) String() string {
	return fmt.Sprintf("%s %s", route.Method, route.Regex)
}

// IsMatch reports whether request matches and returns the submatches.
func (route *Route) IsMatch(request events.APIGatewayProxyRequest) (bool, []string) {
	if route.Method.String() != request.HTTPMethod {
		return false, nil
	}

	groups := route.Regex.FindStringSubmatch(request.Path)
	return len(groups) > 0, groups
}

// Context builds the handler's RouteContext. Non-empty named groups become
// Params.
func (route *Route) Context(ctx context.Context, request events.APIGatewayProxyRequest, groups []string) (*RouteContext, error) {
	if len(groups) == 0 {
		return nil, errors.Errorf("no submatches for route %v", route)
	}

	params := make(map[string]string)
	for i, name := range route.Regex.SubexpNames() {
		if i > 0 && name != "" && i < len(groups) && groups[i] != "" {
			params[name] = groups[i]
		}
	}

	return &RouteContext{Context: ctx, Request: request, Params: params}, nil
}

// Follow runs the handler for a request IsMatch accepted.
func (route *Route) Follow(ctx context.Context, request events.APIGatewayProxyRequest, groups []string) (events.APIGatewayProxyResponse, error) {
	rctx, err := route.Context(ctx, request, groups)
	if err != nil {
		return events.APIGatewayProxyResponse{}, errors.Wrapf(err, "failed getting context for route %v", route.Regex)
	}

	return route.Handler(rctx)
}
