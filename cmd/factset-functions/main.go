// Command factset-functions serves the FactSet external functions from a
// single Lambda behind an API Gateway proxy integration.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prognoshealth/factsetfunctions/config"
	"github.com/prognoshealth/factsetfunctions/endpoint"
	"github.com/prognoshealth/factsetfunctions/function"
	"github.com/prognoshealth/factsetfunctions/proxy"
	"github.com/prognoshealth/factsetfunctions/secrets"
)

func main() {
	cfg, err := config.NewFromEnv(os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	provider := secrets.NewSecretsManagerProvider(cfg.Region, cfg.SecretName)
	controller := function.NewController(cfg, provider, logger)

	router, err := newRouter(controller)
	if err != nil {
		logger.Fatal("invalid routes", zap.Error(err))
	}

	logger.Info("starting",
		zap.String("region", cfg.Region),
		zap.String("base_url", cfg.BaseURL),
		zap.Int64("read_timeout", cfg.ReadTimeout))

	lambda.Start(router.Route)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}

func newRouter(c *function.Controller) (*proxy.Router, error) {
	router := &proxy.Router{}
	endpoint.Register(router, c)

	router.AddCatchAllHandler(func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return function.TextResponse(http.StatusNotFound, fmt.Sprintf("'%s %s' not found", request.HTTPMethod, request.Path)), nil
	})

	router.AddErrorHandler(func(ctx context.Context, request events.APIGatewayProxyRequest, err error) (events.APIGatewayProxyResponse, error) {
		return c.Failure(ctx, err), nil
	})

	if !router.Valid() {
		return nil, router.BuildErrors()
	}

	return router, nil
}
