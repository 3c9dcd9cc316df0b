// Package proxy routes API Gateway REST (v1 proxy integration) requests to
// handlers inside a single lambda. Snowflake external functions reach the
// lambda through such an integration, one resource path per function, so
// each external function maps onto one route.
//
// Matching is on method and path only.
package proxy
