// Package factset calls the FactSet Concordance and Symbology REST APIs.
//
// Calls are made one at a time with a fixed read timeout and are never
// retried; a failed call is reported to the caller as a TimeoutError or an
// UpstreamError.
package factset

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/prognoshealth/factsetfunctions/request"
)

// Doer executes http requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is bound to one set of credentials and lives for one invocation.
type Client struct {
	BaseURL string
	Timeout time.Duration
	User    string
	Key     string
	Logger  *zap.Logger

	doer    Doer
	nowFunc func() time.Time
}

// NewClient returns a client using an http.Client with timeout.
func NewClient(baseURL string, timeout time.Duration, user, key string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: timeout,
		User:    user,
		Key:     key,
		doer:    &http.Client{Timeout: timeout},
	}
}

// WithDoer replaces the transport, mostly for stubbing.
func (c *Client) WithDoer(d Doer) *Client {
	c.doer = d
	return c
}

func (c *Client) now() time.Time {
	if c.nowFunc != nil {
		return c.nowFunc()
	}

	return time.Now()
}

func (c *Client) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return zap.NewNop()
}

// Result is the outcome of one upstream call. Elapsed is measured from call
// start to completion whether or not the call succeeded.
type Result struct {
	URL        string
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// ResponseTimeMs returns Elapsed in whole milliseconds.
func (r *Result) ResponseTimeMs() int64 {
	return r.Elapsed.Milliseconds()
}

// JSON decodes the body, keeping numbers as json.Number.
func (r *Result) JSON() (interface{}, error) {
	var v interface{}

	d := json.NewDecoder(bytes.NewReader(r.Body))
	d.UseNumber()

	if err := d.Decode(&v); err != nil {
		return nil, errors.Wrapf(err, "failed decoding response from %s", r.URL)
	}

	return v, nil
}

// Data returns the "data" member of a json object body.
func (r *Result) Data() (interface{}, error) {
	v, err := r.JSON()
	if err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("response from %s is not an object", r.URL)
	}

	data, ok := obj["data"]
	if !ok {
		return nil, errors.Errorf("response from %s has no data", r.URL)
	}

	return data, nil
}

// Call performs req. The returned result is non-nil whenever the request could
// be built, so its Elapsed can be billed even when err is set.
func (c *Client) Call(ctx context.Context, req request.Request) (*Result, error) {
	url := req.URL(c.BaseURL)

	httpReq, err := req.HTTPRequest(ctx, c.BaseURL)
	if err != nil {
		return nil, err
	}

	httpReq.SetBasicAuth(c.User, c.Key)

	result := &Result{URL: url}
	begin := c.now()

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		result.Elapsed = c.now().Sub(begin)
		return result, c.failure(url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	result.Elapsed = c.now().Sub(begin)
	result.StatusCode = resp.StatusCode

	if err != nil {
		return result, c.failure(url, err)
	}

	result.Body = body

	c.logger().Debug("upstream call",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int64("ms", result.ResponseTimeMs()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &UpstreamError{URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return result, nil
}

func (c *Client) failure(url string, err error) error {
	if isTimeout(err) {
		c.logger().Warn("upstream timeout", zap.String("url", url), zap.Duration("timeout", c.Timeout))
		return &TimeoutError{URL: url, Timeout: c.Timeout, Err: err}
	}

	return errors.Wrapf(err, "failed calling %s", url)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
