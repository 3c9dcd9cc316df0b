package factset

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// StatusError is an upstream failure that knows the status code the
// invocation, or the rows depending on the call, should report.
type StatusError interface {
	error
	Status() int
}

// TimeoutError is returned when a call does not complete within the read
// timeout.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	seconds := strconv.FormatFloat(e.Timeout.Seconds(), 'f', -1, 64)
	return fmt.Sprintf("HTTP Timeout: %s exceeded %s seconds", e.URL, seconds)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Status returns 408.
func (e *TimeoutError) Status() int {
	return http.StatusRequestTimeout
}

// UpstreamError is a non-2xx response. Body is the upstream body verbatim.
type UpstreamError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Error calling %s: %s", e.URL, e.Body)
}

// Status returns the upstream status code.
func (e *UpstreamError) Status() int {
	return e.StatusCode
}
