// Package billing computes the timing metadata returned with each batch.
//
// The credential fetch is shared evenly by the rows of the batch; each row is
// billed its share plus the upstream call time. The figures are attached once,
// to the first row of the reply.
package billing

import (
	"time"

	"github.com/prognoshealth/factsetfunctions/batch"
)

// Debug block keys.
const (
	KeyDebug                 = "debug"
	KeyAPIResponseTimeMs     = "api_response_time_ms"
	KeyBillingResponseTimeMs = "billing_response_time_ms"
	KeyTaskResponseTimeMs    = "task_response_time_ms"
	KeyAPICalls              = "api_calls"
	KeyAPIResponse           = "api_response"
	KeyAPIStatus             = "api_status"
	KeyFile                  = "file"
)

// CredentialShareMs divides the credential fetch time by rows, in whole
// milliseconds rounded down.
func CredentialShareMs(elapsed time.Duration, rows int) int64 {
	if rows <= 0 {
		return 0
	}

	return int64(elapsed / (time.Duration(rows) * time.Millisecond))
}

// Call is one timed upstream call.
type Call struct {
	Label   string
	Elapsed time.Duration
}

// Meter collects the timings of one invocation.
type Meter struct {
	Rows              int
	CredentialElapsed time.Duration
	// PerCall adds per call figures to the debug block.
	PerCall bool

	calls []Call
}

// NewMeter returns a meter for a batch of rows whose credentials took elapsed.
func NewMeter(rows int, elapsed time.Duration) *Meter {
	return &Meter{Rows: rows, CredentialElapsed: elapsed}
}

// Record adds an upstream call.
func (m *Meter) Record(label string, elapsed time.Duration) {
	m.calls = append(m.calls, Call{Label: label, Elapsed: elapsed})
}

// Calls returns the recorded calls in order.
func (m *Meter) Calls() []Call {
	return m.calls
}

// CredentialShareMs returns the per row share of the credential fetch.
func (m *Meter) CredentialShareMs() int64 {
	return CredentialShareMs(m.CredentialElapsed, m.Rows)
}

// APIResponseTimeMs sums the recorded calls, each in whole milliseconds.
func (m *Meter) APIResponseTimeMs() int64 {
	var total int64
	for _, c := range m.calls {
		total += c.Elapsed.Milliseconds()
	}

	return total
}

// BillingResponseTimeMs is the call time plus the credential share.
func (m *Meter) BillingResponseTimeMs() int64 {
	return m.APIResponseTimeMs() + m.CredentialShareMs()
}

// Debug returns a new debug block with the timing figures.
func (m *Meter) Debug() map[string]interface{} {
	debug := map[string]interface{}{
		KeyAPIResponseTimeMs:     m.APIResponseTimeMs(),
		KeyBillingResponseTimeMs: m.BillingResponseTimeMs(),
	}

	if m.PerCall {
		perCall := make(map[string]int64, len(m.calls))
		for _, c := range m.calls {
			perCall[c.Label] = c.Elapsed.Milliseconds()
		}

		debug[KeyTaskResponseTimeMs] = perCall
		debug[KeyAPICalls] = len(m.calls)
	}

	return debug
}

// Annotate attaches debug to the first row only.
func Annotate(rows []*batch.OutputRow, debug map[string]interface{}) {
	if len(rows) == 0 {
		return
	}

	rows[0].Value[KeyDebug] = debug
}
