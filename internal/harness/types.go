package harness

import "github.com/roach88/qnorm/internal/ir"

// TraceEvent records what happened to one scenario case.
// Exactly one of Output and ErrorCode is set.
type TraceEvent struct {
	Case       string     `json:"case"`
	RequestID  string     `json:"request_id"`
	Seq        int64      `json:"seq,omitempty"`
	InputHash  string     `json:"input_hash,omitempty"`
	OutputHash string     `json:"output_hash,omitempty"`
	Output     ir.IRValue `json:"-"`
	Cached     bool       `json:"cached,omitempty"`
	ErrorCode  string     `json:"error_code,omitempty"`
	ErrorPath  string     `json:"error_path,omitempty"`
}

// Failed reports whether the case produced an error instead of an output.
func (e TraceEvent) Failed() bool {
	return e.ErrorCode != ""
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every case matched its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per case, in scenario order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Records is the number of records the recorder held after the run.
	Records int `json:"records"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a case event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
