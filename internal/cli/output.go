package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit statuses. main turns a returned error into one of these
// with GetExitCode.
const (
	ExitSuccess = 0
	// ExitFailure means the input was read but did not pass: a malformed
	// query, a non-canonical document or a failing scenario.
	ExitFailure = 1
	// ExitCommandError means the command itself could not run.
	ExitCommandError = 2
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// ExitError carries an exit status up through cobra's RunE.
type ExitError struct {
	Code    int
	Message string
	Err     error // may be nil
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode finds the *ExitError in err's chain. Anything else counts as
// a query failure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter prints command results either as plain text or as one
// CLIResponse object per call. VerboseLog lines go to ErrWriter, falling
// back to Writer when it is nil; keep them apart under --format json.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope. TraceID is the request ID, set only
// when exactly one query was processed.
type CLIResponse struct {
	Status  string    `json:"status"`
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// CLIError reports a failure under one of the ErrCode values.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) jsonMode() bool { return f.Format == "json" }

func (f *OutputFormatter) emit(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

func (f *OutputFormatter) Success(data any) error {
	return f.SuccessTraced(data, "")
}

// SuccessTraced is Success for a single processed query. Text output has
// nowhere to put the trace ID and drops it.
func (f *OutputFormatter) SuccessTraced(data any, traceID string) error {
	if f.jsonMode() {
		return f.emit(CLIResponse{Status: statusOK, Data: data, TraceID: traceID})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error prints "Error [code]: message". Details are always part of the
// JSON envelope but only printed as text with --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.jsonMode() {
		return f.emit(CLIResponse{
			Status: statusError,
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	if _, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if !f.Verbose || details == nil {
		return nil
	}
	_, err := fmt.Fprintf(f.Writer, "Details: %v\n", details)
	return err
}

// VerboseLog is a no-op unless --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.Diagnostics(), format+"\n", args...)
	}
}

// Diagnostics is where VerboseLog writes.
func (f *OutputFormatter) Diagnostics() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}
