package pipeline

import (
	"errors"
	"fmt"
)

// PassError reports which pass rejected a query.
type PassError struct {
	// Pass is the Name() of the failing pass.
	Pass string

	// RequestID identifies the request in logs.
	RequestID string

	// Err is the error returned by the pass.
	Err error
}

// Error implements the error interface.
func (e *PassError) Error() string {
	return fmt.Sprintf("pass %s failed (request=%s): %v", e.Pass, e.RequestID, e.Err)
}

// Unwrap exposes the pass error to errors.Is and errors.As.
func (e *PassError) Unwrap() error {
	return e.Err
}

// BatchError reports which query of a ProcessAll batch failed.
type BatchError struct {
	// Index is the position of the query in the batch.
	Index int

	// Err is the error returned by Process.
	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("query %d: %v", e.Index, e.Err)
}

// Unwrap exposes the query error to errors.Is and errors.As.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// FailedPass returns the name of the pass that produced err, if any.
func FailedPass(err error) (string, bool) {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Pass, true
	}
	return "", false
}
