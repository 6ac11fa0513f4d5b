package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/qnorm/internal/canoncheck"
	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/normalize"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		if event.Failed() {
			fmt.Fprintf(&buf, "  [%d] %s error %s\n", i+1, event.Case, event.ErrorCode)
		} else {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, event.Case, shortHash(event.OutputHash))
		}
	}

	return buf.String()
}

// assertCanonical checks that every selected successful output is in
// canonical form.
func assertCanonical(trace []TraceEvent, assertion Assertion) error {
	var violations []string
	for _, event := range selectEvents(trace, assertion.Cases) {
		if event.Failed() {
			continue
		}
		res := canoncheck.Check(event.Output)
		for _, v := range res.Violations {
			violations = append(violations, fmt.Sprintf("%s: %s", event.Case, v))
		}
	}
	if len(violations) == 0 {
		return nil
	}

	return &AssertionError{
		Type:     AssertCanonical,
		Expected: "all outputs canonical",
		Actual:   strings.Join(violations, "; "),
		Trace:    trace,
	}
}

// assertIdempotent checks that normalizing each selected output again
// yields the same query.
func assertIdempotent(trace []TraceEvent, assertion Assertion, n *normalize.Normalizer) error {
	for _, event := range selectEvents(trace, assertion.Cases) {
		if event.Failed() {
			continue
		}
		again, err := n.Normalize(event.Output)
		if err != nil {
			return &AssertionError{
				Type:     AssertIdempotent,
				Expected: fmt.Sprintf("case %s to normalize again", event.Case),
				Actual:   err.Error(),
				Trace:    trace,
			}
		}
		if hash := ir.MustQueryHash(again); hash != event.OutputHash {
			return &AssertionError{
				Type:     AssertIdempotent,
				Expected: fmt.Sprintf("case %s unchanged (%s)", event.Case, shortHash(event.OutputHash)),
				Actual:   fmt.Sprintf("changed to %s", canonicalText(again)),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertEquivalent checks that the named cases share one output hash.
func assertEquivalent(trace []TraceEvent, assertion Assertion) error {
	hashes, err := outputHashes(trace, assertion)
	if err != nil {
		return err
	}

	first := hashes[0]
	for i, h := range hashes[1:] {
		if h != first {
			return &AssertionError{
				Type:     AssertEquivalent,
				Expected: fmt.Sprintf("%s and %s to normalize identically", assertion.Cases[0], assertion.Cases[i+1]),
				Actual:   fmt.Sprintf("%s != %s", shortHash(first), shortHash(h)),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertDistinct checks that the named cases have pairwise different
// output hashes.
func assertDistinct(trace []TraceEvent, assertion Assertion) error {
	hashes, err := outputHashes(trace, assertion)
	if err != nil {
		return err
	}

	seen := make(map[string]string, len(hashes))
	for i, h := range hashes {
		if prev, ok := seen[h]; ok {
			return &AssertionError{
				Type:     AssertDistinct,
				Expected: fmt.Sprintf("%s and %s to differ", prev, assertion.Cases[i]),
				Actual:   fmt.Sprintf("both normalize to %s", shortHash(h)),
				Trace:    trace,
			}
		}
		seen[h] = assertion.Cases[i]
	}
	return nil
}

// assertRecordCount checks the number of records held by the recorder.
func assertRecordCount(result *Result, assertion Assertion) error {
	if result.Records == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRecordCount,
		Expected: fmt.Sprintf("%d records", assertion.Count),
		Actual:   fmt.Sprintf("%d records", result.Records),
		Trace:    result.Trace,
	}
}

// outputHashes returns the output hashes of the named cases in order.
// Every named case must have succeeded.
func outputHashes(trace []TraceEvent, assertion Assertion) ([]string, error) {
	hashes := make([]string, 0, len(assertion.Cases))
	for _, name := range assertion.Cases {
		event, ok := findEvent(trace, name)
		if !ok {
			return nil, &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("case %s in trace", name),
				Actual:   "not found",
				Trace:    trace,
			}
		}
		if event.Failed() {
			return nil, &AssertionError{
				Type:     assertion.Type,
				Expected: fmt.Sprintf("case %s to succeed", name),
				Actual:   fmt.Sprintf("error %s", event.ErrorCode),
				Trace:    trace,
			}
		}
		hashes = append(hashes, event.OutputHash)
	}
	return hashes, nil
}

// selectEvents returns the events for names, or the whole trace when names
// is empty.
func selectEvents(trace []TraceEvent, names []string) []TraceEvent {
	if len(names) == 0 {
		return trace
	}
	selected := make([]TraceEvent, 0, len(names))
	for _, name := range names {
		if event, ok := findEvent(trace, name); ok {
			selected = append(selected, event)
		}
	}
	return selected
}

func findEvent(trace []TraceEvent, name string) (TraceEvent, bool) {
	for _, e := range trace {
		if e.Case == name {
			return e, true
		}
	}
	return TraceEvent{}, false
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// EvaluateAssertions runs all assertions and returns the error messages of
// those that failed.
func EvaluateAssertions(result *Result, assertions []Assertion, n *normalize.Normalizer) []string {
	var errs []string

	for _, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCanonical:
			err = assertCanonical(result.Trace, assertion)
		case AssertIdempotent:
			err = assertIdempotent(result.Trace, assertion, n)
		case AssertEquivalent:
			err = assertEquivalent(result.Trace, assertion)
		case AssertDistinct:
			err = assertDistinct(result.Trace, assertion)
		case AssertRecordCount:
			err = assertRecordCount(result, assertion)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
