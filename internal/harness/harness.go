package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/qnorm/internal/decode"
	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/normalize"
	"github.com/roach88/qnorm/internal/pipeline"
	"github.com/roach88/qnorm/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenario cases with a deterministic clock and request IDs.
type Harness struct {
	normalizer *normalize.Normalizer
	pipeline   *pipeline.Pipeline
	recorder   *testutil.MemoryRecorder
}

// Run executes a scenario and returns the result.
//
// Each scenario runs with a fresh recorder for isolation.
//
// Execution flow:
// 1. Build a normalizer (strict when the scenario asks for it)
// 2. Normalize every case in order through the pipeline
// 3. Compare each outcome with its expect or expect_error clause
// 4. Evaluate scenario assertions
//
// An error is returned only when a case input cannot be decoded; failed
// expectations are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	var opts []normalize.Option
	if scenario.Strict {
		opts = append(opts, normalize.WithStrictFilters())
	}

	h := newHarness(normalize.New(opts...))
	ctx := context.Background()

	result := NewResult()
	for _, c := range scenario.Cases {
		if err := h.runCase(ctx, c, result); err != nil {
			return nil, fmt.Errorf("case %q: %w", c.Name, err)
		}
	}
	result.Records = len(h.recorder.Records())

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, h.normalizer) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(n *normalize.Normalizer) *Harness {
	recorder := testutil.NewMemoryRecorder()
	p := pipeline.New(
		[]pipeline.Pass{n},
		pipeline.WithRecorder(recorder),
		pipeline.WithClock(testutil.NewDeterministicClock()),
		pipeline.WithIDGenerator(testutil.NewSequentialIDGenerator("case")),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)

	return &Harness{
		normalizer: n,
		pipeline:   p,
		recorder:   recorder,
	}
}

// runCase normalizes one case and checks its expectation.
func (h *Harness) runCase(ctx context.Context, c Case, result *Result) error {
	input, err := decode.FromYAMLNode(&c.Input)
	if err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}

	res, err := h.pipeline.Process(ctx, input)
	if err != nil {
		event, ok := errorEvent(c.Name, err)
		if !ok {
			return err
		}
		result.AddTrace(event)
		h.checkError(c, event, err, result)
		return nil
	}

	event := TraceEvent{
		Case:       c.Name,
		RequestID:  res.RequestID,
		Seq:        res.Seq,
		InputHash:  res.InputHash,
		OutputHash: res.OutputHash,
		Output:     res.Output,
		Cached:     res.Cached,
	}
	result.AddTrace(event)

	if c.ExpectError != nil {
		result.AddError(fmt.Sprintf("case %q: expected error %s, got output %s",
			c.Name, c.ExpectError.Code, canonicalText(res.Output)))
		return nil
	}
	if c.Expect.Kind == 0 {
		return nil
	}

	expected, err := decode.FromYAMLNode(&c.Expect)
	if err != nil {
		return fmt.Errorf("failed to decode expect: %w", err)
	}
	want, got := canonicalText(expected), canonicalText(res.Output)
	if want != got {
		result.AddError(fmt.Sprintf("case %q: output mismatch\n  Expected: %s\n  Actual: %s", c.Name, want, got))
	}
	return nil
}

// checkError compares a normalization failure with the case expectation.
func (h *Harness) checkError(c Case, event TraceEvent, err error, result *Result) {
	if c.ExpectError == nil {
		result.AddError(fmt.Sprintf("case %q: unexpected error: %v", c.Name, err))
		return
	}
	if event.ErrorCode != c.ExpectError.Code {
		result.AddError(fmt.Sprintf("case %q: expected error %s, got %s", c.Name, c.ExpectError.Code, event.ErrorCode))
		return
	}
	if c.ExpectError.Path != "" && event.ErrorPath != c.ExpectError.Path {
		result.AddError(fmt.Sprintf("case %q: expected error at %s, got %s", c.Name, c.ExpectError.Path, event.ErrorPath))
	}
}

// errorEvent builds the trace event for a normalization failure.
// It returns false for errors that are not normalization errors.
func errorEvent(name string, err error) (TraceEvent, bool) {
	var passErr *pipeline.PassError
	var normErr *normalize.Error
	if !errors.As(err, &passErr) || !errors.As(err, &normErr) {
		return TraceEvent{}, false
	}
	return TraceEvent{
		Case:      name,
		RequestID: passErr.RequestID,
		ErrorCode: string(normErr.Code),
		ErrorPath: normErr.Path.String(),
	}, true
}

// canonicalText renders a tree as canonical JSON for comparison and
// messages. Trees that cannot be encoded render as their Go syntax.
func canonicalText(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
