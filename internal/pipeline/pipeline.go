package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/qnorm/internal/ir"
)

// Pass is one query processing stage.
type Pass interface {
	// Name identifies the pass in logs, errors and records. Passes whose
	// results can differ must have different names.
	Name() string

	// Apply transforms v. It must not modify v.
	Apply(ctx context.Context, v ir.IRValue) (ir.IRValue, error)
}

// Record is a processed query as handed to a Recorder.
type Record struct {
	RequestID     string
	InputHash     string // ir.MemoHash of Input
	OutputHash    string // ir.QueryHash of Output
	Passes        string
	Input         ir.IRValue
	Output        ir.IRValue
	QueryType     string
	Seq           int64
	EngineVersion string
}

// Recorder persists processed queries and serves earlier results.
// Implemented by store.Store.
type Recorder interface {
	// Lookup returns the record for an input hash and pass list, if any.
	Lookup(ctx context.Context, inputHash, passes string) (Record, bool, error)

	// Write stores rec. Writing a record whose input hash and pass list are
	// already stored is a no-op.
	Write(ctx context.Context, rec Record) error
}

// Result is the outcome of processing one query.
type Result struct {
	RequestID  string
	Output     ir.IRValue
	InputHash  string
	OutputHash string
	Seq        int64

	// Cached is true when Output came from the Recorder. Recorders must
	// hand back the tree they were given, kinds included.
	Cached bool
}

// DefaultConcurrency bounds ProcessAll when WithConcurrency is not given.
const DefaultConcurrency = 4

// Pipeline applies passes to queries.
//
// Thread-safety: Process and ProcessAll are safe for concurrent use as long
// as the passes and the Recorder are.
type Pipeline struct {
	passes      []Pass
	passNames   string
	logger      *slog.Logger
	ids         RequestIDGenerator
	recorder    Recorder
	clock       Sequencer
	concurrency int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithIDGenerator sets the request ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g RequestIDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = g
	}
}

// WithRecorder enables result recording and lookup.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithClock sets the clock used to stamp records.
// Use NewClockAt(store.LastSeq()) to continue numbering an existing store.
func WithClock(c Sequencer) Option {
	return func(p *Pipeline) {
		p.clock = c
	}
}

// WithConcurrency bounds the number of queries ProcessAll works on at once.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New creates a Pipeline running passes in order.
//
// The passes slice is copied, so later changes by the caller do not affect
// the pipeline.
func New(passes []Pass, opts ...Option) *Pipeline {
	passesCopy := make([]Pass, len(passes))
	copy(passesCopy, passes)

	names := make([]string, len(passesCopy))
	for i, pass := range passesCopy {
		names[i] = pass.Name()
	}

	p := &Pipeline{
		passes:      passesCopy,
		passNames:   strings.Join(names, ","),
		logger:      slog.Default(),
		ids:         UUIDv7Generator{},
		clock:       NewClock(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Passes returns the comma-separated pass names, as stored in records.
func (p *Pipeline) Passes() string {
	return p.passNames
}

// Process runs every pass over raw and returns the final tree.
func (p *Pipeline) Process(ctx context.Context, raw ir.IRValue) (Result, error) {
	requestID := p.ids.Generate()
	log := p.logger.With("request_id", requestID)

	inputHash, err := ir.MemoHash(raw)
	if err != nil {
		return Result{}, fmt.Errorf("hashing input (request=%s): %w", requestID, err)
	}

	if p.recorder != nil {
		rec, ok, err := p.recorder.Lookup(ctx, inputHash, p.passNames)
		if err != nil {
			return Result{}, fmt.Errorf("looking up %s: %w", shortHash(inputHash), err)
		}
		if ok {
			log.Debug("result served from store",
				"input_hash", shortHash(inputHash),
				"original_request", rec.RequestID,
				"seq", rec.Seq,
			)
			return Result{
				RequestID:  requestID,
				Output:     rec.Output,
				InputHash:  rec.InputHash,
				OutputHash: rec.OutputHash,
				Seq:        rec.Seq,
				Cached:     true,
			}, nil
		}
	}

	v := raw
	for _, pass := range p.passes {
		log.Debug("applying pass", "pass", pass.Name())
		out, err := pass.Apply(ctx, v)
		if err != nil {
			log.Warn("pass failed",
				"pass", pass.Name(),
				"input_hash", shortHash(inputHash),
				"error", err,
			)
			return Result{}, &PassError{Pass: pass.Name(), RequestID: requestID, Err: err}
		}
		v = out
	}

	outputHash, err := ir.QueryHash(v)
	if err != nil {
		return Result{}, fmt.Errorf("hashing output (request=%s): %w", requestID, err)
	}

	seq := p.clock.Next()
	if p.recorder != nil {
		rec := Record{
			RequestID:     requestID,
			InputHash:     inputHash,
			OutputHash:    outputHash,
			Passes:        p.passNames,
			Input:         raw,
			Output:        v,
			QueryType:     queryType(v),
			Seq:           seq,
			EngineVersion: ir.EngineVersion,
		}
		if err := p.recorder.Write(ctx, rec); err != nil {
			return Result{}, fmt.Errorf("recording %s: %w", shortHash(inputHash), err)
		}
	}

	log.Info("query processed",
		"input_hash", shortHash(inputHash),
		"output_hash", shortHash(outputHash),
		"seq", seq,
	)

	return Result{
		RequestID:  requestID,
		Output:     v,
		InputHash:  inputHash,
		OutputHash: outputHash,
		Seq:        seq,
	}, nil
}

// ProcessAll processes queries concurrently and returns results in input
// order. The first error cancels the remaining work and is returned.
func (p *Pipeline) ProcessAll(ctx context.Context, queries []ir.IRValue) ([]Result, error) {
	results := make([]Result, len(queries))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for i, q := range queries {
		eg.Go(func() error {
			res, err := p.Process(egCtx, q)
			if err != nil {
				return &BatchError{Index: i, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		p.logger.Error("batch failed", "queries", len(queries), "error", err)
		return nil, err
	}
	return results, nil
}

// queryType returns the root "type" of a processed query, or "".
func queryType(v ir.IRValue) string {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return ""
	}
	s, _ := ir.AtomString(obj["type"])
	return s
}

// shortHash trims a hash for log lines.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
