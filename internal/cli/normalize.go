package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qnorm/internal/decode"
	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/normalize"
	"github.com/roach88/qnorm/internal/pipeline"
	"github.com/roach88/qnorm/internal/store"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Strict      bool
	Database    string
	Concurrency int
	InputFormat string // format of stdin

	// IDGenerator allows overriding the request ID generator (for testing).
	// If nil, defaults to pipeline.UUIDv7Generator.
	IDGenerator pipeline.RequestIDGenerator
}

// NormalizeResult is the JSON shape of one normalized query.
type NormalizeResult struct {
	File       string          `json:"file"`
	RequestID  string          `json:"request_id"`
	InputHash  string          `json:"input_hash"`
	OutputHash string          `json:"output_hash"`
	Seq        int64           `json:"seq"`
	Cached     bool            `json:"cached,omitempty"`
	Output     json.RawMessage `json:"output"`
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	return newNormalizeCommand(&NormalizeOptions{RootOptions: rootOpts})
}

// newNormalizeCommand builds the command around existing options, so tests
// can set fields that have no flag.
func newNormalizeCommand(opts *NormalizeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <file>...",
		Short: "Print the canonical form of query documents",
		Long: `Normalize one or more query documents and print each canonical query as
a line of canonical JSON, in argument order.

Files are decoded by extension (.json, .yaml, .yml, .cue). Use "-" to read a
single document from stdin in --input-format.

With --db, results are recorded in a SQLite database and inputs seen before
are answered from it.

Exit codes:
  0 - All queries normalized
  1 - A query is malformed or uses an unsupported filter operator
  2 - Command error (unreadable file, database error, etc.)

Examples:
  qnorm normalize query.json
  qnorm normalize --strict a.yaml b.cue
  cat query.json | qnorm normalize -
  qnorm normalize --db ./qnorm.db --concurrency 8 queries/*.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject unknown filter operators")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for recording results")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", pipeline.DefaultConcurrency, "maximum queries normalized at once")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "json", "format of stdin (json|yaml|cue)")

	return cmd
}

func runNormalize(opts *NormalizeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	stdinFormat, err := decode.ParseFormat(opts.InputFormat)
	if err != nil {
		_ = formatter.Error(ErrCodeUnsupportedFormat, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --input-format", err)
	}

	loaded, loadErrs := LoadQueries(args, cmd.InOrStdin(), stdinFormat, LoadModeFailFast)
	if len(loadErrs) > 0 {
		_ = formatter.Error(loadErrorCode(loadErrs[0]), loadErrs[0].Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load queries", loadErrs[0])
	}

	var normOpts []normalize.Option
	if opts.Strict {
		normOpts = append(normOpts, normalize.WithStrictFilters())
	}
	n := normalize.New(normOpts...)

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithConcurrency(opts.Concurrency),
	}
	if opts.IDGenerator != nil {
		pipeOpts = append(pipeOpts, pipeline.WithIDGenerator(opts.IDGenerator))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		// Resume the logical clock after the last recorded seq.
		last, err := st.LastSeq(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		pipeOpts = append(pipeOpts,
			pipeline.WithRecorder(st),
			pipeline.WithClock(pipeline.NewClockAt(last)),
		)
	}

	p := pipeline.New([]pipeline.Pass{n}, pipeOpts...)

	queries := make([]ir.IRValue, len(loaded))
	for i, q := range loaded {
		queries[i] = q.Query
	}

	results, err := p.ProcessAll(ctx, queries)
	if err != nil {
		return reportNormalizeError(formatter, loaded, err)
	}

	out := make([]NormalizeResult, len(results))
	for i, res := range results {
		data, err := ir.MarshalCanonical(res.Output)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitFailure, "failed to encode output", err)
		}
		out[i] = NormalizeResult{
			File:       loaded[i].Path,
			RequestID:  res.RequestID,
			InputHash:  res.InputHash,
			OutputHash: res.OutputHash,
			Seq:        res.Seq,
			Cached:     res.Cached,
			Output:     data,
		}
		formatter.VerboseLog("%s: request=%s seq=%d output_hash=%s cached=%t",
			loaded[i].Path, res.RequestID, res.Seq, res.OutputHash, res.Cached)
	}

	if opts.Format == "json" {
		traceID := ""
		if len(out) == 1 {
			traceID = out[0].RequestID
		}
		return formatter.SuccessTraced(out, traceID)
	}

	w := cmd.OutOrStdout()
	for _, r := range out {
		fmt.Fprintln(w, string(r.Output))
	}
	return nil
}

// reportNormalizeError prints a failed batch, naming the file of the
// query that failed.
func reportNormalizeError(formatter *OutputFormatter, loaded []LoadedQuery, err error) error {
	var passErr *pipeline.PassError
	if !errors.As(err, &passErr) {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "normalization failed", err)
	}

	details := map[string]string{"request_id": passErr.RequestID}
	message := passErr.Err.Error()

	var batchErr *pipeline.BatchError
	if errors.As(err, &batchErr) && batchErr.Index < len(loaded) {
		file := loaded[batchErr.Index].Path
		details["file"] = file
		message = file + ": " + message
	}

	var normErr *normalize.Error
	if errors.As(err, &normErr) && len(normErr.Path) > 0 {
		details["path"] = normErr.Path.String()
	}

	_ = formatter.Error(MapNormalizeError(err), message, details)
	return WrapExitError(ExitFailure, "normalization failed", passErr.Err)
}
