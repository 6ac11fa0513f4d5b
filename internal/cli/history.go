package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/pipeline"
	"github.com/roach88/qnorm/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database   string
	Filter     string // bexpr over record fields
	Equivalent string // output hash
	Limit      int
}

// HistoryEntry is one recorded normalization.
type HistoryEntry struct {
	Seq           int64           `json:"seq"`
	RequestID     string          `json:"request_id"`
	QueryType     string          `json:"query_type,omitempty"`
	Passes        string          `json:"passes"`
	InputHash     string          `json:"input_hash"`
	OutputHash    string          `json:"output_hash"`
	EngineVersion string          `json:"engine_version"`
	Output        json.RawMessage `json:"output"`
}

// HistoryResult holds the history output.
type HistoryResult struct {
	Entries []HistoryEntry `json:"entries"`
	Stats   HistoryStats   `json:"stats"`
}

// HistoryStats holds summary statistics for the listed entries.
type HistoryStats struct {
	Records         int `json:"records"`
	DistinctOutputs int `json:"distinct_outputs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded normalizations",
		Long: `List the normalizations recorded by "qnorm normalize --db", oldest first.

--filter takes a boolean expression over the fields request_id, input_hash,
output_hash, passes, query_type, seq and engine_version.

--equivalent lists every recorded input that normalized to the given
output hash.

Examples:
  qnorm history --db ./qnorm.db
  qnorm history --db ./qnorm.db --filter 'query_type == "native"'
  qnorm history --db ./qnorm.db --filter 'seq > 10 and passes == "normalize/strict"'
  qnorm history --db ./qnorm.db --equivalent 3f2a... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "boolean filter expression")
	cmd.Flags().StringVar(&opts.Equivalent, "equivalent", "", "list inputs with this output hash")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to list (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if opts.Filter != "" && opts.Equivalent != "" {
		return NewExitError(ExitCommandError, "--filter and --equivalent are mutually exclusive")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	records, err := readHistory(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	result, err := buildHistory(records)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode history", err)
	}

	if opts.Format == "json" {
		return outputHistoryJSON(cmd, result)
	}
	return outputHistoryText(cmd.OutOrStdout(), result, opts.Verbose)
}

// readHistory selects records according to the flags.
func readHistory(ctx context.Context, st *store.Store, opts *HistoryOptions) ([]pipeline.Record, error) {
	switch {
	case opts.Filter != "":
		records, err := st.Filter(ctx, opts.Filter)
		if err != nil {
			return nil, err
		}
		if opts.Limit > 0 && len(records) > opts.Limit {
			records = records[:opts.Limit]
		}
		return records, nil
	case opts.Equivalent != "":
		records, err := st.Equivalent(ctx, opts.Equivalent)
		if err != nil {
			return nil, err
		}
		if opts.Limit > 0 && len(records) > opts.Limit {
			records = records[:opts.Limit]
		}
		return records, nil
	default:
		return st.List(ctx, opts.Limit)
	}
}

// buildHistory converts records to output entries.
func buildHistory(records []pipeline.Record) (HistoryResult, error) {
	result := HistoryResult{Entries: make([]HistoryEntry, 0, len(records))}
	outputs := make(map[string]bool)

	for _, rec := range records {
		data, err := ir.MarshalCanonical(rec.Output)
		if err != nil {
			return HistoryResult{}, fmt.Errorf("record %s: %w", rec.RequestID, err)
		}
		result.Entries = append(result.Entries, HistoryEntry{
			Seq:           rec.Seq,
			RequestID:     rec.RequestID,
			QueryType:     rec.QueryType,
			Passes:        rec.Passes,
			InputHash:     rec.InputHash,
			OutputHash:    rec.OutputHash,
			EngineVersion: rec.EngineVersion,
			Output:        data,
		})
		outputs[rec.OutputHash] = true
	}

	result.Stats = HistoryStats{
		Records:         len(result.Entries),
		DistinctOutputs: len(outputs),
	}
	return result, nil
}

// outputHistoryJSON outputs the history result as JSON.
func outputHistoryJSON(cmd *cobra.Command, result HistoryResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputHistoryText outputs the history result as text.
func outputHistoryText(w io.Writer, result HistoryResult, verbose bool) error {
	fmt.Fprintln(w, "=== History ===")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (no records)")
	}
	for _, e := range result.Entries {
		queryType := e.QueryType
		if queryType == "" {
			queryType = "-"
		}
		fmt.Fprintf(w, "  [%d] %s %s %s %s -> %s\n",
			e.Seq, e.RequestID, queryType, e.Passes,
			truncateHash(e.InputHash), truncateHash(e.OutputHash))
		if verbose {
			fmt.Fprintf(w, "       Output: %s\n", string(e.Output))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Records:          %d\n", result.Stats.Records)
	fmt.Fprintf(w, "  Distinct outputs: %d\n", result.Stats.DistinctOutputs)

	return nil
}

// truncateHash truncates a long hash for display.
func truncateHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
