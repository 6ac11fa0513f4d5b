package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qnorm/internal/canoncheck"
	"github.com/roach88/qnorm/internal/decode"
	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/normalize"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	InputFormat string // format of stdin
}

// CheckFileResult is the outcome of checking one file.
type CheckFileResult struct {
	File        string   `json:"file"`
	IsCanonical bool     `json:"is_canonical"`
	Violations  []string `json:"violations,omitempty"`
}

// CheckResult holds the overall check result.
type CheckResult struct {
	Files        []CheckFileResult `json:"files"`
	Canonical    int               `json:"canonical"`
	NonCanonical int               `json:"non_canonical"`
}

// documentTokens marks clause tags and the query type of a decoded document
// as tokens while keeping their spelling. Files carry no token type, so
// without it every tag would be reported as a plain string.
var documentTokens = normalize.New(normalize.WithTokenCanonicalizer(func(s string) string { return s }))

// checkQuery runs canoncheck on a decoded document.
func checkQuery(path string, v ir.IRValue) CheckFileResult {
	lifted, err := documentTokens.Tokenize(v)
	if err != nil {
		return CheckFileResult{File: path, Violations: []string{err.Error()}}
	}
	res := canoncheck.Check(lifted)
	return CheckFileResult{
		File:        path,
		IsCanonical: res.IsCanonical,
		Violations:  res.Violations,
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Verify query documents are already canonical",
		Long: `Check that query documents are already in canonical form, without
rewriting them. Every violation is reported with its location.

Exit codes:
  0 - All documents are canonical
  1 - One or more documents are not canonical
  2 - Command error (unreadable file, etc.)

Examples:
  qnorm check normalized.json
  qnorm normalize query.yaml | qnorm check -
  qnorm check a.json b.json --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "json", "format of stdin (json|yaml|cue)")

	return cmd
}

func runCheck(opts *CheckOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	stdinFormat, err := decode.ParseFormat(opts.InputFormat)
	if err != nil {
		_ = formatter.Error(ErrCodeUnsupportedFormat, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --input-format", err)
	}

	loaded, loadErrs := LoadQueries(args, cmd.InOrStdin(), stdinFormat, LoadModeCollectAll)
	if len(loadErrs) > 0 {
		var messages []string
		for _, e := range loadErrs {
			messages = append(messages, e.Error())
		}
		_ = formatter.Error(loadErrorCode(loadErrs[0]), loadErrs[0].Error(), messages)
		return WrapExitError(ExitCommandError, "failed to load queries", loadErrs[0])
	}

	result := CheckResult{Files: make([]CheckFileResult, 0, len(loaded))}
	for _, q := range loaded {
		res := checkQuery(q.Path, q.Query)
		result.Files = append(result.Files, res)
		if res.IsCanonical {
			result.Canonical++
		} else {
			result.NonCanonical++
		}
	}

	if opts.Format == "json" {
		if result.NonCanonical > 0 {
			_ = formatter.Error(ErrCodeNotCanonical, fmt.Sprintf("%d document(s) not canonical", result.NonCanonical), result)
			return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) not canonical", result.NonCanonical))
		}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, f := range result.Files {
		if f.IsCanonical {
			fmt.Fprintf(w, "\u2713 %s\n", f.File)
			continue
		}
		fmt.Fprintf(w, "\u2717 %s\n", f.File)
		for _, v := range f.Violations {
			fmt.Fprintf(w, "  %s\n", v)
		}
	}

	if result.NonCanonical > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) not canonical", result.NonCanonical))
	}
	return nil
}
