package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/qnorm/internal/decode"
	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/normalize"
)

// StdinPath is the argument that reads a query from standard input.
const StdinPath = "-"

// LoadMode controls how errors are handled during query loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedQuery is a decoded query document and where it came from.
type LoadedQuery struct {
	Path  string
	Query ir.IRValue
}

// LoadError represents an error that occurred while loading a query file.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
	Line    int       // JSON/YAML line if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQueries decodes every path in order. StdinPath reads from stdin in
// stdinFormat; other paths pick their format from the file extension.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadQueries(paths []string, stdin io.Reader, stdinFormat decode.Format, mode LoadMode) ([]LoadedQuery, []error) {
	if len(paths) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: "no query files given"}}
	}

	var (
		queries []LoadedQuery
		errs    []error
	)
	for _, path := range paths {
		q, err := loadQuery(path, stdin, stdinFormat)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return queries, errs
			}
			continue
		}
		queries = append(queries, LoadedQuery{Path: path, Query: q})
	}
	return queries, errs
}

func loadQuery(path string, stdin io.Reader, stdinFormat decode.Format) (ir.IRValue, error) {
	var (
		data   []byte
		format decode.Format
		err    error
	)

	if path == StdinPath {
		format = stdinFormat
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Path: "<stdin>", Message: fmt.Sprintf("reading stdin: %v", err)}
		}
	} else {
		var ok bool
		format, ok = decode.FormatFromPath(path)
		if !ok {
			return nil, &LoadError{Code: ErrCodeUnsupportedFormat, Path: path, Message: "unsupported file extension (want .json, .yaml, .yml or .cue)"}
		}
		data, err = os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "file not found"}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
		}
	}

	q, err := decode.Bytes(data, format, path)
	if err != nil {
		return nil, convertDecodeError(err, path)
	}
	return q, nil
}

// convertDecodeError converts a decode error to a LoadError with position info.
func convertDecodeError(err error, path string) *LoadError {
	var decodeErr *decode.Error
	if errors.As(err, &decodeErr) {
		return &LoadError{
			Code:    ErrCodeDecodeFailed,
			Path:    path,
			Message: fmt.Sprintf("%s: %s", decodeErr.Format, decodeErr.Message),
			Pos:     decodeErr.Pos,
			Line:    decodeErr.Line,
		}
	}
	return &LoadError{
		Code:    ErrCodeDecodeFailed,
		Path:    path,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric           = "E001" // Generic/unknown error
	ErrCodeNoFiles           = "E002" // No query files given
	ErrCodeDecodeFailed      = "E003" // Document decode failed
	ErrCodeNotFound          = "E004" // Path not found
	ErrCodeUnsupportedFormat = "E005" // Unknown file extension or format
	ErrCodeStoreFailed       = "E006" // Database open/read/write error

	// Normalization errors
	ErrCodeMalformedQuery    = "E101" // Query shape violates the grammar
	ErrCodeUnsupportedFilter = "E102" // Unknown filter operator in strict mode

	// Canonical-form check errors
	ErrCodeNotCanonical = "E110" // Query is not in canonical form
)

// MapNormalizeError maps a normalization error to an error code.
func MapNormalizeError(err error) string {
	switch {
	case normalize.IsMalformed(err):
		return ErrCodeMalformedQuery
	case normalize.IsUnsupportedFilter(err):
		return ErrCodeUnsupportedFilter
	default:
		return ErrCodeGeneric
	}
}

// loadErrorCode returns the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
