package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/qnorm/internal/ir"
)

// ErrorCode categorizes normalization errors.
type ErrorCode string

const (
	// ErrCodeMalformedQuery indicates a structurally required position is
	// missing or has the wrong shape (e.g. a clause without a tag).
	ErrCodeMalformedQuery ErrorCode = "MALFORMED_QUERY"

	// ErrCodeUnsupportedFilterOperator indicates a filter tag outside the
	// known operator set while strict filters are enabled.
	ErrCodeUnsupportedFilterOperator ErrorCode = "UNSUPPORTED_FILTER_OPERATOR"
)

// Error is returned for any input the normalizer refuses.
// The same input always fails with the same error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path locates the offending node from the query root.
	Path Path

	// Operator is the rejected filter tag (unsupported operator errors only).
	Operator string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMalformed returns true if err is a malformed query error.
// Uses errors.As to handle wrapped errors.
func IsMalformed(err error) bool {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Code == ErrCodeMalformedQuery
	}
	return false
}

// IsUnsupportedFilter returns true if err is an unsupported filter operator error.
func IsUnsupportedFilter(err error) bool {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Code == ErrCodeUnsupportedFilterOperator
	}
	return false
}

func malformed(path Path, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeMalformedQuery,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func unsupportedFilter(path Path, op string) *Error {
	return &Error{
		Code:     ErrCodeUnsupportedFilterOperator,
		Message:  fmt.Sprintf("filter operator %q is not supported", op),
		Path:     path,
		Operator: op,
	}
}

// Path is a position in the query tree: map keys and, in error paths,
// array indexes written as "[i]".
type Path []string

// Key returns a new path extended by a map key. The receiver is not modified.
func (p Path) Key(k string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, k)
}

// Index returns a new path extended by an array index.
func (p Path) Index(i int) Path {
	return p.Key(fmt.Sprintf("[%d]", i))
}

// String renders the path as query.filter[1].
func (p Path) String() string {
	var b strings.Builder
	for i, part := range p {
		if i > 0 && !strings.HasPrefix(part, "[") {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

// tableKey is the lookup key for the override table.
func (p Path) tableKey() string {
	return strings.Join(p, "\x1f")
}

// describe names the kind of v for error messages.
func describe(v ir.IRValue) string {
	switch v.(type) {
	case nil, ir.IRNull:
		return "null"
	case ir.IRString:
		return "string"
	case ir.IRToken:
		return "token"
	case ir.IRInt:
		return "integer"
	case ir.IRFloat:
		return "number"
	case ir.IRBool:
		return "boolean"
	case ir.IRArray:
		return "array"
	case ir.IRObject:
		return "mapping"
	case ir.IRTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("%T", v)
	}
}
