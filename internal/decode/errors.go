package decode

import (
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error is returned when a document cannot be decoded.
type Error struct {
	// Format is the document format being decoded.
	Format Format

	// Message describes the problem.
	Message string

	// Pos is the CUE source position, when known.
	Pos token.Pos

	// Line is the 1-based line for JSON and YAML errors, 0 when unknown.
	Line int
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Format, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Format, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Message)
}

// cueError extracts position info from CUE errors.
func cueError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Format: FormatCUE, Message: err.Error()}
	}

	// Report the first error; CUE errors often cascade from it.
	first := errs[0]
	de := &Error{Format: FormatCUE, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		de.Pos = positions[0]
	}
	return de
}
