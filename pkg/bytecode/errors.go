package bytecode

import (
	"errors"
	"fmt"
)

var (
	ErrShortBuffer   = errors.New("buffer shorter than header")
	ErrBadMagic      = errors.New("bad magic")
	ErrTruncated     = errors.New("declared size exceeds buffer")
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrTooManyOps    = errors.New("too many operations")
	ErrTooManyEdges  = errors.New("too many edges")
)

// FormatError reports bytecode that cannot be decoded or encoded.
type FormatError struct {
	Offset int // byte offset of the offending field
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("sigil: format error at offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrorf(offset int, sentinel error, format string, args ...any) error {
	return &FormatError{
		Offset: offset,
		Err:    fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...),
	}
}
