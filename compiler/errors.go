package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOperation  = errors.New("unknown operation")
	ErrUnknownDimension  = errors.New("unknown dimension")
	ErrMalformedWeight   = errors.New("malformed weight, want dim=digits")
	ErrUnexpectedToken   = errors.New("unexpected token")
	ErrEmptySource       = errors.New("no operations")
	ErrTooManyOperations = errors.New("too many operations")
)

// AssemblyError reports why a source could not be assembled. Assembly is
// all-or-nothing: when it fails, no bytecode is produced.
type AssemblyError struct {
	Pos   Position
	Token string // offending token, if any
	Err   error
}

func (e *AssemblyError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("assemble: line %d:%d: %v", e.Pos.Line, e.Pos.Column, e.Err)
	}
	return fmt.Sprintf("assemble: line %d:%d: %v %q", e.Pos.Line, e.Pos.Column, e.Err, e.Token)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
