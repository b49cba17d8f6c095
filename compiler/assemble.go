package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
)

var log = commonlog.GetLogger("prima.compiler")

// Parse parses input and returns the first error, if any.
func Parse(input string) (*Source, error) {
	p := NewParser(input)
	src := p.ParseSource()
	if errs := p.Errors(); len(errs) > 0 {
		log.Debugf("parse failed with %d errors", len(errs))
		return nil, errs[0]
	}
	return src, nil
}

// AssembleProgram assembles input into a program without encoding it.
func AssembleProgram(input string) (*bytecode.Program, error) {
	src, err := Parse(input)
	if err != nil {
		return nil, err
	}
	prog, err := Generate(src)
	if err != nil {
		return nil, err
	}
	log.Debugf("assembled %d operations, %d edges", len(prog.Ops), len(prog.Edges))
	return prog, nil
}

// Assemble assembles input into sigil bytecode. On error nothing is
// returned; the error is an *AssemblyError.
func Assemble(input string) ([]byte, error) {
	prog, err := AssembleProgram(input)
	if err != nil {
		return nil, err
	}
	data, err := bytecode.Encode(prog)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	return data, nil
}

// ParseWeights parses a single line of dim=digits pairs into a vector, for
// example "capability=8 security=7". Values clamp to 10 and are not scaled.
func ParseWeights(input string) (coord.Vector, error) {
	p := NewParser(input)
	st := &Statement{Weights: p.parseWeights()}
	if errs := p.Errors(); len(errs) > 0 {
		return coord.Vector{}, errs[0]
	}
	if !p.curTokenIs(TokenEOF) {
		p.nextToken()
		if !p.curTokenIs(TokenEOF) {
			return coord.Vector{}, &AssemblyError{Pos: p.curToken.Pos, Token: p.curToken.Literal, Err: ErrUnexpectedToken}
		}
	}
	return st.Vector(), nil
}
