package compiler

import (
	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
)

// ---------------------------------------------------------------------------
// AST for sigil source
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Source is a parsed sigil: one Statement per operation line.
type Source struct {
	Statements []*Statement
}

// Statement is one operation line.
type Statement struct {
	Pos     Position
	Name    string // operation name as written
	Op      bytecode.Opcode
	Weights []Weight
}

// Weight is one dim=value pair. Value is already clamped to [0, 10].
type Weight struct {
	Pos   Position
	Dim   coord.Dim
	Value int
}

// Vector returns the statement's declared weights. A dimension named twice
// keeps its last value.
func (s *Statement) Vector() coord.Vector {
	var v coord.Vector
	for _, w := range s.Weights {
		v[w.Dim] = float64(w.Value)
	}
	return v
}
