package compiler

import (
	"github.com/chazu/prima/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: Source to bytecode.Program
// ---------------------------------------------------------------------------

const (
	// DefaultUncertainty is the header uncertainty of every assembled
	// sigil, 0x4C00/65535 (about 0.3).
	DefaultUncertainty uint16 = 0x4C00

	// weightScale maps a DSL weight 0-10 onto a weight byte 0-250.
	weightScale = 25
)

// Generate lowers a parsed source to a program. Every operation is traced
// and the program is marked audited. Edge i -> i+1 carries the weights
// declared on line i, so weights on the last line have no edge.
func Generate(src *Source) (*bytecode.Program, error) {
	n := len(src.Statements)
	if n == 0 {
		return nil, &AssemblyError{Pos: Position{Line: 1, Column: 1}, Err: ErrEmptySource}
	}
	if n > bytecode.MaxOps {
		st := src.Statements[bytecode.MaxOps]
		return nil, &AssemblyError{Pos: st.Pos, Token: st.Name, Err: ErrTooManyOperations}
	}

	ops := make([]bytecode.Op, n)
	for i, st := range src.Statements {
		ops[i] = bytecode.Op{Code: st.Op, Flags: bytecode.OpFlagTrace}
	}

	edges := make([]bytecode.Edge, 0, n-1)
	for i := 0; i+1 < n; i++ {
		e := bytecode.Edge{From: uint8(i), To: uint8(i + 1)}
		for _, w := range src.Statements[i].Weights {
			e.Weights[w.Dim] = byte(w.Value * weightScale)
		}
		edges = append(edges, e)
	}

	return bytecode.NewProgram(bytecode.FlagAudited, DefaultUncertainty, ops, edges), nil
}
