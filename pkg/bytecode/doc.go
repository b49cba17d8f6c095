// Package bytecode defines the Sigil binary format: the 22-opcode table, the
// decoded Program, and the Decode/Encode pair that maps between them.
//
// The format is the contract between the assembler and the VM; neither
// depends on the other. It is designed for:
//   - Fixed-width records (2 bytes per operation, 14 bytes per edge)
//   - Strict validation (every decode failure is a *FormatError)
//   - Byte-exact interchange across implementations
//
// # Layout
//
// A sigil is a 16-byte header followed by operation records and edge
// records. Multi-byte integers are little-endian. The magic "L7PR" is also
// accepted byte-reversed. See the constants in sigil.go for field offsets.
//
// # Edges
//
// Edges connect operation indices, not particles. The VM feeds the weights
// of edge (i-1 -> i) into step i, and the weights of edge (0 -> 1) into
// step 0. Only the first edge for a given (from, to) pair is honored.
//
// # Weights
//
// Each weight byte maps linearly onto [0, 10] by dividing by 25.5. The
// assembler scales DSL digits by 25, so a DSL weight of 10 decodes to ~9.8.
package bytecode
