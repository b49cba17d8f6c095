package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/chazu/prima/pkg/coord"
)

// Layout of a sigil, all integers little-endian:
//
//	Header (16 bytes)
//	  [0-3]   magic "L7PR" (reversed "RP7L" also accepted)
//	  [4-5]   version
//	  [6]     flags: bit0 sealed, bit1 audited, bit2 morph
//	  [7]     operation count
//	  [8-9]   edge count
//	  [10-11] global uncertainty, 0-65535 -> 0.0-1.0
//	  [12-15] reserved
//	Operations (2 bytes each)
//	  [0]     opcode 0-21
//	  [1]     flags: bit0 reserved, bit1 trace
//	Edges (14 bytes each)
//	  [0]     from operation index
//	  [1]     to operation index
//	  [2-13]  weights, 0-255 -> 0.0-10.0
const (
	HeaderSize = 16
	OpSize     = 2
	EdgeSize   = 14

	MaxOps   = 255
	MaxEdges = 65535

	// Magic is the header magic read big-endian from "L7PR".
	Magic uint32 = 0x4C375052

	// Version is the format version the assembler emits.
	Version uint16 = 1

	// weightScale maps a weight byte onto [0, 10].
	weightScale = 25.5
)

var (
	magicBytes         = []byte{'L', '7', 'P', 'R'}
	reversedMagicBytes = []byte{'R', 'P', '7', 'L'}
)

// Flags are the program-wide header flags.
type Flags uint8

const (
	FlagSealed  Flags = 1 << 0
	FlagAudited Flags = 1 << 1 // trace every step
	FlagMorph   Flags = 1 << 2
)

// OpFlags are the per-operation flags.
type OpFlags uint8

const (
	// OpFlagReserved is parsed and carried but never consulted.
	OpFlagReserved OpFlags = 1 << 0
	// OpFlagTrace traces this step.
	OpFlagTrace OpFlags = 1 << 1
)

// Header is the fixed 16-byte sigil header.
type Header struct {
	Magic       uint32
	Version     uint16
	Flags       Flags
	OpCount     uint8
	EdgeCount   uint16
	Uncertainty uint16
	Reserved    uint32
}

// GlobalUncertainty maps the header uncertainty onto [0, 1].
func (h Header) GlobalUncertainty() float64 {
	return float64(h.Uncertainty) / 65535.0
}

// Audited reports whether every step must be traced.
func (h Header) Audited() bool {
	return h.Flags&FlagAudited != 0
}

// Op is one operation record.
type Op struct {
	Code  Opcode
	Flags OpFlags
}

// Traced reports whether this step requests a trace record.
func (o Op) Traced() bool {
	return o.Flags&OpFlagTrace != 0
}

// Edge is one program edge record.
type Edge struct {
	From    uint8
	To      uint8
	Weights [coord.Dims]byte
}

// Vector decodes the weight bytes onto [0, 10].
func (e Edge) Vector() coord.Vector {
	var v coord.Vector
	for i, w := range e.Weights {
		v[i] = float64(w) / weightScale
	}
	return v
}

type edgeKey struct{ from, to uint8 }

// Program is a decoded sigil. It is not modified after Decode returns.
type Program struct {
	Header Header
	Ops    []Op
	Edges  []Edge

	index map[edgeKey]int
}

// NewProgram builds a program from operations and edges with the given
// header fields. Counts are derived from the slices when encoding.
func NewProgram(flags Flags, uncertainty uint16, ops []Op, edges []Edge) *Program {
	p := &Program{
		Header: Header{
			Magic:       Magic,
			Version:     Version,
			Flags:       flags,
			OpCount:     uint8(len(ops)),
			EdgeCount:   uint16(len(edges)),
			Uncertainty: uncertainty,
		},
		Ops:   ops,
		Edges: edges,
	}
	p.buildIndex()
	return p
}

func (p *Program) buildIndex() {
	p.index = make(map[edgeKey]int, len(p.Edges))
	for i, e := range p.Edges {
		k := edgeKey{e.From, e.To}
		if _, ok := p.index[k]; !ok {
			p.index[k] = i
		}
	}
}

// EdgeWeights returns the weights of the first edge keyed (from, to), or the
// zero vector when there is none.
func (p *Program) EdgeWeights(from, to int) (coord.Vector, bool) {
	if from < 0 || from > 255 || to < 0 || to > 255 {
		return coord.Vector{}, false
	}
	if p.index == nil {
		// Built by hand rather than by Decode or NewProgram.
		for _, e := range p.Edges {
			if int(e.From) == from && int(e.To) == to {
				return e.Vector(), true
			}
		}
		return coord.Vector{}, false
	}
	i, ok := p.index[edgeKey{uint8(from), uint8(to)}]
	if !ok {
		return coord.Vector{}, false
	}
	return p.Edges[i].Vector(), true
}

// Size returns the encoded size implied by the op and edge counts.
func (p *Program) Size() int {
	return HeaderSize + len(p.Ops)*OpSize + len(p.Edges)*EdgeSize
}

// Decode parses a sigil. Bytes past the declared counts are ignored.
// Every failure is a *FormatError.
func Decode(data []byte) (*Program, error) {
	if len(data) < HeaderSize {
		return nil, formatErrorf(0, ErrShortBuffer, "need %d bytes, got %d", HeaderSize, len(data))
	}

	switch {
	case bytes.Equal(data[0:4], magicBytes), bytes.Equal(data[0:4], reversedMagicBytes):
	default:
		return nil, formatErrorf(0, ErrBadMagic, "got %q", data[0:4])
	}

	h := Header{
		Magic:       Magic,
		Version:     binary.LittleEndian.Uint16(data[4:6]),
		Flags:       Flags(data[6]),
		OpCount:     data[7],
		EdgeCount:   binary.LittleEndian.Uint16(data[8:10]),
		Uncertainty: binary.LittleEndian.Uint16(data[10:12]),
		Reserved:    binary.LittleEndian.Uint32(data[12:16]),
	}

	expected := HeaderSize + int(h.OpCount)*OpSize + int(h.EdgeCount)*EdgeSize
	if expected > len(data) {
		return nil, formatErrorf(7, ErrTruncated, "header declares %d bytes, buffer has %d", expected, len(data))
	}

	p := &Program{
		Header: h,
		Ops:    make([]Op, h.OpCount),
		Edges:  make([]Edge, h.EdgeCount),
	}

	pos := HeaderSize
	for i := range p.Ops {
		op := Opcode(data[pos])
		if !op.Valid() {
			return nil, formatErrorf(pos, ErrUnknownOpcode, "operation %d has opcode %d", i, byte(op))
		}
		p.Ops[i] = Op{Code: op, Flags: OpFlags(data[pos+1])}
		pos += OpSize
	}

	for i := range p.Edges {
		e := &p.Edges[i]
		e.From = data[pos]
		e.To = data[pos+1]
		copy(e.Weights[:], data[pos+2:pos+EdgeSize])
		pos += EdgeSize
	}

	p.buildIndex()
	return p, nil
}

// Encode serializes a program. The magic is always written as "L7PR" and
// the counts come from the Ops and Edges slices.
func Encode(p *Program) ([]byte, error) {
	if len(p.Ops) > MaxOps {
		return nil, formatErrorf(7, ErrTooManyOps, "%d operations, limit %d", len(p.Ops), MaxOps)
	}
	if len(p.Edges) > MaxEdges {
		return nil, formatErrorf(8, ErrTooManyEdges, "%d edges, limit %d", len(p.Edges), MaxEdges)
	}

	buf := make([]byte, 0, p.Size())
	buf = append(buf, magicBytes...)
	buf = binary.LittleEndian.AppendUint16(buf, p.Header.Version)
	buf = append(buf, byte(p.Header.Flags), byte(len(p.Ops)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p.Edges)))
	buf = binary.LittleEndian.AppendUint16(buf, p.Header.Uncertainty)
	buf = binary.LittleEndian.AppendUint32(buf, p.Header.Reserved)

	for i, op := range p.Ops {
		if !op.Code.Valid() {
			return nil, formatErrorf(len(buf), ErrUnknownOpcode, "operation %d has opcode %d", i, byte(op.Code))
		}
		buf = append(buf, byte(op.Code), byte(op.Flags))
	}

	for _, e := range p.Edges {
		buf = append(buf, e.From, e.To)
		buf = append(buf, e.Weights[:]...)
	}

	return buf, nil
}

// String returns a one-line summary of the program.
func (p *Program) String() string {
	return fmt.Sprintf("sigil v%d: %d ops, %d edges, uncertainty %.2f",
		p.Header.Version, len(p.Ops), len(p.Edges), p.Header.GlobalUncertainty())
}
