package bytecode

import (
	"fmt"
	"strings"

	"github.com/chazu/prima/pkg/coord"
)

// Describe returns a human-readable listing of the program: header fields,
// the operation sequence and every edge's non-zero weights. Nothing is
// executed.
func (p *Program) Describe(name string) string {
	var sb strings.Builder

	h := p.Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("Sigil: %s\n", name))
	}
	sb.WriteString(fmt.Sprintf("  Version: %d\n", h.Version))
	sb.WriteString(fmt.Sprintf("  Operations: %d\n", len(p.Ops)))
	sb.WriteString(fmt.Sprintf("  Edges: %d\n", len(p.Edges)))
	sb.WriteString(fmt.Sprintf("  Uncertainty: %.2f\n", h.GlobalUncertainty()))
	sb.WriteString("  Flags:")
	if h.Flags&FlagSealed != 0 {
		sb.WriteString(" sealed")
	}
	if h.Flags&FlagAudited != 0 {
		sb.WriteString(" audited")
	}
	if h.Flags&FlagMorph != 0 {
		sb.WriteString(" morph")
	}
	sb.WriteString("\n\n  Sequence:\n")

	for i, op := range p.Ops {
		sb.WriteString(fmt.Sprintf("    %d. %s (%s)", i, op.Code.Letter(), op.Code))
		if op.Traced() {
			sb.WriteString(" [trace]")
		}
		sb.WriteString("\n")
	}

	if len(p.Edges) > 0 {
		sb.WriteString("\n  Edges:\n")
		for _, e := range p.Edges {
			sb.WriteString(fmt.Sprintf("    %s -> %s  [", p.opName(e.From), p.opName(e.To)))
			for d, w := range e.Weights {
				if w > 0 {
					sb.WriteString(fmt.Sprintf("%s=%d ", coord.Dim(d), int(w)*10/255))
				}
			}
			sb.WriteString("]\n")
		}
	}

	return sb.String()
}

// opName names the operation at index i, tolerating edges that point past
// the operation list.
func (p *Program) opName(i uint8) string {
	if int(i) >= len(p.Ops) {
		return fmt.Sprintf("#%d", i)
	}
	return p.Ops[i].Code.String()
}
