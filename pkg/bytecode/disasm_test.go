package bytecode

import (
	"strings"
	"testing"
)

func TestDescribe(t *testing.T) {
	p := NewProgram(FlagAudited|FlagMorph, 0x4C00,
		[]Op{{OpInvoke, OpFlagTrace}, {OpComplete, 0}},
		[]Edge{{From: 0, To: 1, Weights: [12]byte{200, 0, 0, 0, 175}}},
	)

	out := p.Describe("demo.l7b")

	for _, want := range []string{
		"Sigil: demo.l7b",
		"Version: 1",
		"Operations: 2",
		"Edges: 1",
		"Uncertainty: 0.30",
		"Flags: audited morph",
		"0. Aleph (invoke) [trace]",
		"1. Tav (complete)",
		"invoke -> complete  [capability=7 security=6 ]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Describe output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "sealed") {
		t.Errorf("Describe output lists an unset flag:\n%s", out)
	}
}

func TestDescribeDanglingEdge(t *testing.T) {
	p := NewProgram(0, 0, []Op{{OpComplete, 0}}, []Edge{{From: 0, To: 9}})
	out := p.Describe("")
	if !strings.Contains(out, "complete -> #9") {
		t.Errorf("Describe output should name out-of-range targets by index:\n%s", out)
	}
	if strings.Contains(out, "Sigil:") {
		t.Errorf("unnamed Describe should omit the name line:\n%s", out)
	}
}
