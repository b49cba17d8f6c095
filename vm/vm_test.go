package vm

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
	"github.com/chazu/prima/pkg/field"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func program(flags bytecode.Flags, codes []bytecode.Opcode, edges ...bytecode.Edge) *bytecode.Program {
	ops := make([]bytecode.Op, len(codes))
	for i, c := range codes {
		ops[i] = bytecode.Op{Code: c}
	}
	return bytecode.NewProgram(flags, 0x4C00, ops, edges)
}

func edge(from, to uint8, weights map[coord.Dim]byte) bytecode.Edge {
	e := bytecode.Edge{From: from, To: to}
	for d, w := range weights {
		e.Weights[d] = w
	}
	return e
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

const headerUncertainty = float64(0x4C00) / 65535

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

func TestRunInvokeComplete(t *testing.T) {
	f := field.New()
	p := program(bytecode.FlagAudited,
		[]bytecode.Opcode{bytecode.OpInvoke, bytecode.OpComplete},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 200, coord.Security: 175}),
	)

	res, err := NewVM(f).Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != HaltedNormal {
		t.Errorf("Status = %s, want halted", res.Status)
	}
	if !approx(res.Position.V[coord.Capability], 8, 0.2) {
		t.Errorf("capability = %v, want ~8", res.Position.V[coord.Capability])
	}
	if !approx(res.Position.V[coord.Security], 7, 0.2) {
		t.Errorf("security = %v, want ~7", res.Position.V[coord.Security])
	}
	for d := 0; d < coord.Dims; d++ {
		if coord.Dim(d) == coord.Capability || coord.Dim(d) == coord.Security {
			continue
		}
		if res.Position.V[d] != 0 {
			t.Errorf("dim %s = %v, want 0", coord.Dim(d), res.Position.V[d])
		}
	}
	if res.Position.Uncertainty != 0 {
		t.Errorf("Uncertainty = %v, want 0", res.Position.Uncertainty)
	}
	if res.Stage != bytecode.Rubedo {
		t.Errorf("Stage = %s, want RUBEDO", res.Stage)
	}
	if res.Steps != 2 || res.Field.Tick != 2 {
		t.Errorf("Steps = %d, Tick = %d; want 2, 2", res.Steps, res.Field.Tick)
	}
	if res.Field.Particles != 1 || res.Field.Edges != 1 {
		t.Errorf("Field = %d particles, %d edges; want 1, 1", res.Field.Particles, res.Field.Edges)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestRunInvokeSetsHeaderUncertainty(t *testing.T) {
	p := program(0, []bytecode.Opcode{bytecode.OpInvoke, bytecode.OpAudit},
		edge(0, 1, map[coord.Dim]byte{coord.Memory: 100}))
	res, err := NewVM(field.New()).Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !approx(res.Position.Uncertainty, headerUncertainty, 1e-12) {
		t.Errorf("Uncertainty = %v, want %v", res.Position.Uncertainty, headerUncertainty)
	}
	if res.Status != HaltedNormal || res.Steps != 2 {
		t.Errorf("Status = %s, Steps = %d; want halted after 2", res.Status, res.Steps)
	}
}

func TestRunEmptyProgram(t *testing.T) {
	f := field.New()
	p, err := bytecode.Decode([]byte{'L', '7', 'P', 'R', 1, 0, 0, 0, 0, 0, 0, 0x4C, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	res, err := NewVM(f).Run(p)
	if !errors.Is(err, ErrNoOperations) {
		t.Errorf("err = %v, want ErrNoOperations", err)
	}
	if res != nil {
		t.Error("Run returned a result for an empty program")
	}
	if f.Len() != 0 {
		t.Errorf("Field has %d particles, want 0", f.Len())
	}
}

func TestRunVerifyFailureHalts(t *testing.T) {
	p := program(0,
		[]bytecode.Opcode{bytecode.OpInvoke, bytecode.OpAudit, bytecode.OpVerify, bytecode.OpComplete},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 250}),
		edge(1, 2, map[coord.Dim]byte{coord.Memory: 250}),
	)
	res, err := NewVM(field.New()).Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != HaltedError || !res.Failed() {
		t.Errorf("Status = %s, want halted-error", res.Status)
	}
	if res.Steps != 3 {
		t.Errorf("Steps = %d, want 3 (complete never runs)", res.Steps)
	}
	if res.Position.Uncertainty == 0 {
		t.Error("Uncertainty was zeroed by a step that should not run")
	}
	if res.Stage != bytecode.Albedo {
		t.Errorf("Stage = %s, want ALBEDO", res.Stage)
	}
}

func TestRunVerifyPassReducesUncertainty(t *testing.T) {
	p := program(0, []bytecode.Opcode{bytecode.OpInvoke, bytecode.OpVerify},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 250, coord.Data: 100}))
	res, err := NewVM(field.New()).Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != HaltedNormal {
		t.Fatalf("Status = %s, want halted", res.Status)
	}
	if !approx(res.Position.Uncertainty, headerUncertainty*0.5, 1e-3) {
		t.Errorf("Uncertainty = %v, want ~%v", res.Position.Uncertainty, headerUncertainty*0.5)
	}
}

func TestRunVerifySmallMagnitude(t *testing.T) {
	// The particle sits at capability ~0.31. Its squared magnitude is below
	// 1, which Newton returns unrooted, so verify passes; the exact root
	// puts the similarity just under the 0.1 threshold.
	p := program(0,
		[]bytecode.Opcode{bytecode.OpInvoke, bytecode.OpAudit, bytecode.OpVerify, bytecode.OpComplete},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 8}),
		edge(1, 2, map[coord.Dim]byte{coord.Capability: 25, coord.Security: 255}),
	)
	tests := []struct {
		name string
		root coord.Root
		want Status
	}{
		{"newton", coord.Newton, HaltedNormal},
		{"exact", coord.Exact, HaltedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewVM(field.New(), WithRoot(tt.root)).Run(p)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.Status != tt.want {
				t.Errorf("Status = %s, want %s", res.Status, tt.want)
			}
		})
	}

	res, err := NewVM(field.New()).Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != HaltedNormal || res.Steps != 4 {
		t.Errorf("default root: Status = %s, Steps = %d; want halted after 4", res.Status, res.Steps)
	}
}

func TestRunSucceedSpawns(t *testing.T) {
	f := field.New()
	p := program(0, []bytecode.Opcode{bytecode.OpInvoke, bytecode.OpSucceed, bytecode.OpComplete},
		edge(0, 1, map[coord.Dim]byte{coord.Detail: 153}))
	res, err := NewVM(f).Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.Len() != 2 || res.Spawned != 1 {
		t.Fatalf("Len = %d, Spawned = %d; want 2, 1", f.Len(), res.Spawned)
	}
	heir := f.Particle(1)
	if heir.Pos.V != f.Particle(0).Pos.V {
		t.Errorf("heir position = %v, want %v", heir.Pos.V, f.Particle(0).Pos.V)
	}
	if heir.Pos.Uncertainty != 0.1 {
		t.Errorf("heir uncertainty = %v, want 0.1", heir.Pos.Uncertainty)
	}
	if f.Particle(0).Pos.Uncertainty != 0 {
		t.Errorf("runner uncertainty = %v, want 0 after complete", f.Particle(0).Pos.Uncertainty)
	}
}

func TestRunSucceedPastCapacity(t *testing.T) {
	f := field.New(field.WithLimits(1, 0))
	p := program(0, []bytecode.Opcode{bytecode.OpInvoke, bytecode.OpSucceed, bytecode.OpComplete})
	res, err := NewVM(f).Run(p)
	if !errors.Is(err, field.ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
	if res == nil || !res.Failed() {
		t.Fatalf("res = %+v, want a failed result", res)
	}
	if res.Steps != 2 {
		t.Errorf("Steps = %d, want 2", res.Steps)
	}
	if f.Len() != 1 {
		t.Errorf("Len = %d, want 1", f.Len())
	}
}

func TestRunEdgeCapacity(t *testing.T) {
	f := field.New(field.WithLimits(0, 1))
	p := program(0, []bytecode.Opcode{bytecode.OpInvoke, bytecode.OpAudit, bytecode.OpComplete},
		edge(0, 1, nil), edge(1, 2, nil))
	_, err := NewVM(f).Run(p)
	var ce *field.CapacityError
	if !errors.As(err, &ce) || ce.Table != "edges" {
		t.Fatalf("err = %v, want edges CapacityError", err)
	}
	if f.Len() != 0 || f.EdgeLen() != 0 {
		t.Errorf("Len, EdgeLen = %d, %d; want an untouched field", f.Len(), f.EdgeLen())
	}
	if f.Tick != 0 {
		t.Errorf("Tick = %d, want 0", f.Tick)
	}
}

func TestRunParticleCapacityRegistersNoEdges(t *testing.T) {
	f := field.New(field.WithLimits(1, 0))
	m := NewVM(f)
	if _, err := m.Run(program(0, []bytecode.Opcode{bytecode.OpInvoke, bytecode.OpComplete})); err != nil {
		t.Fatalf("first run: %v", err)
	}

	p := program(0, []bytecode.Opcode{bytecode.OpInvoke, bytecode.OpComplete},
		edge(0, 1, map[coord.Dim]byte{coord.Data: 50}))
	if _, err := m.Run(p); !errors.Is(err, field.ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
	if f.Len() != 1 || f.EdgeLen() != 0 {
		t.Errorf("Len, EdgeLen = %d, %d; want 1, 0", f.Len(), f.EdgeLen())
	}
}

func TestRunRepeatedProgramKeepsEdges(t *testing.T) {
	f := field.New(field.WithLimits(0, 3))
	m := NewVM(f)
	p := program(0,
		[]bytecode.Opcode{bytecode.OpInvoke, bytecode.OpAudit, bytecode.OpAudit, bytecode.OpComplete},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 100}),
		edge(1, 2, map[coord.Dim]byte{coord.Security: 100}),
		edge(2, 3, map[coord.Dim]byte{coord.Memory: 100}),
	)
	for i := 0; i < 4; i++ {
		res, err := m.Run(p)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Field.Edges != 3 {
			t.Errorf("run %d: Edges = %d, want 3", i, res.Field.Edges)
		}
	}
	if f.Len() != 4 || f.EdgeLen() != 3 {
		t.Errorf("Len, EdgeLen = %d, %d; want 4, 3", f.Len(), f.EdgeLen())
	}
}

func TestRunInvalidOpcode(t *testing.T) {
	p := &bytecode.Program{Ops: []bytecode.Op{{Code: bytecode.OpInvoke}, {Code: bytecode.OpAudit}, {Code: 40}}}
	f := field.New()
	if _, err := NewVM(f).Run(p); !errors.Is(err, bytecode.ErrUnknownOpcode) {
		t.Errorf("err = %v, want ErrUnknownOpcode", err)
	}
	if f.Len() != 0 || f.EdgeLen() != 0 || f.Tick != 0 {
		t.Errorf("Len, EdgeLen, Tick = %d, %d, %d; want an untouched field", f.Len(), f.EdgeLen(), f.Tick)
	}
}

func TestRunSharesField(t *testing.T) {
	f := field.New()
	m := NewVM(f)
	p := program(0, []bytecode.Opcode{bytecode.OpInvoke, bytecode.OpComplete})
	for i := 0; i < 3; i++ {
		if _, err := m.Run(p); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	st := f.Stats()
	if st.Particles != 3 || st.Tick != 6 {
		t.Errorf("Stats = %+v, want 3 particles, tick 6", st)
	}
	if f.Particle(2).ID != 3 {
		t.Errorf("third particle ID = %d, want 3", f.Particle(2).ID)
	}
}

func TestRunPerceptronFeedback(t *testing.T) {
	f := field.New()
	p := program(0, []bytecode.Opcode{bytecode.OpInvoke},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 51, coord.Data: 51}))
	if _, err := NewVM(f).Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	step := coord.Distance(coord.Coord{}, coord.Coord{V: coord.Vector{2, 2}})
	if !approx(f.PredictionError, 0.1*step, 1e-12) {
		t.Errorf("PredictionError = %v, want %v", f.PredictionError, 0.1*step)
	}
	want := field.InitialGlobalUncertainty + 0.1*(step/20-field.InitialGlobalUncertainty)
	if !approx(f.GlobalUncertainty, want, 1e-12) {
		t.Errorf("GlobalUncertainty = %v, want %v", f.GlobalUncertainty, want)
	}
}

func TestRunExactRoot(t *testing.T) {
	f := field.New()
	p := program(0, []bytecode.Opcode{bytecode.OpInvoke},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 51}))
	if _, err := NewVM(f, WithRoot(coord.Exact)).Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !approx(f.PredictionError, 0.2, 1e-12) {
		t.Errorf("PredictionError = %v, want 0.2", f.PredictionError)
	}
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func TestRunTraceOutput(t *testing.T) {
	var out, diag bytes.Buffer
	p := program(bytecode.FlagAudited,
		[]bytecode.Opcode{bytecode.OpInvoke, bytecode.OpAudit, bytecode.OpComplete},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 255}))

	if _, err := NewVM(field.New(), WithSink(WriterSink{Stdout: &out, Stderr: &diag})).Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, want := range []string{
		"=== SIGIL EXECUTION ===",
		"  Operations: 3",
		"  Edges: 1",
		"  Uncertainty: 0.30",
		"  [0] Aleph (invoke) - NIGREDO",
		"  [1] Lamed (audit) - ALBEDO",
		"  [2] Tav (complete) - RUBEDO",
		"=== RESULT ===",
		"  Domain: .morph",
		"  Sealed: no",
		"  Error: none",
		"  Field: 1 particles, 1 edges, tick 3",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("stdout missing %q:\n%s", want, out.String())
		}
	}
	if !strings.Contains(diag.String(), "  AUDIT[1] [10.00,0.00,") {
		t.Errorf("stderr = %q, want an AUDIT[1] line", diag.String())
	}
	if strings.Contains(out.String(), "AUDIT") {
		t.Error("audit record written to stdout")
	}
}

func TestRunTraceFlags(t *testing.T) {
	ops := []bytecode.Op{{Code: bytecode.OpInvoke}, {Code: bytecode.OpSeal, Flags: bytecode.OpFlagTrace}, {Code: bytecode.OpComplete, Flags: bytecode.OpFlagReserved}}
	p := bytecode.NewProgram(0, 0, ops, nil)

	var out bytes.Buffer
	if _, err := NewVM(field.New(), WithSink(WriterSink{Stdout: &out})).Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := out.String()
	if strings.Contains(s, "[0]") || strings.Contains(s, "[2]") {
		t.Errorf("untraced steps were traced:\n%s", s)
	}
	if !strings.Contains(s, "  [1] Gimel (seal) - ALBEDO") {
		t.Errorf("traced step missing:\n%s", s)
	}

	out.Reset()
	if _, err := NewVM(field.New(), WithSink(WriterSink{Stdout: &out}), WithTrace(true)).Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "  [2] Tav (complete)") {
		t.Errorf("WithTrace did not trace every step:\n%s", out.String())
	}
}

func TestSummaryFailed(t *testing.T) {
	r := &Result{Status: HaltedError, Sealed: true, Domain: field.Vault}
	lines := strings.Join(r.Summary(), "\n")
	for _, want := range []string{"Error: HALTED", "Sealed: yes", "Domain: .vault"} {
		if !strings.Contains(lines, want) {
			t.Errorf("Summary missing %q:\n%s", want, lines)
		}
	}
}
