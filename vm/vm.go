package vm

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
	"github.com/chazu/prima/pkg/field"
)

// VM executes sigils against a Field. A VM is not safe for concurrent use;
// it shares the Field's lack of synchronization.
type VM struct {
	field    *field.Field
	sink     Sink
	root     coord.Root
	traceAll bool
	log      commonlog.Logger
}

// Option configures a VM.
type Option func(*VM)

// WithSink routes banner, trace and result output to s.
func WithSink(s Sink) Option {
	return func(vm *VM) {
		if s != nil {
			vm.sink = s
		}
	}
}

// WithRoot selects the square root behind distance and similarity.
func WithRoot(r coord.Root) Option {
	return func(vm *VM) {
		if r != nil {
			vm.root = r
		}
	}
}

// WithTrace traces every step regardless of program and operation flags.
func WithTrace(on bool) Option {
	return func(vm *VM) {
		vm.traceAll = on
	}
}

// NewVM creates a VM that runs against f. Output is discarded unless a sink
// is given.
func NewVM(f *field.Field, opts ...Option) *VM {
	vm := &VM{
		field: f,
		sink:  Discard,
		root:  coord.Newton,
		log:   commonlog.GetLogger("prima.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Field returns the Field the VM runs against.
func (vm *VM) Field() *field.Field {
	return vm.field
}

// execContext is the per-run state.
type execContext struct {
	particle int
	ip       int
	acc      coord.Coord // position at the start of the current step
	stage    bytecode.Stage
	halted   bool
	failed   bool
	audits   int
	spawned  int
}

// Run executes p on a fresh particle.
//
// Every opcode is checked before the Field is touched. The particle and any
// program edges not already in the Field are then admitted in one step, so
// a run that fails before its first operation leaves the Field unchanged.
// A run that stops on a verification failure is not a Go error; it is
// reported as HaltedError in the Result. Run returns an error for an empty
// program, for an invalid opcode, and when the Field runs out of room. A
// capacity failure raised by succeed halts the run mid-way; the partial
// Result is returned alongside the error.
func (vm *VM) Run(p *bytecode.Program) (*Result, error) {
	if len(p.Ops) == 0 {
		return nil, ErrNoOperations
	}

	for i, op := range p.Ops {
		if !op.Code.Valid() {
			return nil, fmt.Errorf("vm: operation %d: %w", i, bytecode.ErrUnknownOpcode)
		}
	}

	runID := uuid.New().String()
	log := commonlog.NewKeyValueLogger(vm.log, "run", runID)

	edges := make([]field.Edge, len(p.Edges))
	for i, e := range p.Edges {
		edges[i] = field.Edge{From: uint16(e.From), To: uint16(e.To), Weights: coord.Coord{V: e.Vector()}}
	}
	initial := coord.Coord{Uncertainty: p.Header.GlobalUncertainty()}
	idx, added, err := vm.field.Admit(initial, edges)
	if err != nil {
		log.Error("cannot admit program", "edges", len(edges), "error", err)
		return nil, fmt.Errorf("vm: admit program: %w", err)
	}

	log.Info("run started", "ops", len(p.Ops), "edges", len(p.Edges), "new_edges", added)

	vm.sink.Out("=== SIGIL EXECUTION ===")
	vm.sink.Out(fmt.Sprintf("  Operations: %d", len(p.Ops)))
	vm.sink.Out(fmt.Sprintf("  Edges: %d", len(p.Edges)))
	vm.sink.Out(fmt.Sprintf("  Uncertainty: %.2f", initial.Uncertainty))
	vm.sink.Out("")

	ctx := &execContext{particle: idx, acc: initial, stage: bytecode.Nigredo}
	var runErr error

	for ctx.ip = 0; ctx.ip < len(p.Ops) && !ctx.halted; ctx.ip++ {
		op := p.Ops[ctx.ip]
		weights := stepWeights(p, ctx.ip)

		// The particle table may grow during a step, so the pointer is
		// only held until the write-back below.
		cur := vm.field.Particle(ctx.particle)
		ctx.acc = cur.Pos

		if vm.traceAll || op.Traced() || p.Header.Audited() {
			vm.sink.Out(fmt.Sprintf("  [%d] %s (%s) - %s", ctx.ip, op.Code.Letter(), op.Code, op.Code.Stage()))
		}

		next, spawn, fx := transforms[op.Code](
			particle{Pos: cur.Pos, Domain: cur.Domain, Sealed: cur.Sealed},
			operands{
				weights:     weights,
				pre:         ctx.acc,
				uncertainty: p.Header.GlobalUncertainty(),
				root:        vm.root,
			},
		)
		cur.Pos, cur.Domain, cur.Sealed = next.Pos, next.Domain, next.Sealed
		ctx.stage = op.Code.Stage()
		vm.field.Tick++

		if fx&effectAudit != 0 {
			ctx.audits++
			vm.sink.Diag(fmt.Sprintf("  AUDIT[%d] %s", ctx.audits, next.Pos))
		}
		if fx&effectSpawn != 0 {
			if _, err := vm.field.Create(spawn); err != nil {
				log.Error("succeed cannot spawn", "ip", ctx.ip, "error", err)
				runErr = fmt.Errorf("vm: succeed at operation %d: %w", ctx.ip, err)
				ctx.halted, ctx.failed = true, true
			} else {
				ctx.spawned++
			}
		}

		stepErr := vm.root.Distance(ctx.acc, next.Pos)
		vm.field.Observe(stepErr)

		if fx&effectFail != 0 {
			ctx.failed = true
		}
		if fx&effectHalt != 0 {
			ctx.halted = true
		}

		log.Debug("step", "ip", ctx.ip, "op", op.Code.String(), "err", stepErr)
	}

	res := vm.result(ctx)
	res.RunID = runID

	vm.sink.Out("")
	for _, line := range res.Summary() {
		vm.sink.Out(line)
	}

	log.Info("run finished", "status", res.Status.String(), "steps", res.Steps)
	return res, runErr
}

// stepWeights resolves the input weights of step ip: edge (0 -> 1) for the
// first step, edge (ip-1 -> ip) after that, zero when there is none.
func stepWeights(p *bytecode.Program, ip int) coord.Vector {
	from, to := ip-1, ip
	if ip == 0 {
		from, to = 0, 1
	}
	w, _ := p.EdgeWeights(from, to)
	return w
}

func (vm *VM) result(ctx *execContext) *Result {
	final := vm.field.Particle(ctx.particle)
	status := HaltedNormal
	if ctx.failed {
		status = HaltedError
	}
	return &Result{
		Position: final.Pos,
		Domain:   final.Domain,
		Sealed:   final.Sealed,
		Stage:    ctx.stage,
		Status:   status,
		Steps:    ctx.ip,
		Audits:   ctx.audits,
		Spawned:  ctx.spawned,
		Field:    vm.field.Stats(),
	}
}
