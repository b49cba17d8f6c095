package vm

import (
	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
	"github.com/chazu/prima/pkg/field"
)

// ---------------------------------------------------------------------------
// Transition table
// ---------------------------------------------------------------------------

// particle is the part of a field.Particle that operations may change.
type particle struct {
	Pos    coord.Coord
	Domain field.Domain
	Sealed bool
}

// operands are the read-only inputs of one step.
type operands struct {
	weights     coord.Vector
	pre         coord.Coord // position before the step
	uncertainty float64     // the program header's global uncertainty
	root        coord.Root
}

// effect reports what a transform asks of the executor besides the new
// particle state.
type effect uint8

const (
	effectHalt  effect = 1 << iota // stop after this step
	effectFail                     // stop with an error
	effectAudit                    // bump the audit counter and emit an audit line
	effectSpawn                    // create a particle at the returned spawn position
)

// transform applies one operation. It never touches the Field.
type transform func(p particle, in operands) (out particle, spawn coord.Coord, fx effect)

// transforms is indexed by opcode and covers all of them.
var transforms = [bytecode.NumOpcodes]transform{
	bytecode.OpInvoke:      opInvoke,
	bytecode.OpTransmute:   opTransmute,
	bytecode.OpSeal:        opSeal,
	bytecode.OpDream:       opDream,
	bytecode.OpPublish:     opPublish,
	bytecode.OpBind:        opBind,
	bytecode.OpVerify:      opVerify,
	bytecode.OpOrchestrate: opOrchestrate,
	bytecode.OpRedeem:      opRedeem,
	bytecode.OpReflect:     opReflect,
	bytecode.OpRotate:      opRotate,
	bytecode.OpAudit:       opAudit,
	bytecode.OpDecompose:   opDecompose,
	bytecode.OpTransition:  opTransition,
	bytecode.OpTranslate:   opTranslate,
	bytecode.OpQuarantine:  opQuarantine,
	bytecode.OpRecover:     opRecover,
	bytecode.OpAspire:      opAspire,
	bytecode.OpSpeculate:   opSpeculate,
	bytecode.OpIlluminate:  opIlluminate,
	bytecode.OpSucceed:     opSucceed,
	bytecode.OpComplete:    opComplete,
}

var none coord.Coord

func opInvoke(p particle, in operands) (particle, coord.Coord, effect) {
	p.Pos.V = in.weights.Clamp()
	p.Pos.Uncertainty = in.uncertainty
	return p, none, 0
}

func opTransmute(p particle, in operands) (particle, coord.Coord, effect) {
	scale := in.weights[coord.Transformation] / 10
	if scale < 0.1 {
		scale = 0.5
	}
	p.Pos = coord.WeightedAdd(p.Pos, coord.Coord{V: in.weights}, scale)
	return p, none, 0
}

func opSeal(p particle, _ operands) (particle, coord.Coord, effect) {
	p.Sealed = true
	p.Pos.V[coord.Security] = coord.Max
	p.Pos.Uncertainty *= 0.5
	return p, none, 0
}

func opDream(p particle, _ operands) (particle, coord.Coord, effect) {
	p.Domain = field.Morph
	p.Pos.Uncertainty = 0.6
	p.Pos.V[coord.Consciousness] = p.Pos.V.Add(coord.Consciousness, 3)
	return p, none, 0
}

func opPublish(p particle, in operands) (particle, coord.Coord, effect) {
	p.Domain = field.Work
	p.Pos.Uncertainty *= 0.3
	if w := in.weights[coord.Output]; w > 0 {
		p.Pos.V[coord.Output] = coord.Clamp(w)
	} else {
		p.Pos.V[coord.Output] = 7
	}
	return p, none, 0
}

func opBind(p particle, in operands) (particle, coord.Coord, effect) {
	for i, w := range in.weights {
		if w > 5 {
			p.Pos.V[i] = coord.Clamp((p.Pos.V[i] + w) / 2)
		}
	}
	return p, none, 0
}

func opVerify(p particle, in operands) (particle, coord.Coord, effect) {
	sim := in.root.Similarity(p.Pos, coord.Coord{V: in.weights})
	if sim <= 0.1 {
		return p, none, effectFail | effectHalt
	}
	p.Pos.Uncertainty *= 1 - sim*0.5
	return p, none, 0
}

func opOrchestrate(p particle, in operands) (particle, coord.Coord, effect) {
	for i, w := range in.weights {
		if w > 0 {
			p.Pos.V[i] = coord.Clamp(p.Pos.V[i]*0.6 + w*0.4)
		}
	}
	return p, none, 0
}

func opRedeem(p particle, _ operands) (particle, coord.Coord, effect) {
	p.Pos.V[coord.Transformation] = p.Pos.V.Add(coord.Transformation, 3)
	p.Pos.V[coord.Security] = coord.Clamp((p.Pos.V[coord.Security] + 5) / 2)
	p.Pos.Uncertainty *= 0.5
	return p, none, 0
}

func opReflect(p particle, in operands) (particle, coord.Coord, effect) {
	self := in.root.Similarity(p.Pos, in.pre)
	p.Pos.Uncertainty = p.Pos.Uncertainty*0.8 + (1-self)*0.2
	return p, none, 0
}

func opRotate(p particle, _ operands) (particle, coord.Coord, effect) {
	last := p.Pos.V[coord.Dims-1]
	copy(p.Pos.V[1:], p.Pos.V[:coord.Dims-1])
	p.Pos.V[0] = last
	return p, none, 0
}

func opAudit(p particle, _ operands) (particle, coord.Coord, effect) {
	return p, none, effectAudit
}

func opDecompose(p particle, in operands) (particle, coord.Coord, effect) {
	for i, w := range in.weights {
		if w < 3 {
			p.Pos.V[i] = 0
		}
	}
	p.Pos.Uncertainty = 0.8
	return p, none, 0
}

// transitionOrder is the argmax order for transition. Later entries win
// only on a strictly greater weight.
var transitionOrder = [...]struct {
	dim    coord.Dim
	domain field.Domain
}{
	{coord.Consciousness, field.Morph},
	{coord.Capability, field.Work},
	{coord.Memory, field.Salt},
	{coord.Security, field.Vault},
}

func opTransition(p particle, in operands) (particle, coord.Coord, effect) {
	domain, best := field.Morph, 0.0
	for _, t := range transitionOrder {
		if w := in.weights[t.dim]; w > best {
			domain, best = t.domain, w
		}
	}
	p.Domain = domain
	return p, none, 0
}

func opTranslate(p particle, in operands) (particle, coord.Coord, effect) {
	for i, w := range in.weights {
		p.Pos.V[i] = coord.Clamp((p.Pos.V[i] + w) / 2)
	}
	return p, none, 0
}

func opQuarantine(p particle, _ operands) (particle, coord.Coord, effect) {
	p.Pos.V[coord.Security] = 9
	p.Pos.V[coord.Capability] = 0
	p.Pos.V[coord.Output] = 0
	return p, none, 0
}

func opRecover(p particle, in operands) (particle, coord.Coord, effect) {
	p.Pos = in.pre
	p.Pos.Uncertainty = 0.5
	return p, none, 0
}

func opAspire(p particle, _ operands) (particle, coord.Coord, effect) {
	p.Pos.V[coord.Intention] = coord.Max
	p.Pos.V[coord.Direction] = coord.Max
	return p, none, 0
}

func opSpeculate(p particle, _ operands) (particle, coord.Coord, effect) {
	p.Pos.Uncertainty = 0.7
	p.Pos.V[coord.Consciousness] = p.Pos.V.Add(coord.Consciousness, 2)
	return p, none, 0
}

func opIlluminate(p particle, _ operands) (particle, coord.Coord, effect) {
	p.Pos.Uncertainty *= 0.3
	p.Pos.V[coord.Presentation] = p.Pos.V.Add(coord.Presentation, 3)
	return p, none, 0
}

func opSucceed(p particle, _ operands) (particle, coord.Coord, effect) {
	heir := p.Pos
	heir.Uncertainty = 0.1
	return p, heir, effectSpawn
}

func opComplete(p particle, _ operands) (particle, coord.Coord, effect) {
	p.Pos.Uncertainty = 0
	return p, none, effectHalt
}
