package bytecode

import "fmt"

// Opcode identifies one of the 22 Sigil operations.
// The set is closed: any byte >= NumOpcodes is rejected at decode time.
type Opcode byte

const (
	OpInvoke      Opcode = 0  // Aleph   - begin from nothing
	OpTransmute   Opcode = 1  // Beth    - pass through the forge
	OpSeal        Opcode = 2  // Gimel   - encrypt
	OpDream       Opcode = 3  // Daleth  - enter .morph
	OpPublish     Opcode = 4  // He      - stabilize in .work
	OpBind        Opcode = 5  // Vav     - apply a rule
	OpVerify      Opcode = 6  // Zayin   - authenticate
	OpOrchestrate Opcode = 7  // Cheth   - coordinate flows
	OpRedeem      Opcode = 8  // Teth    - threat to citizen
	OpReflect     Opcode = 9  // Yod     - self-examine
	OpRotate      Opcode = 10 // Kaph    - cycle
	OpAudit       Opcode = 11 // Lamed   - log and trace
	OpDecompose   Opcode = 12 // Mem     - break into atoms
	OpTransition  Opcode = 13 // Nun     - change domain
	OpTranslate   Opcode = 14 // Samekh  - mediate
	OpQuarantine  Opcode = 15 // Ayin    - isolate
	OpRecover     Opcode = 16 // Pe      - catastrophe response
	OpAspire      Opcode = 17 // Tzaddi  - set highest vision
	OpSpeculate   Opcode = 18 // Qoph    - explore shadows
	OpIlluminate  Opcode = 19 // Resh    - clarify
	OpSucceed     Opcode = 20 // Shin    - transfer authority
	OpComplete    Opcode = 21 // Tav     - deliver

	// NumOpcodes is the number of defined opcodes.
	NumOpcodes = 22
)

// Stage is the alchemical phase an operation belongs to.
type Stage uint8

const (
	Nigredo    Stage = 0
	Albedo     Stage = 1
	Citrinitas Stage = 2
	Rubedo     Stage = 3
)

func (s Stage) String() string {
	switch s {
	case Nigredo:
		return "NIGREDO"
	case Albedo:
		return "ALBEDO"
	case Citrinitas:
		return "CITRINITAS"
	case Rubedo:
		return "RUBEDO"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// OpcodeInfo provides metadata about each opcode for tracing, listings and
// editor tooling.
type OpcodeInfo struct {
	Name   string // DSL name
	Letter string // Hebrew letter
	Stage  Stage
	Doc    string
}

var opcodeInfoTable = [NumOpcodes]OpcodeInfo{
	OpInvoke:      {"invoke", "Aleph", Nigredo, "Set the position from the incoming weights; uncertainty from the header."},
	OpTransmute:   {"transmute", "Beth", Citrinitas, "Blend toward the weights, scaled by the transformation weight."},
	OpSeal:        {"seal", "Gimel", Albedo, "Seal the particle, max security, halve uncertainty."},
	OpDream:       {"dream", "Daleth", Citrinitas, "Enter .morph, uncertainty 0.6, consciousness +3."},
	OpPublish:     {"publish", "He", Rubedo, "Enter .work, uncertainty x0.3, fix output."},
	OpBind:        {"bind", "Vav", Albedo, "Pull dimensions weighted above 5 halfway toward the weight."},
	OpVerify:      {"verify", "Zayin", Albedo, "Check alignment with the weights; halt with error if similarity <= 0.1."},
	OpOrchestrate: {"orchestrate", "Cheth", Rubedo, "Blend weighted dimensions 60/40 toward the weight."},
	OpRedeem:      {"redeem", "Teth", Albedo, "Transformation +3, moderate security, halve uncertainty."},
	OpReflect:     {"reflect", "Yod", Albedo, "Raise uncertainty by how far the particle moved from its pre-image."},
	OpRotate:      {"rotate", "Kaph", Albedo, "Cycle every dimension one position to the right."},
	OpAudit:       {"audit", "Lamed", Albedo, "Record the current coordinate on the diagnostic channel."},
	OpDecompose:   {"decompose", "Mem", Nigredo, "Zero dimensions weighted below 3, uncertainty 0.8."},
	OpTransition:  {"transition", "Nun", Albedo, "Move to the domain whose key dimension has the largest weight."},
	OpTranslate:   {"translate", "Samekh", Albedo, "Average every dimension with its weight."},
	OpQuarantine:  {"quarantine", "Ayin", Nigredo, "Security 9, zero capability and output."},
	OpRecover:     {"recover", "Pe", Rubedo, "Restore the pre-image, uncertainty 0.5."},
	OpAspire:      {"aspire", "Tzaddi", Citrinitas, "Max intention and direction."},
	OpSpeculate:   {"speculate", "Qoph", Citrinitas, "Uncertainty 0.7, consciousness +2."},
	OpIlluminate:  {"illuminate", "Resh", Citrinitas, "Uncertainty x0.3, presentation +3."},
	OpSucceed:     {"succeed", "Shin", Rubedo, "Spawn a copy of the particle with uncertainty 0.1."},
	OpComplete:    {"complete", "Tav", Rubedo, "Collapse uncertainty to 0 and halt."},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(0xNN)" in the Albedo stage if the
// opcode is not defined.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if op.Valid() {
		return opcodeInfoTable[op]
	}
	name := fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
	return OpcodeInfo{Name: name, Letter: name, Stage: Albedo}
}

// Valid reports whether op is one of the 22 defined opcodes.
func (op Opcode) Valid() bool {
	return op < NumOpcodes
}

// String returns the DSL name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Letter returns the Hebrew letter an opcode is named after.
func (op Opcode) Letter() string {
	return GetOpcodeInfo(op).Letter
}

// Stage classifies an opcode. Unlisted opcodes are Albedo.
func (op Opcode) Stage() Stage {
	return GetOpcodeInfo(op).Stage
}

// OpcodeByName looks up an opcode by its exact DSL name.
func OpcodeByName(name string) (Opcode, bool) {
	for i, info := range opcodeInfoTable {
		if info.Name == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, NumOpcodes)
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}
