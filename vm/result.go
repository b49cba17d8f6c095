package vm

import (
	"fmt"

	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
	"github.com/chazu/prima/pkg/field"
)

// Status is the terminal state of a run.
type Status uint8

const (
	Running Status = iota
	HaltedNormal
	HaltedError
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case HaltedNormal:
		return "halted"
	case HaltedError:
		return "halted-error"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Result summarizes a finished run.
type Result struct {
	RunID    string         `cbor:"1,keyasint"`
	Position coord.Coord    `cbor:"2,keyasint"`
	Domain   field.Domain   `cbor:"3,keyasint"`
	Sealed   bool           `cbor:"4,keyasint"`
	Stage    bytecode.Stage `cbor:"5,keyasint"`
	Status   Status         `cbor:"6,keyasint"`
	Steps    int            `cbor:"7,keyasint"` // operations executed
	Audits   int            `cbor:"8,keyasint"`
	Spawned  int            `cbor:"9,keyasint"` // particles created by succeed
	Field    field.Stats    `cbor:"10,keyasint"`
}

// Failed reports whether the run halted with an error.
func (r *Result) Failed() bool {
	return r.Status == HaltedError
}

// Summary returns the result block printed after a run.
func (r *Result) Summary() []string {
	sealed := "no"
	if r.Sealed {
		sealed = "yes"
	}
	errText := "none"
	if r.Failed() {
		errText = "HALTED"
	}
	return []string{
		"=== RESULT ===",
		fmt.Sprintf("  Coordinate: %s", r.Position),
		fmt.Sprintf("  Domain: %s", r.Domain),
		fmt.Sprintf("  Sealed: %s", sealed),
		fmt.Sprintf("  Stage: %s", r.Stage),
		fmt.Sprintf("  Error: %s", errText),
		fmt.Sprintf("  Field: %d particles, %d edges, tick %d", r.Field.Particles, r.Field.Edges, r.Field.Tick),
		fmt.Sprintf("  Perceptron error: %.2f", r.Field.PredictionError),
		fmt.Sprintf("  Global uncertainty: %.2f", r.Field.GlobalUncertainty),
	}
}
