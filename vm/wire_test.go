package vm

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
	"github.com/chazu/prima/pkg/field"
)

func TestResultWireRoundTrip(t *testing.T) {
	p := program(bytecode.FlagAudited,
		[]bytecode.Opcode{bytecode.OpInvoke, bytecode.OpSeal, bytecode.OpTransition, bytecode.OpComplete},
		edge(0, 1, map[coord.Dim]byte{coord.Capability: 200, coord.Security: 175}),
		edge(2, 3, map[coord.Dim]byte{coord.Memory: 250}),
	)
	res, err := NewVM(field.New()).Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := MarshalResult(res)
	if err != nil {
		t.Fatalf("MarshalResult: %v", err)
	}
	got, err := UnmarshalResult(data)
	if err != nil {
		t.Fatalf("UnmarshalResult: %v", err)
	}
	if !reflect.DeepEqual(got, res) {
		t.Errorf("round trip = %+v, want %+v", got, res)
	}

	again, err := MarshalResult(got)
	if err != nil {
		t.Fatalf("re-MarshalResult: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Error("encoding is not deterministic")
	}
}

func TestUnmarshalResultRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalResult([]byte{0xff, 0x00}); err == nil {
		t.Error("UnmarshalResult accepted garbage")
	}
}
