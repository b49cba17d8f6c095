package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalResult serializes a Result to canonical CBOR.
func MarshalResult(r *Result) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalResult deserializes a Result from CBOR bytes.
func UnmarshalResult(data []byte) (*Result, error) {
	var r Result
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("vm: unmarshal result: %w", err)
	}
	return &r, nil
}
