//go:build !tinygo

package eeprom

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	layoutEncMode cbor.EncMode
	layoutDecMode cbor.DecMode
)

func init() {
	var err error
	layoutEncMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create layout CBOR encoder mode: %v", err))
	}
	layoutDecMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create layout CBOR decoder mode: %v", err))
	}
}

// MarshalLayout encodes l as canonical CBOR.
func MarshalLayout(l Layout) ([]byte, error) {
	return layoutEncMode.Marshal(l)
}

// UnmarshalLayout decodes a layout produced by MarshalLayout.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := layoutDecMode.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	return l, nil
}
