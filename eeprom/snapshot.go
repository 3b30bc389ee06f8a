package eeprom

import (
	"errors"
	"fmt"
)

var (
	ErrLayoutCapacity = errors.New("layout exceeds memory size")
	ErrLayoutOverlap  = errors.New("layout fields overlap")
	ErrLayoutField    = errors.New("invalid layout field")
)

// Layout is a serializable copy of the allocator's directory. The directory
// lives in RAM, so a host tool saves it to find fields again after a restart,
// and firmware with a fixed layout can restore it at boot.
type Layout struct {
	Size    uint8         `cbor:"1,keyasint" yaml:"size"`
	Pointer uint8         `cbor:"2,keyasint" yaml:"pointer"`
	Fields  []LayoutField `cbor:"3,keyasint" yaml:"fields"`
}

// LayoutField is one directory entry of a Layout.
type LayoutField struct {
	Name    string `cbor:"1,keyasint" yaml:"name"`
	Address uint8  `cbor:"2,keyasint" yaml:"address"`
	Bytes   int    `cbor:"3,keyasint" yaml:"bytes"`
}

// Snapshot captures the current directory, ordered by address.
func (e *EEPROM) Snapshot() Layout {
	l := Layout{Size: e.size, Pointer: e.pointer}
	for _, f := range e.Fields() {
		l.Fields = append(l.Fields, LayoutField{Name: f.Name, Address: f.Address, Bytes: f.Bytes})
	}
	return l
}

// Validate checks that l describes a directory this allocator could have built.
func (l Layout) Validate(size uint8) error {
	if l.Size != size {
		return fmt.Errorf("%w: layout for %d bytes, memory has %d", ErrLayoutCapacity, l.Size, size)
	}
	if l.Pointer > size {
		return fmt.Errorf("%w: pointer %d > size %d", ErrLayoutCapacity, l.Pointer, size)
	}
	seen := make(map[string]struct{}, len(l.Fields))
	var taken [256]bool
	for _, f := range l.Fields {
		if f.Name == "" || f.Bytes <= 0 {
			return fmt.Errorf("%w: %q", ErrLayoutField, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate %q", ErrLayoutField, f.Name)
		}
		seen[f.Name] = struct{}{}

		end := int(f.Address) + f.Bytes
		if end > int(l.Pointer) {
			return fmt.Errorf("%w: %q ends at %d past pointer %d", ErrLayoutCapacity, f.Name, end, l.Pointer)
		}
		for a := int(f.Address); a < end; a++ {
			if taken[a] {
				return fmt.Errorf("%w: %q at %d", ErrLayoutOverlap, f.Name, a)
			}
			taken[a] = true
		}
	}
	return nil
}

// Restore replaces the directory and pointer with l. Nothing is written to
// the device. On error the allocator is left unchanged.
func (e *EEPROM) Restore(l Layout) error {
	if err := l.Validate(e.size); err != nil {
		return err
	}
	fields := make(map[string]Field, len(l.Fields))
	for _, f := range l.Fields {
		fields[f.Name] = Field{Address: f.Address, Bytes: f.Bytes}
	}
	e.fields = fields
	e.pointer = l.Pointer
	return nil
}
