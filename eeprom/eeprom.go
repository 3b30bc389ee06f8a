// Package eeprom lays out named fields in a small external memory reached
// through a core.Endpoint.
//
// Fields are declared by writing them: the first WriteNamed for a name
// reserves the next free bytes, and later ReadNamed calls find them again by
// name. Space is never reclaimed, which suits firmware whose field layout is
// fixed at startup.
//
// Like the bus layer below it, the allocator never reports errors from reads
// and writes. A rejected call returns the zero value and is reported to the
// optional hook.
package eeprom

import (
	"slices"

	"regbus/core"
)

// Field records where a named value lives.
type Field struct {
	Address uint8
	Bytes   int
}

// EEPROM is a bump allocator over the memory behind an endpoint.
// It holds no lock; callers sharing one across goroutines must serialize.
type EEPROM struct {
	device  core.Endpoint
	size    uint8
	pointer uint8
	fields  map[string]Field
	hook    core.Hook
}

// Option configures an EEPROM.
type Option func(*EEPROM)

// WithHook reports suppressed operations to h.
func WithHook(h core.Hook) Option {
	return func(e *EEPROM) { e.hook = h }
}

// New returns an allocator for a memory of size bytes behind device.
// The endpoint is borrowed, not owned.
func New(device core.Endpoint, size uint8, opts ...Option) *EEPROM {
	e := &EEPROM{
		device: device,
		size:   size,
		fields: make(map[string]Field),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *EEPROM) emit(reason core.Reason, op string, addr uint8) {
	if e.hook != nil {
		e.hook(core.Event{Reason: reason, Op: op, Addr: addr})
	}
}

// Size returns the capacity in bytes.
func (e *EEPROM) Size() uint8 { return e.size }

// Pointer returns the next free byte offset.
func (e *EEPROM) Pointer() uint8 { return e.pointer }

// Remaining returns how many bytes are still unallocated.
func (e *EEPROM) Remaining() int { return int(e.size) - int(e.pointer) }

// Device returns the endpoint the allocator writes through.
func (e *EEPROM) Device() core.Endpoint { return e.device }

// Lookup returns the record for name.
func (e *EEPROM) Lookup(name string) (Field, bool) {
	f, ok := e.fields[name]
	return f, ok
}

// NamedField is a Field together with its name.
type NamedField struct {
	Name string
	Field
}

// Fields lists every declared field ordered by address.
func (e *EEPROM) Fields() []NamedField {
	out := make([]NamedField, 0, len(e.fields))
	for name, f := range e.fields {
		out = append(out, NamedField{Name: name, Field: f})
	}
	slices.SortFunc(out, func(a, b NamedField) int {
		if a.Address != b.Address {
			return int(a.Address) - int(b.Address)
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}

// Write stores v at addr with no bookkeeping.
func Write[T core.Value](e *EEPROM, addr uint8, v T) {
	core.Write(e.device, addr, v)
}

// Read loads a T from addr with no bookkeeping.
func Read[T core.Value](e *EEPROM, addr uint8) T {
	return core.Read[T](e.device, addr, 1)[0]
}

// fits reports whether size more bytes fit after the pointer.
func (e *EEPROM) fits(size int) bool {
	return int(e.pointer)+size <= int(e.size)
}

// WriteNamed writes v at the allocation pointer and advances the pointer by
// the width of T. The first write of a name records it at that address;
// writing an existing name again does not re-register it.
//
// Repeated writes still land at the current pointer and consume fresh bytes,
// so they never update the value ReadNamed returns for that name. They do not
// write at the name's recorded address either, so a repeat is not an update
// in place. Callers should declare each name once.
func WriteNamed[T core.Value](e *EEPROM, name string, v T) {
	size := core.SizeOf[T]()
	if e.device.Valueless() {
		e.emit(core.ReasonValueless, "write_named", e.pointer)
		return
	}
	if !e.fits(size) {
		e.emit(core.ReasonCapacity, "write_named", e.pointer)
		return
	}

	Write(e, e.pointer, v)

	if _, ok := e.fields[name]; !ok {
		e.fields[name] = Field{Address: e.pointer, Bytes: size}
	}
	e.pointer += uint8(size)
}

// ReadNamed loads the field declared as name. It returns the zero T when the
// name is unknown, when T is not the width the field was declared with, or
// when another T would no longer fit after the allocation pointer.
func ReadNamed[T core.Value](e *EEPROM, name string) T {
	var zero T
	size := core.SizeOf[T]()
	if e.device.Valueless() {
		e.emit(core.ReasonValueless, "read_named", 0)
		return zero
	}
	if !e.fits(size) {
		e.emit(core.ReasonCapacity, "read_named", e.pointer)
		return zero
	}
	f, ok := e.fields[name]
	if !ok {
		e.emit(core.ReasonUnknownField, "read_named", 0)
		return zero
	}
	if f.Bytes != size {
		e.emit(core.ReasonSizeMismatch, "read_named", f.Address)
		return zero
	}
	return Read[T](e, f.Address)
}
