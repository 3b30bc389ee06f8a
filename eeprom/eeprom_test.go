package eeprom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regbus/core"
)

// memoryBus is an SPI EEPROM stand-in: first byte addresses the array,
// the rest of a transmit is stored, a full-duplex transfer reads back.
type memoryBus struct {
	mem    [256]byte
	writes [][]byte
	reads  int
}

func (m *memoryBus) Transmit(tx []byte, _ time.Duration) error {
	m.writes = append(m.writes, append([]byte(nil), tx...))
	if len(tx) > 0 {
		for i, v := range tx[1:] {
			m.mem[tx[0]+uint8(i)] = v
		}
	}
	return nil
}

func (m *memoryBus) Receive(rx []byte, _ time.Duration) error { return nil }

func (m *memoryBus) TransmitReceive(tx, rx []byte, _ time.Duration) error {
	m.reads++
	for i := 1; i < len(rx); i++ {
		rx[i] = m.mem[tx[0]+uint8(i-1)]
	}
	return nil
}

type pinSink struct{}

func (pinSink) ConfigureOutput(core.GPIOPin) error { return nil }
func (pinSink) SetPin(core.GPIOPin, bool) error { return nil }

func newTestEEPROM(size uint8, opts ...Option) (*EEPROM, *memoryBus) {
	bus := &memoryBus{}
	dev := core.NewSPIDevice(bus, core.NewChipSelect(pinSink{}, 17))
	return New(core.SPIEndpoint(dev), size, opts...), bus
}

func TestBumpAllocation(t *testing.T) {
	e, _ := newTestEEPROM(32)

	WriteNamed(e, "a", uint8(0x11))
	WriteNamed(e, "b", uint16(0x2222))
	WriteNamed(e, "c", uint32(0x33333333))

	for name, want := range map[string]Field{
		"a": {Address: 0, Bytes: 1},
		"b": {Address: 1, Bytes: 2},
		"c": {Address: 3, Bytes: 4},
	} {
		got, ok := e.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	assert.Equal(t, uint8(7), e.Pointer())
	assert.Equal(t, 25, e.Remaining())

	assert.Equal(t, uint8(0x11), ReadNamed[uint8](e, "a"))
	assert.Equal(t, uint16(0x2222), ReadNamed[uint16](e, "b"))
	assert.Equal(t, uint32(0x33333333), ReadNamed[uint32](e, "c"))
}

func TestCapacityGuard(t *testing.T) {
	var counter core.Counter
	e, bus := newTestEEPROM(4, WithHook(counter.Hook()))

	WriteNamed(e, "x", uint16(0xAAAA))
	require.Equal(t, uint8(2), e.Pointer())
	writes := len(bus.writes)

	WriteNamed(e, "y", uint32(0xBBBBBBBB))
	assert.Equal(t, uint8(2), e.Pointer())
	_, ok := e.Lookup("y")
	assert.False(t, ok)
	assert.Len(t, bus.writes, writes, "overflowing value never reaches the bus")
	assert.Equal(t, uint32(1), counter.Count(core.ReasonCapacity))

	WriteNamed(e, "z", uint16(0xCCCC))
	assert.Equal(t, uint8(4), e.Pointer())
	assert.Equal(t, 0, e.Remaining())
}

func TestTypeMismatchGuard(t *testing.T) {
	var counter core.Counter
	e, bus := newTestEEPROM(64, WithHook(counter.Hook()))

	WriteNamed(e, "x", uint32(0x12345678))
	reads := bus.reads

	assert.Equal(t, uint16(0), ReadNamed[uint16](e, "x"))
	assert.Equal(t, float64(0), ReadNamed[float64](e, "x"))
	assert.Equal(t, reads, bus.reads, "mismatched reads never reach the bus")
	assert.Equal(t, uint32(2), counter.Count(core.ReasonSizeMismatch))

	assert.Equal(t, int32(0x12345678), ReadNamed[int32](e, "x"), "same width, different type is allowed")
}

func TestUnknownName(t *testing.T) {
	var counter core.Counter
	e, bus := newTestEEPROM(16, WithHook(counter.Hook()))

	assert.Equal(t, uint8(0), ReadNamed[uint8](e, "missing"))
	assert.Zero(t, bus.reads)
	assert.Equal(t, uint32(1), counter.Count(core.ReasonUnknownField))
}

func TestRepeatedNameKeepsFirstSlot(t *testing.T) {
	e, bus := newTestEEPROM(16)

	WriteNamed(e, "v", uint16(1))
	WriteNamed(e, "v", uint16(2))

	f, _ := e.Lookup("v")
	assert.Equal(t, Field{Address: 0, Bytes: 2}, f)
	assert.Equal(t, uint8(4), e.Pointer(), "repeat still consumes bytes")
	assert.Equal(t, []byte{0x01, 0x00, 0x02, 0x00}, bus.mem[:4])
	assert.Equal(t, uint16(1), ReadNamed[uint16](e, "v"))
	assert.Len(t, e.Fields(), 1)
}

func TestReadNamedRefusedWhenFull(t *testing.T) {
	e, _ := newTestEEPROM(4)

	WriteNamed(e, "lo", uint16(0x0102))
	WriteNamed(e, "hi", uint16(0x0304))
	require.Equal(t, uint8(4), e.Pointer())

	// another uint16 would not fit past the pointer, so the read is refused
	assert.Equal(t, uint16(0), ReadNamed[uint16](e, "lo"))
	assert.Equal(t, uint16(0x0102), Read[uint16](e, 0))
}

func TestValuelessEndpoint(t *testing.T) {
	var counter core.Counter
	e := New(core.Endpoint{}, 32, WithHook(counter.Hook()))

	WriteNamed(e, "a", uint32(1))
	assert.Equal(t, uint8(0), e.Pointer())
	_, ok := e.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, uint32(0), ReadNamed[uint32](e, "a"))
	assert.Equal(t, uint32(2), counter.Count(core.ReasonValueless))

	Write(e, 0, uint8(1))
	assert.Equal(t, uint8(0), Read[uint8](e, 0))
}

func TestAddressPassThrough(t *testing.T) {
	e, bus := newTestEEPROM(8)

	Write(e, 0x40, uint32(0xCAFEBABE))
	assert.Equal(t, []byte{0x40, 0xBE, 0xBA, 0xFE, 0xCA}, bus.writes[len(bus.writes)-1])
	assert.Equal(t, uint32(0xCAFEBABE), Read[uint32](e, 0x40))
	assert.Equal(t, uint8(0), e.Pointer(), "address writes do no bookkeeping")

	Write(e, 0x10, float32(-0.5))
	assert.Equal(t, float32(-0.5), Read[float32](e, 0x10))
}

func TestI2CBackedAllocator(t *testing.T) {
	bus := &i2cMemory{}
	e := New(core.I2CEndpoint(core.NewI2CDevice(bus, 0x50)), 16)

	WriteNamed(e, "serial", uint32(123456))
	WriteNamed(e, "rev", uint8(3))
	assert.Equal(t, uint32(123456), ReadNamed[uint32](e, "serial"))
	assert.Equal(t, uint8(3), ReadNamed[uint8](e, "rev"))
}

type i2cMemory struct{ mem [256]byte }

func (m *i2cMemory) Tx(_ uint16, w, r []byte) error {
	if len(w) == 0 {
		return nil
	}
	for i, v := range w[1:] {
		m.mem[w[0]+uint8(i)] = v
	}
	for i := range r {
		r[i] = m.mem[w[0]+uint8(i)]
	}
	return nil
}
