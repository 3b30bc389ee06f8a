package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingI2C struct{ calls int }

func (f *failingI2C) Tx(addr uint16, w, r []byte) error {
	f.calls++
	return errors.New("nack")
}

func TestI2CDeviceRoundTrip(t *testing.T) {
	bus := &regFileI2C{}
	dev := NewI2CDevice(bus, 0x50)

	dev.WriteReg8(0x01, 0xAB)
	dev.WriteReg16(0x02, 0xBEEF)
	dev.WriteReg32(0x10, 0xCAFEF00D)

	assert.Equal(t, uint8(0xAB), dev.ReadReg8(0x01))
	assert.Equal(t, uint16(0xBEEF), dev.ReadReg16(0x02))
	assert.Equal(t, uint32(0xCAFEF00D), dev.ReadReg32(0x10))
	assert.Equal(t, []byte{0xEF, 0xBE}, bus.regs[2:4])
	for _, a := range bus.addrs {
		assert.Equal(t, uint16(0x50), a)
	}
}

func TestI2CDeviceBits(t *testing.T) {
	bus := &regFileI2C{}
	dev := NewI2CDevice(bus, 0x20)

	bus.regs[0x03] = 0b1111_0000
	dev.WriteBits(0x03, 0b01, 2, 2)
	assert.Equal(t, uint8(0b1111_0100), bus.regs[0x03])
	dev.WriteBit(0x03, false, 7)
	assert.Equal(t, uint8(0b0111_0100), bus.regs[0x03])
	assert.True(t, dev.ReadBit(0x03, 2))
	assert.Equal(t, uint8(0b0111), dev.ReadBits(0x03, 4, 4))
}

func TestI2CDeviceUninitialized(t *testing.T) {
	var counter Counter
	dev := NewI2CDevice(nil, 0x50, WithHook(counter.Hook()))

	assert.False(t, dev.Initialized())
	assert.Equal(t, uint32(0), dev.ReadReg32(0x00))
	dev.WriteReg16(0x00, 1)
	assert.Equal(t, uint32(2), counter.Count(ReasonUninitialized))

	bus := &regFileI2C{}
	dev = NewI2CDevice(bus, 0x50)
	dev.Close()
	dev.WriteReg8(0x00, 1)
	assert.Zero(t, bus.calls)
}

func TestI2CDeviceTransportError(t *testing.T) {
	var counter Counter
	bus := &failingI2C{}
	dev := NewI2CDevice(bus, 0x50, WithHook(counter.Hook()))

	assert.Equal(t, uint16(0), dev.ReadReg16(0x04))
	assert.Equal(t, 1, bus.calls)
	assert.Equal(t, uint32(1), counter.Count(ReasonTransport))
}

func TestI2CDeviceNegativeCounts(t *testing.T) {
	bus := &regFileI2C{}
	dev := NewI2CDevice(bus, 0x50)

	assert.Equal(t, []byte{}, dev.ReceiveBytes(-1))
	assert.Equal(t, []byte{}, dev.ReadBytes(0x01, -1))
	assert.Zero(t, bus.calls)
}
