package adxl345

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"regbus/core"
)

// registers emulates the part on an I2C bus.
type registers struct{ r [64]byte }

func (b *registers) Tx(_ uint16, w, r []byte) error {
	if len(w) == 0 {
		return nil
	}
	reg := w[0]
	for i, v := range w[1:] {
		b.r[int(reg)+i] = v
	}
	for i := range r {
		r[i] = b.r[int(reg)+i]
	}
	return nil
}

func newTestDevice() (*Device, *registers) {
	regs := &registers{}
	regs.r[RegDevID] = DeviceID
	regs.r[RegBWRate] = 0x1A // low power bit set
	return New(core.NewI2CDevice(regs, Address)), regs
}

func TestConnected(t *testing.T) {
	d, regs := newTestDevice()
	assert.True(t, d.Connected())
	regs.r[RegDevID] = 0
	assert.False(t, d.Connected())
}

func TestConfigure(t *testing.T) {
	d, regs := newTestDevice()
	d.Configure(Rate800Hz, Range8G)

	assert.Equal(t, byte(0x1D), regs.r[RegBWRate], "rate replaced, low power bit kept")
	assert.Equal(t, byte(0x0A), regs.r[RegDataFormat])
	assert.True(t, d.Measuring())

	d.Standby()
	assert.False(t, d.Measuring())
	assert.Equal(t, byte(0), regs.r[RegPowerCtl])
}

func TestReadAcceleration(t *testing.T) {
	d, regs := newTestDevice()
	d.Configure(Rate100Hz, Range16G)
	copy(regs.r[RegDataX0:], []byte{0x00, 0x01, 0xFF, 0xFF, 0x00, 0x00})

	x, y, z := d.ReadRaw()
	assert.Equal(t, []int16{256, -1, 0}, []int16{x, y, z})

	ax, ay, az := d.ReadAcceleration()
	assert.Equal(t, int32(256*3900), ax)
	assert.Equal(t, int32(-3900), ay)
	assert.Zero(t, az)
}

func TestUnconfiguredBusReadsZero(t *testing.T) {
	d := New(core.Endpoint{})
	assert.False(t, d.Connected())
	x, y, z := d.ReadRaw()
	assert.Zero(t, x|y|z)
}

// spiRegisters emulates the part in 4-wire SPI mode: the first byte carries
// the register in bits 0-5 with the read and multi-byte flags above it.
type spiRegisters struct {
	r     [64]byte
	addrs []byte
}

func (b *spiRegisters) Transmit(tx []byte, _ time.Duration) error {
	b.addrs = append(b.addrs, tx[0])
	reg := int(tx[0] & 0x3F)
	for i, v := range tx[1:] {
		b.r[reg+i] = v
	}
	return nil
}

func (b *spiRegisters) Receive([]byte, time.Duration) error { return nil }

func (b *spiRegisters) TransmitReceive(tx, rx []byte, _ time.Duration) error {
	b.addrs = append(b.addrs, tx[0])
	if tx[0]&spiRead == 0 {
		return nil
	}
	reg := int(tx[0] & 0x3F)
	for i := 1; i < len(rx); i++ {
		rx[i] = b.r[reg+i-1]
	}
	return nil
}

type pins struct{}

func (pins) ConfigureOutput(core.GPIOPin) error { return nil }
func (pins) SetPin(core.GPIOPin, bool) error    { return nil }

func TestSPIAddressFlags(t *testing.T) {
	regs := &spiRegisters{}
	regs.r[RegDevID] = DeviceID
	dev := core.NewSPIDevice(regs, core.NewChipSelect(pins{}, 9))

	for name, bus := range map[string]core.RegisterIO{
		"device":   dev,
		"endpoint": core.SPIEndpoint(dev),
	} {
		t.Run(name, func(t *testing.T) {
			regs.addrs = nil
			d := New(bus)
			assert.True(t, d.Connected())
			assert.Equal(t, []byte{spiRead | RegDevID}, regs.addrs)

			regs.addrs = nil
			d.Standby()
			assert.Equal(t, []byte{spiRead | RegPowerCtl, RegPowerCtl}, regs.addrs)

			copy(regs.r[RegDataX0:], []byte{0x02, 0x00, 0xFE, 0xFF, 0x01, 0x00})
			regs.addrs = nil
			x, y, z := d.ReadRaw()
			assert.Equal(t, []int16{2, -2, 1}, []int16{x, y, z})
			assert.Equal(t, []byte{spiRead | spiMulti | RegDataX0}, regs.addrs)
		})
	}
}
