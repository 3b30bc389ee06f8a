// Package adxl345 reads an ADXL345 accelerometer over I2C or 4-wire SPI
// through package core. The part's data registers are little-endian, so
// samples come back as one three-value Read.
package adxl345

import "regbus/core"

// Address is the I2C address with SDO/ALT ADDRESS tied low.
const Address core.I2CAddress = 0x53

// DeviceID is the fixed content of RegDevID.
const DeviceID = 0xE5

const (
	RegDevID      = 0x00
	RegBWRate     = 0x2C
	RegPowerCtl   = 0x2D
	RegDataFormat = 0x31
	RegDataX0     = 0x32

	spiRead      = 0x80
	spiMulti     = 0x40
	measureBit   = 3
	fullResBit   = 3
	rangeBits    = 2
	rateBits     = 4
	microGPerLSB = 3900
)

// Rate is the output data rate code written to BW_RATE.
type Rate uint8

const (
	Rate100Hz  Rate = 0x0A
	Rate400Hz  Rate = 0x0C
	Rate800Hz  Rate = 0x0D
	Rate1600Hz Rate = 0x0E
	Rate3200Hz Rate = 0x0F
)

// Range is the g range code written to DATA_FORMAT.
type Range uint8

const (
	Range2G Range = iota
	Range4G
	Range8G
	Range16G
)

// Device is one accelerometer.
type Device struct {
	bus     core.RegisterIO
	rng     Range
	fullRes bool
}

// New returns a driver for the part behind bus. Call Configure before reading.
// An SPI device or endpoint gets the read and multi-byte flags added to
// every register address.
func New(bus core.RegisterIO) *Device {
	switch b := bus.(type) {
	case *core.SPIDevice:
		bus = spiFraming{b}
	case core.Endpoint:
		if b.Kind() == core.EndpointSPI {
			bus = spiFraming{b}
		}
	}
	return &Device{bus: bus}
}

// spiFraming sets the ADXL345 SPI address flags: bit 7 for reads, bit 6 for
// transfers longer than one byte.
type spiFraming struct {
	core.RegisterIO
}

func (f spiFraming) ReadBytes(reg uint8, n int) []byte {
	reg |= spiRead
	if n > 1 {
		reg |= spiMulti
	}
	return f.RegisterIO.ReadBytes(reg, n)
}

func (f spiFraming) WriteBytes(reg uint8, bytes []byte) {
	if len(bytes) > 1 {
		reg |= spiMulti
	}
	f.RegisterIO.WriteBytes(reg, bytes)
}

// Connected reports whether the ID register holds the ADXL345 id.
func (d *Device) Connected() bool {
	return core.Read[uint8](d.bus, RegDevID, 1)[0] == DeviceID
}

// Configure sets rate and range in full resolution mode and starts
// measuring.
func (d *Device) Configure(rate Rate, rng Range) {
	core.WriteBits(d.bus, RegBWRate, uint8(rate), 0, rateBits)
	core.WriteBits(d.bus, RegDataFormat, uint8(rng), 0, rangeBits)
	core.WriteBit(d.bus, RegDataFormat, true, fullResBit)
	core.WriteBit(d.bus, RegPowerCtl, true, measureBit)
	d.rng = rng
	d.fullRes = true
}

// Standby stops measuring.
func (d *Device) Standby() {
	core.WriteBit(d.bus, RegPowerCtl, false, measureBit)
}

// Measuring reports whether the measure bit is set.
func (d *Device) Measuring() bool {
	return core.ReadBit(d.bus, RegPowerCtl, measureBit)
}

// ReadRaw returns the last sample in LSBs.
func (d *Device) ReadRaw() (x, y, z int16) {
	v := core.Read[int16](d.bus, RegDataX0, 3)
	return v[0], v[1], v[2]
}

// ReadAcceleration returns the last sample in micro-g.
func (d *Device) ReadAcceleration() (x, y, z int32) {
	rx, ry, rz := d.ReadRaw()
	scale := int32(microGPerLSB)
	if !d.fullRes {
		scale <<= d.rng
	}
	return int32(rx) * scale, int32(ry) * scale, int32(rz) * scale
}
