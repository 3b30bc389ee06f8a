package core

// EndpointKind tags which bus device an Endpoint holds.
type EndpointKind uint8

const (
	EndpointNone EndpointKind = iota // valueless
	EndpointSPI
	EndpointI2C
)

func (k EndpointKind) String() string {
	switch k {
	case EndpointSPI:
		return "spi"
	case EndpointI2C:
		return "i2c"
	default:
		return "none"
	}
}

// Endpoint holds exactly one bus device, or none. Upper layers talk to the
// endpoint and never need to know which bus the peripheral sits on.
//
// The zero Endpoint is valueless: every operation is a no-op returning zeros.
type Endpoint struct {
	kind EndpointKind
	spi  *SPIDevice
	i2c  *I2CDevice
	hook Hook
}

// SPIEndpoint wraps an SPI device. A nil device gives a valueless endpoint.
func SPIEndpoint(d *SPIDevice) Endpoint {
	if d == nil {
		return Endpoint{}
	}
	return Endpoint{kind: EndpointSPI, spi: d}
}

// I2CEndpoint wraps an I2C device. A nil device gives a valueless endpoint.
func I2CEndpoint(d *I2CDevice) Endpoint {
	if d == nil {
		return Endpoint{}
	}
	return Endpoint{kind: EndpointI2C, i2c: d}
}

// WithHook returns a copy of e that reports valueless calls to h.
// Device-level suppressions are reported by the device's own hook.
func (e Endpoint) WithHook(h Hook) Endpoint {
	e.hook = h
	return e
}

// Kind reports which device the endpoint holds.
func (e Endpoint) Kind() EndpointKind { return e.kind }

// Valueless reports whether the endpoint holds no device.
func (e Endpoint) Valueless() bool { return e.kind == EndpointNone }

// SPI returns the held SPI device, if that is what the endpoint holds.
func (e Endpoint) SPI() (*SPIDevice, bool) { return e.spi, e.kind == EndpointSPI }

// I2C returns the held I2C device, if that is what the endpoint holds.
func (e Endpoint) I2C() (*I2CDevice, bool) { return e.i2c, e.kind == EndpointI2C }

// device is the single dispatch point over the closed set of kinds.
func (e Endpoint) device(op string, addr uint8) RegisterIO {
	switch e.kind {
	case EndpointSPI:
		return e.spi
	case EndpointI2C:
		return e.i2c
	default:
		e.hook.emit(Event{Reason: ReasonValueless, Op: op, Addr: addr})
		return nil
	}
}

// TransmitBytes forwards to the held device.
func (e Endpoint) TransmitBytes(bytes []byte) {
	if d := e.device("transmit_bytes", 0); d != nil {
		d.TransmitBytes(bytes)
	}
}

// ReceiveBytes forwards to the held device, or returns n zero bytes.
func (e Endpoint) ReceiveBytes(n int) []byte {
	if d := e.device("receive_bytes", 0); d != nil {
		return d.ReceiveBytes(n)
	}
	return make([]byte, max(n, 0))
}

// ReadBytes forwards to the held device, or returns n zero bytes.
func (e Endpoint) ReadBytes(reg uint8, n int) []byte {
	if d := e.device("read_bytes", reg); d != nil {
		return d.ReadBytes(reg, n)
	}
	return make([]byte, max(n, 0))
}

// WriteBytes forwards to the held device.
func (e Endpoint) WriteBytes(reg uint8, bytes []byte) {
	if d := e.device("write_bytes", reg); d != nil {
		d.WriteBytes(reg, bytes)
	}
}

// ReadReg8 reads the byte register reg.
func (e Endpoint) ReadReg8(reg uint8) uint8 { return Read[uint8](e, reg, 1)[0] }

// ReadReg16 reads a 16-bit value at reg.
func (e Endpoint) ReadReg16(reg uint8) uint16 { return Read[uint16](e, reg, 1)[0] }

// ReadReg32 reads a 32-bit value at reg.
func (e Endpoint) ReadReg32(reg uint8) uint32 { return Read[uint32](e, reg, 1)[0] }

// WriteReg8 writes b to the byte register reg.
func (e Endpoint) WriteReg8(reg uint8, b uint8) { Write(e, reg, b) }

// WriteReg16 writes a 16-bit value at reg.
func (e Endpoint) WriteReg16(reg uint8, w uint16) { Write(e, reg, w) }

// WriteReg32 writes a 32-bit value at reg.
func (e Endpoint) WriteReg32(reg uint8, dw uint32) { Write(e, reg, dw) }

// ReadBit reports bit pos of register reg.
func (e Endpoint) ReadBit(reg, pos uint8) bool { return ReadBit(e, reg, pos) }

// ReadBits returns the size-bit field at pos of register reg.
func (e Endpoint) ReadBits(reg, pos, size uint8) uint8 { return ReadBits(e, reg, pos, size) }

// WriteBit sets bit pos of register reg. The read-modify-write is not atomic.
func (e Endpoint) WriteBit(reg uint8, bit bool, pos uint8) {
	WriteBit(e, reg, bit, pos)
}

// WriteBits replaces the size-bit field at pos of register reg. The
// read-modify-write is not atomic.
func (e Endpoint) WriteBits(reg, bits, pos, size uint8) {
	WriteBits(e, reg, bits, pos, size)
}

// Close closes the held device. A valueless endpoint ignores the call.
func (e Endpoint) Close() {
	switch e.kind {
	case EndpointSPI:
		e.spi.Close()
	case EndpointI2C:
		e.i2c.Close()
	}
}
