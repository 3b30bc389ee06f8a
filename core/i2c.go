// I2C (Inter-Integrated Circuit) register access
// Same register surface as SPIDevice; the bus address replaces chip select
package core

// I2CDevice is a peripheral at a fixed address on an I2C bus. Each operation
// is a single bus Tx, so start/stop framing belongs to the transport.
type I2CDevice struct {
	initialized bool

	bus     I2CBus
	address I2CAddress
	cfg     deviceConfig
}

// NewI2CDevice binds a device to address on bus. WithTimeout and the delay
// options are accepted for symmetry with SPIDevice but the tinygo I2C
// interface has no way to honour them.
func NewI2CDevice(bus I2CBus, address I2CAddress, opts ...DeviceOption) *I2CDevice {
	return &I2CDevice{
		initialized: bus != nil,
		bus:         bus,
		address:     address,
		cfg:         newDeviceConfig(opts),
	}
}

// Initialized reports whether the device will touch the bus.
func (d *I2CDevice) Initialized() bool {
	return d != nil && d.initialized
}

// Address returns the bus address the device was bound to.
func (d *I2CDevice) Address() I2CAddress {
	return d.address
}

// Close marks the device uninitialized.
func (d *I2CDevice) Close() {
	if d != nil {
		d.initialized = false
	}
}

func (d *I2CDevice) tx(op string, addr uint8, w, r []byte) {
	if !d.Initialized() {
		if d != nil {
			d.cfg.hook.emit(Event{Reason: ReasonUninitialized, Op: op, Addr: addr})
		}
		return
	}
	if err := d.bus.Tx(uint16(d.address), w, r); err != nil {
		d.cfg.hook.emit(Event{Reason: ReasonTransport, Op: op, Addr: addr, Err: err})
	}
}

// TransmitBytes writes bytes to the device with no register prefix.
func (d *I2CDevice) TransmitBytes(bytes []byte) {
	d.tx("transmit_bytes", 0, append([]byte(nil), bytes...), nil)
}

// ReceiveBytes reads n bytes from the device's current register pointer.
func (d *I2CDevice) ReceiveBytes(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	rx := make([]byte, n)
	d.tx("receive_bytes", 0, nil, rx)
	return rx
}

// ReadBytes writes reg then reads n bytes in one combined transfer.
func (d *I2CDevice) ReadBytes(reg uint8, n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	rx := make([]byte, n)
	d.tx("read_bytes", reg, []byte{reg}, rx)
	return rx
}

// WriteBytes writes reg followed by bytes.
func (d *I2CDevice) WriteBytes(reg uint8, bytes []byte) {
	w := make([]byte, 0, 1+len(bytes))
	w = append(w, reg)
	w = append(w, bytes...)
	d.tx("write_bytes", reg, w, nil)
}

// ReadReg8 reads the byte register reg.
func (d *I2CDevice) ReadReg8(reg uint8) uint8 { return Read[uint8](d, reg, 1)[0] }

// ReadReg16 reads a 16-bit value at reg.
func (d *I2CDevice) ReadReg16(reg uint8) uint16 { return Read[uint16](d, reg, 1)[0] }

// ReadReg32 reads a 32-bit value at reg.
func (d *I2CDevice) ReadReg32(reg uint8) uint32 { return Read[uint32](d, reg, 1)[0] }

// WriteReg8 writes b to the byte register reg.
func (d *I2CDevice) WriteReg8(reg uint8, b uint8) { Write(d, reg, b) }

// WriteReg16 writes a 16-bit value at reg.
func (d *I2CDevice) WriteReg16(reg uint8, w uint16) { Write(d, reg, w) }

// WriteReg32 writes a 32-bit value at reg.
func (d *I2CDevice) WriteReg32(reg uint8, dw uint32) { Write(d, reg, dw) }

// ReadBit reports bit pos of register reg.
func (d *I2CDevice) ReadBit(reg, pos uint8) bool { return ReadBit(d, reg, pos) }

// ReadBits returns the size-bit field at pos of register reg.
func (d *I2CDevice) ReadBits(reg, pos, size uint8) uint8 { return ReadBits(d, reg, pos, size) }

// WriteBit sets bit pos of register reg. The read-modify-write is not atomic.
func (d *I2CDevice) WriteBit(reg uint8, bit bool, pos uint8) {
	WriteBit(d, reg, bit, pos)
}

// WriteBits replaces the size-bit field at pos of register reg. The
// read-modify-write is not atomic.
func (d *I2CDevice) WriteBits(reg, bits, pos, size uint8) {
	WriteBits(d, reg, bits, pos, size)
}
