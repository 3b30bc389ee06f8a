// SPI (Serial Peripheral Interface) register access
// Every public operation is one chip-select bracketed transaction
package core

import "time"

// DefaultTimeout bounds a single bus transaction
const DefaultTimeout = 100 * time.Millisecond

// DeviceOption tunes a bus device at construction.
type DeviceOption func(*deviceConfig)

type deviceConfig struct {
	timeout time.Duration
	setup   time.Duration // chip select asserted -> first clock
	hold    time.Duration // last clock -> chip select released
	hook    Hook
	sleep   func(time.Duration)
}

func newDeviceConfig(opts []DeviceOption) deviceConfig {
	cfg := deviceConfig{
		timeout: DefaultTimeout,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithTimeout overrides DefaultTimeout for every transaction of the device.
func WithTimeout(d time.Duration) DeviceOption {
	return func(c *deviceConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSetupDelay waits d between asserting chip select and clocking data.
func WithSetupDelay(d time.Duration) DeviceOption {
	return func(c *deviceConfig) { c.setup = d }
}

// WithHoldDelay waits d between the last byte and releasing chip select.
func WithHoldDelay(d time.Duration) DeviceOption {
	return func(c *deviceConfig) { c.hold = d }
}

// WithHook reports suppressed failures to h.
func WithHook(h Hook) DeviceOption {
	return func(c *deviceConfig) { c.hook = h }
}

// WithSleep replaces time.Sleep for the setup/hold delays.
func WithSleep(sleep func(time.Duration)) DeviceOption {
	return func(c *deviceConfig) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// SPIDevice is a peripheral on an SPI bus selected by its own chip-select
// line. It borrows both handles; closing the device does not close them.
//
// A device built without both handles stays uninitialized: every operation
// is then a no-op that returns zeros and touches no hardware.
//
// The device holds no lock. WriteBit and WriteBits are a read followed by a
// write, so callers sharing a device across goroutines must serialize access.
type SPIDevice struct {
	initialized bool

	bus SPIBus
	cs  *ChipSelect
	cfg deviceConfig
}

// NewSPIDevice binds a device to bus and chip select cs and parks cs at its
// inactive level.
func NewSPIDevice(bus SPIBus, cs *ChipSelect, opts ...DeviceOption) *SPIDevice {
	d := &SPIDevice{
		bus: bus,
		cs:  cs,
		cfg: newDeviceConfig(opts),
	}
	d.initialize()
	return d
}

func (d *SPIDevice) initialize() {
	if d.bus == nil || !d.cs.usable() {
		return
	}
	if err := d.cs.Deassert(); err != nil {
		d.cfg.hook.emit(Event{Reason: ReasonTransport, Op: "initialize", Err: err})
	}
	d.initialized = true
}

// Initialized reports whether the device will touch the bus.
func (d *SPIDevice) Initialized() bool {
	return d != nil && d.initialized
}

// Timeout returns the per-transaction bound.
func (d *SPIDevice) Timeout() time.Duration {
	return d.cfg.timeout
}

// Close de-asserts chip select and marks the device uninitialized.
// Closing twice is harmless.
func (d *SPIDevice) Close() {
	if !d.Initialized() {
		return
	}
	if err := d.cs.Deassert(); err != nil {
		d.cfg.hook.emit(Event{Reason: ReasonTransport, Op: "close", Err: err})
	}
	d.initialized = false
}

// transaction runs io inside one chip-select bracket. It returns false when
// the device is not initialized and nothing was done.
func (d *SPIDevice) transaction(op string, addr uint8, io func(timeout time.Duration) error) bool {
	if !d.Initialized() {
		if d != nil {
			d.cfg.hook.emit(Event{Reason: ReasonUninitialized, Op: op, Addr: addr})
		}
		return false
	}

	if err := d.cs.Assert(); err != nil {
		d.cfg.hook.emit(Event{Reason: ReasonTransport, Op: op, Addr: addr, Err: err})
	}
	if d.cfg.setup > 0 {
		d.cfg.sleep(d.cfg.setup)
	}

	err := io(d.cfg.timeout)

	if d.cfg.hold > 0 {
		d.cfg.sleep(d.cfg.hold)
	}
	if csErr := d.cs.Deassert(); csErr != nil && err == nil {
		err = csErr
	}

	if err != nil {
		d.cfg.hook.emit(Event{Reason: ReasonTransport, Op: op, Addr: addr, Err: err})
	}
	return true
}

// TransmitBytes sends bytes as one transaction; nothing is read back.
func (d *SPIDevice) TransmitBytes(bytes []byte) {
	tx := append([]byte(nil), bytes...)
	d.transaction("transmit_bytes", 0, func(timeout time.Duration) error {
		return d.bus.Transmit(tx, timeout)
	})
}

// ReceiveBytes clocks in n bytes as one transaction.
func (d *SPIDevice) ReceiveBytes(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	rx := make([]byte, n)
	d.transaction("receive_bytes", 0, func(timeout time.Duration) error {
		return d.bus.Receive(rx, timeout)
	})
	return rx
}

// ReadBytes sends reg and clocks in n bytes in the same transaction.
// The byte received while reg was going out is dropped.
func (d *SPIDevice) ReadBytes(reg uint8, n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	tx := make([]byte, 1+n)
	tx[0] = reg
	rx := make([]byte, 1+n)
	d.transaction("read_bytes", reg, func(timeout time.Duration) error {
		return d.bus.TransmitReceive(tx, rx, timeout)
	})
	return rx[1:]
}

// WriteBytes sends reg followed by bytes as one transaction.
func (d *SPIDevice) WriteBytes(reg uint8, bytes []byte) {
	tx := make([]byte, 0, 1+len(bytes))
	tx = append(tx, reg)
	tx = append(tx, bytes...)
	d.transaction("write_bytes", reg, func(timeout time.Duration) error {
		return d.bus.Transmit(tx, timeout)
	})
}

// Fixed-width forms. Each call is one transaction and values are little endian.

// TransmitWords sends words as one transaction.
func (d *SPIDevice) TransmitWords(words []uint16) { Transmit(d, words...) }

// TransmitDWords sends dwords as one transaction.
func (d *SPIDevice) TransmitDWords(dwords []uint32) { Transmit(d, dwords...) }

// TransmitByte sends a single byte.
func (d *SPIDevice) TransmitByte(b uint8) { Transmit(d, b) }

// TransmitWord sends a single 16-bit value.
func (d *SPIDevice) TransmitWord(w uint16) { Transmit(d, w) }

// TransmitDWord sends a single 32-bit value.
func (d *SPIDevice) TransmitDWord(dw uint32) { Transmit(d, dw) }

// ReceiveWords clocks in n 16-bit values.
func (d *SPIDevice) ReceiveWords(n int) []uint16 { return Receive[uint16](d, n) }

// ReceiveDWords clocks in n 32-bit values.
func (d *SPIDevice) ReceiveDWords(n int) []uint32 { return Receive[uint32](d, n) }

// ReceiveByte clocks in one byte.
func (d *SPIDevice) ReceiveByte() uint8 { return Receive[uint8](d, 1)[0] }

// ReceiveWord clocks in one 16-bit value.
func (d *SPIDevice) ReceiveWord() uint16 { return Receive[uint16](d, 1)[0] }

// ReceiveDWord clocks in one 32-bit value.
func (d *SPIDevice) ReceiveDWord() uint32 { return Receive[uint32](d, 1)[0] }

// ReadWords reads n 16-bit values starting at reg.
func (d *SPIDevice) ReadWords(reg uint8, n int) []uint16 { return Read[uint16](d, reg, n) }

// ReadDWords reads n 32-bit values starting at reg.
func (d *SPIDevice) ReadDWords(reg uint8, n int) []uint32 { return Read[uint32](d, reg, n) }

// ReadReg8 reads the byte register reg.
func (d *SPIDevice) ReadReg8(reg uint8) uint8 { return Read[uint8](d, reg, 1)[0] }

// ReadReg16 reads a 16-bit value at reg.
func (d *SPIDevice) ReadReg16(reg uint8) uint16 { return Read[uint16](d, reg, 1)[0] }

// ReadReg32 reads a 32-bit value at reg.
func (d *SPIDevice) ReadReg32(reg uint8) uint32 { return Read[uint32](d, reg, 1)[0] }

// WriteWords writes words starting at reg.
func (d *SPIDevice) WriteWords(reg uint8, words []uint16) { Write(d, reg, words...) }

// WriteDWords writes dwords starting at reg.
func (d *SPIDevice) WriteDWords(reg uint8, dwords []uint32) { Write(d, reg, dwords...) }

// WriteReg8 writes b to the byte register reg.
func (d *SPIDevice) WriteReg8(reg uint8, b uint8) { Write(d, reg, b) }

// WriteReg16 writes a 16-bit value at reg.
func (d *SPIDevice) WriteReg16(reg uint8, w uint16) { Write(d, reg, w) }

// WriteReg32 writes a 32-bit value at reg.
func (d *SPIDevice) WriteReg32(reg uint8, dw uint32) { Write(d, reg, dw) }

// ReadBit reports bit pos of register reg.
func (d *SPIDevice) ReadBit(reg, pos uint8) bool { return ReadBit(d, reg, pos) }

// ReadBits returns the size-bit field at pos of register reg.
func (d *SPIDevice) ReadBits(reg, pos, size uint8) uint8 { return ReadBits(d, reg, pos, size) }

// WriteBit sets bit pos of register reg. The read-modify-write is not atomic.
func (d *SPIDevice) WriteBit(reg uint8, bit bool, pos uint8) {
	WriteBit(d, reg, bit, pos)
}

// WriteBits replaces the size-bit field at pos of register reg. The
// read-modify-write is not atomic.
func (d *SPIDevice) WriteBits(reg, bits, pos, size uint8) {
	WriteBits(d, reg, bits, pos, size)
}
