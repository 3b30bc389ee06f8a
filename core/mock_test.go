package core

import (
	"errors"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockSPIBus is a testify mock of SPIBus.
type MockSPIBus struct {
	mock.Mock
}

func (m *MockSPIBus) Transmit(tx []byte, timeout time.Duration) error {
	return m.Called(tx, timeout).Error(0)
}

func (m *MockSPIBus) Receive(rx []byte, timeout time.Duration) error {
	return m.Called(rx, timeout).Error(0)
}

func (m *MockSPIBus) TransmitReceive(tx, rx []byte, timeout time.Duration) error {
	return m.Called(tx, rx, timeout).Error(0)
}

// MockGPIO is a testify mock of GPIODriver.
type MockGPIO struct {
	mock.Mock
}

func (m *MockGPIO) ConfigureOutput(pin GPIOPin) error {
	return m.Called(pin).Error(0)
}

func (m *MockGPIO) SetPin(pin GPIOPin, value bool) error {
	return m.Called(pin, value).Error(0)
}

// trace records pin and bus activity in order so bracketing can be checked.
type trace struct {
	events []string
}

func (t *trace) add(s string) { t.events = append(t.events, s) }

// fakeGPIO tracks pin levels and logs every change.
type fakeGPIO struct {
	log    *trace
	levels map[GPIOPin]bool
}

func newFakeGPIO(log *trace) *fakeGPIO {
	return &fakeGPIO{log: log, levels: make(map[GPIOPin]bool)}
}

func (g *fakeGPIO) ConfigureOutput(pin GPIOPin) error { return nil }

func (g *fakeGPIO) SetPin(pin GPIOPin, value bool) error {
	g.levels[pin] = value
	if value {
		g.log.add("cs:high")
	} else {
		g.log.add("cs:low")
	}
	return nil
}

// regFileBus emulates a peripheral with a 256-byte register file and an
// auto-incrementing register pointer. A transaction's first byte selects the
// register; any further transmitted bytes are stored.
type regFileBus struct {
	log   *trace
	regs  [256]byte
	calls int

	// stream feeds Receive
	stream []byte

	fail error
}

func newRegFileBus(log *trace) *regFileBus {
	if log == nil {
		log = &trace{}
	}
	return &regFileBus{log: log}
}

func (b *regFileBus) Transmit(tx []byte, _ time.Duration) error {
	b.calls++
	b.log.add("transmit")
	if len(tx) > 0 {
		reg := tx[0]
		for i, v := range tx[1:] {
			b.regs[reg+uint8(i)] = v
		}
	}
	return b.fail
}

func (b *regFileBus) Receive(rx []byte, _ time.Duration) error {
	b.calls++
	b.log.add("receive")
	n := copy(rx, b.stream)
	b.stream = b.stream[n:]
	return b.fail
}

func (b *regFileBus) TransmitReceive(tx, rx []byte, _ time.Duration) error {
	b.calls++
	b.log.add("transmit_receive")
	if len(tx) != len(rx) {
		return errors.New("length mismatch")
	}
	if len(tx) == 0 {
		return nil
	}
	reg := tx[0]
	rx[0] = 0xFF
	for i := 1; i < len(rx); i++ {
		rx[i] = b.regs[reg+uint8(i-1)]
	}
	return b.fail
}

// regFileI2C is the I2C flavour of regFileBus.
type regFileI2C struct {
	regs  [256]byte
	calls int
	addrs []uint16
}

func (b *regFileI2C) Tx(addr uint16, w, r []byte) error {
	b.calls++
	b.addrs = append(b.addrs, addr)
	var reg uint8
	if len(w) > 0 {
		reg = w[0]
		for i, v := range w[1:] {
			b.regs[reg+uint8(i)] = v
		}
	}
	for i := range r {
		r[i] = b.regs[reg+uint8(i)]
	}
	return nil
}

func newTestSPIDevice(opts ...DeviceOption) (*SPIDevice, *regFileBus, *fakeGPIO, *trace) {
	log := &trace{}
	bus := newRegFileBus(log)
	gpio := newFakeGPIO(log)
	dev := NewSPIDevice(bus, NewChipSelect(gpio, 5), opts...)
	log.events = nil
	return dev, bus, gpio, log
}
