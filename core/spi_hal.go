package core

import (
	"time"

	"tinygo.org/x/drivers"
)

// SPIMode represents SPI clock polarity and phase (0-3)
// Mode 0: CPOL=0, CPHA=0 (clock idle low, sample on rising edge)
// Mode 1: CPOL=0, CPHA=1 (clock idle low, sample on falling edge)
// Mode 2: CPOL=1, CPHA=0 (clock idle high, sample on falling edge)
// Mode 3: CPOL=1, CPHA=1 (clock idle high, sample on rising edge)
type SPIMode uint8

// SPIBusID identifies a hardware SPI bus configuration
type SPIBusID uint8

// SPIConfig holds the configuration for an SPI bus
type SPIConfig struct {
	BusID SPIBusID // Hardware bus identifier
	Mode  SPIMode  // SPI mode (0-3)
	Rate  uint32   // Clock rate in Hz
}

// SPIBus is the transport a SPIDevice clocks bytes through.
// Chip select is not the bus's concern; the device brackets every call.
// Implementations must return within roughly timeout and leave whatever they
// managed to clock in the receive buffer.
type SPIBus interface {
	// Transmit clocks out tx, discarding whatever comes back
	Transmit(tx []byte, timeout time.Duration) error

	// Receive clocks in len(rx) bytes while sending filler
	Receive(rx []byte, timeout time.Duration) error

	// TransmitReceive is a full-duplex transfer; len(tx) == len(rx)
	TransmitReceive(tx, rx []byte, timeout time.Duration) error
}

// TinyGoSPI adapts a tinygo.org/x/drivers SPI (machine.SPI on hardware) to
// SPIBus. Those transfers block until done, so the timeout is not enforced.
type TinyGoSPI struct {
	bus drivers.SPI
}

// NewTinyGoSPI wraps bus. A nil bus yields a nil SPIBus so that the device
// built on it stays uninitialized.
func NewTinyGoSPI(bus drivers.SPI) SPIBus {
	if bus == nil {
		return nil
	}
	return &TinyGoSPI{bus: bus}
}

func (s *TinyGoSPI) Transmit(tx []byte, _ time.Duration) error {
	return s.bus.Tx(tx, nil)
}

func (s *TinyGoSPI) Receive(rx []byte, _ time.Duration) error {
	// machine.SPI.Tx accepts a nil write buffer and sends zeros.
	return s.bus.Tx(nil, rx)
}

func (s *TinyGoSPI) TransmitReceive(tx, rx []byte, _ time.Duration) error {
	return s.bus.Tx(tx, rx)
}
