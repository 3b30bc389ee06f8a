// Package serial opens the host end of an MCU link.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is an open serial line. Tests substitute in-memory pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input.
	Flush() error
}

// Config describes a serial line.
type Config struct {
	// Device path such as /dev/ttyACM0 or COM3.
	Device string `yaml:"device"`

	// Baud is ignored by USB CDC devices but required by UARTs.
	Baud int `yaml:"baud"`

	// ReadTimeout bounds each Read; zero blocks.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// DefaultBaud is the rate Klipper firmware uses on UARTs.
const DefaultBaud = 250000

var ErrNoDevice = errors.New("serial device not set")

// DefaultConfig returns a configuration for device at the Klipper defaults.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate checks the fields Open relies on.
func (c Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return fmt.Errorf("serial %s: invalid baud %d", c.Device, c.Baud)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("serial %s: negative read timeout", c.Device)
	}
	return nil
}

type nativePort struct {
	*serial.Port
}

// Open opens the device described by cfg.
func Open(cfg Config) (Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return nativePort{p}, nil
}

// Flush drops pending input.
func (p nativePort) Flush() error {
	return p.Port.Flush()
}
