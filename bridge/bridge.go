// Package bridge forwards register bus traffic to a Klipper-protocol MCU.
//
// A Bridge configures SPI, chip select and I2C objects on the MCU and then
// implements core.SPIBus, core.GPIODriver and drivers.I2C by sending the
// matching protocol commands. Host code can therefore drive a real
// peripheral with the same core.SPIDevice and eeprom.EEPROM used on the MCU.
package bridge

import (
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"tinygo.org/x/drivers"

	"regbus/core"
	"regbus/host/mcu"
	"regbus/protocol"
)

// MaxChunk is the largest data argument one command frame carries.
// Longer SPI transfers are split; chip select stays asserted across pieces.
const MaxChunk = protocol.MessagePayloadMax - 8

var (
	ErrUnknownPin     = errors.New("chip select pin not configured")
	ErrUnknownAddress = errors.New("i2c address not configured")
	ErrNoSPI          = errors.New("spi not configured")
	ErrTooLong        = errors.New("transfer exceeds one frame")
	ErrBadResponse    = errors.New("malformed response")
)

// Session is the part of an MCU session the bridge needs. *mcu.MCU
// implements it.
type Session interface {
	Send(name string, args protocol.Args) error
	Query(name string, args protocol.Args, response string, timeout time.Duration) ([]byte, error)
	Dictionary() *mcu.Dictionary
}

// SPIConfig selects the MCU bus and the chip select pins to claim.
type SPIConfig struct {
	core.SPIConfig
	ChipSelects  []core.GPIOPin
	CSActiveHigh bool
}

// I2CConfig selects the MCU bus and the device addresses to claim.
type I2CConfig struct {
	Bus       core.I2CBusID
	Rate      uint32
	Addresses []core.I2CAddress
}

// Config lists what to configure. A nil section is skipped.
type Config struct {
	SPI *SPIConfig
	I2C *I2CConfig
}

// Bridge implements the core HAL interfaces over an MCU session.
type Bridge struct {
	session Session
	log     *zap.SugaredLogger

	spiOID     uint8
	hasSPI     bool
	activeHigh bool
	pins       map[core.GPIOPin]uint8
	i2c        map[core.I2CAddress]uint8
}

var (
	_ core.SPIBus     = (*Bridge)(nil)
	_ core.GPIODriver = (*Bridge)(nil)
	_ drivers.I2C     = (*Bridge)(nil)
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Bridge) { b.log = l }
}

// New configures the MCU objects in cfg and returns a ready Bridge.
// The session's dictionary must already be loaded.
func New(s Session, cfg Config, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		session: s,
		log:     zap.NewNop().Sugar(),
		pins:    make(map[core.GPIOPin]uint8),
		i2c:     make(map[core.I2CAddress]uint8),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.configure(cfg); err != nil {
		return nil, fmt.Errorf("configure mcu: %w", err)
	}
	return b, nil
}

func requiredCommands(cfg Config) []string {
	names := []string{"allocate_oids", "finalize_config"}
	if cfg.SPI != nil {
		names = append(names, "config_spi_without_cs", "spi_set_bus", "spi_send", "spi_transfer")
		if len(cfg.SPI.ChipSelects) > 0 {
			names = append(names, "config_digital_out", "update_digital_out")
		}
	}
	if cfg.I2C != nil {
		names = append(names, "config_i2c", "i2c_set_bus", "i2c_write", "i2c_read")
	}
	return names
}

func (b *Bridge) configure(cfg Config) error {
	dict := b.session.Dictionary()
	if dict == nil {
		return mcu.ErrNoDictionary
	}
	if err := dict.HasCommands(requiredCommands(cfg)...); err != nil {
		return err
	}

	type command struct {
		name string
		args protocol.Args
	}
	var cmds []command
	oid := uint8(0)
	next := func() uint8 { oid++; return oid - 1 }

	if cfg.SPI != nil {
		b.hasSPI = true
		b.activeHigh = cfg.SPI.CSActiveHigh
		b.spiOID = next()
		cmds = append(cmds,
			command{"config_spi_without_cs", protocol.Uint(uint32(b.spiOID))},
			command{"spi_set_bus", protocol.Join(
				protocol.Uint(uint32(b.spiOID)),
				protocol.Uint(uint32(cfg.SPI.BusID)),
				protocol.Uint(uint32(cfg.SPI.Mode)),
				protocol.Uint(cfg.SPI.Rate),
			)})
		inactive := uint32(1)
		if cfg.SPI.CSActiveHigh {
			inactive = 0
		}
		for _, pin := range cfg.SPI.ChipSelects {
			id := next()
			b.pins[pin] = id
			cmds = append(cmds, command{"config_digital_out", protocol.Join(
				protocol.Uint(uint32(id)),
				protocol.Uint(uint32(pin)),
				protocol.Uint(inactive),
				protocol.Uint(inactive),
				protocol.Uint(0),
			)})
		}
	}
	if cfg.I2C != nil {
		for _, addr := range cfg.I2C.Addresses {
			id := next()
			b.i2c[addr] = id
			cmds = append(cmds,
				command{"config_i2c", protocol.Uint(uint32(id))},
				command{"i2c_set_bus", protocol.Join(
					protocol.Uint(uint32(id)),
					protocol.Uint(uint32(cfg.I2C.Bus)),
					protocol.Uint(cfg.I2C.Rate),
					protocol.Uint(uint32(addr)),
				)})
		}
	}

	crc := crc32.NewIEEE()
	if err := b.session.Send("allocate_oids", protocol.Uint(uint32(oid))); err != nil {
		return err
	}
	for _, c := range cmds {
		crc.Write(c.args(nil))
		if err := b.session.Send(c.name, c.args); err != nil {
			return err
		}
	}
	if err := b.session.Send("finalize_config", protocol.Uint(crc.Sum32())); err != nil {
		return err
	}
	b.log.Infow("mcu configured",
		"oids", oid,
		"spi", b.hasSPI,
		"chip_selects", len(b.pins),
		"i2c_devices", len(b.i2c))
	return nil
}

// Transmit sends tx over SPI in frame-sized pieces.
func (b *Bridge) Transmit(tx []byte, _ time.Duration) error {
	if !b.hasSPI {
		return ErrNoSPI
	}
	for off := 0; off < len(tx); off += MaxChunk {
		chunk := tx[off:min(off+MaxChunk, len(tx))]
		err := b.session.Send("spi_send", protocol.Join(
			protocol.Uint(uint32(b.spiOID)),
			protocol.Bytes(chunk),
		))
		if err != nil {
			return err
		}
	}
	b.log.Debugw("spi send", "bytes", len(tx))
	return nil
}

// Receive clocks in len(rx) bytes while sending zeros.
func (b *Bridge) Receive(rx []byte, timeout time.Duration) error {
	return b.TransmitReceive(make([]byte, len(rx)), rx, timeout)
}

// TransmitReceive performs a full-duplex transfer. Each piece waits up to
// timeout for its response.
func (b *Bridge) TransmitReceive(tx, rx []byte, timeout time.Duration) error {
	if !b.hasSPI {
		return ErrNoSPI
	}
	n := min(len(tx), len(rx))
	for off := 0; off < n; off += MaxChunk {
		end := min(off+MaxChunk, n)
		reply, err := b.session.Query("spi_transfer", protocol.Join(
			protocol.Uint(uint32(b.spiOID)),
			protocol.Bytes(tx[off:end]),
		), "spi_transfer_response", timeout)
		if err != nil {
			return err
		}
		data, err := b.response(reply, b.spiOID, end-off)
		if err != nil {
			return fmt.Errorf("spi_transfer_response: %w", err)
		}
		copy(rx[off:end], data)
	}
	b.log.Debugw("spi transfer", "bytes", n)
	return nil
}

// response decodes "oid=%c response=%*s" and checks it answers oid.
func (b *Bridge) response(reply []byte, oid uint8, want int) ([]byte, error) {
	got, err := protocol.DecodeVLQUint(&reply)
	if err != nil {
		return nil, err
	}
	if got != uint32(oid) {
		return nil, fmt.Errorf("%w: oid %d, want %d", ErrBadResponse, got, oid)
	}
	data, err := protocol.DecodeVLQBytes(&reply)
	if err != nil {
		return nil, err
	}
	if len(data) != want {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrBadResponse, len(data), want)
	}
	return data, nil
}

// ConfigureOutput accepts the chip select pins claimed at configuration.
func (b *Bridge) ConfigureOutput(pin core.GPIOPin) error {
	if _, ok := b.pins[pin]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	return nil
}

// SetPin drives a claimed chip select pin.
func (b *Bridge) SetPin(pin core.GPIOPin, value bool) error {
	oid, ok := b.pins[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	v := uint32(0)
	if value {
		v = 1
	}
	return b.session.Send("update_digital_out", protocol.Join(
		protocol.Uint(uint32(oid)),
		protocol.Uint(v),
	))
}

// Tx performs one I2C transaction with the device at addr: a write of w when
// r is empty, otherwise a write of w followed by a read into r.
func (b *Bridge) Tx(addr uint16, w, r []byte) error {
	oid, ok := b.i2c[core.I2CAddress(addr)]
	if !ok {
		return fmt.Errorf("%w: 0x%02x", ErrUnknownAddress, addr)
	}
	if len(w) > MaxChunk || len(r) > MaxChunk {
		return fmt.Errorf("%w: write %d, read %d", ErrTooLong, len(w), len(r))
	}
	if len(r) == 0 {
		return b.session.Send("i2c_write", protocol.Join(
			protocol.Uint(uint32(oid)),
			protocol.Bytes(w),
		))
	}
	reply, err := b.session.Query("i2c_read", protocol.Join(
		protocol.Uint(uint32(oid)),
		protocol.Bytes(w),
		protocol.Uint(uint32(len(r))),
	), "i2c_read_response", 0)
	if err != nil {
		return err
	}
	data, err := b.response(reply, oid, len(r))
	if err != nil {
		return fmt.Errorf("i2c_read_response: %w", err)
	}
	copy(r, data)
	return nil
}

// Close parks every chip select at its inactive level. The session is not
// closed.
func (b *Bridge) Close() error {
	var err error
	for pin := range b.pins {
		err = multierr.Append(err, b.SetPin(pin, !b.activeHigh))
	}
	return err
}
