//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"regbus/core"
)

// spiBusConfig is one pin routing of an RP2040 SPI controller.
type spiBusConfig struct {
	spi  *machine.SPI
	sck  machine.Pin
	mosi machine.Pin
	miso machine.Pin
	name string
}

// Bus ids follow Klipper's RP2040 SPI bus names.
var rp2040SPIBuses = map[core.SPIBusID]spiBusConfig{
	0: {spi: machine.SPI0, sck: machine.GPIO2, mosi: machine.GPIO3, miso: machine.GPIO0, name: "spi0a"},
	1: {spi: machine.SPI0, sck: machine.GPIO6, mosi: machine.GPIO7, miso: machine.GPIO4, name: "spi0b"},
	2: {spi: machine.SPI0, sck: machine.GPIO18, mosi: machine.GPIO19, miso: machine.GPIO16, name: "spi0c"},
	3: {spi: machine.SPI0, sck: machine.GPIO22, mosi: machine.GPIO23, miso: machine.GPIO20, name: "spi0d"},
	4: {spi: machine.SPI0, sck: machine.GPIO2, mosi: machine.GPIO3, miso: machine.GPIO4, name: "spi0e"},
	5: {spi: machine.SPI1, sck: machine.GPIO10, mosi: machine.GPIO11, miso: machine.GPIO8, name: "spi1a"},
	6: {spi: machine.SPI1, sck: machine.GPIO14, mosi: machine.GPIO15, miso: machine.GPIO12, name: "spi1b"},
	7: {spi: machine.SPI1, sck: machine.GPIO26, mosi: machine.GPIO27, miso: machine.GPIO24, name: "spi1c"},
	8: {spi: machine.SPI1, sck: machine.GPIO10, mosi: machine.GPIO11, miso: machine.GPIO12, name: "spi1d"},
}

var errSPIBus = errors.New("invalid SPI bus")

// openSPI configures the controller behind cfg.BusID and returns it as a
// core.SPIBus.
func openSPI(cfg core.SPIConfig) (core.SPIBus, error) {
	bus, ok := rp2040SPIBuses[cfg.BusID]
	if !ok || cfg.Mode > 3 {
		return nil, errSPIBus
	}
	err := bus.spi.Configure(machine.SPIConfig{
		Frequency: cfg.Rate,
		SCK:       bus.sck,
		SDO:       bus.mosi,
		SDI:       bus.miso,
		Mode:      uint8(cfg.Mode),
	})
	if err != nil {
		return nil, err
	}
	return core.NewTinyGoSPI(bus.spi), nil
}
