//go:build rp2040 || rp2350

package main

import (
	"machine"

	"regbus/core"
)

// gpioDriver drives chip select lines through machine.Pin. GPIO numbers map
// directly onto machine pins.
type gpioDriver struct {
	pins map[core.GPIOPin]machine.Pin
}

func newGPIODriver() *gpioDriver {
	return &gpioDriver{pins: make(map[core.GPIOPin]machine.Pin)}
}

// ConfigureOutput makes pin an output. Reconfiguring is a no-op.
func (d *gpioDriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, ok := d.pins[pin]; ok {
		return nil
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.pins[pin] = p
	return nil
}

// SetPin drives pin, configuring it on first use.
func (d *gpioDriver) SetPin(pin core.GPIOPin, value bool) error {
	p, ok := d.pins[pin]
	if !ok {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		p = d.pins[pin]
	}
	p.Set(value)
	return nil
}
