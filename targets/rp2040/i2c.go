//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"regbus/core"
)

var errI2CBus = errors.New("unsupported I2C bus")

// openI2C configures I2C0 (SDA=GP4, SCL=GP5) or I2C1 (SDA=GP6, SCL=GP7).
// machine.I2C already satisfies core.I2CBus.
func openI2C(id core.I2CBusID, hz uint32) (core.I2CBus, error) {
	var bus *machine.I2C
	switch id {
	case 0:
		bus = machine.I2C0
	case 1:
		bus = machine.I2C1
	default:
		return nil, errI2CBus
	}
	if err := bus.Configure(machine.I2CConfig{Frequency: hz}); err != nil {
		return nil, err
	}
	return bus, nil
}
