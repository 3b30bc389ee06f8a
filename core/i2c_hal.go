package core

import "tinygo.org/x/drivers"

// I2CBusID identifies a specific I2C bus (e.g., I2C0, I2C1).
type I2CBusID uint8

// I2CAddress is a 7-bit (or 10-bit) I2C device address.
type I2CAddress uint16

// I2CBus is the transport an I2CDevice talks through.
// machine.I2C on TinyGo targets satisfies it directly, as does bridge.Bridge
// on the host.
type I2CBus = drivers.I2C
