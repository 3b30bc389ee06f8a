//go:build rp2040 || rp2350

// Firmware that keeps a boot counter and board identity in an external
// memory on SPI0, with an I2C sensor register read alongside it.
package main

import (
	"machine"
	"strconv"
	"time"

	"regbus/core"
	"regbus/eeprom"
)

const (
	memorySize  = 128
	memoryCS    = core.GPIOPin(1)
	sensorAddr  = core.I2CAddress(0x48)
	sensorTemp  = 0x00
	statsPeriod = 10 * time.Second
)

// layout is fixed at build time, so the directory is restored instead of
// being rebuilt by first writes.
var layout = eeprom.Layout{
	Size:    memorySize,
	Pointer: 8,
	Fields: []eeprom.LayoutField{
		{Name: "boot_count", Address: 0, Bytes: 4},
		{Name: "board_rev", Address: 4, Bytes: 2},
		{Name: "flags", Address: 6, Bytes: 1},
		{Name: "last_temp", Address: 7, Bytes: 1},
	},
}

func debugLine(s string) {
	machine.Serial.Write([]byte(s))
	machine.Serial.Write([]byte("\r\n"))
}

func main() {
	// clear watchdog state left by a previous reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}
	time.Sleep(500 * time.Millisecond)

	var counter core.Counter
	hook := core.Chain(counter.Hook(), core.LogHook(debugLine))

	spiBus, err := openSPI(core.SPIConfig{BusID: 0, Mode: 0, Rate: 1000000})
	if err != nil {
		debugLine("spi: " + err.Error())
	}
	gpio := newGPIODriver()
	if err := gpio.ConfigureOutput(memoryCS); err != nil {
		debugLine("gpio: " + err.Error())
	}
	// a failed bus leaves spiBus nil and the device uninitialized
	memoryDev := core.NewSPIDevice(spiBus, core.NewChipSelect(gpio, memoryCS), core.WithHook(hook))
	memory := eeprom.New(core.SPIEndpoint(memoryDev).WithHook(hook), memorySize, eeprom.WithHook(hook))
	if err := memory.Restore(layout); err != nil {
		debugLine("layout: " + err.Error())
	}

	var sensor core.Endpoint
	if i2cBus, err := openI2C(0, 400000); err == nil {
		sensor = core.I2CEndpoint(core.NewI2CDevice(i2cBus, sensorAddr, core.WithHook(hook))).WithHook(hook)
	} else {
		debugLine("i2c: " + err.Error())
	}

	boots := eeprom.ReadNamed[uint32](memory, "boot_count") + 1
	if f, ok := memory.Lookup("boot_count"); ok {
		eeprom.Write(memory, f.Address, boots)
	}
	debugLine("boot " + strconv.FormatUint(uint64(boots), 10))

	last := time.Now()
	for {
		temp := sensor.ReadReg8(sensorTemp)
		if f, ok := memory.Lookup("last_temp"); ok {
			eeprom.Write(memory, f.Address, temp)
		}
		if time.Since(last) >= statsPeriod {
			counter.Dump(debugLine)
			last = time.Now()
		}
		time.Sleep(time.Second)
	}
}
