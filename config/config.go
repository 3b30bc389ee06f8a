// Package config loads the eepromctl configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"regbus/host/serial"
)

// Bus kinds.
const (
	BusSPI = "spi"
	BusI2C = "i2c"
)

// Config is the top-level file layout.
type Config struct {
	Serial serial.Config `yaml:"serial"`
	Bus    BusConfig     `yaml:"bus"`
	Device DeviceConfig  `yaml:"device"`
	EEPROM EEPROMConfig  `yaml:"eeprom"`
	Log    LogConfig     `yaml:"log"`
}

// BusConfig selects the peripheral bus on the MCU.
type BusConfig struct {
	Kind string `yaml:"kind"`

	// SPI
	SPIBus       uint8  `yaml:"spi_bus"`
	Mode         uint8  `yaml:"mode"`
	Rate         uint32 `yaml:"rate"`
	ChipSelect   uint32 `yaml:"chip_select"`
	CSActiveHigh bool   `yaml:"cs_active_high"`

	// I2C
	I2CBus  uint8  `yaml:"i2c_bus"`
	Address uint16 `yaml:"address"`
}

// DeviceConfig tunes each bus transaction.
type DeviceConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	SetupDelay time.Duration `yaml:"setup_delay"`
	HoldDelay  time.Duration `yaml:"hold_delay"`
}

// EEPROMConfig describes the memory and where its layout is kept.
type EEPROMConfig struct {
	Size   uint8  `yaml:"size"`
	Layout string `yaml:"layout"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

var ErrInvalid = errors.New("invalid configuration")

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults fills in missing values.
func applyDefaults(cfg *Config) {
	if cfg.Serial.Device == "" {
		cfg.Serial.Device = "/dev/ttyACM0"
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = serial.DefaultBaud
	}
	if cfg.Serial.ReadTimeout == 0 {
		cfg.Serial.ReadTimeout = 100 * time.Millisecond
	}

	if cfg.Bus.Kind == "" {
		cfg.Bus.Kind = BusSPI
	}
	switch cfg.Bus.Kind {
	case BusSPI:
		if cfg.Bus.Rate == 0 {
			cfg.Bus.Rate = 1000000 // 1 MHz suits most SPI EEPROMs
		}
	case BusI2C:
		if cfg.Bus.Rate == 0 {
			cfg.Bus.Rate = 100000
		}
		if cfg.Bus.Address == 0 {
			cfg.Bus.Address = 0x50 // 24Cxx base address
		}
	}

	if cfg.Device.Timeout == 0 {
		cfg.Device.Timeout = 100 * time.Millisecond
	}
	if cfg.EEPROM.Size == 0 {
		cfg.EEPROM.Size = 128
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Bus.Kind {
	case BusSPI:
		if c.Bus.Mode > 3 {
			return fmt.Errorf("%w: spi mode %d", ErrInvalid, c.Bus.Mode)
		}
	case BusI2C:
		if c.Bus.Address > 0x3FF {
			return fmt.Errorf("%w: i2c address 0x%x", ErrInvalid, c.Bus.Address)
		}
	default:
		return fmt.Errorf("%w: bus kind %q", ErrInvalid, c.Bus.Kind)
	}
	if c.Device.Timeout < 0 || c.Device.SetupDelay < 0 || c.Device.HoldDelay < 0 {
		return fmt.Errorf("%w: negative device timing", ErrInvalid)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}
