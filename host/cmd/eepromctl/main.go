// Command eepromctl reads and writes peripheral registers and named EEPROM
// fields on a device wired to a Klipper-protocol MCU.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/chzyer/readline"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"regbus/bridge"
	"regbus/config"
	"regbus/core"
	"regbus/eeprom"
	"regbus/host/mcu"
	"regbus/protocol"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	layoutPath = flag.String("layout", "", "EEPROM layout file (overrides config)")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *layoutPath != "" {
		cfg.EEPROM.Layout = *layoutPath
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// suppressionLogger reports operations the bus layer swallowed.
func suppressionLogger(log *zap.SugaredLogger) core.Hook {
	return func(ev core.Event) {
		log.Warnw("operation suppressed",
			"op", ev.Op,
			"reason", ev.Reason.String(),
			"addr", ev.Addr,
			"error", ev.Err)
	}
}

func bridgeConfig(bus config.BusConfig) bridge.Config {
	if bus.Kind == config.BusI2C {
		return bridge.Config{I2C: &bridge.I2CConfig{
			Bus:       core.I2CBusID(bus.I2CBus),
			Rate:      bus.Rate,
			Addresses: []core.I2CAddress{core.I2CAddress(bus.Address)},
		}}
	}
	return bridge.Config{SPI: &bridge.SPIConfig{
		SPIConfig: core.SPIConfig{
			BusID: core.SPIBusID(bus.SPIBus),
			Mode:  core.SPIMode(bus.Mode),
			Rate:  bus.Rate,
		},
		ChipSelects:  []core.GPIOPin{core.GPIOPin(bus.ChipSelect)},
		CSActiveHigh: bus.CSActiveHigh,
	}}
}

func openEndpoint(cfg *config.Config, b *bridge.Bridge, hook core.Hook) core.Endpoint {
	opts := []core.DeviceOption{
		core.WithTimeout(cfg.Device.Timeout),
		core.WithSetupDelay(cfg.Device.SetupDelay),
		core.WithHoldDelay(cfg.Device.HoldDelay),
		core.WithHook(hook),
	}
	if cfg.Bus.Kind == config.BusI2C {
		dev := core.NewI2CDevice(b, core.I2CAddress(cfg.Bus.Address), opts...)
		return core.I2CEndpoint(dev).WithHook(hook)
	}
	cs := &core.ChipSelect{
		Driver:     b,
		Pin:        core.GPIOPin(cfg.Bus.ChipSelect),
		ActiveHigh: cfg.Bus.CSActiveHigh,
	}
	return core.SPIEndpoint(core.NewSPIDevice(b, cs, opts...)).WithHook(hook)
}

func run() (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, *verbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	log.Infow("connecting",
		"device", cfg.Serial.Device,
		"baud", cfg.Serial.Baud,
		"protocol", protocol.Version)
	session, err := mcu.Connect(cfg.Serial, mcu.WithLogger(log.Named("mcu")))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, session.Close()) }()

	if err := session.RetrieveDictionary(); err != nil {
		return err
	}

	b, err := bridge.New(session, bridgeConfig(cfg.Bus), bridge.WithLogger(log.Named("bridge")))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, b.Close()) }()

	var counter core.Counter
	hook := core.Chain(counter.Hook(), suppressionLogger(log.Named("regbus")))
	endpoint := openEndpoint(cfg, b, hook)
	defer endpoint.Close()

	shell := &Shell{
		out:      os.Stdout,
		endpoint: endpoint,
		memory:   eeprom.New(endpoint, cfg.EEPROM.Size, eeprom.WithHook(hook)),
		counter:  &counter,
		dict:     session.Dictionary(),
		layout:   cfg.EEPROM.Layout,
		log:      log,
	}
	if shell.layout != "" {
		if err := shell.load(shell.layout); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "eeprom> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    newCompleter(),
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	shell.out = rl.Stdout()
	shell.Run(rl)

	if shell.layout != "" {
		return shell.save(shell.layout)
	}
	return nil
}
