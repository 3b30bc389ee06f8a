package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"regbus/core"
	"regbus/eeprom"
	"regbus/host/mcu"
)

var errQuit = errors.New("quit")

// Shell runs eepromctl commands against one endpoint and its allocator.
type Shell struct {
	out      io.Writer
	endpoint core.Endpoint
	memory   *eeprom.EEPROM
	counter  *core.Counter
	dict     *mcu.Dictionary
	layout   string
	log      *zap.SugaredLogger
}

func newCompleter() *readline.PrefixCompleter {
	types := make([]readline.PrefixCompleterInterface, 0, len(valueTypes))
	for name := range valueTypes {
		types = append(types, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("read"),
		readline.PcItem("write"),
		readline.PcItem("bit"),
		readline.PcItem("bits"),
		readline.PcItem("get"),
		readline.PcItem("set"),
		readline.PcItem("fields"),
		readline.PcItem("stats", readline.PcItem("reset")),
		readline.PcItem("save"),
		readline.PcItem("load"),
		readline.PcItem("dict"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Run reads commands until EOF or quit.
func (s *Shell) Run(rl *readline.Instance) {
	s.printHelp()
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}
		if err := s.Exec(line); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

// Exec runs one command line.
func (s *Shell) Exec(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
		return nil
	case "read", "r":
		return s.cmdRead(args)
	case "write", "w":
		return s.cmdWrite(args)
	case "bit":
		return s.cmdBit(args)
	case "bits":
		return s.cmdBits(args)
	case "get":
		return s.cmdGet(args)
	case "set":
		return s.cmdSet(args)
	case "fields", "f":
		s.cmdFields()
		return nil
	case "stats":
		s.cmdStats(args)
		return nil
	case "save":
		return s.save(s.pathArg(args))
	case "load":
		return s.load(s.pathArg(args))
	case "dict":
		s.cmdDict()
		return nil
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (type 'help' for commands)", cmd)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Registers:
  read <reg> [type] [count]        - Read count values of type at reg (default u8)
  write <reg> <type> <value>...    - Write values of type at reg
  bit <reg> <pos> [0|1]            - Read or set one bit
  bits <reg> <pos> <size> [value]  - Read or set a bit field

EEPROM fields:
  get <name> <type>                - Read a named field
  set <name> <type> <value>        - Declare and write a named field
  fields                           - List declared fields
  save [path] / load [path]        - Persist or restore the field layout

Other:
  stats [reset]                    - Show suppressed operations
  dict                             - Show the MCU dictionary summary
  quit                             - Exit

Types: u8 u16 u32 u64 i8 i16 i32 i64 f32 f64`)
}

func (s *Shell) cmdRead(args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return errors.New("usage: read <reg> [type] [count]")
	}
	reg, err := parseUint8(args[0])
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	typ, count := "u8", 1
	if len(args) > 1 {
		typ = args[1]
	}
	if len(args) > 2 {
		if count, err = strconv.Atoi(args[2]); err != nil || count < 1 {
			return fmt.Errorf("count %q", args[2])
		}
	}
	vt, err := lookupType(typ)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "0x%02x: %s\n", reg, strings.Join(vt.read(s.endpoint, reg, count), " "))
	return nil
}

func (s *Shell) cmdWrite(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: write <reg> <type> <value>...")
	}
	reg, err := parseUint8(args[0])
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	vt, err := lookupType(args[1])
	if err != nil {
		return err
	}
	if err := vt.write(s.endpoint, reg, args[2:]); err != nil {
		return err
	}
	s.log.Debugw("register written", "reg", reg, "type", args[1], "values", args[2:])
	return nil
}

func (s *Shell) cmdBit(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: bit <reg> <pos> [0|1]")
	}
	reg, err := parseUint8(args[0])
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	pos, err := parseUint8(args[1])
	if err != nil || pos > 7 {
		return fmt.Errorf("bit position %q", args[1])
	}
	if len(args) == 3 {
		v, err := strconv.ParseBool(args[2])
		if err != nil {
			return err
		}
		s.endpoint.WriteBit(reg, v, pos)
		return nil
	}
	bit := 0
	if s.endpoint.ReadBit(reg, pos) {
		bit = 1
	}
	fmt.Fprintf(s.out, "0x%02x[%d]: %d\n", reg, pos, bit)
	return nil
}

func (s *Shell) cmdBits(args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errors.New("usage: bits <reg> <pos> <size> [value]")
	}
	var nums [4]uint8
	for i, a := range args {
		v, err := parseUint8(a)
		if err != nil {
			return fmt.Errorf("argument %q: %w", a, err)
		}
		nums[i] = v
	}
	reg, pos, size := nums[0], nums[1], nums[2]
	if size == 0 || int(pos)+int(size) > 8 {
		return fmt.Errorf("bit field %d+%d does not fit a byte", pos, size)
	}
	if len(args) == 4 {
		s.endpoint.WriteBits(reg, nums[3], pos, size)
		return nil
	}
	fmt.Fprintf(s.out, "0x%02x[%d:%d]: %d\n", reg, pos, pos+size-1, s.endpoint.ReadBits(reg, pos, size))
	return nil
}

func (s *Shell) cmdGet(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: get <name> <type>")
	}
	vt, err := lookupType(args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s = %s\n", args[0], vt.get(s.memory, args[0]))
	return nil
}

func (s *Shell) cmdSet(args []string) error {
	if len(args) != 3 {
		return errors.New("usage: set <name> <type> <value>")
	}
	vt, err := lookupType(args[1])
	if err != nil {
		return err
	}
	before := s.memory.Pointer()
	if err := vt.set(s.memory, args[0], args[2]); err != nil {
		return err
	}
	if s.memory.Pointer() == before {
		return fmt.Errorf("%s not written: %d bytes left", args[0], s.memory.Remaining())
	}
	return nil
}

func (s *Shell) cmdFields() {
	fields := s.memory.Fields()
	fmt.Fprintf(s.out, "%d/%d bytes used, %d fields\n", s.memory.Pointer(), s.memory.Size(), len(fields))
	for _, f := range fields {
		fmt.Fprintf(s.out, "  0x%02x  %-2d  %s\n", f.Address, f.Bytes, f.Name)
	}
}

func (s *Shell) cmdStats(args []string) {
	if s.counter == nil {
		return
	}
	if len(args) > 0 && args[0] == "reset" {
		s.counter.Reset()
		return
	}
	s.counter.Dump(func(line string) { fmt.Fprintln(s.out, line) })
}

func (s *Shell) cmdDict() {
	if s.dict == nil {
		fmt.Fprintln(s.out, "No dictionary loaded")
		return
	}
	fmt.Fprintf(s.out, "Version: %s\n", s.dict.Version)
	fmt.Fprintf(s.out, "Build: %s\n", s.dict.BuildVersions)
	fmt.Fprintf(s.out, "Commands (%d): %s\n", len(s.dict.Commands), strings.Join(s.dict.CommandNames(), " "))
	fmt.Fprintf(s.out, "Responses: %d\n", len(s.dict.Responses))
}

func (s *Shell) pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.layout
}

// save writes the field layout as CBOR.
func (s *Shell) save(path string) error {
	if path == "" {
		return errors.New("no layout path")
	}
	data, err := eeprom.MarshalLayout(s.memory.Snapshot())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	s.log.Infow("layout saved", "path", path, "fields", len(s.memory.Fields()))
	return nil
}

// load restores the field layout from a CBOR file.
func (s *Shell) load(path string) error {
	if path == "" {
		return errors.New("no layout path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load layout: %w", err)
	}
	l, err := eeprom.UnmarshalLayout(data)
	if err != nil {
		return err
	}
	if err := s.memory.Restore(l); err != nil {
		return fmt.Errorf("load layout %s: %w", path, err)
	}
	s.log.Infow("layout loaded", "path", path, "fields", len(l.Fields), "pointer", l.Pointer)
	return nil
}
