package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"buspirate/host/probe"
)

// session holds the probe a shell drives
type session struct {
	p   *probe.Probe
	out io.Writer
}

type command struct {
	name  string
	usage string
	help  string
	run   func(s *session, args []string) error
}

// commands is set in init since cmdRun dispatches through it
var commands []command

func init() {
	commands = []command{
		{"reset", "", "Reset the probe to the user terminal", cmdReset},
		{"mode", "", "Show the current mode and versions", cmdMode},
		{"binary", "", "Enter raw binary mode (or leave a sub-mode)", cmdBinary},
		{"i2c", "", "Enter the binary I2C sub-mode", cmdI2C},
		{"pins", "DIRS", "Set pin directions, 1=input (binary mode)", cmdPins},
		{"level", "LEVELS [power] [pullup]", "Drive pin levels (binary mode)", cmdLevel},
		{"volt", "", "Read the ADC probe in mV (binary mode)", cmdVolt},
		{"start", "", "Send an I2C start condition", cmdStart},
		{"stop", "", "Send an I2C stop condition", cmdStop},
		{"write", "BYTE...", "Write bytes on the I2C bus", cmdWrite},
		{"read", "[COUNT]", "Read bytes on the I2C bus, ACKing all but the last", cmdRead},
		{"ack", "", "Acknowledge the last byte read", cmdAck},
		{"nack", "", "Refuse the last byte read", cmdNack},
		{"speed", "FREQ", "Set the I2C clock, e.g. 100kHz", cmdSpeed},
		{"periph", "[power] [pullups] [aux] [cs]", "Switch I2C mode peripherals", cmdPeriph},
		{"scan", "", "List responding I2C addresses", cmdScan},
		{"tx", "ADDR [BYTE...] [-r COUNT]", "Write then read one I2C device", cmdTx},
		{"run", "SCRIPT", "Run shell commands from a file", cmdRun},
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// dispatch runs one command line already split into words
func (s *session) dispatch(words []string) error {
	if len(words) == 0 {
		return nil
	}
	c, ok := findCommand(words[0])
	if !ok {
		return fmt.Errorf("unknown command: %s", words[0])
	}
	return c.run(s, words[1:])
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func parseByte(arg string) (byte, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q: %w", arg, err)
	}
	return byte(v), nil
}

func parseBytes(args []string) ([]byte, error) {
	data := make([]byte, 0, len(args))
	for _, arg := range args {
		v, err := parseByte(arg)
		if err != nil {
			return nil, err
		}
		data = append(data, v)
	}
	return data, nil
}

func noArgs(name string, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%s takes no arguments", name)
	}
	return nil
}

func cmdReset(s *session, args []string) error {
	if err := noArgs("reset", args); err != nil {
		return err
	}
	if err := s.p.Reset(); err != nil {
		return err
	}
	return cmdMode(s, nil)
}

func cmdMode(s *session, args []string) error {
	if err := noArgs("mode", args); err != nil {
		return err
	}
	s.printf("mode: %s\n", s.p.Mode())
	if fw, ok := s.p.FirmwareVersion(); ok {
		s.printf("firmware: %s\n", fw)
	}
	if bl, ok := s.p.BootloaderVersion(); ok {
		s.printf("bootloader: %s\n", bl)
	}
	return nil
}

func cmdBinary(s *session, args []string) error {
	if err := noArgs("binary", args); err != nil {
		return err
	}
	var (
		v   byte
		err error
	)
	if s.p.Mode().IsBinary() {
		v, err = s.p.BinaryReset()
	} else {
		v, err = s.p.EnterBinary()
	}
	if err != nil {
		return err
	}
	s.printf("BBIO%d\n", v)
	return nil
}

func cmdI2C(s *session, args []string) error {
	if err := noArgs("i2c", args); err != nil {
		return err
	}
	v, err := s.p.EnterI2C()
	if err != nil {
		return err
	}
	s.printf("I2C%d\n", v)
	return nil
}

func cmdPins(s *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("pins takes one direction byte")
	}
	dirs, err := parseByte(args[0])
	if err != nil {
		return err
	}
	pins, err := s.p.PinsConfigure(probe.Pins(dirs))
	if err != nil {
		return err
	}
	s.printf("0x%02x %s\n", byte(pins), pins)
	return nil
}

func cmdLevel(s *session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("level takes a level byte")
	}
	levels, err := parseByte(args[0])
	if err != nil {
		return err
	}
	var power, pullup bool
	for _, arg := range args[1:] {
		switch arg {
		case "power":
			power = true
		case "pullup":
			pullup = true
		default:
			return fmt.Errorf("unknown level option %q", arg)
		}
	}
	pins, err := s.p.PinsSet(probe.Pins(levels), power, pullup)
	if err != nil {
		return err
	}
	s.printf("0x%02x %s\n", byte(pins), pins)
	return nil
}

func cmdVolt(s *session, args []string) error {
	if err := noArgs("volt", args); err != nil {
		return err
	}
	mv, err := s.p.ReadVoltage()
	if err != nil {
		return err
	}
	s.printf("%d mV\n", mv)
	return nil
}

func cmdStart(s *session, args []string) error {
	if err := noArgs("start", args); err != nil {
		return err
	}
	return s.p.I2C().Start()
}

func cmdStop(s *session, args []string) error {
	if err := noArgs("stop", args); err != nil {
		return err
	}
	return s.p.I2C().Stop()
}

func cmdAck(s *session, args []string) error {
	if err := noArgs("ack", args); err != nil {
		return err
	}
	return s.p.I2C().Ack()
}

func cmdNack(s *session, args []string) error {
	if err := noArgs("nack", args); err != nil {
		return err
	}
	return s.p.I2C().Nack()
}

func cmdWrite(s *session, args []string) error {
	data, err := parseBytes(args)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("write takes at least one byte")
	}
	for _, v := range data {
		ack, err := s.p.I2C().Write(v)
		if err != nil {
			return err
		}
		s.printf("0x%02x %s\n", v, ack)
	}
	return nil
}

func cmdRead(s *session, args []string) error {
	count := 1
	if len(args) > 1 {
		return fmt.Errorf("read takes at most a count")
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		count = n
	}

	c := s.p.I2C()
	data := make([]byte, 0, count)
	for i := 0; i < count; i++ {
		v, err := c.ReadByte()
		if err != nil {
			return err
		}
		data = append(data, v)
		if i < count-1 {
			if err := c.Ack(); err != nil {
				return err
			}
		}
	}
	s.printf("% x\n", data)
	return nil
}

func cmdSpeed(s *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("speed takes one frequency")
	}
	var f physic.Frequency
	if err := f.Set(args[0]); err != nil {
		return fmt.Errorf("invalid frequency %q: %w", args[0], err)
	}
	return s.p.Bus().SetSpeed(f)
}

func cmdPeriph(s *session, args []string) error {
	var cfg probe.Peripheral
	for _, arg := range args {
		switch arg {
		case "power":
			cfg |= probe.PeriphPower
		case "pullups":
			cfg |= probe.PeriphPullups
		case "aux":
			cfg |= probe.PeriphAUX
		case "cs":
			cfg |= probe.PeriphCS
		default:
			return fmt.Errorf("unknown peripheral %q", arg)
		}
	}
	return s.p.I2C().SetPeripheral(cfg)
}

func cmdScan(s *session, args []string) error {
	if err := noArgs("scan", args); err != nil {
		return err
	}
	found, err := s.p.Bus().Scan()
	if err != nil {
		return err
	}
	if len(found) == 0 {
		s.printf("no devices found\n")
		return nil
	}
	for _, addr := range found {
		s.printf("%s\n", i2c.Addr(addr))
	}
	return nil
}

func cmdTx(s *session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("tx takes a device address")
	}
	var addr i2c.Addr
	if err := addr.Set(args[0]); err != nil {
		return fmt.Errorf("%q: %w", args[0], err)
	}

	var (
		writeArgs []string
		readLen   int
	)
	for i := 1; i < len(args); i++ {
		if args[i] != "-r" {
			writeArgs = append(writeArgs, args[i])
			continue
		}
		if i+1 >= len(args) {
			return fmt.Errorf("-r takes a count")
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid count %q", args[i+1])
		}
		readLen = n
		i++
	}

	w, err := parseBytes(writeArgs)
	if err != nil {
		return err
	}
	r := make([]byte, readLen)
	dev := &i2c.Dev{Addr: uint16(addr), Bus: s.p.Bus()}
	if err := dev.Tx(w, r); err != nil {
		return err
	}
	if readLen > 0 {
		s.printf("% x\n", r)
	}
	return nil
}

func cmdRun(s *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("run takes one script file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return s.runScript(f)
}

// runScript runs one command per line. Lines are split with shell quoting
// rules and '#' starts a comment. The first failing line stops the script.
func (s *session) runScript(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	for i, line := range strings.Split(string(data), "\n") {
		words, err := shlex.Split(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if err := s.dispatch(words); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}
