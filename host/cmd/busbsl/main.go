// Command busbsl programs and erases a target through a Bus Pirate, and
// offers interactive shells for driving the probe and the ARAFE master by
// hand.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"buspirate/firmware"
	"buspirate/host/probe"
	"buspirate/host/serial"
	"buspirate/protocol"
)

const (
	exitOK    = 0
	exitError = 1
)

var errUsage = errors.New("usage error")

// openProbe is replaced in tests
var openProbe = probe.Open

type options struct {
	device  string
	driver  string
	retries int
	timeout time.Duration
	verbose bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		return exitError
	}

	log := newLogger(stderr, opts.verbose)
	if len(rest) == 0 {
		usage(stderr)
		return exitError
	}

	cfg := probeConfig(opts, log)
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "program":
		err = program(cfg, cmdArgs, log)
	case "erase":
		err = erase(cfg, cmdArgs, log)
	case "hex2bin":
		err = hex2bin(cmdArgs, log)
	case "shell":
		err = runShell(cfg, cmdArgs, stdout, log)
	case "arafe":
		err = runArafe(arafeConfig(opts, log), cmdArgs, stdout)
	case "help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		usage(stderr)
		return exitError
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		usage(stderr)
		return exitError
	}
	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("failed")
		return exitError
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var opts options
	fs := flag.NewFlagSet("busbsl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	fs.StringVar(&opts.device, "device", "/dev/ttyUSB0", "Serial device path")
	fs.StringVar(&opts.driver, "driver", string(serial.DriverTarm), "Serial driver (tarm, termios)")
	fs.IntVar(&opts.retries, "retries", protocol.DefaultRetries, "Empty reads tolerated per received byte")
	fs.DurationVar(&opts.timeout, "timeout", 10*time.Millisecond, "Serial read timeout per attempt")
	fs.BoolVar(&opts.verbose, "v", false, "Enable verbose output")

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	return opts, fs.Args(), nil
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func probeConfig(opts options, log zerolog.Logger) *probe.Config {
	cfg := probe.DefaultConfig(opts.device)
	cfg.Serial.Driver = serial.Driver(opts.driver)
	cfg.Serial.ReadTimeout = opts.timeout
	cfg.Retries = opts.retries
	cfg.Logger = log
	return cfg
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: busbsl [flags] <command> [args]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  program <file>           Check an image and the probe for programming")
	fmt.Fprintln(w, "  erase                    Reset the probe for a target erase")
	fmt.Fprintln(w, "  hex2bin <in.hex> <out>   Flatten an Intel HEX file into a bootloader image")
	fmt.Fprintln(w, "  shell [command [args]]   Drive the probe interactively, or run one shell command")
	fmt.Fprintln(w, "  arafe [command [args]]   Switch ARAFE master slave power at 9600 baud")
	fmt.Fprintln(w, "\nFlags:")
	fmt.Fprintln(w, "  -device string    Serial device path (default /dev/ttyUSB0)")
	fmt.Fprintln(w, "  -driver string    Serial driver: tarm or termios (default tarm)")
	fmt.Fprintln(w, "  -retries int      Empty reads tolerated per received byte (default 3)")
	fmt.Fprintln(w, "  -timeout duration Probe read timeout per attempt (default 10ms)")
	fmt.Fprintln(w, "  -v                Enable verbose output")
}

// connect opens the probe and logs what it announced
func connect(cfg *probe.Config, log zerolog.Logger) (*probe.Probe, error) {
	log.Info().Str("device", cfg.Serial.Device).Msg("connecting to bus pirate")
	p, err := openProbe(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	ev := log.Info().Stringer("mode", p.Mode())
	if fw, ok := p.FirmwareVersion(); ok {
		ev = ev.Stringer("firmware", fw)
	}
	if bl, ok := p.BootloaderVersion(); ok {
		ev = ev.Stringer("bootloader", bl)
	}
	ev.Msg("connected")
	return p, nil
}

func program(cfg *probe.Config, args []string, log zerolog.Logger) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: program takes exactly one image file", errUsage)
	}

	image, err := firmware.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	log.Info().Str("file", args[0]).Int("bytes", len(image)).Msg("image loaded")

	p, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	log.Info().Int("bytes", len(image)).Msg("image and probe ready, no target transfer protocol available")
	return nil
}

func erase(cfg *probe.Config, args []string, log zerolog.Logger) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: erase takes no arguments", errUsage)
	}

	p, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	log.Info().Msg("probe reset, no target erase protocol available")
	return nil
}

func hex2bin(args []string, log zerolog.Logger) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: hex2bin takes an input and an output file", errUsage)
	}

	n, err := firmware.Convert(args[0], args[1])
	if err != nil {
		return err
	}
	log.Info().Str("out", args[1]).Int("bytes", n).Msg("image written")
	return nil
}
