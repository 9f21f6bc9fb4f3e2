package serial

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial), any platform
// - Raw termios (using golang.org/x/sys/unix), Linux only
// - Mock serial (for testing)
//
// Read waits at most the configured read timeout and may return zero bytes
// (with a nil error or io.EOF) when nothing arrived in time.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not read and data written but not
	// transmitted
	Flush() error
}

// Driver names a Port implementation
type Driver string

const (
	// DriverTarm uses github.com/tarm/serial
	DriverTarm Driver = "tarm"
	// DriverTermios drives the tty directly through termios and select(2)
	DriverTermios Driver = "termios"
)

// ErrDriverUnsupported is returned when the selected driver is not built for
// this platform
var ErrDriverUnsupported = errors.New("serial driver not supported on this platform")

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate. The probe always talks 115200 8N1.
	Baud int

	// Per-attempt read timeout. tarm/serial rounds this up to 100ms on POSIX.
	ReadTimeout time.Duration

	// Driver selects the implementation, DriverTarm when empty
	Driver Driver
}

// DefaultConfig returns the probe line configuration for a device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 10 * time.Millisecond,
		Driver:      DriverTarm,
	}
}

// Open opens a serial port with the configured driver
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.Driver {
	case "", DriverTarm:
		return openNative(cfg)
	case DriverTermios:
		return openTermios(cfg)
	default:
		return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
	}
}
