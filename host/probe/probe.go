// Package probe drives a Bus Pirate over a serial line.
//
// A Probe is brought from an unknown line state into the user terminal by
// Reset, which Open runs before returning. From there the caller moves into
// binary mode and its sub-modes; every bus operation checks that the probe
// is in the mode it needs.
package probe

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"buspirate/host/serial"
	"buspirate/protocol"
)

// Probe represents one open connection to a Bus Pirate.
//
// The protocol is half-duplex command/response. A Probe is not safe for
// concurrent use: callers sharing one must serialize every call themselves.
type Probe struct {
	port serial.Port
	rx   *protocol.Receiver
	cfg  Config
	log  zerolog.Logger

	mode       Mode
	firmware   *protocol.Version
	bootloader *protocol.Version
	closed     bool
}

// Open opens the serial port and resets the probe into the user terminal.
// No Probe is returned unless the reset succeeded.
func Open(cfg *Config) (*Probe, error) {
	if cfg == nil || cfg.Serial == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	port, err := serial.Open(cfg.Serial)
	if err != nil {
		return nil, &protocol.IOError{Op: "open", Err: err}
	}

	p, err := New(port, cfg)
	if err != nil {
		port.Close()
		return nil, err
	}
	return p, nil
}

// New resets a probe behind an already open port. The port is owned by the
// returned Probe; on error the caller keeps ownership.
func New(port serial.Port, cfg *Config) (*Probe, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	c := *cfg
	if c.ResetAttempts < 1 {
		c.ResetAttempts = 1
	}
	if c.MaxBannerLines < 1 {
		c.MaxBannerLines = protocol.MaxBannerLines
	}
	if c.BufferSize < 1 {
		c.BufferSize = protocol.BufferSize
	}

	logger := c.Logger
	if c.Serial != nil {
		logger = logger.With().Str("device", c.Serial.Device).Logger()
	}

	p := &Probe{
		port: port,
		rx:   protocol.NewReceiver(port, c.BufferSize, c.Retries),
		cfg:  c,
		log:  logger,
		mode: ModeUnknown,
	}

	if err := p.Reset(); err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases the serial port. The Probe cannot be used afterwards.
func (p *Probe) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.mode = ModeUnknown
	p.rx = nil
	if err := p.port.Close(); err != nil {
		return &protocol.IOError{Op: "close", Err: err}
	}
	return nil
}

// Mode returns the current protocol state
func (p *Probe) Mode() Mode {
	return p.mode
}

// FirmwareVersion returns the firmware version announced by the console.
// ok is false when the version is unknown.
func (p *Probe) FirmwareVersion() (v protocol.Version, ok bool) {
	if p.firmware == nil {
		return protocol.Version{}, false
	}
	return *p.firmware, true
}

// BootloaderVersion returns the bootloader version announced by the console.
// ok is false when the banner did not carry one.
func (p *Probe) BootloaderVersion() (v protocol.Version, ok bool) {
	if p.bootloader == nil {
		return protocol.Version{}, false
	}
	return *p.bootloader, true
}

func (p *Probe) checkOpen(op string) error {
	if p.closed {
		return fmt.Errorf("%s: %w", op, protocol.ErrClosed)
	}
	return nil
}

// requireMode fails unless the probe is open and exactly in mode want
func (p *Probe) requireMode(op string, want Mode) error {
	if err := p.checkOpen(op); err != nil {
		return err
	}
	if p.mode != want {
		return &StateError{Op: op, Want: want, Have: p.mode}
	}
	return nil
}

// write sends data in one blocking write. Short writes are failures.
func (p *Probe) write(op string, data ...byte) error {
	p.log.Trace().Str("op", op).Hex("tx", data).Msg("write")

	n, err := p.port.Write(data)
	if err != nil {
		return &protocol.IOError{Op: op, Err: err}
	}
	if n != len(data) {
		return &protocol.IOError{Op: op, Err: fmt.Errorf("incomplete write: %d/%d bytes", n, len(data))}
	}
	return nil
}

// read receives exactly n bytes through the retrying receiver
func (p *Probe) read(op string, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := p.rx.Read(buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.log.Trace().Str("op", op).Hex("rx", buf).Msg("read")
	return buf, nil
}

// exchange writes a command and reads a fixed size response
func (p *Probe) exchange(op string, n int, cmd ...byte) ([]byte, error) {
	if err := p.write(op, cmd...); err != nil {
		return nil, err
	}
	return p.read(op, n)
}

// flush discards stale input after a mode transition
func (p *Probe) flush() error {
	n, err := p.rx.Flush()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if n > 0 {
		p.log.Debug().Int("bytes", n).Msg("discarded stale input")
	}
	return nil
}

func (p *Probe) sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
