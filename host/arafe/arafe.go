// Package arafe talks to the ARAFE master board over its USB serial console.
//
// The master takes ASCII register writes of the form "c<reg><data>!", both
// fields as two hex digits, and answers with a few lines of text that end
// when the line goes quiet.
package arafe

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"buspirate/host/serial"
	"buspirate/protocol"
)

const (
	// Baud is the master's console rate
	Baud = 9600
	// ReadTimeout is how long a reply line may stay quiet
	ReadTimeout = time.Second

	// Slaves is the number of slave power channels
	Slaves = 4
	// RegSlavePower switches the slave power channels
	RegSlavePower = 0x00

	// slavePowerBase is set in every slave power value, channel n is bit n
	slavePowerBase = 0x80

	maxLineChars  = 256
	maxReplyLines = 64
	bufferSize    = 512
)

// ErrSlaveRange is returned for a slave channel outside 0 to Slaves-1
var ErrSlaveRange = errors.New("slave channel out of range")

// Config holds the serial line and logger for a Master
type Config struct {
	Serial *serial.Config

	// Retries is the number of quiet reads that end a reply
	Retries int

	Logger zerolog.Logger
}

// DefaultConfig returns the master's line settings for a device
func DefaultConfig(device string) *Config {
	sc := serial.DefaultConfig(device)
	sc.Baud = Baud
	sc.ReadTimeout = ReadTimeout
	return &Config{
		Serial:  sc,
		Retries: 1,
		Logger:  zerolog.Nop(),
	}
}

// Master is an open connection to the ARAFE master. Like the probe it is
// half-duplex and not safe for concurrent use.
type Master struct {
	port serial.Port
	rx   *protocol.Receiver
	log  zerolog.Logger
}

// Open opens the serial port to the master
func Open(cfg *Config) (*Master, error) {
	if cfg == nil || cfg.Serial == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	port, err := serial.Open(cfg.Serial)
	if err != nil {
		return nil, &protocol.IOError{Op: "open", Err: err}
	}
	cfg.Logger.Info().Str("device", cfg.Serial.Device).Msg("using serial line")
	return New(port, cfg), nil
}

// New wraps an already open port, which the Master then owns
func New(port serial.Port, cfg *Config) *Master {
	return &Master{
		port: port,
		rx:   protocol.NewReceiver(port, bufferSize, cfg.Retries),
		log:  cfg.Logger,
	}
}

// Close releases the serial port
func (m *Master) Close() error {
	return m.port.Close()
}

// Command formats a register write
func Command(reg, data byte) string {
	return fmt.Sprintf("c%02x%02x!", reg, data)
}

// SlavePowerValue packs the channel states into a slave power register value
func SlavePowerValue(on [Slaves]bool) byte {
	v := byte(slavePowerBase)
	for i, enabled := range on {
		if enabled {
			v |= 1 << i
		}
	}
	return v
}

// WriteRegister sends one register write and returns the reply lines
func (m *Master) WriteRegister(reg, data byte) ([]string, error) {
	cmd := Command(reg, data)
	m.log.Debug().Str("command", cmd).Msg("register write")

	n, err := m.port.Write([]byte(cmd))
	if err != nil {
		return nil, &protocol.IOError{Op: "write", Err: err}
	}
	if n != len(cmd) {
		return nil, &protocol.IOError{Op: "write", Err: io.ErrShortWrite}
	}
	return m.readReply()
}

// readReply collects lines until the master goes quiet
func (m *Master) readReply() ([]string, error) {
	var lines []string
	for len(lines) < maxReplyLines {
		line, err := m.rx.ReadLine(maxLineChars)
		if protocol.IsTimeout(err) {
			if line != "" {
				lines = append(lines, line)
			}
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// SlavePower switches one slave channel. The register holds all four
// channels, so the other three are switched off.
func (m *Master) SlavePower(slave int, on bool) ([]string, error) {
	if slave < 0 || slave >= Slaves {
		return nil, fmt.Errorf("%w: %d", ErrSlaveRange, slave)
	}
	var channels [Slaves]bool
	channels[slave] = on
	m.log.Warn().Int("slave", slave).Msg("switching off the other slave channels")
	return m.WriteRegister(RegSlavePower, SlavePowerValue(channels))
}

// AllSlavePower sets every slave channel, index n being slave n
func (m *Master) AllSlavePower(on [Slaves]bool) ([]string, error) {
	return m.WriteRegister(RegSlavePower, SlavePowerValue(on))
}
