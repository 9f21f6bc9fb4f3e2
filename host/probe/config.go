package probe

import (
	"time"

	"github.com/rs/zerolog"

	"buspirate/host/serial"
	"buspirate/protocol"
)

// Config holds the driver configuration. Everything the driver needs is
// passed in here; there is no package level state.
type Config struct {
	// Serial line configuration
	Serial *serial.Config

	// Retries is the number of consecutive empty reads tolerated per byte
	Retries int

	// BufferSize is the receive ring capacity
	BufferSize int

	// ResetAttempts bounds the 0x00 probes sent to reach binary mode
	ResetAttempts int

	// SettleDelay lets an interrupted command drain after binary mode entry
	SettleDelay time.Duration

	// ShortSettle follows the exit to text mode and the console reset
	ShortSettle time.Duration

	// MaxBannerLines bounds the console lines searched for the version
	MaxBannerLines int

	// Logger receives driver logs; byte traffic is logged at trace level
	Logger zerolog.Logger
}

// DefaultConfig returns the default configuration for a device
func DefaultConfig(device string) *Config {
	return &Config{
		Serial:         serial.DefaultConfig(device),
		Retries:        protocol.DefaultRetries,
		BufferSize:     protocol.BufferSize,
		ResetAttempts:  20,
		SettleDelay:    time.Second,
		ShortSettle:    100 * time.Millisecond,
		MaxBannerLines: protocol.MaxBannerLines,
		Logger:         zerolog.Nop(),
	}
}
