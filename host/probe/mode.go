package probe

import "fmt"

// Mode is the protocol state of the probe as tracked by the driver
type Mode int

const (
	// ModeUnknown is the state before the first successful reset, and after
	// a reset that failed half way
	ModeUnknown Mode = iota
	// ModeText is the user terminal (console)
	ModeText
	// ModeBinary is raw binary (bitbang) mode with no sub-protocol
	ModeBinary
	// ModeI2C is the binary I2C sub-mode
	ModeI2C
	// ModeSPI is the binary SPI sub-mode
	ModeSPI
	// ModeRawWire is the binary raw-wire sub-mode
	ModeRawWire
)

func (m Mode) String() string {
	switch m {
	case ModeUnknown:
		return "unknown"
	case ModeText:
		return "text"
	case ModeBinary:
		return "binary"
	case ModeI2C:
		return "binary-i2c"
	case ModeSPI:
		return "binary-spi"
	case ModeRawWire:
		return "binary-rawwire"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// IsBinary returns true for raw binary mode and its sub-modes
func (m Mode) IsBinary() bool {
	return m >= ModeBinary && m <= ModeRawWire
}
