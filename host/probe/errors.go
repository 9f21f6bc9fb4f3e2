package probe

import (
	"errors"
	"fmt"

	"buspirate/protocol"
)

// ErrNack indicates an I2C peripheral did not acknowledge a byte
var ErrNack = errors.New("i2c nack")

// StateError reports an operation invoked in the wrong mode.
type StateError struct {
	Op   string
	Want Mode
	Have Mode
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: requires %s mode, probe is in %s mode", e.Op, e.Want, e.Have)
}

func (e *StateError) Unwrap() error {
	return protocol.ErrState
}

// NackError reports the byte a peripheral refused during a bus transaction.
// Index 0 is the address byte.
type NackError struct {
	Addr  uint16
	Index int
}

func (e *NackError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("i2c device 0x%02x did not acknowledge its address", e.Addr)
	}
	return fmt.Sprintf("i2c device 0x%02x did not acknowledge byte %d", e.Addr, e.Index)
}

func (e *NackError) Unwrap() error {
	return ErrNack
}
