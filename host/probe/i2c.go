package probe

import (
	"fmt"

	"buspirate/protocol"
)

// Speed is an I2C clock setting
type Speed byte

const (
	Speed5kHz   Speed = protocol.I2CSpeed5kHz
	Speed50kHz  Speed = protocol.I2CSpeed50kHz
	Speed100kHz Speed = protocol.I2CSpeed100kHz
	Speed400kHz Speed = protocol.I2CSpeed400kHz
)

func (s Speed) String() string {
	switch s {
	case Speed5kHz:
		return "5kHz"
	case Speed50kHz:
		return "50kHz"
	case Speed100kHz:
		return "100kHz"
	case Speed400kHz:
		return "400kHz"
	default:
		return fmt.Sprintf("speed(%d)", byte(s))
	}
}

// Peripheral is the I2C mode peripheral configuration
type Peripheral byte

const (
	PeriphCS      Peripheral = protocol.I2CPeriphCS
	PeriphAUX     Peripheral = protocol.I2CPeriphAUX
	PeriphPullups Peripheral = protocol.I2CPeriphPullups
	PeriphPower   Peripheral = protocol.I2CPeriphPower
)

// Ack is the acknowledge bit returned by a peripheral after a written byte
type Ack byte

const (
	ACK  Ack = protocol.RespI2CAck
	NACK Ack = protocol.RespI2CNack
)

func (a Ack) String() string {
	if a == ACK {
		return "ACK"
	}
	return "NACK"
}

// I2C is the command set of the binary I2C sub-mode. Every call requires
// the probe to be in ModeI2C.
type I2C struct {
	p *Probe
}

// I2C returns the I2C command set of the probe
func (p *Probe) I2C() *I2C {
	return &I2C{p: p}
}

// exchange runs one I2C command after checking the mode
func (c *I2C) exchange(op string, n int, cmd ...byte) ([]byte, error) {
	if err := c.p.requireMode("i2c "+op, ModeI2C); err != nil {
		return nil, err
	}
	return c.p.exchange("i2c "+op, n, cmd...)
}

// command runs a command answered by a single 0x01
func (c *I2C) command(op string, cmd byte) error {
	resp, err := c.exchange(op, 1, cmd)
	if err != nil {
		return err
	}
	if resp[0] != protocol.RespOK {
		return &protocol.MismatchError{Op: "i2c " + op, Got: resp, Expect: "0x01"}
	}
	return nil
}

// Version returns the I2C sub-mode protocol version
func (c *I2C) Version() (byte, error) {
	resp, err := c.exchange("version", len(protocol.I2CMagic)+1, protocol.I2CCmdVersion)
	if err != nil {
		return 0, err
	}
	n := len(protocol.I2CMagic)
	if string(resp[:n]) != protocol.I2CMagic || resp[n] <= '0' || resp[n] >= '9' {
		return 0, &protocol.MismatchError{Op: "i2c version", Got: resp, Expect: `"I2C" and a digit 1-8`}
	}
	return resp[n] - '0', nil
}

// SetSpeed sets the bus clock. The echoed byte is not checked.
func (c *I2C) SetSpeed(s Speed) error {
	if s > Speed400kHz {
		return fmt.Errorf("i2c set speed: %w: %s", protocol.ErrInvalidArgument, s)
	}
	resp, err := c.exchange("set speed", 1, protocol.I2CCmdSetSpeed|byte(s))
	if err != nil {
		return err
	}
	c.p.log.Debug().Stringer("speed", s).Hex("echo", resp).Msg("i2c speed set")
	return nil
}

// SetPeripheral switches the power supply, pull-ups, AUX and CS
func (c *I2C) SetPeripheral(cfg Peripheral) error {
	if cfg&^protocol.I2CPeriphMask != 0 {
		return fmt.Errorf("i2c set peripheral: %w: config %#02x", protocol.ErrInvalidArgument, byte(cfg))
	}
	return c.command("set peripheral", protocol.I2CCmdSetPeriph|byte(cfg))
}

// Start sends a (repeated) start condition
func (c *I2C) Start() error {
	return c.command("start", protocol.I2CCmdStart)
}

// Stop sends a stop condition
func (c *I2C) Stop() error {
	return c.command("stop", protocol.I2CCmdStop)
}

// Ack acknowledges the last byte read
func (c *I2C) Ack() error {
	return c.command("ack", protocol.I2CCmdAck)
}

// Nack refuses the last byte read, ending a read sequence
func (c *I2C) Nack() error {
	return c.command("nack", protocol.I2CCmdNack)
}

// Write clocks out one byte and returns the peripheral's acknowledge bit
func (c *I2C) Write(v byte) (Ack, error) {
	resp, err := c.exchange("write", 2, protocol.I2CCmdBulkWrite, v)
	if err != nil {
		return NACK, err
	}
	if resp[0] != protocol.RespOK {
		return NACK, &protocol.MismatchError{Op: "i2c write", Got: resp, Expect: "0x01 then ACK/NACK"}
	}
	switch resp[1] {
	case protocol.RespI2CAck:
		return ACK, nil
	case protocol.RespI2CNack:
		return NACK, nil
	default:
		return NACK, &protocol.MismatchError{Op: "i2c write", Got: resp, Expect: "0x01 then ACK/NACK"}
	}
}

// ReadByte clocks in one byte. The caller follows up with Ack or Nack.
func (c *I2C) ReadByte() (byte, error) {
	resp, err := c.exchange("read", 1, protocol.I2CCmdReadByte)
	if err != nil {
		return 0, err
	}
	return resp[0], nil
}
