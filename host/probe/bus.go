package probe

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"

	"buspirate/protocol"
)

// Bus exposes the I2C sub-mode as a generic I2C bus so that device drivers
// written against periph.io or tinygo.org/x/drivers run through the probe.
// The probe must already be in ModeI2C.
type Bus struct {
	i2c *I2C
}

var (
	_ i2c.Bus     = (*Bus)(nil)
	_ drivers.I2C = (*Bus)(nil)
)

// Bus returns a generic bus on top of the I2C sub-mode
func (p *Probe) Bus() *Bus {
	return &Bus{i2c: p.I2C()}
}

func (b *Bus) String() string {
	return "buspirate-i2c"
}

// Tx writes w to the device at addr and then reads len(r) bytes from it,
// using a repeated start between the two phases. With both w and r empty
// only the address is sent, which checks that the device is present.
//
// When a byte is not acknowledged the bus is stopped and a *NackError is
// returned.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("i2c tx: %w: address %#x is not 7-bit", protocol.ErrInvalidArgument, addr)
	}

	if len(w) > 0 || len(r) == 0 {
		if err := b.i2c.Start(); err != nil {
			return err
		}
		if err := b.write(addr, 0, byte(addr<<1)); err != nil {
			return err
		}
		for i, v := range w {
			if err := b.write(addr, i+1, v); err != nil {
				return err
			}
		}
	}

	if len(r) > 0 {
		if err := b.i2c.Start(); err != nil {
			return err
		}
		if err := b.write(addr, 0, byte(addr<<1)|1); err != nil {
			return err
		}
		for i := range r {
			v, err := b.i2c.ReadByte()
			if err != nil {
				return err
			}
			r[i] = v
			if i == len(r)-1 {
				err = b.i2c.Nack()
			} else {
				err = b.i2c.Ack()
			}
			if err != nil {
				return err
			}
		}
	}

	return b.i2c.Stop()
}

// write sends one byte and turns a NACK into a stopped bus and a NackError
func (b *Bus) write(addr uint16, index int, v byte) error {
	ack, err := b.i2c.Write(v)
	if err != nil {
		return err
	}
	if ack == ACK {
		return nil
	}
	if err := b.i2c.Stop(); err != nil {
		return err
	}
	return &NackError{Addr: addr, Index: index}
}

// SetSpeed picks the fastest supported clock not above f
func (b *Bus) SetSpeed(f physic.Frequency) error {
	var s Speed
	switch {
	case f >= 400*physic.KiloHertz:
		s = Speed400kHz
	case f >= 100*physic.KiloHertz:
		s = Speed100kHz
	case f >= 50*physic.KiloHertz:
		s = Speed50kHz
	case f >= 5*physic.KiloHertz:
		s = Speed5kHz
	default:
		return fmt.Errorf("i2c set speed: %w: %s is below 5kHz", protocol.ErrInvalidArgument, f)
	}
	return b.i2c.SetSpeed(s)
}

// Scan probes every non-reserved 7-bit address and returns those that
// acknowledged.
func (b *Bus) Scan() ([]uint16, error) {
	var found []uint16
	for addr := uint16(0x08); addr <= 0x77; addr++ {
		err := b.Tx(addr, nil, nil)
		if err == nil {
			found = append(found, addr)
			continue
		}
		if !errors.Is(err, ErrNack) {
			return found, fmt.Errorf("scan at 0x%02x: %w", addr, err)
		}
	}
	return found, nil
}
