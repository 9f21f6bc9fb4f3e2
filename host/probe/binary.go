package probe

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"buspirate/protocol"
)

// Pins is a bit set of probe pins, also carrying the power supply and
// pull-up bits when used with PinsSet
type Pins byte

const (
	PinCS     Pins = protocol.PinCS
	PinMISO   Pins = protocol.PinMISO
	PinCLK    Pins = protocol.PinCLK
	PinMOSI   Pins = protocol.PinMOSI
	PinAUX    Pins = protocol.PinAUX
	PinPullup Pins = protocol.PinPullup
	PinPower  Pins = protocol.PinPower
)

var pinNames = []struct {
	pin  Pins
	name string
}{
	{PinPower, "POWER"},
	{PinPullup, "PULLUP"},
	{PinAUX, "AUX"},
	{PinMOSI, "MOSI"},
	{PinCLK, "CLK"},
	{PinMISO, "MISO"},
	{PinCS, "CS"},
}

func (p Pins) String() string {
	var names []string
	for _, n := range pinNames {
		if p&n.pin != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ADC scaling: 3.3V reference behind a divide-by-two resistor network
const (
	adcReference = 3.3
	adcDivider   = 2
)

// PinsConfigure sets pin directions (1=input, 0=output) for AUX, MOSI, CLK,
// MISO and CS, and returns the pin states reported back.
func (p *Probe) PinsConfigure(inputs Pins) (Pins, error) {
	const op = "pins configure"
	if err := p.requireMode(op, ModeBinary); err != nil {
		return 0, err
	}
	if inputs&^protocol.PinDirectionMask != 0 {
		return 0, fmt.Errorf("%s: %w: direction bits %#02x", op, protocol.ErrInvalidArgument, byte(inputs))
	}

	resp, err := p.exchange(op, 1, protocol.CmdPinsSetup|byte(inputs))
	if err != nil {
		return 0, err
	}
	// 010xxxxx tells a direction update from a level update (1xxxxxxx)
	if resp[0]&0xC0 != protocol.CmdPinsSetup {
		return 0, &protocol.MismatchError{Op: op, Got: resp, Expect: "01xxxxxx"}
	}
	return Pins(resp[0] & protocol.PinDirectionMask), nil
}

// PinsSet drives output levels for AUX, MOSI, CLK, MISO and CS together with
// the power supply and pull-up switches, and returns the pin states read
// back. Input pins report their actual level.
func (p *Probe) PinsSet(levels Pins, power, pullup bool) (Pins, error) {
	const op = "pins set"
	if err := p.requireMode(op, ModeBinary); err != nil {
		return 0, err
	}
	if levels&^protocol.PinDirectionMask != 0 {
		return 0, fmt.Errorf("%s: %w: level bits %#02x", op, protocol.ErrInvalidArgument, byte(levels))
	}

	cmd := protocol.CmdPinsSet | byte(levels)
	if pullup {
		cmd |= protocol.PinPullup
	}
	if power {
		cmd |= protocol.PinPower
	}

	resp, err := p.exchange(op, 1, cmd)
	if err != nil {
		return 0, err
	}
	// Only the top three bits (command, power, pull-up) must echo
	if resp[0]&0xE0 != cmd&0xE0 {
		return 0, &protocol.MismatchError{Op: op, Got: resp, Expect: fmt.Sprintf("%03bxxxxx", cmd>>5)}
	}
	return Pins(resp[0] & protocol.PinLevelMask), nil
}

// ReadVoltage samples the ADC probe pin and returns millivolts.
func (p *Probe) ReadVoltage() (int, error) {
	const op = "voltage probe"
	if err := p.requireMode(op, ModeBinary); err != nil {
		return 0, err
	}

	resp, err := p.exchange(op, 2, protocol.CmdVoltageProbe)
	if err != nil {
		return 0, err
	}
	return adcToMillivolts(binary.BigEndian.Uint16(resp)), nil
}

// adcToMillivolts rounds half to even, as rint(3) does in the default
// rounding mode, to stay numerically identical with existing tools
func adcToMillivolts(raw uint16) int {
	return int(math.RoundToEven(float64(raw) * adcReference * adcDivider))
}
