package probe

import (
	"errors"
	"fmt"

	"buspirate/protocol"
)

// Reset brings the probe from any state back to the user terminal and reads
// the firmware and bootloader versions from the console reset banner.
//
// The probe may be anywhere: user terminal, raw binary, a sub-mode, or in
// the middle of a multi-byte binary command. Every step below is harmless
// when repeated, so all of them always run:
//  1. enter raw binary mode with repeated 0x00 probes
//  2. let trailing bytes of an interrupted command drain, flush
//  3. exit to the user terminal, flush
//  4. issue the console reset "#\n"
//  5. search the reset output for the "Firmware" line
//
// If the probe never answers step 1 the mode and versions are untouched.
// Any other failure, including a malformed or unsupported answer to step 1,
// leaves the probe in ModeUnknown with no versions; close and reopen.
func (p *Probe) Reset() error {
	if err := p.checkOpen("reset"); err != nil {
		return err
	}

	if _, err := p.EnterBinary(); err != nil {
		if !errors.Is(err, protocol.ErrNoResponse) {
			p.desync()
		}
		return fmt.Errorf("reset: %w", err)
	}

	banner, err := p.resetConsole()
	if err != nil {
		p.desync()
		return fmt.Errorf("reset: %w", err)
	}

	p.firmware = &banner.Firmware
	p.bootloader = banner.Bootloader
	p.mode = ModeText

	ev := p.log.Info().Stringer("firmware", banner.Firmware)
	if banner.Bootloader != nil {
		ev = ev.Stringer("bootloader", banner.Bootloader)
	}
	ev.Msg("probe reset to user terminal")
	return nil
}

// desync forgets the mode and versions after a reset that lost track of
// the probe
func (p *Probe) desync() {
	p.mode = ModeUnknown
	p.firmware = nil
	p.bootloader = nil
}

// resetConsole runs steps 2 to 5 of Reset
func (p *Probe) resetConsole() (protocol.Banner, error) {
	p.sleep(p.cfg.SettleDelay)
	if err := p.flush(); err != nil {
		return protocol.Banner{}, err
	}

	if err := p.write("exit binary mode", protocol.CmdExitToText); err != nil {
		return protocol.Banner{}, err
	}
	p.sleep(p.cfg.ShortSettle)
	if err := p.flush(); err != nil {
		return protocol.Banner{}, err
	}

	if err := p.write("console reset", []byte(protocol.ConsoleReset)...); err != nil {
		return protocol.Banner{}, err
	}
	p.sleep(p.cfg.ShortSettle)

	for i := 0; i < p.cfg.MaxBannerLines; i++ {
		line, err := p.rx.ReadLine(protocol.MaxLineChars)
		if protocol.IsTimeout(err) {
			break
		}
		if err != nil {
			return protocol.Banner{}, fmt.Errorf("console reset: %w", err)
		}
		p.log.Debug().Str("line", line).Msg("console")

		banner, ok, err := protocol.ParseBanner(line)
		if err != nil {
			return protocol.Banner{}, fmt.Errorf("console reset: %w", err)
		}
		if ok {
			if err := p.flush(); err != nil {
				return protocol.Banner{}, err
			}
			return banner, nil
		}
	}

	return protocol.Banner{}, fmt.Errorf("console reset: %w", protocol.ErrNoVersionBanner)
}

// EnterBinary switches to raw binary mode from any state and returns the
// binary I/O protocol version.
//
// Up to Config.ResetAttempts 0x00 bytes are sent, each followed by an
// attempt to read "BBIO" and a version digit. Only a timed out attempt is
// retried: a malformed answer or an unsupported version fails at once.
func (p *Probe) EnterBinary() (byte, error) {
	const op = "binary reset"
	if err := p.checkOpen(op); err != nil {
		return 0, err
	}
	if err := p.flush(); err != nil {
		return 0, err
	}

	for attempt := 1; attempt <= p.cfg.ResetAttempts; attempt++ {
		resp, err := p.exchange(op, len(protocol.BinaryMagic)+1, protocol.CmdBinaryReset)
		if protocol.IsTimeout(err) {
			p.log.Debug().Int("attempt", attempt).Msg("no answer to binary reset")
			continue
		}
		if err != nil {
			return 0, err
		}

		version, err := parseModeReply(op, resp, protocol.BinaryMagic)
		if err != nil {
			return 0, err
		}
		if version != protocol.BinaryVersion {
			return 0, &protocol.UnsupportedVersionError{
				What: "binary I/O",
				Got:  int(version),
				Want: protocol.BinaryVersion,
			}
		}

		if err := p.flush(); err != nil {
			return 0, err
		}
		p.mode = ModeBinary
		p.log.Debug().Int("attempt", attempt).Msg("entered binary mode")
		return version, nil
	}

	return 0, fmt.Errorf("%s after %d attempts: %w", op, p.cfg.ResetAttempts, protocol.ErrNoResponse)
}

// BinaryReset leaves the current binary sub-mode and returns to raw binary
// mode with a single 0x00, returning the binary I/O version.
func (p *Probe) BinaryReset() (byte, error) {
	const op = "binary mode reset"
	if err := p.checkOpen(op); err != nil {
		return 0, err
	}
	if !p.mode.IsBinary() {
		return 0, &StateError{Op: op, Want: ModeBinary, Have: p.mode}
	}

	resp, err := p.exchange(op, len(protocol.BinaryMagic)+1, protocol.CmdBinaryReset)
	if err != nil {
		return 0, err
	}
	version, err := parseModeReply(op, resp, protocol.BinaryMagic)
	if err != nil {
		return 0, err
	}
	p.mode = ModeBinary
	return version, nil
}

// EnterI2C switches from raw binary mode to the I2C sub-mode and returns its
// protocol version
func (p *Probe) EnterI2C() (byte, error) {
	return p.enterSubmode("enter i2c mode", protocol.CmdModeI2C, protocol.I2CMagic, ModeI2C)
}

// EnterSPI switches from raw binary mode to the SPI sub-mode
func (p *Probe) EnterSPI() (byte, error) {
	return p.enterSubmode("enter spi mode", protocol.CmdModeSPI, protocol.SPIMagic, ModeSPI)
}

// EnterRawWire switches from raw binary mode to the raw-wire sub-mode
func (p *Probe) EnterRawWire() (byte, error) {
	return p.enterSubmode("enter raw-wire mode", protocol.CmdModeRawWire, protocol.RawWireMagic, ModeRawWire)
}

func (p *Probe) enterSubmode(op string, selector byte, magic string, target Mode) (byte, error) {
	if err := p.requireMode(op, ModeBinary); err != nil {
		return 0, err
	}

	resp, err := p.exchange(op, len(magic)+1, selector)
	if err != nil {
		return 0, err
	}
	version, err := parseModeReply(op, resp, magic)
	if err != nil {
		return 0, err
	}

	p.mode = target
	p.log.Debug().Stringer("mode", target).Uint8("version", version).Msg("entered sub-mode")
	return version, nil
}

// parseModeReply checks a "<magic><digit>" answer and returns the digit,
// which must be 1 to 9
func parseModeReply(op string, resp []byte, magic string) (byte, error) {
	n := len(magic)
	if len(resp) != n+1 || string(resp[:n]) != magic || resp[n] < '1' || resp[n] > '9' {
		return 0, &protocol.MismatchError{Op: op, Got: resp, Expect: fmt.Sprintf("%q and a version digit", magic)}
	}
	return resp[n] - '0', nil
}
