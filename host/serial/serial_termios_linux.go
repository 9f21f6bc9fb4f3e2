//go:build linux

package serial

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// TermiosPort drives a tty in raw mode. Reads wait in select(2) for at most
// the read timeout; the previous line settings are restored on Close.
type TermiosPort struct {
	fd      int
	saved   *unix.Termios
	timeout time.Duration
}

func openTermios(cfg *Config) (Port, error) {
	speed, ok := baudRates[cfg.Baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", cfg.Baud)
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to read line settings of %s: %w", cfg.Device, err)
	}

	tios := *saved
	tios.Cflag = unix.CS8 | unix.CLOCAL | unix.CREAD | speed
	tios.Iflag = unix.IGNPAR | unix.BRKINT
	tios.Oflag = 0
	tios.Lflag = 0
	tios.Ispeed = speed
	tios.Ospeed = speed
	tios.Cc[unix.VMIN] = 0
	tios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &tios); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to configure %s: %w", cfg.Device, err)
	}

	return &TermiosPort{
		fd:      fd,
		saved:   saved,
		timeout: cfg.ReadTimeout,
	}, nil
}

// wait blocks in select(2) until fd is readable (or writable) or the timeout
// expires
func (p *TermiosPort) wait(write bool) (bool, error) {
	var set unix.FdSet
	set.Zero()
	set.Set(p.fd)
	tv := unix.NsecToTimeval(p.timeout.Nanoseconds())

	var n int
	var err error
	if write {
		n, err = unix.Select(p.fd+1, nil, &set, nil, &tv)
	} else {
		n, err = unix.Select(p.fd+1, &set, nil, nil, &tv)
	}
	if err == unix.EINTR {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0 && set.IsSet(p.fd), nil
}

// Read returns the bytes available within the read timeout, possibly none
func (p *TermiosPort) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	ready, err := p.wait(false)
	if err != nil || !ready {
		return 0, err
	}
	n, err := unix.Read(p.fd, b)
	if err == unix.EAGAIN {
		return 0, nil
	}
	if n < 0 {
		n = 0
	}
	return n, err
}

// Write transfers all of b or fails
func (p *TermiosPort) Write(b []byte) (int, error) {
	written := 0
	for written < len(b) {
		n, err := unix.Write(p.fd, b[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == unix.EAGAIN:
			ready, err := p.wait(true)
			if err != nil {
				return written, err
			}
			if !ready {
				return written, fmt.Errorf("write stalled after %d/%d bytes", written, len(b))
			}
		case err != nil:
			return written, err
		}
	}
	return written, nil
}

// Flush discards pending input and output
func (p *TermiosPort) Flush() error {
	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH)
}

// Close restores the saved line settings and closes the tty
func (p *TermiosPort) Close() error {
	if p.fd < 0 {
		return nil
	}
	restoreErr := unix.IoctlSetTermios(p.fd, unix.TCSETSF, p.saved)
	closeErr := unix.Close(p.fd)
	p.fd = -1
	if closeErr != nil {
		return closeErr
	}
	if restoreErr != nil {
		return fmt.Errorf("failed to restore line settings: %w", restoreErr)
	}
	return nil
}
