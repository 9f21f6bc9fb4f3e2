package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrIO indicates a transport open, read or write failure.
	ErrIO = errors.New("i/o error")
	// ErrTimeout indicates the retry budget was exhausted without data.
	ErrTimeout = errors.New("timeout")
	// ErrProtocol indicates a response that did not match the expected
	// magic, prefix or acknowledgement pattern.
	ErrProtocol = errors.New("protocol mismatch")
	// ErrUnsupportedVersion indicates a negotiated version this driver
	// does not understand.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrVersionParse indicates banner text that does not follow vN.N.
	ErrVersionParse = errors.New("version parse error")
	// ErrState indicates an operation invoked in the wrong mode.
	ErrState = errors.New("state precondition failed")
	// ErrNoResponse indicates the probe never answered the binary reset.
	ErrNoResponse = errors.New("no response")
	// ErrNoVersionBanner indicates no firmware line after a console reset.
	ErrNoVersionBanner = errors.New("no version banner")
	// ErrInvalidArgument indicates a value outside its allowed range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed indicates use of a closed handle.
	ErrClosed = errors.New("closed")
)

// IOError wraps a transport failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrIO and the transport cause.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// MismatchError reports an unexpected response.
type MismatchError struct {
	Op     string
	Got    []byte
	Expect string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: unexpected response [% x], expected %s", e.Op, e.Got, e.Expect)
}

func (e *MismatchError) Unwrap() error {
	return ErrProtocol
}

// UnsupportedVersionError reports a version other than the supported one.
type UnsupportedVersionError struct {
	What string
	Got  int
	Want int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported %s version %d (want %d)", e.What, e.Got, e.Want)
}

func (e *UnsupportedVersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

// VersionError reports banner text that failed to parse.
type VersionError struct {
	Text string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("invalid version string %q", e.Text)
}

func (e *VersionError) Unwrap() error {
	return ErrVersionParse
}

// IsTimeout returns true if err means nothing arrived within the retry budget.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
