package protocol

import (
	"errors"
	"io"
	"os"
	"strings"
)

// DefaultRetries is the number of consecutive empty refills tolerated by
// Receiver.ReadByte before it gives up.
const DefaultRetries = 3

// Receiver delivers bytes from a serial reader through a RingBuffer.
//
// The reader is expected to return within its own per-attempt timeout; a
// zero-length read means nothing arrived in time.
type Receiver struct {
	r       io.Reader
	buf     *RingBuffer
	retries int
}

// NewReceiver creates a Receiver with a ring of the given capacity.
// A retry budget below 1 is raised to 1.
func NewReceiver(r io.Reader, capacity, retries int) *Receiver {
	if retries < 1 {
		retries = 1
	}
	return &Receiver{
		r:       r,
		buf:     NewRingBuffer(capacity),
		retries: retries,
	}
}

// Retries returns the retry budget
func (rx *Receiver) Retries() int {
	return rx.retries
}

// Buffered returns the number of bytes waiting in the ring
func (rx *Receiver) Buffered() int {
	return rx.buf.Len()
}

// refill pulls one burst from the reader. Empty reads are not errors.
func (rx *Receiver) refill() (int, error) {
	n, err := rx.buf.Refill(rx.r)
	if err != nil && !isEmptyRead(err) {
		return n, &IOError{Op: "read", Err: err}
	}
	return n, nil
}

// ReadByte returns the next byte, refilling up to the retry budget.
func (rx *Receiver) ReadByte() (byte, error) {
	if b, ok := rx.buf.Next(); ok {
		return b, nil
	}
	for i := 0; i < rx.retries; i++ {
		if _, err := rx.refill(); err != nil {
			return 0, err
		}
		if b, ok := rx.buf.Next(); ok {
			return b, nil
		}
	}
	return 0, ErrTimeout
}

// Read fills p completely or fails.
func (rx *Receiver) Read(p []byte) error {
	for i := range p {
		b, err := rx.ReadByte()
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}

// ReadLine reads one console line of at most limit characters. The newline is
// consumed and not returned, carriage returns are dropped. A line longer than
// limit is returned truncated; the rest is left for the next call.
func (rx *Receiver) ReadLine(limit int) (string, error) {
	var sb strings.Builder
	for sb.Len() < limit {
		b, err := rx.ReadByte()
		if err != nil {
			return sb.String(), err
		}
		switch b {
		case '\n':
			return sb.String(), nil
		case '\r':
		default:
			sb.WriteByte(b)
		}
	}
	return sb.String(), nil
}

// Flush discards buffered bytes and anything immediately available, stopping
// at the first refill that yields nothing. It returns the number discarded.
func (rx *Receiver) Flush() (int, error) {
	dropped := rx.buf.Len()
	rx.buf.Reset()
	for {
		n, err := rx.refill()
		dropped += n
		rx.buf.Reset()
		if err != nil {
			return dropped, err
		}
		if n == 0 {
			return dropped, nil
		}
	}
}

type timeoutError interface {
	Timeout() bool
}

func isEmptyRead(err error) bool {
	if err == io.EOF || os.IsTimeout(err) {
		return true
	}
	var terr timeoutError
	return errors.As(err, &terr) && terr.Timeout()
}
