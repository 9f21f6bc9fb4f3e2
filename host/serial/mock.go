package serial

import (
	"bytes"
	"errors"
	"io"
)

// MockPort is an in-memory Port for tests. Each Write is answered by the
// next queued reply, which becomes readable immediately. A Read with nothing
// pending returns (0, nil), like a serial read that timed out.
type MockPort struct {
	// Chunk limits the bytes returned per Read, 0 means no limit
	Chunk int

	// ReadErr and WriteErr make the next Read or Write fail
	ReadErr  error
	WriteErr error

	// ShortWrite makes Write report one byte fewer than given
	ShortWrite bool

	written bytes.Buffer
	replies [][]byte
	pending []byte
	reads   int
	flushes int
	closed  bool
}

var errMockClosed = errors.New("mock port closed")

// NewMockPort returns a MockPort with the given replies queued
func NewMockPort(replies ...[]byte) *MockPort {
	m := &MockPort{}
	m.Queue(replies...)
	return m
}

// Queue appends replies, one per future Write. A nil reply means the write
// gets no answer.
func (m *MockPort) Queue(replies ...[]byte) {
	m.replies = append(m.replies, replies...)
}

// Inject makes data readable without a preceding Write
func (m *MockPort) Inject(data []byte) {
	m.pending = append(m.pending, data...)
}

func (m *MockPort) Read(p []byte) (int, error) {
	if m.closed {
		return 0, errMockClosed
	}
	m.reads++
	if err := m.ReadErr; err != nil {
		m.ReadErr = nil
		return 0, err
	}
	if len(m.pending) == 0 {
		return 0, nil
	}
	q := p
	if m.Chunk > 0 && len(q) > m.Chunk {
		q = q[:m.Chunk]
	}
	n := copy(q, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	if m.closed {
		return 0, errMockClosed
	}
	if err := m.WriteErr; err != nil {
		m.WriteErr = nil
		return 0, err
	}
	n := len(p)
	if m.ShortWrite && n > 0 {
		n--
	}
	m.written.Write(p[:n])

	if len(m.replies) > 0 {
		m.pending = append(m.pending, m.replies[0]...)
		m.replies = m.replies[1:]
	}
	return n, nil
}

// Flush drops pending input
func (m *MockPort) Flush() error {
	if m.closed {
		return errMockClosed
	}
	m.flushes++
	m.pending = nil
	return nil
}

func (m *MockPort) Close() error {
	if m.closed {
		return io.ErrClosedPipe
	}
	m.closed = true
	return nil
}

// Written returns everything written so far
func (m *MockPort) Written() []byte {
	return m.written.Bytes()
}

// ResetWritten forgets what was written so far
func (m *MockPort) ResetWritten() {
	m.written.Reset()
}

// Reads returns the number of Read calls
func (m *MockPort) Reads() int {
	return m.reads
}

// Pending returns the number of unread reply bytes
func (m *MockPort) Pending() int {
	return len(m.pending)
}

// Closed reports whether Close was called
func (m *MockPort) Closed() bool {
	return m.closed
}
