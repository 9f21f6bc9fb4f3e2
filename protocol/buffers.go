package protocol

import "io"

// RingBuffer is a fixed capacity circular buffer for serial input.
//
// All modulo index bookkeeping lives here. Invariants:
// 0 <= count <= cap, 0 <= read < cap.
type RingBuffer struct {
	buf   []byte
	read  int // next byte to deliver
	count int // bytes buffered
}

// NewRingBuffer creates a new RingBuffer with the specified capacity.
// A capacity below 1 is raised to 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Cap returns the buffer capacity
func (f *RingBuffer) Cap() int {
	return len(f.buf)
}

// Len returns the number of buffered bytes
func (f *RingBuffer) Len() int {
	return f.count
}

// Free returns the number of bytes that can still be stored
func (f *RingBuffer) Free() int {
	return len(f.buf) - f.count
}

// IsEmpty returns true if the buffer is empty
func (f *RingBuffer) IsEmpty() bool {
	return f.count == 0
}

// Next delivers the oldest buffered byte. It never blocks.
func (f *RingBuffer) Next() (byte, bool) {
	if f.count == 0 {
		return 0, false
	}
	b := f.buf[f.read]
	f.read = (f.read + 1) % len(f.buf)
	f.count--
	return b, true
}

// Write appends as much of data as fits and returns the count stored
func (f *RingBuffer) Write(data []byte) int {
	written := 0
	for written < len(data) {
		region := f.freeRegion()
		if len(region) == 0 {
			break
		}
		n := copy(region, data[written:])
		f.count += n
		written += n
	}
	return written
}

// Refill performs a single read from r into free space.
//
// Bytes returned together with an error are kept, as io.Reader requires.
// A full buffer is not refilled.
func (f *RingBuffer) Refill(r io.Reader) (int, error) {
	region := f.freeRegion()
	if len(region) == 0 {
		return 0, nil
	}
	n, err := r.Read(region)
	if n < 0 {
		n = 0
	}
	if n > len(region) {
		n = len(region)
	}
	f.count += n
	return n, err
}

// freeRegion returns the contiguous writable slice following the last
// buffered byte. When free space wraps, only the part up to the end of the
// backing array is returned.
func (f *RingBuffer) freeRegion() []byte {
	if f.count == len(f.buf) {
		return nil
	}
	write := (f.read + f.count) % len(f.buf)
	if write >= f.read {
		return f.buf[write:]
	}
	return f.buf[write:f.read]
}

// Reset drops all buffered bytes
func (f *RingBuffer) Reset() {
	f.read = 0
	f.count = 0
}
