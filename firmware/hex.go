package firmware

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/marcinbor85/gohex"
)

// ErrHexSyntax is wrapped by every Intel HEX parse failure
var ErrHexSyntax = errors.New("invalid intel hex")

// Segment is a run of contiguous data
type Segment struct {
	Address uint32
	Data    []byte
}

// End returns the address one past the last byte
func (s Segment) End() uint32 {
	return s.Address + uint32(len(s.Data))
}

// HexFile is a parsed Intel HEX file, reduced to its data segments in
// address order
type HexFile struct {
	Segments []Segment
}

// Segment returns the segment starting exactly at addr
func (h *HexFile) Segment(addr uint32) (Segment, bool) {
	for _, s := range h.Segments {
		if s.Address == addr {
			return s, true
		}
	}
	return Segment{}, false
}

// ParseHexFile parses an Intel HEX file from disk
func ParseHexFile(path string) (*HexFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseHex(f)
}

// ParseHex parses Intel HEX records. Adjacent data records are merged into
// one segment and segments come back sorted by address.
func ParseHex(r io.Reader) (*HexFile, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHexSyntax, err)
	}

	ds := mem.GetDataSegments()
	segments := make([]Segment, 0, len(ds))
	for _, s := range ds {
		if len(s.Data) == 0 {
			continue
		}
		segments = append(segments, Segment{Address: s.Address, Data: s.Data})
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Address < segments[j].Address
	})
	return &HexFile{Segments: segments}, nil
}
