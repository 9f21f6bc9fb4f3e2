package firmware

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Bootloader image layout
const (
	// ImageStart is where application code begins
	ImageStart = 0xC200
	// ImageEnd bounds the application area; the gap up to it is filled
	ImageEnd = 0xFB80
	// VectorStart is the interrupt vector table, appended after ImageEnd
	VectorStart = 0xFF80
	// Fill pads unused flash
	Fill = 0xFF
)

var (
	// ErrImageTooLarge indicates application code beyond ImageEnd
	ErrImageTooLarge = errors.New("image too large")
	// ErrMissingSegment indicates a HEX file without application code or
	// vector table at the expected address
	ErrMissingSegment = errors.New("missing segment")
)

// Flatten lays a HEX file out as the flat image expected by the bootloader:
// the segment at ImageStart padded with Fill up to ImageEnd, followed by the
// segment at VectorStart.
func Flatten(h *HexFile) ([]byte, error) {
	code, ok := h.Segment(ImageStart)
	if !ok {
		return nil, fmt.Errorf("%w: no data at 0x%04X", ErrMissingSegment, ImageStart)
	}
	vectors, ok := h.Segment(VectorStart)
	if !ok {
		return nil, fmt.Errorf("%w: no vector table at 0x%04X", ErrMissingSegment, VectorStart)
	}
	if len(code.Data) > ImageEnd-ImageStart {
		return nil, fmt.Errorf("%w: %d bytes of code, %d available",
			ErrImageTooLarge, len(code.Data), ImageEnd-ImageStart)
	}

	image := make([]byte, 0, ImageEnd-ImageStart+len(vectors.Data))
	image = append(image, code.Data...)
	for len(image) < ImageEnd-ImageStart {
		image = append(image, Fill)
	}
	return append(image, vectors.Data...), nil
}

// IsHex reports whether path names an Intel HEX file
func IsHex(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx":
		return true
	}
	return false
}

// Load reads a firmware image. Intel HEX files are flattened, anything else
// is taken as an already flat image.
func Load(path string) ([]byte, error) {
	if !IsHex(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return data, nil
	}

	h, err := ParseHexFile(path)
	if err != nil {
		return nil, err
	}
	return Flatten(h)
}

// Convert flattens the HEX file at in and writes the image to out
func Convert(in, out string) (int, error) {
	h, err := ParseHexFile(in)
	if err != nil {
		return 0, err
	}
	image, err := Flatten(h)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(out, image, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write image: %w", err)
	}
	return len(image), nil
}
