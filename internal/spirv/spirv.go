// Package spirv validates SPIR-V module headers and converts modules to the
// word slices the HAL consumes.
//
// Only the five-word header is inspected. Instruction-level validation is
// left to the backend driver.
package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// Magic is the SPIR-V magic number in host word order.
const Magic uint32 = 0x07230203

// HeaderWords is the number of words in a SPIR-V module header.
const HeaderWords = 5

// MaxVersion is the newest SPIR-V version accepted (1.6).
const MaxVersion = 0x00010600

var (
	// ErrTooShort is returned for modules smaller than a header.
	ErrTooShort = errors.New("spirv: module shorter than header")

	// ErrMisaligned is returned when the length is not a multiple of 4.
	ErrMisaligned = errors.New("spirv: module length is not a multiple of 4")

	// ErrBadMagic is returned when the first word is not the magic number
	// in either byte order.
	ErrBadMagic = errors.New("spirv: bad magic number")

	// ErrBadVersion is returned for unsupported version words.
	ErrBadVersion = errors.New("spirv: unsupported version")

	// ErrBadHeader is returned for a zero id bound or a non-zero schema.
	ErrBadHeader = errors.New("spirv: malformed header")
)

// Header is the decoded module header.
type Header struct {
	Magic     uint32
	Version   uint32
	Generator uint32
	Bound     uint32
	Schema    uint32
}

// VersionString returns the version as "major.minor".
func (h Header) VersionString() string {
	return fmt.Sprintf("%d.%d", (h.Version>>16)&0xff, (h.Version>>8)&0xff)
}

// Parse validates code and returns its header and words in host order.
// Modules written in big-endian order are byte-swapped.
func Parse(code []byte) (Header, []uint32, error) {
	if len(code)%4 != 0 {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrMisaligned, len(code))
	}
	if len(code) < HeaderWords*4 {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(code))
	}

	var order binary.ByteOrder
	switch first := binary.LittleEndian.Uint32(code); first {
	case Magic:
		order = binary.LittleEndian
	case bits.ReverseBytes32(Magic):
		order = binary.BigEndian
	default:
		return Header{}, nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, first)
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = order.Uint32(code[i*4:])
	}

	h := Header{
		Magic:     words[0],
		Version:   words[1],
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}
	if err := h.validate(); err != nil {
		return Header{}, nil, err
	}
	return h, words, nil
}

// Words is Parse without the header.
func Words(code []byte) ([]uint32, error) {
	_, words, err := Parse(code)
	return words, err
}

func (h Header) validate() error {
	// Version layout: 0 | major | minor | 0.
	if h.Version&0xff0000ff != 0 || h.Version < 0x00010000 || h.Version > MaxVersion {
		return fmt.Errorf("%w: 0x%08x", ErrBadVersion, h.Version)
	}
	if h.Bound == 0 {
		return fmt.Errorf("%w: id bound is zero", ErrBadHeader)
	}
	if h.Schema != 0 {
		return fmt.Errorf("%w: schema %d", ErrBadHeader, h.Schema)
	}
	return nil
}
