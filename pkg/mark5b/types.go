package mark5b

import (
	"fmt"
	"math/bits"
)

const (
	// HeaderSize is the size of a frame header in bytes.
	HeaderSize = 16
	// PayloadSize is the size of a frame payload in bytes.
	PayloadSize = 10000
	// FrameSize is the size of a complete frame in bytes.
	FrameSize = HeaderSize + PayloadSize
	// WordSize is the size of one header or payload word in bytes.
	WordSize = 4

	headerWords  = HeaderSize / WordSize
	payloadWords = PayloadSize / WordSize

	// SyncPattern is the constant content of header word 0.
	SyncPattern uint32 = 0xABADDEED

	// InvalidPayloadWord fills the payload of frames flagged invalid.
	InvalidPayloadWord uint32 = 0x11223344

	// CRCPolynomial protects the time code: x^16 + x^15 + x^2 + 1.
	CRCPolynomial = 0x18005

	// MaxChannels is the number of bit streams a Mark 5B recorder carries.
	MaxChannels = 32
)

// Format describes the sample geometry of a Mark 5B stream.
type Format struct {
	Channels      int // Number of channels, a power of two up to 32
	BitsPerSample int // 1 or 2
}

// Validate checks that the geometry can be packed into a frame.
func (f Format) Validate() error {
	if f.BitsPerSample != 1 && f.BitsPerSample != 2 {
		return fmt.Errorf("%w: %d bits per sample", ErrInvalidGeometry, f.BitsPerSample)
	}
	if f.Channels < 1 || f.Channels > MaxChannels || bits.OnesCount(uint(f.Channels)) != 1 {
		return fmt.Errorf("%w: %d channels", ErrInvalidGeometry, f.Channels)
	}
	return nil
}

// SamplesPerFrame returns the number of complete samples in one payload.
func (f Format) SamplesPerFrame() int {
	return PayloadSize * 8 / (f.BitsPerSample * f.Channels)
}

// Name returns the conventional Mark5B-<Mbps>-<channels>-<bits> designation.
func (f Format) Name(sampleRate float64) string {
	mbps := sampleRate * float64(f.Channels*f.BitsPerSample) / 1e6
	return fmt.Sprintf("Mark5B-%g-%d-%d", mbps, f.Channels, f.BitsPerSample)
}

// FormatError represents a frame encoding or decoding error
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return e.Message
}

// Errors
var (
	ErrInvalidSize           = &FormatError{"invalid payload or frame size"}
	ErrUnsupportedSampleType = &FormatError{"unsupported sample type"}
	ErrTruncatedData         = &FormatError{"truncated data"}
	ErrInvalidSync           = &FormatError{"invalid sync pattern"}
	ErrFieldOverflow         = &FormatError{"value does not fit in header field"}
	ErrInvalidGeometry       = &FormatError{"invalid sample geometry"}
	ErrInvalidTime           = &FormatError{"time cannot be represented in header"}
)
