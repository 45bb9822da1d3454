package stream

import (
	"fmt"
	"math"
	"time"

	"github.com/ssargent/baseband/pkg/mark5b"
	"github.com/ssargent/baseband/pkg/metrics"
)

// ReaderConfig holds configuration for the stream reader
type ReaderConfig struct {
	FilePath   string           // Path to the Mark 5B file (NewReader only)
	Format     mark5b.Format    // Channel count and bits per sample
	SampleRate float64          // Samples per second per channel
	RefTime    time.Time        // Any time within 500 days of the recording
	Verify     bool             // Check CRC and time of every frame decoded
	Metrics    *metrics.Metrics // Optional
}

// WriterConfig holds configuration for the stream writer
type WriterConfig struct {
	FilePath   string           // Path to the output file (NewWriter only)
	Format     mark5b.Format    // Channel count and bits per sample
	SampleRate float64          // Samples per second per channel
	StartTime  time.Time        // Time of the first sample
	Header     *HeaderOverrides // Optional header fields of the first frame
	BufferSize int              // Write buffer size, 0 for the default
	Metrics    *metrics.Metrics // Optional
}

// HeaderOverrides sets header fields that cannot be derived from time, so a
// known recording can be reproduced byte for byte.
type HeaderOverrides struct {
	Year        uint32
	User        uint32
	InternalTVG bool
	FrameNr     uint32 // Counter of the first frame
}

func validate(format mark5b.Format, sampleRate float64) error {
	if err := format.Validate(); err != nil {
		return err
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}
	return nil
}

// sampleDuration converts a sample count to elapsed time, rounded to the
// nearest nanosecond.
func sampleDuration(samples int64, sampleRate float64) time.Duration {
	return time.Duration(math.Round(float64(samples) * float64(time.Second) / sampleRate))
}

// durationSamples converts elapsed time to the nearest whole sample.
func durationSamples(d time.Duration, sampleRate float64) int64 {
	return int64(math.Round(float64(d) * sampleRate / float64(time.Second)))
}

// FrameIterator provides streaming access to frames
type FrameIterator interface {
	Next() bool
	Frame() *mark5b.Frame
	Index() int64
	Err() error
	Close() error
}

// Errors
var (
	ErrEndOfStream       = &StreamError{"end of stream"}
	ErrClosed            = &StreamError{"stream is closed"}
	ErrTimeMismatch      = &StreamError{"frame time does not match its position"}
	ErrCorruptHeader     = &StreamError{"frame header CRC mismatch"}
	ErrInvalidWhence     = &StreamError{"invalid whence"}
	ErrNegativeOffset    = &StreamError{"negative stream offset"}
	ErrInvalidSampleRate = &StreamError{"invalid sample rate"}
	ErrMissingRefTime    = &StreamError{"reference time is required"}
	ErrShapeMismatch     = &StreamError{"sample shape does not match stream"}
)

// StreamError represents a stream error
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}
