package mark5b

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Frame pairs a header with its payload. An invalid frame decodes to zeros
// and is written with an InvalidPayloadWord payload.
type Frame struct {
	Header  Header
	Payload *Payload
	Valid   bool
}

// NewFrame assembles a frame.
func NewFrame(header Header, payload *Payload, valid bool) *Frame {
	return &Frame{Header: header, Payload: payload, Valid: valid}
}

// ParseFrame decodes one frame from the start of b. A payload consisting
// entirely of InvalidPayloadWord marks the frame invalid.
func ParseFrame(b []byte, format Format) (*Frame, error) {
	if len(b) < FrameSize {
		return nil, fmt.Errorf("%w: frame needs %d bytes, got %d", ErrTruncatedData, FrameSize, len(b))
	}
	return ReadFrame(bytes.NewReader(b[:FrameSize]), format)
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader, format Format) (*Frame, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	payload, err := ReadPayload(r, format)
	if err != nil {
		return nil, err
	}
	return NewFrame(header, payload, !payload.isInvalidPattern()), nil
}

// FrameFromData quantizes data into a new frame. For invalid frames the data
// is discarded and the payload filled with InvalidPayloadWord.
func FrameFromData(data mat.Matrix, header Header, bps int, valid bool) (*Frame, error) {
	if !valid {
		_, channels := data.Dims()
		format := Format{Channels: channels, BitsPerSample: bps}
		if err := format.Validate(); err != nil {
			return nil, err
		}
		return NewFrame(header, newInvalidPayload(format), false), nil
	}
	payload, err := PayloadFromData(data, bps)
	if err != nil {
		return nil, err
	}
	return NewFrame(header, payload, true), nil
}

// FrameFromValues builds the header from values and quantizes data.
func FrameFromValues(data mat.Matrix, values HeaderValues, bps int, valid bool) (*Frame, error) {
	header, err := NewHeader(values)
	if err != nil {
		return nil, err
	}
	return FrameFromData(data, header, bps, valid)
}

func (p *Payload) isInvalidPattern() bool {
	for _, w := range p.words {
		if w != InvalidPayloadWord {
			return false
		}
	}
	return true
}

// Dims returns the decoded shape (samples, channels).
func (f *Frame) Dims() (samples, channels int) {
	return f.Payload.Dims()
}

// Size returns the frame size in bytes.
func (f *Frame) Size() int {
	return HeaderSize + f.Payload.Size()
}

// Data decodes the payload, or returns zeros without decoding when the
// frame is invalid.
func (f *Frame) Data() *mat.Dense {
	if !f.Valid {
		samples, channels := f.Dims()
		return mat.NewDense(samples, channels, nil)
	}
	return f.Payload.Data()
}

// Time returns the frame start time, see Header.Time.
func (f *Frame) Time(ref time.Time) (time.Time, error) {
	return f.Header.Time(ref)
}

// Bytes returns the on-disk encoding.
func (f *Frame) Bytes() []byte {
	payload := f.Payload
	if !f.Valid {
		payload = newInvalidPayload(f.Payload.Format())
	}
	buf := make([]byte, 0, f.Size())
	buf = append(buf, f.Header.Bytes()...)
	return append(buf, payload.Bytes()...)
}

// WriteTo writes the frame to w.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// Equal compares headers, payload words and validity.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.Valid == o.Valid && f.Header.Equal(o.Header) && f.Payload.Equal(o.Payload)
}
