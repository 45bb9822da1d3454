package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ssargent/baseband/pkg/logging"
	"github.com/ssargent/baseband/pkg/mark5b"
)

const defaultBufferSize = 16 * mark5b.FrameSize

// Writer encodes samples into consecutive Mark 5B frames. Samples are
// buffered until a frame is full; Close writes any partial frame padded
// with zeros. A Writer is not safe for concurrent use.
type Writer struct {
	raw    *bufio.Writer
	file   *os.File
	closer io.Closer
	config WriterConfig

	header          mark5b.Header // header of the next frame
	start           time.Time
	framesPerSecond int64 // 0 when not a whole number

	buffer   *mat.Dense
	buffered int
	invalid  bool // buffered frame holds samples written by WriteInvalid
	frames   int64

	closed bool
}

// NewWriter creates (or truncates) the file at config.FilePath.
func NewWriter(config WriterConfig) (*Writer, error) {
	if err := validate(config.Format, config.SampleRate); err != nil {
		return nil, err
	}
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	w, err := NewWriterTo(file, config)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.file = file
	return w, nil
}

// NewWriterTo writes frames to raw. If raw is an io.Closer the Writer owns
// it and closes it on Close, but not when construction fails.
func NewWriterTo(raw io.Writer, config WriterConfig) (*Writer, error) {
	if err := validate(config.Format, config.SampleRate); err != nil {
		return nil, err
	}
	if config.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", mark5b.ErrInvalidTime)
	}

	samplesPerFrame := config.Format.SamplesPerFrame()
	w := &Writer{
		config: config,
		start:  config.StartTime,
		buffer: mat.NewDense(samplesPerFrame, config.Format.Channels, nil),
	}
	if fps := config.SampleRate / float64(samplesPerFrame); fps == math.Trunc(fps) {
		w.framesPerSecond = int64(fps)
	}

	values := mark5b.HeaderValues{Time: config.StartTime}
	if o := config.Header; o != nil {
		values.Year = o.Year
		values.User = o.User
		values.InternalTVG = o.InternalTVG
		values.FrameNr = o.FrameNr
	} else if w.framesPerSecond > 0 {
		intoSecond := config.StartTime.Sub(config.StartTime.Truncate(time.Second))
		values.FrameNr = uint32(durationSamples(intoSecond, config.SampleRate) / int64(samplesPerFrame))
	}
	header, err := mark5b.NewHeader(values)
	if err != nil {
		return nil, err
	}
	w.header = header

	size := config.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	w.raw = bufio.NewWriterSize(raw, size)
	if c, ok := raw.(io.Closer); ok {
		w.closer = c
	}
	return w, nil
}

// SamplesPerFrame returns the number of samples in one frame.
func (w *Writer) SamplesPerFrame() int {
	return w.config.Format.SamplesPerFrame()
}

// Tell returns the number of samples written so far, buffered included.
func (w *Writer) Tell() int64 {
	return w.frames*int64(w.SamplesPerFrame()) + int64(w.buffered)
}

// TellTime returns the time of the next sample to be written.
func (w *Writer) TellTime() time.Time {
	return w.start.Add(sampleDuration(w.Tell(), w.config.SampleRate))
}

// Write appends samples shaped (n, channels).
func (w *Writer) Write(data mat.Matrix) error {
	return w.write(data, true)
}

// WriteInvalid appends samples like Write but marks every frame they land
// in as invalid. Those frames are stored as the invalid fill pattern and
// their samples are lost.
func (w *Writer) WriteInvalid(data mat.Matrix) error {
	return w.write(data, false)
}

func (w *Writer) write(data mat.Matrix, valid bool) error {
	if w.closed {
		return ErrClosed
	}
	rows, cols := data.Dims()
	if cols != w.config.Format.Channels {
		return fmt.Errorf("%w: %d channels, stream has %d", ErrShapeMismatch, cols, w.config.Format.Channels)
	}

	samplesPerFrame := w.SamplesPerFrame()
	for done := 0; done < rows; {
		count := min(samplesPerFrame-w.buffered, rows-done)
		dst := w.buffer.Slice(w.buffered, w.buffered+count, 0, cols).(*mat.Dense)
		dst.Copy(sliceRows(data, done, done+count))
		w.buffered += count
		done += count
		if !valid {
			w.invalid = true
		}
		if w.buffered == samplesPerFrame {
			if err := w.writeFrame(); err != nil {
				return err
			}
		}
	}
	return nil
}

func sliceRows(m mat.Matrix, i, k int) mat.Matrix {
	_, cols := m.Dims()
	if s, ok := m.(interface{ Slice(i, k, j, l int) mat.Matrix }); ok {
		return s.Slice(i, k, 0, cols)
	}
	out := mat.NewDense(k-i, cols, nil)
	for r := i; r < k; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r-i, c, m.At(r, c))
		}
	}
	return out
}

// writeFrame encodes the full buffer and prepares the next header.
func (w *Writer) writeFrame() error {
	frame, err := mark5b.FrameFromData(w.buffer, w.header, w.config.Format.BitsPerSample, !w.invalid)
	if err != nil {
		return err
	}
	if _, err := frame.WriteTo(w.raw); err != nil {
		return err
	}
	w.config.Metrics.FrameWritten(frame.Size())
	w.frames++
	w.buffered = 0
	w.invalid = false
	return w.advanceHeader()
}

// advanceHeader derives the next header from the previous one: the counter
// goes up by one and wraps at every whole second.
func (w *Writer) advanceHeader() error {
	next := w.header
	nr := next.FrameNr() + 1
	if w.framesPerSecond > 0 && int64(nr) >= w.framesPerSecond {
		nr = 0
	}
	if err := next.SetFrameNr(nr & (1<<mark5b.FieldFrameNr.Width() - 1)); err != nil {
		return err
	}
	frameStart := w.start.Add(sampleDuration(w.frames*int64(w.SamplesPerFrame()), w.config.SampleRate))
	if err := next.SetTime(frameStart); err != nil {
		return err
	}
	w.header = next
	return nil
}

// Flush writes buffered frames to the underlying writer. Samples of an
// incomplete frame stay buffered.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return w.raw.Flush()
}

// Close writes any partial frame, padded with zeros, flushes and releases
// the underlying handle.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if w.buffered > 0 {
		logging.Infof("stream: padding final frame with %d zero samples", w.SamplesPerFrame()-w.buffered)
		w.buffer.Slice(w.buffered, w.SamplesPerFrame(), 0, w.config.Format.Channels).(*mat.Dense).Zero()
		w.buffered = w.SamplesPerFrame()
		errs = append(errs, w.writeFrame())
	}
	errs = append(errs, w.raw.Flush())
	if w.file != nil {
		errs = append(errs, w.file.Sync())
	}
	if w.closer != nil {
		errs = append(errs, w.closer.Close())
	}
	return errors.Join(errs...)
}
