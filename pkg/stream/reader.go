package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ssargent/baseband/pkg/logging"
	"github.com/ssargent/baseband/pkg/mark5b"
)

// Reader gives random access by sample or time to a file of Mark 5B frames.
// A Reader is not safe for concurrent use.
type Reader struct {
	raw    io.ReadSeeker
	closer io.Closer
	config ReaderConfig

	header0       mark5b.Header
	start         time.Time
	frameDuration time.Duration
	nframes       int64

	offset int64 // cursor in samples
	rawPos int64 // byte position of raw

	frameIndex int64 // index of the cached frame, -1 if none
	frame      *mark5b.Frame
	frameData  *mat.Dense // decoded lazily by Read

	closed bool
}

// NewReader opens the file at config.FilePath for reading.
func NewReader(config ReaderConfig) (*Reader, error) {
	if err := validate(config.Format, config.SampleRate); err != nil {
		return nil, err
	}
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}
	r, err := NewReaderFrom(file, config)
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

// NewReaderFrom reads frames from raw. If raw is an io.Closer the Reader
// owns it and closes it on Close, but not when construction fails.
func NewReaderFrom(raw io.ReadSeeker, config ReaderConfig) (*Reader, error) {
	if err := validate(config.Format, config.SampleRate); err != nil {
		return nil, err
	}
	if config.RefTime.IsZero() {
		return nil, ErrMissingRefTime
	}

	size, err := raw.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := raw.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	r := &Reader{
		raw:        raw,
		config:     config,
		nframes:    size / mark5b.FrameSize,
		frameIndex: -1,
	}
	if c, ok := raw.(io.Closer); ok {
		r.closer = c
	}
	if r.nframes == 0 {
		return nil, fmt.Errorf("%w: no complete frame in %d bytes", ErrEndOfStream, size)
	}

	samplesPerFrame := int64(config.Format.SamplesPerFrame())
	r.frameDuration = sampleDuration(samplesPerFrame, config.SampleRate)

	// Decode the first frame up front; its header fixes the start time.
	if err := r.loadFrame(0); err != nil {
		return nil, err
	}
	r.header0 = r.frame.Header
	r.start, err = r.header0.Time(config.RefTime)
	if err != nil {
		return nil, fmt.Errorf("first frame header: %w", err)
	}
	return r, nil
}

// Header0 returns the header of the first frame.
func (r *Reader) Header0() mark5b.Header {
	return r.header0
}

// HeaderLast reads the header of the last complete frame. The cursor does
// not move.
func (r *Reader) HeaderLast() (mark5b.Header, error) {
	if r.closed {
		return mark5b.Header{}, ErrClosed
	}
	if err := r.seekRaw((r.nframes - 1) * mark5b.FrameSize); err != nil {
		return mark5b.Header{}, err
	}
	header, err := mark5b.ReadHeader(r.raw)
	if err != nil {
		// Position unknown after a failed read.
		r.rawPos = -1
		return mark5b.Header{}, r.translate(r.nframes-1, err)
	}
	r.rawPos += mark5b.HeaderSize
	return header, nil
}

// Format returns the sample geometry.
func (r *Reader) Format() mark5b.Format {
	return r.config.Format
}

// SampleRate returns samples per second per channel.
func (r *Reader) SampleRate() float64 {
	return r.config.SampleRate
}

// SamplesPerFrame returns the number of samples in one frame.
func (r *Reader) SamplesPerFrame() int {
	return r.config.Format.SamplesPerFrame()
}

// FrameDuration returns the time covered by one frame.
func (r *Reader) FrameDuration() time.Duration {
	return r.frameDuration
}

// FramesPerSecond returns the frame rate.
func (r *Reader) FramesPerSecond() float64 {
	return r.config.SampleRate / float64(r.SamplesPerFrame())
}

// Frames returns the number of complete frames in the file.
func (r *Reader) Frames() int64 {
	return r.nframes
}

// Size returns the number of samples in the stream.
func (r *Reader) Size() int64 {
	return r.nframes * int64(r.SamplesPerFrame())
}

// StartTime returns the time of the first sample.
func (r *Reader) StartTime() time.Time {
	return r.start
}

// StopTime returns the time just after the last sample.
func (r *Reader) StopTime() time.Time {
	return r.start.Add(sampleDuration(r.Size(), r.config.SampleRate))
}

// Tell returns the cursor in samples from the start of the stream.
func (r *Reader) Tell() int64 {
	return r.offset
}

// TellTime returns the time of the sample under the cursor.
func (r *Reader) TellTime() time.Time {
	return r.start.Add(sampleDuration(r.offset, r.config.SampleRate))
}

// RawOffset returns the byte position of the underlying handle, or -1 when
// it is unknown.
func (r *Reader) RawOffset() int64 {
	return r.rawPos
}

// Seek moves the cursor like io.Seeker, counting samples instead of bytes.
// It does not read any data.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.offset + offset
	case io.SeekEnd:
		target = r.Size() + offset
	default:
		return r.offset, fmt.Errorf("%w: %d", ErrInvalidWhence, whence)
	}
	if target < 0 {
		return r.offset, fmt.Errorf("%w: %d", ErrNegativeOffset, target)
	}
	r.offset = target
	return r.offset, nil
}

// SeekTime moves the cursor to the sample nearest to t.
func (r *Reader) SeekTime(t time.Time) (int64, error) {
	return r.Seek(durationSamples(t.Sub(r.start), r.config.SampleRate), io.SeekStart)
}

// Read returns the next n samples as an (n, channels) matrix and advances
// the cursor. If fewer than n samples remain it fails with ErrEndOfStream
// and the cursor does not move. Read(0) returns an empty mat.Dense, whose
// Dims are (0, 0) since gonum has no zero-row matrices.
func (r *Reader) Read(n int) (*mat.Dense, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if n < 0 {
		return nil, fmt.Errorf("negative sample count %d", n)
	}
	if remaining := r.Size() - r.offset; int64(n) > remaining {
		return nil, fmt.Errorf("%w: requested %d samples, %d remain", ErrEndOfStream, n, max(remaining, 0))
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}

	channels := r.config.Format.Channels
	samplesPerFrame := int64(r.SamplesPerFrame())
	out := mat.NewDense(n, channels, nil)
	cursor := r.offset
	for done := 0; done < n; {
		index := cursor / samplesPerFrame
		inFrame := int(cursor % samplesPerFrame)
		if err := r.loadFrame(index); err != nil {
			return nil, err
		}
		if r.frameData == nil {
			r.frameData = r.frame.Data()
		}
		count := min(int(samplesPerFrame)-inFrame, n-done)
		dst := out.Slice(done, done+count, 0, channels).(*mat.Dense)
		dst.Copy(r.frameData.Slice(inFrame, inFrame+count, 0, channels))
		done += count
		cursor += int64(count)
	}
	r.offset = cursor
	r.config.Metrics.SamplesRead(n)
	return out, nil
}

// loadFrame makes frame index the cached frame, repositioning the handle
// only when it is not already at the frame.
func (r *Reader) loadFrame(index int64) error {
	if r.frameIndex == index && r.frame != nil {
		return nil
	}
	if index >= r.nframes {
		return fmt.Errorf("%w: frame %d of %d", ErrEndOfStream, index, r.nframes)
	}
	frame, err := r.readFrameAt(index)
	if err != nil {
		return err
	}
	r.frame = frame
	r.frameIndex = index
	r.frameData = nil
	return nil
}

func (r *Reader) readFrameAt(index int64) (*mark5b.Frame, error) {
	if err := r.seekRaw(index * mark5b.FrameSize); err != nil {
		return nil, err
	}
	frame, err := mark5b.ReadFrame(r.raw, r.config.Format)
	if err != nil {
		r.rawPos = -1
		return nil, r.translate(index, err)
	}
	r.rawPos += mark5b.FrameSize
	r.config.Metrics.FrameRead(mark5b.FrameSize, frame.Valid)
	if r.config.Verify {
		if err := r.verify(index, frame.Header); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func (r *Reader) seekRaw(pos int64) error {
	if r.rawPos == pos {
		return nil
	}
	logging.Debugf("stream: repositioning raw handle from %d to %d", r.rawPos, pos)
	if _, err := r.raw.Seek(pos, io.SeekStart); err != nil {
		r.rawPos = -1
		return err
	}
	r.config.Metrics.RawSeek()
	r.rawPos = pos
	return nil
}

// translate maps running out of bytes onto ErrEndOfStream and labels every
// other error with the frame index.
func (r *Reader) translate(index int64, err error) error {
	if errors.Is(err, mark5b.ErrTruncatedData) {
		return fmt.Errorf("%w: frame %d: %v", ErrEndOfStream, index, err)
	}
	return fmt.Errorf("frame %d: %w", index, err)
}

// verify checks the CRC and that the header time matches the frame's
// position in the stream.
func (r *Reader) verify(index int64, header mark5b.Header) error {
	if !header.CheckCRC() {
		r.config.Metrics.CRCFailure()
		logging.Debugf("stream: frame %d has a bad CRC: %s", index, header)
		return fmt.Errorf("%w: frame %d", ErrCorruptHeader, index)
	}
	if index == 0 && r.start.IsZero() {
		return nil
	}
	got, err := header.Time(r.start)
	if err != nil {
		return fmt.Errorf("frame %d: %w", index, err)
	}
	want := r.FrameTime(index)
	if diff := got.Sub(want); diff < -time.Nanosecond || diff > time.Nanosecond {
		r.config.Metrics.TimeMismatch()
		logging.Debugf("stream: frame %d at %s, expected %s", index, got, want)
		return fmt.Errorf("%w: frame %d at %s, expected %s", ErrTimeMismatch, index, got.Format(time.RFC3339Nano), want.Format(time.RFC3339Nano))
	}
	return nil
}

// FrameTime returns the expected start time of frame index.
func (r *Reader) FrameTime(index int64) time.Time {
	return r.start.Add(sampleDuration(index*int64(r.SamplesPerFrame()), r.config.SampleRate))
}

// ReadFrame decodes frame index without moving the cursor.
func (r *Reader) ReadFrame(index int64) (*mark5b.Frame, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if index < 0 || index >= r.nframes {
		return nil, fmt.Errorf("%w: frame %d of %d", ErrEndOfStream, index, r.nframes)
	}
	if err := r.loadFrame(index); err != nil {
		return nil, err
	}
	return r.frame, nil
}

// Iterator returns a sequential iterator over all frames from the first.
func (r *Reader) Iterator() FrameIterator {
	return &frameIterator{reader: r, index: -1}
}

// Close releases the underlying handle.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.frame, r.frameData = nil, nil
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// frameIterator implements FrameIterator for streaming access
type frameIterator struct {
	reader *Reader
	frame  *mark5b.Frame
	index  int64
	err    error
}

func (it *frameIterator) Next() bool {
	if it.err != nil || it.index+1 >= it.reader.nframes {
		return false
	}
	it.index++
	it.frame, it.err = it.reader.ReadFrame(it.index)
	return it.err == nil
}

func (it *frameIterator) Frame() *mark5b.Frame {
	return it.frame
}

func (it *frameIterator) Index() int64 {
	return it.index
}

func (it *frameIterator) Err() error {
	return it.err
}

func (it *frameIterator) Close() error {
	// Don't close the underlying reader as it's owned by the caller
	return nil
}
