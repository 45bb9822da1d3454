package stream

import (
	"errors"

	"github.com/ssargent/baseband/pkg/mark5b"
)

// OverridesFrom returns the overrides that make a Writer reproduce h as its
// first header.
func OverridesFrom(h mark5b.Header) *HeaderOverrides {
	return &HeaderOverrides{
		Year:        h.Year(),
		User:        h.User(),
		InternalTVG: h.InternalTVG(),
		FrameNr:     h.FrameNr(),
	}
}

// Copy decodes samples from the cursor of r to its end and writes them to w
// a frame at a time. Samples from invalid frames are written with
// WriteInvalid, so an aligned copy keeps the invalid fill pattern. It
// returns the number of samples copied.
func Copy(w *Writer, r *Reader) (int64, error) {
	samplesPerFrame := int64(r.SamplesPerFrame())
	var copied int64
	for remaining := r.Size() - r.Tell(); remaining > 0; remaining = r.Size() - r.Tell() {
		index := r.Tell() / samplesPerFrame
		frame, err := r.ReadFrame(index)
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				break
			}
			return copied, err
		}
		count := min(samplesPerFrame-r.Tell()%samplesPerFrame, remaining)
		data, err := r.Read(int(count))
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				break
			}
			return copied, err
		}
		write := w.Write
		if !frame.Valid {
			write = w.WriteInvalid
		}
		if err := write(data); err != nil {
			return copied, err
		}
		copied += count
	}
	return copied, nil
}
