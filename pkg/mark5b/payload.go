package mark5b

import (
	"encoding/binary"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/ssargent/baseband/pkg/encoding"
)

// On-disk 2-bit codes differ from the natural level order: 1 is +1 and
// 2 is -1.
var (
	levels2bit   = []float64{-encoding.OptimalTwoBitHigh, 1, -1, encoding.OptimalTwoBitHigh}
	naturalToM5B = [4]uint8{0, 2, 1, 3}

	lut1bit = encoding.NewTable(1, encoding.TwoLevels)
	lut2bit = encoding.NewTable(2, levels2bit)
)

// Payload holds the raw words of one frame payload and decodes them as a
// (samples, channels) array. Samples are packed least significant bit
// first, channel index running fastest.
type Payload struct {
	words  []uint32
	format Format
}

// NewPayload wraps payload words. The slice is used, not copied.
func NewPayload(words []uint32, format Format) (*Payload, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if len(words) < payloadWords {
		return nil, fmt.Errorf("%w: payload needs %d words, got %d", ErrTruncatedData, payloadWords, len(words))
	}
	if len(words) > payloadWords {
		return nil, fmt.Errorf("%w: payload holds %d words, got %d", ErrInvalidSize, payloadWords, len(words))
	}
	return &Payload{words: words, format: format}, nil
}

// ParsePayload decodes the first PayloadSize bytes of b.
func ParsePayload(b []byte, format Format) (*Payload, error) {
	if len(b) < PayloadSize {
		return nil, fmt.Errorf("%w: payload needs %d bytes, got %d", ErrTruncatedData, PayloadSize, len(b))
	}
	words := make([]uint32, payloadWords)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*WordSize:])
	}
	return NewPayload(words, format)
}

// ReadPayload reads one payload from r.
func ReadPayload(r io.Reader, format Format) (*Payload, error) {
	buf := make([]byte, PayloadSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedData, err)
		}
		return nil, err
	}
	return ParsePayload(buf, format)
}

// PayloadFromData quantizes data, shaped (samples, channels), into a
// payload of bps bits per sample.
func PayloadFromData(data mat.Matrix, bps int) (*Payload, error) {
	samples, channels := data.Dims()
	format := Format{Channels: channels, BitsPerSample: bps}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if samples != format.SamplesPerFrame() {
		return nil, fmt.Errorf("%w: %d samples of %d channels at %d bits do not fill %d bytes",
			ErrInvalidSize, samples, channels, bps, PayloadSize)
	}
	p := &Payload{format: format}
	codes := make([]uint8, samples*channels)
	for i := 0; i < samples; i++ {
		for j := 0; j < channels; j++ {
			codes[i*channels+j] = p.encode(data.At(i, j))
		}
	}
	buf := make([]byte, PayloadSize)
	encoding.Pack(buf, codes, bps)
	return ParsePayload(buf, format)
}

// PayloadFromComplexData always fails: Mark 5B carries real samples only.
func PayloadFromComplexData(data mat.CMatrix, bps int) (*Payload, error) {
	r, c := data.Dims()
	return nil, fmt.Errorf("%w: complex (%d, %d) data at %d bits", ErrUnsupportedSampleType, r, c, bps)
}

func newInvalidPayload(format Format) *Payload {
	words := make([]uint32, payloadWords)
	for i := range words {
		words[i] = InvalidPayloadWord
	}
	return &Payload{words: words, format: format}
}

// Format returns the payload geometry.
func (p *Payload) Format() Format {
	return p.format
}

// Words returns the raw payload words. The slice is shared.
func (p *Payload) Words() []uint32 {
	return p.words
}

// Size returns the payload size in bytes.
func (p *Payload) Size() int {
	return len(p.words) * WordSize
}

// Dims returns the decoded shape (samples, channels).
func (p *Payload) Dims() (samples, channels int) {
	return p.format.SamplesPerFrame(), p.format.Channels
}

func (p *Payload) table() *encoding.Table {
	if p.format.BitsPerSample == 1 {
		return lut1bit
	}
	return lut2bit
}

// Data decodes the whole payload.
func (p *Payload) Data() *mat.Dense {
	samples, channels := p.Dims()
	out := make([]float64, samples*channels)
	p.table().Decode(out, p.Bytes())
	return mat.NewDense(samples, channels, out)
}

// locate returns the word index and bit shift of sample i, channel j.
func (p *Payload) locate(i, j int) (int, int) {
	samples, channels := p.Dims()
	if i < 0 || i >= samples || j < 0 || j >= channels {
		panic(mat.ErrIndexOutOfRange)
	}
	bit := (i*channels + j) * p.format.BitsPerSample
	return bit / 32, bit % 32
}

// At decodes a single sample.
func (p *Payload) At(i, j int) float64 {
	word, shift := p.locate(i, j)
	code := p.words[word] >> shift & fieldMask(p.format.BitsPerSample)
	return p.table().Levels(byte(code))[0]
}

// Set quantizes v into sample i, channel j.
func (p *Payload) Set(i, j int, v float64) {
	word, shift := p.locate(i, j)
	mask := fieldMask(p.format.BitsPerSample)
	p.words[word] = p.words[word]&^(mask<<shift) | uint32(p.encode(v))<<shift
}

func (p *Payload) encode(v float64) uint8 {
	if p.format.BitsPerSample == 1 {
		return encoding.Encode1Bit(v)
	}
	return naturalToM5B[encoding.Encode2Bit(v)]
}

// Slice decodes samples [i, k) of channels [j, l) into a new matrix.
func (p *Payload) Slice(i, k, j, l int) *mat.Dense {
	samples, channels := p.Dims()
	if i < 0 || k > samples || i >= k || j < 0 || l > channels || j >= l {
		panic(mat.ErrIndexOutOfRange)
	}
	out := mat.NewDense(k-i, l-j, nil)
	for r := i; r < k; r++ {
		for c := j; c < l; c++ {
			out.Set(r-i, c-j, p.At(r, c))
		}
	}
	return out
}

// SetSlice quantizes m into the block starting at sample i, channel j.
func (p *Payload) SetSlice(i, j int, m mat.Matrix) {
	rows, cols := m.Dims()
	samples, channels := p.Dims()
	if i < 0 || j < 0 || i+rows > samples || j+cols > channels {
		panic(mat.ErrIndexOutOfRange)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p.Set(i+r, j+c, m.At(r, c))
		}
	}
}

// Bytes returns the on-disk encoding.
func (p *Payload) Bytes() []byte {
	buf := make([]byte, p.Size())
	for i, w := range p.words {
		binary.LittleEndian.PutUint32(buf[i*WordSize:], w)
	}
	return buf
}

// WriteTo writes the payload to w.
func (p *Payload) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}

// Equal reports whether both payloads share geometry and raw words.
func (p *Payload) Equal(o *Payload) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.format != o.format || len(p.words) != len(o.words) {
		return false
	}
	for i, w := range p.words {
		if o.words[i] != w {
			return false
		}
	}
	return true
}
