// Package encoding holds the quantization alphabets shared by the VLBI
// payload formats and the byte-wise lookup tables used to expand packed
// samples.
package encoding

import "math"

const (
	// OptimalTwoBitHigh is the reconstruction magnitude of the outer 2-bit
	// levels for a Gaussian source, as used by mark5access. Decoding must use
	// this exact value to match it bit for bit.
	OptimalTwoBitHigh = 3.316505

	// TwoBitOneSigma is the input level separating the inner and outer 2-bit
	// codes when encoding.
	TwoBitOneSigma = 2.174
)

// Natural 2-bit codes, ordered by level.
const (
	CodeLowHigh uint8 = iota // -OptimalTwoBitHigh
	CodeLow                  // -1
	CodeHigh                 // +1
	CodeHighHigh             // +OptimalTwoBitHigh
)

// TwoLevels is the 1-bit alphabet indexed by code.
var TwoLevels = []float64{-1, 1}

// FourLevels is the 2-bit alphabet indexed by natural code.
var FourLevels = []float64{-OptimalTwoBitHigh, -1, 1, OptimalTwoBitHigh}

// Encode1Bit returns 1 for non-negative values and 0 otherwise.
func Encode1Bit(v float64) uint8 {
	if v >= 0 {
		return 1
	}
	return 0
}

// Encode2Bit returns the natural code of the level nearest to v, with
// decision boundaries at 0 and ±TwoBitOneSigma.
func Encode2Bit(v float64) uint8 {
	code := math.Floor(v/TwoBitOneSigma + 2)
	switch {
	case math.IsNaN(code) || code < 0:
		return 0
	case code > 3:
		return 3
	}
	return uint8(code)
}

// Table maps every byte value to the levels of the samples packed in it,
// least significant bits first.
type Table struct {
	bps    int
	levels [256][]float64
}

// NewTable builds the table for bps bits per sample from an alphabet indexed
// by on-disk code. len(alphabet) must be 1<<bps and bps must divide 8.
func NewTable(bps int, alphabet []float64) *Table {
	if bps <= 0 || 8%bps != 0 || len(alphabet) != 1<<bps {
		panic("encoding: alphabet does not match bits per sample")
	}
	t := &Table{bps: bps}
	perByte := 8 / bps
	mask := 1<<bps - 1
	for b := 0; b < 256; b++ {
		levels := make([]float64, perByte)
		for i := range levels {
			levels[i] = alphabet[(b>>(i*bps))&mask]
		}
		t.levels[b] = levels
	}
	return t
}

// BitsPerSample returns the sample width the table decodes.
func (t *Table) BitsPerSample() int {
	return t.bps
}

// SamplesPerByte returns how many samples one byte expands into.
func (t *Table) SamplesPerByte() int {
	return 8 / t.bps
}

// Levels returns the decoded levels of b. The slice must not be modified.
func (t *Table) Levels(b byte) []float64 {
	return t.levels[b]
}

// Decode expands src into dst, which must hold len(src)*SamplesPerByte()
// values.
func (t *Table) Decode(dst []float64, src []byte) {
	n := t.SamplesPerByte()
	for i, b := range src {
		copy(dst[i*n:(i+1)*n], t.levels[b])
	}
}

// Pack writes codes of bps bits into dst, least significant bits first.
// dst must hold len(codes)*bps/8 bytes.
func Pack(dst []byte, codes []uint8, bps int) {
	perByte := 8 / bps
	mask := uint8(1<<bps - 1)
	for i := range dst {
		var b uint8
		for j := 0; j < perByte; j++ {
			b |= (codes[i*perByte+j] & mask) << (j * bps)
		}
		dst[i] = b
	}
}
