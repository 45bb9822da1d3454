package mark5b

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/ssargent/baseband/pkg/bcd"
	"github.com/ssargent/baseband/pkg/crc"
)

// Field names a bit range of the header.
type Field int

const (
	FieldSyncPattern Field = iota
	FieldYear
	FieldUser
	FieldInternalTVG
	FieldFrameNr
	FieldBCDJDay
	FieldBCDSeconds
	FieldBCDFraction
	FieldCRC
	numFields
)

type fieldSpec struct {
	name  string
	word  int
	start int
	width int
	bcd   bool
}

var fieldTable = [numFields]fieldSpec{
	FieldSyncPattern: {name: "sync_pattern", word: 0, start: 0, width: 32},
	FieldYear:        {name: "year", word: 1, start: 28, width: 4},
	FieldUser:        {name: "user", word: 1, start: 16, width: 12},
	FieldInternalTVG: {name: "internal_tvg", word: 1, start: 15, width: 1},
	FieldFrameNr:     {name: "frame_nr", word: 1, start: 0, width: 15},
	FieldBCDJDay:     {name: "bcd_jday", word: 2, start: 20, width: 12, bcd: true},
	FieldBCDSeconds:  {name: "bcd_seconds", word: 2, start: 0, width: 20, bcd: true},
	FieldBCDFraction: {name: "bcd_fraction", word: 3, start: 16, width: 16, bcd: true},
	FieldCRC:         {name: "crc", word: 3, start: 0, width: 16},
}

// String returns the field name.
func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("unknown(%d)", int(f))
	}
	return fieldTable[f].name
}

// Width returns the field width in bits.
func (f Field) Width() int {
	return fieldTable[f].width
}

// Fields returns every header field in word order.
func Fields() []Field {
	out := make([]Field, numFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// ParseField looks a field up by name.
func ParseField(name string) (Field, bool) {
	for i, spec := range fieldTable {
		if spec.name == name {
			return Field(i), true
		}
	}
	return 0, false
}

const (
	// kdayPeriod is the wrap of the three-digit day counter.
	kdayPeriod = 1000
	day        = 24 * time.Hour

	fractionUnit = 100 * time.Microsecond
	// frameQuantum is the shortest frame duration, 10000 bytes at 512 Mbps.
	frameQuantum = 156250 * time.Nanosecond
)

var (
	mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)
	crc16    = crc.New(CRCPolynomial)
)

// Header is the 16-byte Mark 5B frame header. The zero value is a header of
// zero words; use NewHeader or ParseHeader for a valid one.
type Header struct {
	words [headerWords]uint32
}

// HeaderValues holds the fields set when building a header from scratch.
type HeaderValues struct {
	Time        time.Time
	Year        uint32
	User        uint32
	InternalTVG bool
	FrameNr     uint32
}

// NewHeader builds a header with the sync pattern, the given values and a
// CRC matching the time code.
func NewHeader(values HeaderValues) (Header, error) {
	h := NewHeaderFromWords([4]uint32{SyncPattern})
	if err := h.Set(FieldYear, values.Year); err != nil {
		return Header{}, err
	}
	if err := h.Set(FieldUser, values.User); err != nil {
		return Header{}, err
	}
	h.SetInternalTVG(values.InternalTVG)
	if err := h.Set(FieldFrameNr, values.FrameNr); err != nil {
		return Header{}, err
	}
	if err := h.SetTime(values.Time); err != nil {
		return Header{}, err
	}
	return h, nil
}

// NewHeaderFromWords wraps raw header words without validation.
func NewHeaderFromWords(words [4]uint32) Header {
	return Header{words: words}
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncatedData, HeaderSize, len(b))
	}
	var h Header
	for i := range h.words {
		h.words[i] = binary.LittleEndian.Uint32(b[i*WordSize:])
	}
	return h, nil
}

// ReadHeader reads one header from r and checks its sync pattern.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: %v", ErrTruncatedData, err)
		}
		return Header{}, err
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return Header{}, err
	}
	return h, h.Verify()
}

// Words returns a copy of the raw header words.
func (h Header) Words() [4]uint32 {
	return h.words
}

// Get extracts a field.
func (h Header) Get(f Field) uint32 {
	spec := fieldTable[f]
	return h.words[spec.word] >> spec.start & fieldMask(spec.width)
}

// Set replaces a field, leaving the other bits of its word alone. Setting
// one of the time code fields also recomputes the CRC.
func (h *Header) Set(f Field, v uint32) error {
	if f < 0 || f >= numFields {
		return fmt.Errorf("unknown header field %d", int(f))
	}
	spec := fieldTable[f]
	mask := fieldMask(spec.width)
	if v&^mask != 0 {
		return fmt.Errorf("%w: %s=%#x exceeds %d bits", ErrFieldOverflow, spec.name, v, spec.width)
	}
	h.words[spec.word] = h.words[spec.word]&^(mask<<spec.start) | v<<spec.start
	if spec.bcd {
		h.UpdateCRC()
	}
	return nil
}

func fieldMask(width int) uint32 {
	if width >= 32 {
		return math.MaxUint32
	}
	return 1<<width - 1
}

// SyncPattern returns header word 0.
func (h Header) SyncPattern() uint32 { return h.Get(FieldSyncPattern) }

// Year returns the year nibble.
func (h Header) Year() uint32 { return h.Get(FieldYear) }

// User returns the user-specified value.
func (h Header) User() uint32 { return h.Get(FieldUser) }

// InternalTVG reports whether the payload is the internal test pattern.
func (h Header) InternalTVG() bool { return h.Get(FieldInternalTVG) == 1 }

// FrameNr returns the frame counter within the current second.
func (h Header) FrameNr() uint32 { return h.Get(FieldFrameNr) }

// SetInternalTVG sets the test-pattern flag.
func (h *Header) SetInternalTVG(tvg bool) {
	var v uint32
	if tvg {
		v = 1
	}
	_ = h.Set(FieldInternalTVG, v)
}

// SetFrameNr sets the frame counter.
func (h *Header) SetFrameNr(n uint32) error {
	return h.Set(FieldFrameNr, n)
}

// Verify checks the sync pattern.
func (h Header) Verify() error {
	if h.SyncPattern() != SyncPattern {
		return fmt.Errorf("%w: %#08x", ErrInvalidSync, h.SyncPattern())
	}
	return nil
}

// JDay returns the decoded day within the current 1000-day period.
func (h Header) JDay() (int, error) {
	v, err := bcd.Decode(h.Get(FieldBCDJDay))
	return int(v), err
}

// Seconds returns the decoded seconds of day.
func (h Header) Seconds() (int, error) {
	v, err := bcd.Decode(h.Get(FieldBCDSeconds))
	return int(v), err
}

// Nanoseconds returns the fraction of the second. The header stores it
// truncated to 0.1 ms; as in mark5access it is rounded up to the next
// multiple of 156.25 µs, which is exact for frame starts at total bit rates
// up to 512 Mbps.
func (h Header) Nanoseconds() (time.Duration, error) {
	v, err := bcd.Decode(h.Get(FieldBCDFraction))
	if err != nil {
		return 0, err
	}
	ns := time.Duration(v) * fractionUnit
	return frameQuantum * ((ns + frameQuantum - 1) / frameQuantum), nil
}

// dayOffset is the time elapsed since the start of the 1000-day period.
func (h Header) dayOffset() (time.Duration, error) {
	jday, err := h.JDay()
	if err != nil {
		return 0, err
	}
	seconds, err := h.Seconds()
	if err != nil {
		return 0, err
	}
	ns, err := h.Nanoseconds()
	if err != nil {
		return 0, err
	}
	return time.Duration(jday)*day + time.Duration(seconds)*time.Second + ns, nil
}

// Kday returns the MJD, a multiple of 1000, at which the day counter last
// wrapped. Of all candidates it picks the one giving the time nearest to
// ref; an exact tie goes to the earlier one.
func (h Header) Kday(ref time.Time) (int, error) {
	offset, err := h.dayOffset()
	if err != nil {
		return 0, err
	}
	periods := ref.Sub(mjdEpoch.Add(offset)).Hours() / 24 / kdayPeriod
	return int(math.Ceil(periods-0.5)) * kdayPeriod, nil
}

// Time returns the frame start, using ref to resolve the 1000-day wrap.
func (h Header) Time(ref time.Time) (time.Time, error) {
	kday, err := h.Kday(ref)
	if err != nil {
		return time.Time{}, err
	}
	offset, err := h.dayOffset()
	if err != nil {
		return time.Time{}, err
	}
	return mjdEpoch.Add(time.Duration(kday)*day + offset), nil
}

// SetTime writes the time code for t and recomputes the CRC.
func (h *Header) SetTime(t time.Time) error {
	since := t.Sub(mjdEpoch)
	if t.Before(mjdEpoch) || since == math.MaxInt64 {
		return fmt.Errorf("%w: %s", ErrInvalidTime, t)
	}
	mjd := since / day
	rem := since - mjd*day
	seconds := rem / time.Second
	fraction := (rem - seconds*time.Second) / fractionUnit

	for _, set := range []struct {
		f Field
		v uint32
	}{
		{FieldBCDJDay, bcd.Encode(uint32(mjd % kdayPeriod))},
		{FieldBCDSeconds, bcd.Encode(uint32(seconds))},
		{FieldBCDFraction, bcd.Encode(uint32(fraction))},
	} {
		if err := h.Set(set.f, set.v); err != nil {
			return err
		}
	}
	return nil
}

// timeCode is the 48-bit stream protected by the CRC.
func (h Header) timeCode() []uint8 {
	stream := crc.Bits(uint64(h.Get(FieldBCDJDay)), fieldTable[FieldBCDJDay].width)
	stream = append(stream, crc.Bits(uint64(h.Get(FieldBCDSeconds)), fieldTable[FieldBCDSeconds].width)...)
	return append(stream, crc.Bits(uint64(h.Get(FieldBCDFraction)), fieldTable[FieldBCDFraction].width)...)
}

// ComputeCRC returns the CRC of the current time code.
func (h Header) ComputeCRC() uint32 {
	return uint32(crc.Value(crc.Compute(crc16, h.timeCode())))
}

// UpdateCRC stores the CRC of the current time code.
func (h *Header) UpdateCRC() {
	spec := fieldTable[FieldCRC]
	h.words[spec.word] = h.words[spec.word]&^fieldMask(spec.width) | h.ComputeCRC()
}

// CheckCRC reports whether the stored CRC matches the time code.
func (h Header) CheckCRC() bool {
	stream := append(h.timeCode(), crc.Bits(uint64(h.Get(FieldCRC)), fieldTable[FieldCRC].width)...)
	return crc.Check(crc16, stream)
}

// PayloadSize returns the payload size in bytes.
func (h Header) PayloadSize() int {
	return PayloadSize
}

// FrameSize returns the header plus payload size in bytes.
func (h Header) FrameSize() int {
	return HeaderSize + h.PayloadSize()
}

// ValidatePayloadSize checks a requested payload size. Mark 5B payloads are
// always PayloadSize bytes, so only that size is accepted and the header
// never changes.
func (h Header) ValidatePayloadSize(size int) error {
	if size%WordSize != 0 {
		return fmt.Errorf("%w: payload size %d is not a multiple of %d bytes", ErrInvalidSize, size, WordSize)
	}
	if size != PayloadSize {
		return fmt.Errorf("%w: payload size must be %d bytes, got %d", ErrInvalidSize, PayloadSize, size)
	}
	return nil
}

// ValidateFrameSize checks a requested frame size, header included.
func (h Header) ValidateFrameSize(size int) error {
	if size < HeaderSize {
		return fmt.Errorf("%w: frame size %d is smaller than the %d byte header", ErrInvalidSize, size, HeaderSize)
	}
	return h.ValidatePayloadSize(size - HeaderSize)
}

// Equal reports whether both headers hold identical words.
func (h Header) Equal(o Header) bool {
	return h.words == o.words
}

// Bytes returns the on-disk encoding.
func (h Header) Bytes() []byte {
	buf := make([]byte, HeaderSize)
	for i, w := range h.words {
		binary.LittleEndian.PutUint32(buf[i*WordSize:], w)
	}
	return buf
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h Header) MarshalBinary() ([]byte, error) {
	return h.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *Header) UnmarshalBinary(data []byte) error {
	parsed, err := ParseHeader(data)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// WriteTo writes the header to w.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(h.Bytes())
	return int64(n), err
}

func (h Header) String() string {
	var b strings.Builder
	b.WriteString("<Mark5BHeader ")
	for i, f := range Fields() {
		if i > 0 {
			b.WriteString(", ")
		}
		v := h.Get(f)
		switch f {
		case FieldYear, FieldUser, FieldFrameNr:
			fmt.Fprintf(&b, "%s: %d", f, v)
		case FieldInternalTVG:
			fmt.Fprintf(&b, "%s: %t", f, v == 1)
		default:
			fmt.Fprintf(&b, "%s: %#x", f, v)
		}
	}
	b.WriteString(">")
	return b.String()
}
