package mark5b

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func knownFrameBytes(t *testing.T, seed int64) []byte {
	t.Helper()
	payload, err := PayloadFromData(knownData(rand.New(rand.NewSource(seed))), 2)
	require.NoError(t, err)
	return NewFrame(NewHeaderFromWords(knownWords), payload, true).Bytes()
}

func TestFrame_ReadWrite(t *testing.T) {
	raw := knownFrameBytes(t, 5)
	require.Len(t, raw, FrameSize)

	frame, err := ReadFrame(bytes.NewReader(raw), format82)
	require.NoError(t, err)
	assert.True(t, frame.Valid)
	assert.Equal(t, FrameSize, frame.Size())

	header, err := ParseHeader(raw)
	require.NoError(t, err)
	payload, err := ParsePayload(raw[HeaderSize:], format82)
	require.NoError(t, err)
	assert.True(t, frame.Header.Equal(header))
	assert.True(t, frame.Payload.Equal(payload))
	assert.True(t, frame.Equal(NewFrame(header, payload, true)))
	assert.True(t, mat.Equal(knownSamples, frame.Data().Slice(0, 3, 0, 8)))

	var buf bytes.Buffer
	_, err = frame.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, raw, buf.Bytes())

	frame2, err := ParseFrame(buf.Bytes(), format82)
	require.NoError(t, err)
	assert.True(t, frame2.Equal(frame))

	start, err := frame.Time(refTime)
	require.NoError(t, err)
	assert.True(t, start.Equal(knownTime))
}

func TestFrame_FromData(t *testing.T) {
	raw := knownFrameBytes(t, 6)
	frame, err := ParseFrame(raw, format82)
	require.NoError(t, err)

	frame3, err := FrameFromData(frame.Data(), frame.Header, 2, true)
	require.NoError(t, err)
	assert.True(t, frame3.Equal(frame))

	start, err := frame.Time(refTime)
	require.NoError(t, err)
	frame4, err := FrameFromValues(frame.Data(), HeaderValues{
		Time:    start,
		Year:    frame.Header.Year(),
		User:    frame.Header.User(),
		FrameNr: frame.Header.FrameNr(),
	}, 2, true)
	require.NoError(t, err)
	assert.True(t, frame4.Equal(frame))
}

func TestFrame_Invalid(t *testing.T) {
	raw := knownFrameBytes(t, 7)
	frame, err := ParseFrame(raw, format82)
	require.NoError(t, err)

	frame5 := NewFrame(frame.Header, frame.Payload, false)
	assert.False(t, frame5.Valid)
	assert.False(t, frame5.Equal(frame))
	assert.True(t, mat.Equal(mat.NewDense(5000, 8, nil), frame5.Data()))
	frame5.Valid = true
	assert.True(t, frame5.Equal(frame))

	frame6, err := FrameFromData(frame.Data(), frame.Header, 2, false)
	require.NoError(t, err)
	assert.False(t, frame6.Valid)
	for _, w := range frame6.Payload.Words() {
		require.Equal(t, InvalidPayloadWord, w)
	}
	assert.True(t, mat.Equal(mat.NewDense(5000, 8, nil), frame6.Data()))
}

func TestFrame_InvalidRoundTrip(t *testing.T) {
	raw := knownFrameBytes(t, 8)
	frame, err := ParseFrame(raw, format82)
	require.NoError(t, err)
	frame.Valid = false

	written := frame.Bytes()
	assert.Equal(t, raw[:HeaderSize], written[:HeaderSize])
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, written[HeaderSize:HeaderSize+4])

	reread, err := ParseFrame(written, format82)
	require.NoError(t, err)
	assert.False(t, reread.Valid)
	assert.Equal(t, written, reread.Bytes())
}

func TestFrame_Truncated(t *testing.T) {
	raw := knownFrameBytes(t, 9)

	_, err := ParseFrame(raw[:FrameSize-1], format82)
	assert.True(t, errors.Is(err, ErrTruncatedData))

	_, err = ReadFrame(bytes.NewReader(raw[:HeaderSize+100]), format82)
	assert.True(t, errors.Is(err, ErrTruncatedData))
}
