package bcd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	testCases := []struct {
		name  string
		value uint32
		want  uint32
	}{
		{name: "zero", value: 0x0, want: 0},
		{name: "single digit", value: 0x7, want: 7},
		{name: "day of year", value: 0x821, want: 821},
		{name: "seconds of day", value: 0x19801, want: 19801},
		{name: "all nines", value: 0x99999999, want: 99999999},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_InvalidNibble(t *testing.T) {
	for _, value := range []uint64{0xa, 0x1f, 0x8a1, 0xf000} {
		_, err := Decode(value)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidEncoding))

		var encErr *EncodingError
		require.True(t, errors.As(err, &encErr))
		assert.Equal(t, value, encErr.Value)
		assert.Equal(t, -1, encErr.Index)
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, uint32(0x821), Encode(uint32(821)))
	assert.Equal(t, uint32(0x19801), Encode(uint32(19801)))
	assert.Equal(t, uint16(0x0004), Encode(uint16(4)))
	assert.Equal(t, uint64(0), Encode(uint64(0)))
}

func TestRoundTrip(t *testing.T) {
	for n := uint32(0); n < 100000; n += 7 {
		got, err := Decode(Encode(n))
		require.NoError(t, err)
		require.Equal(t, n, got)
	}

	for _, n := range []uint64{1234567890123456, 9999999999999999} {
		got, err := Decode(Encode(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestDecodeSlice(t *testing.T) {
	got, err := DecodeSlice([]uint16{0x0, 0x12, 0x9999})
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 12, 9999}, got)

	_, err = DecodeSlice([]uint16{0x12, 0x34, 0x5b, 0xc0})
	require.Error(t, err)
	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 2, encErr.Index)
	assert.Equal(t, uint64(0x5b), encErr.Value)
}

func TestScalarAndSliceAgree(t *testing.T) {
	values := []uint32{0, 1, 10, 821, 86399, 1000000}
	encoded := EncodeSlice(values)
	for i, v := range values {
		assert.Equal(t, Encode(v), encoded[i])
	}

	decoded, err := DecodeSlice(encoded)
	require.NoError(t, err)
	assert.Equal(t, values, decoded)
}

func TestFits(t *testing.T) {
	assert.True(t, Fits(999, 12))
	assert.False(t, Fits(1000, 12))
	assert.True(t, Fits(0, 0))
	assert.True(t, Fits(86399, 20))
}
