package crc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crc16 = 0x18005

func mark5bTimeStream(jday, seconds, fraction uint64) []uint8 {
	stream := Bits(jday, 12)
	stream = append(stream, Bits(seconds, 20)...)
	return append(stream, Bits(fraction, 16)...)
}

func TestNew(t *testing.T) {
	c := New(crc16)
	assert.Equal(t, 16, c.Len())
	assert.Equal(t, uint64(crc16), c.Polynomial())

	c12 := New(0x180f)
	assert.Equal(t, 12, c12.Len())
}

func TestCompute_KnownHeader(t *testing.T) {
	// Time code of a Mark 5B recording started on MJD 56821 at 19801 s.
	stream := mark5bTimeStream(0x821, 0x19801, 0x0)
	remainder := Compute(New(crc16), stream)
	require.Len(t, remainder, 16)
	assert.Equal(t, uint64(0x975d), Value(remainder))
}

func TestCompute_DoesNotModifyInput(t *testing.T) {
	stream := mark5bTimeStream(0x821, 0x19801, 0x0)
	orig := append([]uint8(nil), stream...)
	Compute(New(crc16), stream)
	assert.Equal(t, orig, stream)
}

func TestCheck(t *testing.T) {
	c := New(crc16)
	stream := mark5bTimeStream(0x821, 0x19801, 0x0)
	full := append(append([]uint8(nil), stream...), Compute(c, stream)...)
	orig := append([]uint8(nil), full...)

	assert.True(t, Check(c, full))
	assert.Equal(t, orig, full)
}

func TestCheck_SingleBitFlips(t *testing.T) {
	c := New(crc16)
	stream := mark5bTimeStream(0x821, 0x19801, 0x1234)
	full := append(append([]uint8(nil), stream...), Compute(c, stream)...)

	for i := range full {
		flipped := append([]uint8(nil), full...)
		flipped[i] ^= 1
		assert.False(t, Check(c, flipped), "flip at bit %d not detected", i)
	}
}

func TestCheck_TooShort(t *testing.T) {
	assert.False(t, Check(New(crc16), []uint8{1, 0, 1}))
}

func TestCompute_ParallelLanes(t *testing.T) {
	c := New(0x180f)
	rng := rand.New(rand.NewSource(42))

	lanes := make([]uint64, 100)
	for i := range lanes {
		lanes[i] = rng.Uint64()
	}
	remainder := Compute(c, lanes)
	require.Len(t, remainder, c.Len())

	// Every lane must match the single-stream computation for that track.
	for track := 0; track < 64; track++ {
		single := make([]uint8, len(lanes))
		for i, w := range lanes {
			single[i] = uint8(w >> track & 1)
		}
		want := Compute(c, single)
		for i, w := range remainder {
			require.Equal(t, want[i], uint8(w>>track&1), "track %d bit %d", track, i)
		}
	}

	full := append(append([]uint64(nil), lanes...), remainder...)
	assert.True(t, Check(c, full))
	full[3] ^= 1 << 17
	assert.False(t, Check(c, full))
}

func TestFromBools(t *testing.T) {
	assert.Equal(t, []uint8{1, 0, 1, 1}, FromBools([]bool{true, false, true, true}))
	assert.Equal(t, uint64(0xb), Value(FromBools([]bool{true, false, true, true})))
}

func TestBitsValue(t *testing.T) {
	for _, v := range []uint64{0, 1, 0x821, 0xffff} {
		assert.Equal(t, v, Value(Bits(v, 16)))
	}
}
