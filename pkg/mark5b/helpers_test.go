package mark5b

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ssargent/baseband/pkg/encoding"
)

const o2h = encoding.OptimalTwoBitHigh

// Header of the first frame of a Mark5B-512-8-2 recording made on
// 2014-06-13, as printed by m5d.
var knownWords = [4]uint32{0xABADDEED, 0xBEAD0000, 0x82119801, 0x0000975D}

var (
	knownTime = time.Date(2014, time.June, 13, 5, 30, 1, 0, time.UTC)
	refTime   = time.Date(2014, time.June, 1, 0, 0, 0, 0, time.UTC)
	format82  = Format{Channels: 8, BitsPerSample: 2}
)

// knownSamples are the first three samples of that recording.
var knownSamples = mat.NewDense(3, 8, []float64{
	-o2h, -1, +1, -1, +o2h, -o2h, -o2h, +o2h,
	-o2h, +o2h, -1, +o2h, -1, -1, -1, +1,
	+o2h, -1, +o2h, +o2h, +1, -1, +o2h, -1,
})

// alphabetData fills a matrix with levels drawn from the quantization
// alphabet, so it survives encoding unchanged.
func alphabetData(rng *rand.Rand, samples, channels, bps int) *mat.Dense {
	levels := encoding.TwoLevels
	if bps == 2 {
		levels = encoding.FourLevels
	}
	data := mat.NewDense(samples, channels, nil)
	for i := 0; i < samples; i++ {
		for j := 0; j < channels; j++ {
			data.Set(i, j, levels[rng.Intn(len(levels))])
		}
	}
	return data
}

func knownData(rng *rand.Rand) *mat.Dense {
	data := alphabetData(rng, format82.SamplesPerFrame(), format82.Channels, 2)
	data.Slice(0, 3, 0, 8).(*mat.Dense).Copy(knownSamples)
	return data
}
