package stream

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ssargent/baseband/pkg/encoding"
	"github.com/ssargent/baseband/pkg/mark5b"
)

const (
	o2h        = encoding.OptimalTwoBitHigh
	sampleRate = 32e6
	nframes    = 4
)

var (
	knownWords = [4]uint32{0xABADDEED, 0xBEAD0000, 0x82119801, 0x0000975D}
	knownTime  = time.Date(2014, time.June, 13, 5, 30, 1, 0, time.UTC)
	refTime    = time.Date(2014, time.June, 1, 0, 0, 0, 0, time.UTC)
	format82   = mark5b.Format{Channels: 8, BitsPerSample: 2}

	// Overrides that reproduce the header of knownWords.
	knownOverrides = HeaderOverrides{Year: 11, User: 0xEAD}
)

var knownSamples = mat.NewDense(3, 8, []float64{
	-o2h, -1, +1, -1, +o2h, -o2h, -o2h, +o2h,
	-o2h, +o2h, -1, +o2h, -1, -1, -1, +1,
	+o2h, -1, +o2h, +o2h, +1, -1, +o2h, -1,
})

// streamData draws samples from the 2-bit alphabet, so they survive a trip
// through the codec unchanged, and starts with knownSamples.
func streamData(seed int64, samples int) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := mat.NewDense(samples, format82.Channels, nil)
	for i := 0; i < samples; i++ {
		for j := 0; j < format82.Channels; j++ {
			data.Set(i, j, encoding.FourLevels[rng.Intn(len(encoding.FourLevels))])
		}
	}
	data.Slice(0, 3, 0, 8).(*mat.Dense).Copy(knownSamples)
	return data
}

func writerConfig() WriterConfig {
	overrides := knownOverrides
	return WriterConfig{
		Format:     format82,
		SampleRate: sampleRate,
		StartTime:  knownTime,
		Header:     &overrides,
	}
}

func readerConfig() ReaderConfig {
	return ReaderConfig{
		Format:     format82,
		SampleRate: sampleRate,
		RefTime:    refTime,
	}
}

// encodeStream writes data through a Writer into memory.
func encodeStream(t *testing.T, data mat.Matrix, config WriterConfig) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriterTo(&buf, config)
	require.NoError(t, err)
	require.NoError(t, w.Write(data))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// writeStreamFile writes nframes frames of synthetic data to a temp file.
func writeStreamFile(t *testing.T, seed int64) (string, *mat.Dense) {
	t.Helper()
	data := streamData(seed, nframes*format82.SamplesPerFrame())
	path := filepath.Join(t.TempDir(), "synthetic.m5b")
	require.NoError(t, os.WriteFile(path, encodeStream(t, data, writerConfig()), 0600))
	return path, data
}

func openBytes(t *testing.T, raw []byte, config ReaderConfig) *Reader {
	t.Helper()
	r, err := NewReaderFrom(bytes.NewReader(raw), config)
	require.NoError(t, err)
	return r
}

// buildFrames concatenates frames with explicit headers.
func buildFrames(t *testing.T, headers []mark5b.Header, valid []bool, data *mat.Dense) []byte {
	t.Helper()
	spf := format82.SamplesPerFrame()
	var buf bytes.Buffer
	for i, h := range headers {
		chunk := data.Slice(i*spf, (i+1)*spf, 0, format82.Channels)
		frame, err := mark5b.FrameFromData(chunk, h, format82.BitsPerSample, valid[i])
		require.NoError(t, err)
		_, err = frame.WriteTo(&buf)
		require.NoError(t, err)
	}
	return buf.Bytes()
}

func frameHeader(t *testing.T, index int, shift time.Duration) mark5b.Header {
	t.Helper()
	h, err := mark5b.NewHeader(mark5b.HeaderValues{
		Time:    knownTime.Add(time.Duration(index)*156250*time.Nanosecond + shift),
		Year:    11,
		User:    0xEAD,
		FrameNr: uint32(index),
	})
	require.NoError(t, err)
	return h
}

// counterValue sums a counter family across its label sets.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
