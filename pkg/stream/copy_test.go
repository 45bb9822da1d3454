package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ssargent/baseband/pkg/mark5b"
)

func TestOverridesFrom(t *testing.T) {
	r := openBytes(t, encodeStream(t, streamData(30, 5000), writerConfig()), readerConfig())
	defer r.Close()

	assert.Equal(t, &knownOverrides, OverridesFrom(r.Header0()))
}

func TestCopy(t *testing.T) {
	raw := encodeStream(t, streamData(31, nframes*5000), writerConfig())
	r := openBytes(t, raw, readerConfig())
	defer r.Close()

	var buf bytes.Buffer
	config := writerConfig()
	config.Header = OverridesFrom(r.Header0())
	w, err := NewWriterTo(&buf, config)
	require.NoError(t, err)

	n, err := Copy(w, r)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), n)
	require.NoError(t, w.Close())
	assert.Equal(t, raw, buf.Bytes())

	// Nothing left to copy.
	n, err = Copy(w, r)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopy_FromOffset(t *testing.T) {
	data := streamData(32, nframes*5000)
	r := openBytes(t, encodeStream(t, data, writerConfig()), readerConfig())
	defer r.Close()

	_, err := r.Seek(7500, io.SeekStart)
	require.NoError(t, err)

	var buf bytes.Buffer
	config := writerConfig()
	config.StartTime = r.TellTime()
	w, err := NewWriterTo(&buf, config)
	require.NoError(t, err)
	n, err := Copy(w, r)
	require.NoError(t, err)
	assert.Equal(t, int64(12500), n)
	require.NoError(t, w.Close())

	copied := openBytes(t, buf.Bytes(), readerConfig())
	defer copied.Close()
	assert.Equal(t, int64(3), copied.Frames())
	got, err := copied.Read(12500)
	require.NoError(t, err)
	assert.True(t, mat.Equal(data.Slice(7500, 20000, 0, 8), got))
}

func TestCopy_KeepsInvalidFrames(t *testing.T) {
	headers := make([]mark5b.Header, nframes)
	for i := range headers {
		headers[i] = frameHeader(t, i, 0)
	}
	raw := buildFrames(t, headers, []bool{true, false, true, false}, streamData(33, nframes*5000))
	r := openBytes(t, raw, readerConfig())
	defer r.Close()

	var buf bytes.Buffer
	config := writerConfig()
	config.Header = OverridesFrom(r.Header0())
	w, err := NewWriterTo(&buf, config)
	require.NoError(t, err)

	n, err := Copy(w, r)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), n)
	require.NoError(t, w.Close())
	assert.Equal(t, raw, buf.Bytes())
}
