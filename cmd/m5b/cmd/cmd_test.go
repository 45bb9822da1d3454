package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ssargent/baseband/pkg/config"
	"github.com/ssargent/baseband/pkg/di"
	"github.com/ssargent/baseband/pkg/encoding"
	"github.com/ssargent/baseband/pkg/mark5b"
	"github.com/ssargent/baseband/pkg/stream"
)

var startTime = time.Date(2014, time.June, 13, 5, 30, 1, 0, time.UTC)

// fixture writes a config pointing at a temp catalog and a four-frame
// recording.
func fixture(t *testing.T) (configPath, dataPath string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Format.RefTime = "2014-06-01T00:00:00Z"
	cfg.Catalog.Dir = filepath.Join(dir, "catalog")
	cfg.Logging.Level = "quiet"
	configPath = filepath.Join(dir, "m5b.yaml")
	require.NoError(t, config.SaveConfig(cfg, configPath))

	dataPath = filepath.Join(dir, "synthetic.m5b")
	w, err := stream.NewWriter(cfg.WriterConfig(dataPath, startTime, nil))
	require.NoError(t, err)
	data := mat.NewDense(4*5000, 8, nil)
	for i := 0; i < 4*5000; i++ {
		for j := 0; j < 8; j++ {
			data.Set(i, j, encoding.FourLevels[(i+j)%4])
		}
	}
	require.NoError(t, w.Write(data))
	require.NoError(t, w.Close())
	return configPath, dataPath
}

// resetFlags restores every flag to its default, since cobra keeps flag
// state between executions of the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	SetContainer(di.NewContainer())
	t.Cleanup(func() { SetContainer(nil) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInfoCommand(t *testing.T) {
	configPath, dataPath := fixture(t)

	out, err := run(t, "info", "--config", configPath, dataPath)
	require.NoError(t, err)
	assert.Contains(t, out, "format: Mark5B-512-8-2\n")
	assert.Contains(t, out, "frames: 4\n")
	assert.Contains(t, out, "samples: 20000\n")
	assert.Contains(t, out, "start_time: 2014-06-13T05:30:01Z\n")
	assert.Contains(t, out, "header0: <Mark5BHeader sync_pattern: 0xabaddeed")
	assert.Contains(t, out, "header_last: <Mark5BHeader")
	assert.Contains(t, out, "frame_nr: 3")
}

func TestInfoCommand_FlagOverrides(t *testing.T) {
	configPath, dataPath := fixture(t)

	out, err := run(t, "info", "--config", configPath, "--channels", "4", "--sample-rate", "64e6", dataPath)
	require.NoError(t, err)
	assert.Contains(t, out, "format: Mark5B-512-4-2\n")
	assert.Contains(t, out, "samples_per_frame: 10000\n")

	_, err = run(t, "info", "--config", configPath, "--channels", "3", dataPath)
	assert.ErrorIs(t, err, mark5b.ErrInvalidGeometry)
}

func TestInfoCommand_MissingConfig(t *testing.T) {
	_, dataPath := fixture(t)
	_, err := run(t, "info", "--config", filepath.Join(t.TempDir(), "missing.yaml"), dataPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestReadCommand(t *testing.T) {
	configPath, dataPath := fixture(t)

	out, err := run(t, "read", "--config", configPath, "--offset", "5000", "--count", "2", dataPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "5000\t"))
	assert.True(t, strings.HasPrefix(lines[1], "5001\t"))
	assert.Len(t, strings.Split(lines[0], "\t"), 9)

	out, err = run(t, "read", "--config", configPath, "--time", "2014-06-13T05:30:01.00015625Z", "--count", "1", dataPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "5000\t"))

	_, err = run(t, "read", "--config", configPath, "--offset", "19999", "--count", "2", dataPath)
	assert.ErrorIs(t, err, stream.ErrEndOfStream)
}

func TestPrintSamples(t *testing.T) {
	var buf bytes.Buffer
	printSamples(&buf, 7, mat.NewDense(2, 2, []float64{-1, 1, encoding.OptimalTwoBitHigh, -encoding.OptimalTwoBitHigh}))
	assert.Equal(t, "7\t-1\t1\n8\t3.316505\t-3.316505\n", buf.String())
}

func TestCheckCommand(t *testing.T) {
	configPath, dataPath := fixture(t)

	out, err := run(t, "check", "--config", configPath, dataPath)
	require.NoError(t, err)
	assert.Contains(t, out, "4 frames")
	assert.Contains(t, out, "0 bad CRC, 0 bad time")

	raw, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	raw[2*mark5b.FrameSize+12] ^= 0x01
	require.NoError(t, os.WriteFile(dataPath, raw, 0600))

	out, err = run(t, "check", "--config", configPath, dataPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 4 frames failed checks")
	assert.Contains(t, out, "frame 2 at byte 20032: frame_nr=2 crc_ok=false time_ok=true")
}

func TestScanCommands(t *testing.T) {
	configPath, dataPath := fixture(t)

	out, err := run(t, "scan", "--config", configPath, dataPath)
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	id := fields[0]
	assert.Equal(t, dataPath, fields[1])

	out, err = run(t, "scans", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, id+" "+dataPath+": Mark5B-512-8-2, 4 frames")

	out, err = run(t, "scans", "--config", configPath, id, "--all")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "crc_ok=true time_ok=true"))

	out, err = run(t, "scans", "--config", configPath, id, "--delete")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+id)

	_, err = run(t, "scans", "--config", configPath, id)
	assert.Error(t, err)

	_, err = run(t, "scans", "--config", configPath, "not-a-ksuid")
	assert.Error(t, err)
}

func TestCopyCommand(t *testing.T) {
	configPath, dataPath := fixture(t)
	outPath := filepath.Join(t.TempDir(), "copy.m5b")

	out, err := run(t, "copy", "--config", configPath, "--identical", dataPath, outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "copied 20000 samples (4 frames)")

	want, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCompareFrames(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	data := make([]byte, 2*mark5b.FrameSize)
	require.NoError(t, os.WriteFile(a, data, 0600))
	data[mark5b.FrameSize+5] = 1
	require.NoError(t, os.WriteFile(b, data, 0600))

	assert.NoError(t, compareFrames(a, b, 1))
	err := compareFrames(a, b, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte 10021 (frame 1)")

	err = compareFrames(a, b, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected at least 30048")
}

func TestHistCommand(t *testing.T) {
	configPath, dataPath := fixture(t)
	pngPath := filepath.Join(t.TempDir(), "levels.png")

	out, err := run(t, "hist", "--config", configPath, "--count", "50000", dataPath, pngPath)
	require.NoError(t, err)
	assert.Contains(t, out, "plotted 20000 samples")
	assert.FileExists(t, pngPath)
}

func TestLevelCounts(t *testing.T) {
	data := mat.NewDense(4, 2, []float64{
		-1, 1,
		1, 1,
		1, 0, // off the alphabet
		-1, -1,
	})
	counts := levelCounts(data, encoding.TwoLevels)
	require.Len(t, counts, 2)
	assert.Equal(t, []float64{2, 2}, []float64(counts[0]))
	assert.Equal(t, []float64{1, 2}, []float64(counts[1]))
}

func TestConfigCommands(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "conf", "m5b.yaml")

	out, err := run(t, "config", "init", "--config", configPath, "--catalog-dir", "/srv/catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration created at "+configPath)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/srv/catalog", cfg.Catalog.Dir)

	_, err = run(t, "config", "init", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "config", "init", "--config", configPath, "--force")
	require.NoError(t, err)

	out, err = run(t, "config", "show", "--config", configPath, "--bits", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "channels: 8")
	assert.Contains(t, out, "bits_per_sample: 1")
}

func TestMetricsTextfile(t *testing.T) {
	configPath, dataPath := fixture(t)
	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "m5b.prom")
	require.NoError(t, config.SaveConfig(cfg, configPath))

	_, err = run(t, "read", "--config", configPath, "--count", "5001", dataPath)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `baseband_frames_total{direction="read"} 2`)
	assert.Contains(t, string(data), "baseband_samples_read_total 5001")
}
