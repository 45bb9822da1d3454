package stream

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ssargent/baseband/pkg/mark5b"
)

// FormatInfo describes the on-disk format of a stream.
type FormatInfo interface {
	Name() string
	FrameSize() int
	SamplesPerFrame() int
	Attributes() map[string]string
}

// baseInfo covers what every frame-based baseband format can report.
type baseInfo struct {
	format     mark5b.Format
	sampleRate float64
}

func (b baseInfo) Name() string {
	return fmt.Sprintf("baseband-%d-%d", b.format.Channels, b.format.BitsPerSample)
}

func (b baseInfo) FrameSize() int {
	return mark5b.FrameSize
}

func (b baseInfo) SamplesPerFrame() int {
	return b.format.SamplesPerFrame()
}

func (b baseInfo) Attributes() map[string]string {
	return map[string]string{
		"channels":        strconv.Itoa(b.format.Channels),
		"bits_per_sample": strconv.Itoa(b.format.BitsPerSample),
		"sample_rate":     strconv.FormatFloat(b.sampleRate, 'g', -1, 64),
	}
}

// mark5bInfo adds what the first header says about the recording.
type mark5bInfo struct {
	baseInfo
	header0 mark5b.Header
	ref     time.Time
}

func (m mark5bInfo) Name() string {
	return m.format.Name(m.sampleRate)
}

func (m mark5bInfo) Attributes() map[string]string {
	attrs := m.baseInfo.Attributes()
	attrs["year"] = strconv.FormatUint(uint64(m.header0.Year()), 10)
	attrs["user"] = strconv.FormatUint(uint64(m.header0.User()), 10)
	attrs["internal_tvg"] = strconv.FormatBool(m.header0.InternalTVG())
	attrs["frame_nr"] = strconv.FormatUint(uint64(m.header0.FrameNr()), 10)
	if kday, err := m.header0.Kday(m.ref); err == nil {
		attrs["kday"] = strconv.Itoa(kday)
	}
	return attrs
}

// Info summarizes an open stream.
type Info struct {
	Format          string
	FrameSize       int
	SamplesPerFrame int
	Frames          int64
	Samples         int64
	StartTime       time.Time
	StopTime        time.Time
	Attributes      map[string]string
}

// String renders the summary one item per line, attributes sorted by key.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "format: %s\n", i.Format)
	fmt.Fprintf(&b, "frame_size: %d\n", i.FrameSize)
	fmt.Fprintf(&b, "samples_per_frame: %d\n", i.SamplesPerFrame)
	fmt.Fprintf(&b, "frames: %d\n", i.Frames)
	fmt.Fprintf(&b, "samples: %d\n", i.Samples)
	fmt.Fprintf(&b, "start_time: %s\n", i.StartTime.Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "stop_time: %s\n", i.StopTime.Format(time.RFC3339Nano))
	keys := make([]string, 0, len(i.Attributes))
	for k := range i.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, i.Attributes[k])
	}
	return b.String()
}

func (r *Reader) formatInfo() FormatInfo {
	return mark5bInfo{
		baseInfo: baseInfo{format: r.config.Format, sampleRate: r.config.SampleRate},
		header0:  r.header0,
		ref:      r.config.RefTime,
	}
}

// Info summarizes the stream without reading any data.
func (r *Reader) Info() Info {
	fi := r.formatInfo()
	return Info{
		Format:          fi.Name(),
		FrameSize:       fi.FrameSize(),
		SamplesPerFrame: fi.SamplesPerFrame(),
		Frames:          r.nframes,
		Samples:         r.Size(),
		StartTime:       r.start,
		StopTime:        r.StopTime(),
		Attributes:      fi.Attributes(),
	}
}
