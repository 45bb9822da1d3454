// Package metrics counts frame traffic through readers and writers. All
// methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	directionRead  = "read"
	directionWrite = "write"
)

// Metrics holds all Prometheus metrics for frame streams
type Metrics struct {
	framesTotal    *prometheus.CounterVec
	bytesTotal     *prometheus.CounterVec
	invalidFrames  prometheus.Counter
	crcFailures    prometheus.Counter
	timeMismatches prometheus.Counter
	rawSeeks       prometheus.Counter
	samplesRead    prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		framesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baseband_frames_total",
				Help: "Total number of frames decoded or encoded",
			},
			[]string{"direction"},
		),
		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baseband_bytes_total",
				Help: "Total number of frame bytes read or written",
			},
			[]string{"direction"},
		),
		invalidFrames: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baseband_invalid_frames_total",
				Help: "Frames read whose payload carries the invalid-data pattern",
			},
		),
		crcFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baseband_crc_failures_total",
				Help: "Frame headers whose time code CRC did not match",
			},
		),
		timeMismatches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baseband_time_mismatches_total",
				Help: "Frames whose header time differs from the expected frame start",
			},
		),
		rawSeeks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baseband_raw_seeks_total",
				Help: "Repositionings of the underlying file handle",
			},
		),
		samplesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baseband_samples_read_total",
				Help: "Total number of samples returned by stream reads",
			},
		),
	}
}

// FrameRead records one decoded frame.
func (m *Metrics) FrameRead(bytes int, valid bool) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(directionRead).Inc()
	m.bytesTotal.WithLabelValues(directionRead).Add(float64(bytes))
	if !valid {
		m.invalidFrames.Inc()
	}
}

// FrameWritten records one encoded frame.
func (m *Metrics) FrameWritten(bytes int) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(directionWrite).Inc()
	m.bytesTotal.WithLabelValues(directionWrite).Add(float64(bytes))
}

// CRCFailure records a header failing its CRC check.
func (m *Metrics) CRCFailure() {
	if m == nil {
		return
	}
	m.crcFailures.Inc()
}

// TimeMismatch records a frame at an unexpected time.
func (m *Metrics) TimeMismatch() {
	if m == nil {
		return
	}
	m.timeMismatches.Inc()
}

// RawSeek records a repositioning of the file handle.
func (m *Metrics) RawSeek() {
	if m == nil {
		return
	}
	m.rawSeeks.Inc()
}

// SamplesRead records samples handed to a caller.
func (m *Metrics) SamplesRead(n int) {
	if m == nil {
		return
	}
	m.samplesRead.Add(float64(n))
}

// WriteTextfile writes everything gathered by g in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
