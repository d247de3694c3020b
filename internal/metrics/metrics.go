package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request results recorded by ObserveTranscription.
const (
	ResultSuccess = "success"
	ResultEmpty   = "empty"
	ResultError   = "error"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Capture
	CapturedBytes    prometheus.Counter
	CaptureErrors    prometheus.Counter
	AccumulatedBytes prometheus.Gauge

	// Segmentation
	ChunksDispatched prometheus.Counter
	ChunkDuration    prometheus.Histogram

	// Transcription
	TranscriptionRequests *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	TranscriptionRetries  prometheus.Counter
	InflightRequests      prometheus.Gauge

	// Output
	SegmentsEmitted prometheus.Counter
	SegmentsSkipped prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CapturedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "livecc_captured_bytes_total",
			Help: "Canonical PCM bytes appended to the accumulator",
		}),
		CaptureErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "livecc_capture_errors_total",
			Help: "Capture device failures",
		}),
		AccumulatedBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "livecc_accumulated_bytes",
			Help: "Bytes waiting in the accumulator after the last drain",
		}),

		ChunksDispatched: f.NewCounter(prometheus.CounterOpts{
			Name: "livecc_chunks_dispatched_total",
			Help: "Chunks handed to the transcription client",
		}),
		ChunkDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "livecc_chunk_duration_seconds",
			Help:    "Audio duration of dispatched chunks",
			Buckets: prometheus.LinearBuckets(3, 3, 10), // 3s to 30s
		}),

		TranscriptionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livecc_transcription_requests_total",
			Help: "Transcription requests by result",
		}, []string{"result"}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "livecc_transcription_duration_seconds",
			Help:    "Latency of transcription requests, retries included",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
		}),
		TranscriptionRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "livecc_transcription_retries_total",
			Help: "Retried transcription attempts",
		}),
		InflightRequests: f.NewGauge(prometheus.GaugeOpts{
			Name: "livecc_transcription_inflight",
			Help: "Transcription requests currently in flight",
		}),

		SegmentsEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "livecc_segments_emitted_total",
			Help: "Transcript segments delivered to the event sink",
		}),
		SegmentsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "livecc_segments_skipped_total",
			Help: "Ordered-output slots released without their result after the reorder timeout",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "livecc_active_sessions",
			Help: "Sessions currently capturing",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordCapture(n int, buffered int) {
	if m == nil {
		return
	}
	m.CapturedBytes.Add(float64(n))
	m.AccumulatedBytes.Set(float64(buffered))
}

func (m *Metrics) RecordCaptureError() {
	if m == nil {
		return
	}
	m.CaptureErrors.Inc()
}

func (m *Metrics) RecordChunk(seconds float64, buffered int) {
	if m == nil {
		return
	}
	m.ChunksDispatched.Inc()
	m.ChunkDuration.Observe(seconds)
	m.AccumulatedBytes.Set(float64(buffered))
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.InflightRequests.Inc()
}

func (m *Metrics) ObserveTranscription(result string, seconds float64) {
	if m == nil {
		return
	}
	m.InflightRequests.Dec()
	m.TranscriptionRequests.WithLabelValues(result).Inc()
	m.TranscriptionDuration.Observe(seconds)
}

func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.TranscriptionRetries.Inc()
}

func (m *Metrics) RecordSegment() {
	if m == nil {
		return
	}
	m.SegmentsEmitted.Inc()
}

func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.SegmentsSkipped.Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}
