// Package metric exposes Prometheus instruments for the tracking pipeline.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame outcomes recorded by AddFrame.
const (
	FrameDetected = "detected"
	FrameReused   = "reused"
	FrameStill    = "still"
)

// Metric owns a private registry so several pipelines (and tests) can coexist
// in one process.
type Metric struct {
	mu       sync.Mutex
	registry *prometheus.Registry

	frames         *prometheus.CounterVec
	detections     prometheus.Histogram
	detectTime     prometheus.Histogram
	activeTracks   prometheus.Gauge
	tracksCreated  prometheus.Counter
	tracksRetired  prometheus.Counter
	trackLifetime  prometheus.Histogram
	screenshots    prometheus.Counter
	detectFailures prometheus.Counter
}

// New registers every instrument. Nil bucket slices fall back to
// prometheus.DefBuckets scaled for milliseconds.
func New(detectBuckets []float64) *Metric {
	if detectBuckets == nil {
		detectBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}
	}

	m := &Metric{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trailcam_frames_total",
				Help: "Frames read from the source, by outcome.",
			},
			[]string{"outcome"},
		),
		detections: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trailcam_detections_per_run",
				Help:    "Detections returned by one detector run after class filtering.",
				Buckets: prometheus.LinearBuckets(0, 5, 10),
			},
		),
		detectTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trailcam_detect_time_ms",
				Help:    "Histogram of detector latency.",
				Buckets: detectBuckets,
			},
		),
		activeTracks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trailcam_active_tracks",
				Help: "Tracks alive after the last update.",
			},
		),
		tracksCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trailcam_tracks_created_total",
				Help: "Tracks created.",
			},
		),
		tracksRetired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trailcam_tracks_retired_total",
				Help: "Tracks deleted after missing a tick.",
			},
		),
		trackLifetime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trailcam_track_lifetime_ticks",
				Help:    "Ticks a track stayed alive.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		screenshots: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trailcam_screenshots_total",
				Help: "Screenshots written.",
			},
		),
		detectFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trailcam_detect_failures_total",
				Help: "Detector runs that returned an error.",
			},
		),
	}

	m.registry.MustRegister(
		m.frames,
		m.detections,
		m.detectTime,
		m.activeTracks,
		m.tracksCreated,
		m.tracksRetired,
		m.trackLifetime,
		m.screenshots,
		m.detectFailures,
	)
	return m
}

// Registry returns the registry the instruments live in.
func (m *Metric) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metric) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metric) AddFrame(outcome string) {
	m.lock()
	defer m.unlock()
	m.frames.WithLabelValues(outcome).Inc()
}

// AddDetection records one detector run.
func (m *Metric) AddDetection(count int, elapsedMs float64) {
	m.lock()
	defer m.unlock()
	m.detections.Observe(float64(count))
	m.detectTime.Observe(elapsedMs)
}

func (m *Metric) AddDetectFailure() {
	m.lock()
	defer m.unlock()
	m.detectFailures.Inc()
}

func (m *Metric) SetActiveTracks(n int) {
	m.lock()
	defer m.unlock()
	m.activeTracks.Set(float64(n))
}

func (m *Metric) AddTrackCreated() {
	m.lock()
	defer m.unlock()
	m.tracksCreated.Inc()
}

// AddTrackRetired records a deleted track and how many ticks it lived.
func (m *Metric) AddTrackRetired(ageTicks int) {
	m.lock()
	defer m.unlock()
	m.tracksRetired.Inc()
	m.trackLifetime.Observe(float64(ageTicks))
}

func (m *Metric) AddScreenshot() {
	m.lock()
	defer m.unlock()
	m.screenshots.Inc()
}

func (m *Metric) lock() {
	m.mu.Lock()
}

func (m *Metric) unlock() {
	m.mu.Unlock()
}
