package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Detection pipeline
	FramesProcessed   atomic.Uint64
	DetectionsKept    atomic.Uint64
	DetectionsDropped atomic.Uint64 // class index outside the loaded class list
	DetectErrors      atomic.Uint64

	// Evidence
	EvidenceSaved  atomic.Uint64
	EvidenceErrors atomic.Uint64

	// Latency tracking
	InferenceLatencyMs atomic.Uint64

	// Live cameras and viewers
	ActiveCameras atomic.Int64
	CameraErrors  atomic.Uint64
	ActiveViewers atomic.Int64

	ViewerMessagesDropped atomic.Uint64 // viewer queue full

	// Uploads
	ImagesAnalyzed atomic.Uint64
	VideosAnalyzed atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) gauge(name, help string, value func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		value,
	))
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.gauge("accidentwatch_frames_processed_total", "Total frames passed through the detector",
		func() float64 { return float64(m.FramesProcessed.Load()) })
	m.gauge("accidentwatch_detections_total", "Total detections kept after class mapping",
		func() float64 { return float64(m.DetectionsKept.Load()) })
	m.gauge("accidentwatch_detections_dropped_total", "Model boxes dropped because their class index is not in the class list",
		func() float64 { return float64(m.DetectionsDropped.Load()) })
	m.gauge("accidentwatch_detect_errors_total", "Total detector errors",
		func() float64 { return float64(m.DetectErrors.Load()) })

	m.gauge("accidentwatch_evidence_saved_total", "Total evidence frames written",
		func() float64 { return float64(m.EvidenceSaved.Load()) })
	m.gauge("accidentwatch_evidence_errors_total", "Total evidence write errors",
		func() float64 { return float64(m.EvidenceErrors.Load()) })

	m.gauge("accidentwatch_inference_latency_ms", "Latency of the last model inference in milliseconds",
		func() float64 { return float64(m.InferenceLatencyMs.Load()) })

	m.gauge("accidentwatch_active_cameras", "Number of running live camera loops",
		func() float64 { return float64(m.ActiveCameras.Load()) })
	m.gauge("accidentwatch_camera_errors_total", "Total camera open/read failures",
		func() float64 { return float64(m.CameraErrors.Load()) })
	m.gauge("accidentwatch_active_viewers", "Number of connected WebSocket viewers",
		func() float64 { return float64(m.ActiveViewers.Load()) })
	m.gauge("accidentwatch_viewer_messages_dropped_total", "Messages dropped because a viewer's send queue was full",
		func() float64 { return float64(m.ViewerMessagesDropped.Load()) })

	m.gauge("accidentwatch_images_analyzed_total", "Total uploaded images analyzed",
		func() float64 { return float64(m.ImagesAnalyzed.Load()) })
	m.gauge("accidentwatch_videos_analyzed_total", "Total uploaded videos analyzed",
		func() float64 { return float64(m.VideosAnalyzed.Load()) })
}

// UpdateInferenceLatency stores the latency of the last inference call
func (m *Metrics) UpdateInferenceLatency(d time.Duration) {
	m.InferenceLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
