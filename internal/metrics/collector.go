// Package metrics exposes prometheus collectors for the detection core.
// The HTTP /metrics surface itself is external to the core;
// this package only registers the collectors for an external mux to serve.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hms_detection_frames_captured_total",
			Help: "Total frames decoded and pushed to the ring buffer, per camera.",
		},
		[]string{"camera_id"},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hms_detection_frames_dropped_total",
			Help: "Total frames dropped before reaching the ring buffer, per camera and reason.",
		},
		[]string{"camera_id", "reason"},
	)

	ReconnectCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hms_detection_reconnect_total",
			Help: "Total RTSP reconnect attempts, per camera.",
		},
		[]string{"camera_id"},
	)

	RingSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hms_detection_ring_size",
			Help: "Current ring buffer occupancy, per camera.",
		},
		[]string{"camera_id"},
	)

	CameraConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hms_detection_camera_connected",
			Help: "Camera connection status (0=disconnected, 1=connected).",
		},
		[]string{"camera_id"},
	)

	DetectionLatencyMs = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hms_detection_inference_latency_ms",
			Help:    "Detection inference latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"camera_id"},
	)

	EventsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hms_detection_events_active",
		Help: "Number of in-flight motion events across all cameras.",
	})

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hms_detection_events_total",
			Help: "Total motion events completed, per camera.",
		},
		[]string{"camera_id"},
	)

	PublishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hms_detection_bus_publish_latency_seconds",
			Help:    "Event bus publish latency.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"transport"},
	)

	ProcessCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hms_detection_process_cpu_percent",
		Help: "CPU usage of this process, sampled periodically.",
	})

	ProcessRSSBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hms_detection_process_rss_bytes",
		Help: "Resident set size of this process, sampled periodically.",
	})

	SystemMemoryUsedPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hms_detection_system_memory_used_percent",
		Help: "System-wide memory usage percentage, sampled periodically.",
	})
)
