package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canescan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canescan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Analysis metrics
	analysisRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canescan_analysis_requests_total",
			Help: "Total number of analysis requests",
		},
		[]string{"channel", "status"}, // channel: http, websocket
	)

	analysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canescan_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)

	analysisConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "canescan_analysis_confidence",
			Help:    "Confidence of the primary detection",
			Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		},
	)

	pestDetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canescan_pest_detections_total",
			Help: "Primary detections by pest and source",
		},
		[]string{"pest_id", "source"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canescan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: requests_per_minute, requests_per_hour, max_requests_per_day, max_data_per_day
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "canescan_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "canescan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canescan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// observeAnalysis records the outcome of one analysis.
func observeAnalysis(channel string, seconds float64, pestID, source string, confidence float64) {
	analysisRequestsTotal.WithLabelValues(channel, "success").Inc()
	analysisDuration.WithLabelValues(channel).Observe(seconds)
	analysisConfidence.Observe(confidence)
	pestDetectionsTotal.WithLabelValues(pestID, source).Inc()
}
