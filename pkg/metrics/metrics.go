// Package metrics exposes Prometheus collectors for the HTTP surface and
// the contact/icon domain operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Auth metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Session tokens issued",
		},
	)

	// Contact metrics
	ContactOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_operations_total",
			Help: "Contact store operations by kind",
		},
		[]string{"operation"},
	)

	// Icon upload metrics
	IconUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_uploads_total",
			Help: "Icon upload attempts by result",
		},
		[]string{"result"},
	)

	IconUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "icon_upload_bytes",
			Help:    "Size of accepted icon uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	IconFilesRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_files_removed_total",
			Help: "Icon file deletions by result",
		},
		[]string{"result"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_errors_total",
			Help: "Application errors by code and HTTP status",
		},
		[]string{"code", "status"},
	)

	// Build/runtime info
	SystemInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_info",
			Help: "Static system information",
		},
		[]string{"version", "go_version", "start_time"},
	)
)

// RecordError counts a handled application error.
func RecordError(code, status string) {
	ErrorsTotal.WithLabelValues(code, status).Inc()
}

// RecordAuthAttempt counts a login attempt; outcome is "success" or
// "failure".
func RecordAuthAttempt(outcome string) {
	AuthAttempts.WithLabelValues(outcome).Inc()
}

// RecordContactOperation counts a contact store operation: "create",
// "list", "get", "update" or "delete".
func RecordContactOperation(operation string) {
	ContactOperations.WithLabelValues(operation).Inc()
}
