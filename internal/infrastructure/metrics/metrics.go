package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewcast",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "viewcast",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Upload counters
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewcast",
			Subsystem: "video",
			Name:      "uploads_total",
			Help:      "Total video uploads",
		},
		[]string{"content_type", "status"},
	)

	// Upload bytes counter
	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewcast",
			Subsystem: "video",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded",
		},
		[]string{"content_type"},
	)

	// Processing pipeline outcomes
	ProcessingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewcast",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Total processing pipeline runs",
		},
		[]string{"status"},
	)

	// Processing pipeline duration
	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "viewcast",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Processing pipeline duration in seconds",
			Buckets:   []float64{1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	// Realtime subscribers gauge
	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "viewcast",
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Currently connected realtime subscribers",
		},
	)

	// Bytes served by the streaming responder
	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewcast",
			Subsystem: "stream",
			Name:      "bytes_total",
			Help:      "Total bytes served by the range responder",
		},
		[]string{"ranged"},
	)
)

// RecordUpload records a video upload attempt.
func RecordUpload(contentType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(contentType, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(contentType).Add(float64(bytes))
	}
}

// RecordProcessing records a pipeline run outcome.
func RecordProcessing(status string, durationSec float64) {
	ProcessingTotal.WithLabelValues(status).Inc()
	ProcessingDuration.WithLabelValues(status).Observe(durationSec)
}

// RecordStream records bytes served by the streaming responder.
func RecordStream(ranged bool, bytes int64) {
	StreamBytesTotal.WithLabelValues(strconv.FormatBool(ranged)).Add(float64(bytes))
}

// Middleware observes every request with method/route/status labels.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		RequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
