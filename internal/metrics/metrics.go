// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agency_onboarding",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agency_onboarding",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agency_onboarding",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	stepSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agency_onboarding",
			Subsystem: "steps",
			Name:      "submissions_total",
			Help:      "Step submissions by step index and outcome code.",
		},
		[]string{"step", "outcome"},
	)

	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agency_onboarding",
			Subsystem: "steps",
			Name:      "apply_duration_seconds",
			Help:      "Time spent applying a step, including uploads.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"step"},
	)

	uploadedFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agency_onboarding",
			Subsystem: "uploads",
			Name:      "files_total",
			Help:      "Files stored, by document category.",
		},
		[]string{"category"},
	)

	uploadedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agency_onboarding",
			Subsystem: "uploads",
			Name:      "bytes_total",
			Help:      "Bytes stored, by document category.",
		},
		[]string{"category"},
	)

	completedApplications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agency_onboarding",
			Subsystem: "applications",
			Name:      "completed_total",
			Help:      "Applications moved to COMPLETED.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		stepSubmissions,
		stepDuration,
		uploadedFiles,
		uploadedBytes,
		completedApplications,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordStep records one step submission. outcome is "success" or an
// error code.
func RecordStep(step int, outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	label := strconv.Itoa(step)
	stepSubmissions.WithLabelValues(label, outcome).Inc()
	stepDuration.WithLabelValues(label).Observe(duration.Seconds())
}

func RecordUpload(category string, size int64) {
	uploadedFiles.WithLabelValues(category).Inc()
	uploadedBytes.WithLabelValues(category).Add(float64(size))
}

func RecordCompletion() {
	completedApplications.Inc()
}
