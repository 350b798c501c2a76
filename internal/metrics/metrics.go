package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bitbeem"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Uploads counts files accepted by the upload service.
	Uploads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Files accepted for delivery.",
	})

	// UploadBytes counts blob bytes accepted by the upload service.
	UploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_bytes_total",
		Help:      "Blob bytes accepted for delivery.",
	})

	// Consumptions counts successful downloads.
	Consumptions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consumptions_total",
		Help:      "Successful downloads counted against a file's limit.",
	})

	// Expirations counts files destroyed after reaching their download limit.
	Expirations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_expired_total",
		Help:      "Files deleted after their download limit was reached.",
	})

	// ConsumeFailures counts failed downloads by reason.
	ConsumeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consume_failures_total",
		Help:      "Failed downloads by reason.",
	}, []string{"reason"})

	registerOnce sync.Once
)

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			Uploads,
			UploadBytes,
			Consumptions,
			Expirations,
			ConsumeFailures,
		)
	})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
