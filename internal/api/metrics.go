package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "celerix_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	batchRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celerix_batch_records_total",
		Help: "Records affected by batch operations.",
	}, []string{"dataset", "action"})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celerix_exports_total",
		Help: "Completed exports by dataset and format.",
	}, []string{"dataset", "format"})
)

// Metrics records request durations. Unmatched routes are grouped together.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
