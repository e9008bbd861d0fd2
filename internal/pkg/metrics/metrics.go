// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "media_edge"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ingestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Upload attempts by result.",
		},
		[]string{"result"},
	)

	ingestedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_bytes_total",
		Help:      "Bytes accepted by the upload endpoint.",
	})

	servedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "served_bytes_total",
			Help:      "Asset bytes written to clients by response kind.",
		},
		[]string{"kind"},
	)

	redirectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redirects_total",
		Help:      "Short-link redirects issued.",
	})

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "Analytics events recorded by type.",
		},
		[]string{"event_type"},
	)

	backgroundTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_tasks_total",
			Help:      "Fire-and-forget tasks by name and outcome.",
		},
		[]string{"task", "result"},
	)
)

// Result labels shared by the outcome counters.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultPanic    = "panic"
	ResultRejected = "rejected"
)

// ObserveIngestion records one upload attempt.
func ObserveIngestion(result string, size int64) {
	ingestionsTotal.WithLabelValues(result).Inc()
	if result == ResultOK && size > 0 {
		ingestedBytesTotal.Add(float64(size))
	}
}

// ObserveServedBytes records body bytes sent for a full ("full") or partial ("range") read.
func ObserveServedBytes(kind string, n int64) {
	if n > 0 {
		servedBytesTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// IncRedirect counts an issued short-link redirect.
func IncRedirect() {
	redirectsTotal.Inc()
}

// IncEvent counts a stored analytics event.
func IncEvent(eventType string) {
	eventsTotal.WithLabelValues(eventType).Inc()
}

// ObserveBackgroundTask counts a finished background task.
func ObserveBackgroundTask(task, result string) {
	backgroundTasksTotal.WithLabelValues(task, result).Inc()
}

// GinMiddleware records request count and latency. The route label is the
// matched gin pattern so asset ids and short codes do not explode cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
