// Package metrics provides Prometheus instrumentation for the application.
// This is part of the platform layer and contains no business logic.
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
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PaymentsReceived counts billing provider payment webhooks by status.
	PaymentsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_received_total",
			Help: "Total number of payments received",
		},
		[]string{"billing_type", "status"},
	)

	// SubscriptionsActivated counts subscriptions moved to active.
	SubscriptionsActivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Total number of subscriptions activated",
		},
	)

	// IntegrationErrors counts failures against external services.
	IntegrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

// Middleware records request counts and latencies per route.
// FullPath is used so /leads/:id does not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
