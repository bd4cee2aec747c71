// Package metrics exposes the Prometheus counters and histograms the core
// emits from the HTTP layer, the transfer orchestrator, and the
// reconciliation engine.
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
			Name: "bigfin_http_requests_total",
			Help: "Total HTTP requests handled, by method, route, and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bigfin_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	TransferAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigfin_transfer_attempts_total",
			Help: "Total transfer attempts by kind and rail.",
		},
		[]string{"kind", "rail"},
	)

	TransferFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigfin_transfer_rail_fallbacks_total",
			Help: "Total rail fallback transitions during transfer initiation.",
		},
		[]string{"kind", "from_rail", "to_rail"},
	)

	TransferFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigfin_transfer_failures_total",
			Help: "Total transfer initiation attempts that exhausted every rail.",
		},
		[]string{"kind"},
	)

	ReconciliationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigfin_reconciliation_runs_total",
			Help: "Total reconciliation runs by outcome.",
		},
		[]string{"status"},
	)

	ReconciliationExceptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigfin_reconciliation_exceptions_total",
			Help: "Total reconciliation exceptions raised by type and severity.",
		},
		[]string{"type", "severity"},
	)

	ReconciliationAutoResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bigfin_reconciliation_auto_resolved_total",
			Help: "Total reconciliation exceptions auto-resolved without operator action.",
		},
	)

	WebhookRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigfin_webhook_rejected_total",
			Help: "Total inbound webhooks rejected, by reason.",
		},
		[]string{"reason"},
	)
)

// GinMiddleware records request counts and latency for every route. Mount
// alongside logging.GinMiddleware; this one never logs, it only observes.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the /metrics scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
