// Package metrics defines Roster's Prometheus collectors and the pull
// endpoint. The security core doesn't import this package -- middleware
// and the app wiring feed it, keeping the core free of metrics concerns.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by method, path, and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests.",
	}, []string{"method", "path", "status"})

	// RequestDuration observes request latency.
	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration.",
		Buckets: prometheus.DefBuckets,
	})

	// RateLimitDenials counts requests rejected by the rate limiter.
	RateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_denials_total",
		Help: "Requests rejected by the rate limiter.",
	}, []string{"limit_type"})

	// AuthFailures counts rejected authentication attempts.
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Rejected authentication attempts.",
	})
)

// RegisterActiveSessions exposes the session store's live count as a gauge.
// The callback runs at scrape time on the default registry, so the value is
// always current without a polling loop. Scrapes are bounded by a short
// timeout so a slow store backend can't hang the metrics endpoint.
func RegisterActiveSessions(count func(ctx context.Context) (int, error)) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "active_sessions_total",
		Help: "Current number of live sessions.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		n, err := count(ctx)
		if err != nil {
			slog.Warn("counting active sessions for metrics", slog.Any("error", err))
			return 0
		}
		return float64(n)
	})
}

// Handler returns the Prometheus exposition endpoint for GET /metrics.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
