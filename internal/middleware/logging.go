// Package middleware provides HTTP middleware for the Roster Echo server.
// Global middleware is registered in internal/app in a fixed order:
// request logging, then rate limiting, then security headers, then panic
// recovery, then the route handler. Centralized error mapping lives in the
// app's Echo error handler.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/metrics"
)

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: method, path, status, latency, and remote IP. It also
// feeds the request counters. Handler errors pass through untouched --
// logging never suppresses a failure.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Log after the request completes so we have the status code.
			latency := time.Since(start)
			req := c.Request()
			res := c.Response()

			status := res.Status
			if err != nil && !res.Committed {
				// The error handler hasn't run yet; report its eventual status.
				status = statusOf(err)
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.Duration("latency", latency),
				slog.String("remote_ip", c.RealIP()),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)

			metrics.RequestsTotal.WithLabelValues(
				req.Method, req.URL.Path, strconv.Itoa(status)).Inc()
			metrics.RequestDuration.Observe(latency.Seconds())

			return err
		}
	}
}

// statusOf resolves the HTTP status an error will be mapped to by the
// central error handler, for logging before that handler runs.
func statusOf(err error) int {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var rlErr *apperror.RateLimitError
	if errors.As(err, &rlErr) {
		return http.StatusTooManyRequests
	}
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return echoErr.Code
	}
	return http.StatusInternalServerError
}
