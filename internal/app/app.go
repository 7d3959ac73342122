// Package app wires the Echo server together: middleware chain, error
// handling, and route registration. It owns the HTTP surface but none of
// the business logic, which lives in the plugins.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/config"
	"github.com/varekai/roster/internal/middleware"
	"github.com/varekai/roster/internal/security"
	"github.com/varekai/roster/internal/session"
)

// App holds the application's shared dependencies.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Sessions session.Store
	Limiter  *security.Limiter
	Guard    *security.CSRFGuard
	Echo     *echo.Echo
}

// New creates the application with its middleware chain configured.
// Routes are registered separately via RegisterRoutes.
func New(cfg *config.Config, db *sql.DB, sessions session.Store, limiter *security.Limiter, guard *security.CSRFGuard) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	middleware.TrustedProxies(e, cfg.TrustedProxies)

	a := &App{
		Config:   cfg,
		DB:       db,
		Sessions: sessions,
		Limiter:  limiter,
		Guard:    guard,
		Echo:     e,
	}
	a.setupMiddleware()
	return a
}

// setupMiddleware installs the global chain. Order matters: logging sees
// every request including rate-limited ones, the limiter runs before any
// handler work, security headers are set even on errors, and recovery
// wraps everything below it so a panicking handler still produces a 500.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.RateLimit(a.Limiter, security.LimitGeneral))
	a.Echo.Use(middleware.SecurityHeaders())
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.CSRF(a.Guard))
}

// Start runs the HTTP server. Blocks until the server stops.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%s", a.Config.Port)
	slog.Info("starting server", slog.String("addr", addr), slog.String("env", a.Config.Env))
	return a.Echo.Start(addr)
}

// errorHandler maps domain errors to JSON responses. AppErrors carry
// their own status and safe message; rate-limit errors get a 429 with a
// Retry-After header; anything unrecognized becomes a generic 500 so no
// internal detail ever reaches the client.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *apperror.AppError
	var rateErr *apperror.RateLimitError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &rateErr):
		retryAfter := int(rateErr.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		err = c.JSON(http.StatusTooManyRequests, map[string]any{
			"type":                "rate_limited",
			"message":             "Too many requests. Please slow down.",
			"retry_after_seconds": retryAfter,
			"limit_type":          rateErr.LimitType,
		})

	case errors.As(err, &appErr):
		if appErr.Internal != nil {
			slog.Error("request failed",
				slog.String("type", appErr.Type),
				slog.Int("status", appErr.Code),
				slog.String("path", c.Request().URL.Path),
				slog.Any("error", appErr.Internal),
			)
		}
		err = c.JSON(appErr.Code, appErr)

	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		err = c.JSON(httpErr.Code, map[string]string{
			"type":    "http_error",
			"message": msg,
		})

	default:
		slog.Error("unhandled error",
			slog.String("path", c.Request().URL.Path),
			slog.Any("error", err),
		)
		err = c.JSON(http.StatusInternalServerError, map[string]string{
			"type":    "internal_error",
			"message": "An unexpected error occurred. Please try again.",
		})
	}

	if err != nil {
		slog.Error("writing error response", slog.Any("error", err))
	}
}
