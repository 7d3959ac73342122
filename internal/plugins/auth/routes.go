package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/middleware"
	"github.com/varekai/roster/internal/security"
)

// RegisterRoutes sets up the auth routes. Login carries the stricter
// auth-typed rate limit on top of the global general limit, so brute-force
// attempts hit the wall at the configured auth threshold.
func RegisterRoutes(e *echo.Echo, h *Handler, limiter *security.Limiter) {
	e.POST("/login", h.Login, middleware.RateLimit(limiter, security.LimitAuth))
	e.POST("/logout", h.Logout)
	e.GET("/me", h.Me, RequireAuth(h.service))
}
