package registrants

import (
	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/middleware"
	"github.com/varekai/roster/internal/security"
)

// RegisterRoutes sets up the registrant routes. Registration is public but
// carries the auth-typed rate limit (account creation is a brute-force
// surface too); the record views require a session.
func RegisterRoutes(e *echo.Echo, h *Handler, limiter *security.Limiter, requireAuth echo.MiddlewareFunc) {
	e.POST("/register", h.Register, middleware.RateLimit(limiter, security.LimitAuth))

	records := e.Group("/registrants", requireAuth)
	records.GET("", h.List)
	records.GET("/:id", h.Get)
	records.PUT("/:id", h.Update)
	records.DELETE("/:id", h.Delete)
}
