package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/metrics"
	"github.com/varekai/roster/internal/plugins/auth"
	"github.com/varekai/roster/internal/plugins/registrants"
)

// RegisterRoutes constructs the plugin stacks and mounts every route.
func (a *App) RegisterRoutes() {
	registrantService := registrants.NewService(registrants.NewRepository(a.DB))
	registrantHandler := registrants.NewHandler(registrantService)

	authService := auth.NewService(registrantService, a.Sessions)
	authHandler := auth.NewHandler(authService, a.Guard)

	a.Echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	a.Echo.GET("/metrics", metrics.Handler())

	auth.RegisterRoutes(a.Echo, authHandler, a.Limiter)
	registrants.RegisterRoutes(a.Echo, registrantHandler, a.Limiter, auth.RequireAuth(authService))
}
