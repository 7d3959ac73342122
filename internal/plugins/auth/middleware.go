package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/middleware"
)

// Context keys for storing the resolved principal in the Echo context.
const (
	contextKeyPrincipal = "auth_principal"
	contextKeyUserID    = "auth_user_id"
)

// RequireAuth returns middleware that resolves the session cookie to a live
// principal and injects it into the request context. Requests without a
// valid session get a 401.
func RequireAuth(service Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID := middleware.SessionID(c)
			if sessionID == "" {
				return apperror.NewUnauthorized("authentication required")
			}

			principal, err := service.CurrentPrincipal(c.Request().Context(), sessionID)
			if err != nil {
				return err
			}
			if principal == nil {
				return apperror.NewUnauthorized("session expired or invalid")
			}

			c.Set(contextKeyPrincipal, principal)
			c.Set(contextKeyUserID, principal.Email)

			return next(c)
		}
	}
}

// GetPrincipal retrieves the authenticated principal from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetPrincipal(c echo.Context) *Principal {
	principal, ok := c.Get(contextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// GetUserID retrieves the authenticated principal's id from the Echo
// context. Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}
