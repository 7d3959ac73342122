package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/middleware"
	"github.com/varekai/roster/internal/security"
)

// Handler handles HTTP requests for authentication (login, logout, me).
// Handlers are thin: they bind the request, call the service, and shape the
// response. No business logic lives here.
type Handler struct {
	service Service
	guard   *security.CSRFGuard
}

// NewHandler creates a new auth handler with the given service and guard.
func NewHandler(service Service, guard *security.CSRFGuard) *Handler {
	return &Handler{service: service, guard: guard}
}

// Login processes POST /login. If the request already carries a live
// session, the id is regenerated rather than reused: a pre-auth id planted
// by an attacker must not survive the privilege change.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	principal, err := h.service.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	var sessionID string
	if oldID := middleware.SessionID(c); oldID != "" {
		sessionID, err = h.service.Regenerate(c.Request().Context(), oldID, principal)
	} else {
		sessionID, err = h.service.Login(c.Request().Context(), principal)
	}
	if err != nil {
		return err
	}

	setSessionCookie(c, sessionID)

	// Tokens are bound to the session id, so the login response hands the
	// client a fresh one for its new session; anything issued before is
	// dead along with the old id.
	token, err := h.guard.Issue(sessionID)
	if err != nil {
		return apperror.NewInternal(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user":       principal,
		"csrf_token": token,
	})
}

// Logout processes POST /logout, destroying the session and clearing the
// cookie. Idempotent: logging out without a session still succeeds.
func (h *Handler) Logout(c echo.Context) error {
	sessionID := middleware.SessionID(c)
	if sessionID != "" {
		if _, err := h.service.Logout(c.Request().Context(), sessionID); err != nil {
			return err
		}
	}

	clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me returns the current principal (GET /me).
func (h *Handler) Me(c echo.Context) error {
	principal := GetPrincipal(c)
	if principal == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	return c.JSON(http.StatusOK, principal)
}

// --- Cookie helpers ---

// setSessionCookie stores the session id as an HttpOnly cookie. The cookie
// is the sole bearer credential: whoever presents it is the principal.
func setSessionCookie(c echo.Context, sessionID string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureRequest(c),
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie client-side.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(c),
		SameSite: http.SameSiteLaxMode,
	})
}

// isSecureRequest reports whether the request arrived over TLS, directly or
// via a terminating proxy.
func isSecureRequest(c echo.Context) bool {
	return c.Request().TLS != nil ||
		c.Request().Header.Get("X-Forwarded-Proto") == "https"
}
