package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/security"
)

// csrfHeaderName carries the CSRF token in both directions: responses to
// safe requests include a freshly issued token, and AJAX submissions send
// it back in the same header.
const csrfHeaderName = "X-CSRF-Token"

// contextKeyCSRFToken stores the issued token in the Echo context so
// handlers can embed it in their responses.
const contextKeyCSRFToken = "csrf_token"

// anonymousSession is the binding used for tokens issued before login
// (registration and login forms are submitted without a session).
const anonymousSession = "anonymous"

// CSRF returns middleware around the guard. Safe requests get a token
// issued for their session (response header + context); state-changing
// requests must present a valid one, from the X-CSRF-Token header or the
// csrf_token form field. Validation fails closed -- missing, forged,
// expired, or cross-session tokens all reject with 403.
func CSRF(guard *security.CSRFGuard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID := SessionID(c)
			if sessionID == "" {
				sessionID = anonymousSession
			}

			if isSafeMethod(c.Request().Method) {
				token, err := guard.Issue(sessionID)
				if err != nil {
					return apperror.NewInternal(err)
				}
				c.Response().Header().Set(csrfHeaderName, token)
				c.Set(contextKeyCSRFToken, token)
				return next(c)
			}

			// Header first (AJAX), then form field (traditional forms).
			if token := c.Request().Header.Get(csrfHeaderName); token != "" {
				if !guard.Validate(token, sessionID) {
					return apperror.NewForbidden("invalid or expired security token")
				}
				return next(c)
			}

			form, err := c.FormParams()
			if err != nil {
				return apperror.NewBadRequest("malformed form submission")
			}
			switch err := guard.VerifySubmission(form, sessionID); err {
			case nil:
				return next(c)
			case security.ErrMissingToken:
				return apperror.NewForbidden("missing security token")
			default:
				return apperror.NewForbidden("invalid or expired security token")
			}
		}
	}
}

// GetCSRFToken retrieves the token issued for the current request, for
// handlers that echo it in a JSON body alongside the response header.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get(contextKeyCSRFToken).(string); ok {
		return token
	}
	return ""
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}
