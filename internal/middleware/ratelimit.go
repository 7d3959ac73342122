package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/metrics"
	"github.com/varekai/roster/internal/security"
)

// SessionCookieName is the HTTP cookie carrying the session id. Defined
// here so both the rate limiter (which keys buckets off the session) and
// the auth plugin (which sets the cookie) agree without an import cycle.
const SessionCookieName = "roster_session"

// RateLimit returns middleware that checks the request against the given
// policy before invoking inner layers. Denied requests short-circuit into
// a RateLimitError carrying the retry-after hint; the handler never runs.
//
// For auth-typed routes, a handler error afterwards is recorded as a failed
// attempt for abuse auditing (the counter itself was already consumed by
// the check).
func RateLimit(limiter *security.Limiter, limitType security.LimitType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			info := requestInfo(c)

			decision := limiter.Check(info, limitType)
			if !decision.Allowed {
				slog.Warn("rate limit exceeded",
					slog.String("limit_type", string(limitType)),
					slog.String("endpoint", info.Endpoint),
					slog.Duration("retry_after", decision.RetryAfter),
				)
				metrics.RateLimitDenials.WithLabelValues(string(limitType)).Inc()
				return apperror.NewRateLimited(decision.RetryAfter, string(limitType))
			}

			err := next(c)
			if err != nil && limitType == security.LimitAuth {
				limiter.RecordFailedAttempt(info, limitType)
			}
			return err
		}
	}
}

// requestInfo assembles the rate-limit identity for the current request.
func requestInfo(c echo.Context) security.RequestInfo {
	return security.RequestInfo{
		SessionID: SessionID(c),
		Endpoint:  c.Request().URL.Path,
		UserAgent: c.Request().UserAgent(),
	}
}

// SessionID returns the session id presented by the request, or "" when
// there is no session cookie.
func SessionID(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}
