package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/config"
	"github.com/varekai/roster/internal/security"
)

func newTestLimiter(auth int) *security.Limiter {
	return security.NewLimiter(config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     60,
		AuthRequestsPerMinute: auth,
	})
}

func runRateLimited(t *testing.T, mw echo.MiddlewareFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-abc"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return handler(c)
}

func TestRateLimit_DeniesOverLimit(t *testing.T) {
	mw := RateLimit(newTestLimiter(2), security.LimitAuth)

	for i := 0; i < 2; i++ {
		if err := runRateLimited(t, mw); err != nil {
			t.Fatalf("expected request %d allowed, got %v", i+1, err)
		}
	}

	err := runRateLimited(t, mw)
	if err == nil {
		t.Fatal("expected third request denied")
	}
	var rateErr *apperror.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected *apperror.RateLimitError, got %T: %v", err, err)
	}
	if rateErr.LimitType != "auth" {
		t.Errorf("expected auth limit type, got %q", rateErr.LimitType)
	}
	if rateErr.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", rateErr.RetryAfter)
	}
}

func TestRateLimit_HandlerErrorPassesThrough(t *testing.T) {
	mw := RateLimit(newTestLimiter(10), security.LimitAuth)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wantErr := apperror.NewUnauthorized("invalid email or password")
	handler := mw(func(c echo.Context) error {
		return wantErr
	})

	if err := handler(c); !errors.Is(err, wantErr) {
		t.Errorf("expected handler error propagated, got %v", err)
	}
}
