package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/middleware"
	"github.com/varekai/roster/internal/security"
)

// mockService implements Service for handler testing.
type mockService struct {
	authenticateFn     func(ctx context.Context, email, password string) (*Principal, error)
	loginFn            func(ctx context.Context, p *Principal) (string, error)
	logoutFn           func(ctx context.Context, sessionID string) (bool, error)
	currentPrincipalFn func(ctx context.Context, sessionID string) (*Principal, error)
	regenerateFn       func(ctx context.Context, oldSessionID string, p *Principal) (string, error)
}

func (m *mockService) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockService) Login(ctx context.Context, p *Principal) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, p)
	}
	return "new-session", nil
}

func (m *mockService) Logout(ctx context.Context, sessionID string) (bool, error) {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return true, nil
}

func (m *mockService) CurrentPrincipal(ctx context.Context, sessionID string) (*Principal, error) {
	if m.currentPrincipalFn != nil {
		return m.currentPrincipalFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockService) Regenerate(ctx context.Context, oldSessionID string, p *Principal) (string, error) {
	if m.regenerateFn != nil {
		return m.regenerateFn(ctx, oldSessionID, p)
	}
	return "regenerated-session", nil
}

func newLoginRequest(body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func TestLoginHandler_SetsFreshSessionAndToken(t *testing.T) {
	guard := security.NewCSRFGuard(security.NewSigner("test-secret"))
	svc := &mockService{
		authenticateFn: func(ctx context.Context, email, password string) (*Principal, error) {
			return &Principal{Email: email, Name: "Alice"}, nil
		},
		loginFn: func(ctx context.Context, p *Principal) (string, error) {
			return "session-new", nil
		},
	}
	h := NewHandler(svc, guard)

	e := echo.New()
	req, rec := newLoginRequest(`{"email":"alice@example.com","password":"CorrectHorse1"}`)
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	// Session cookie carries the new id.
	cookies := rec.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, ck := range cookies {
		if ck.Name == middleware.SessionCookieName {
			sessionCookie = ck
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected session cookie in response")
	}
	if sessionCookie.Value != "session-new" {
		t.Errorf("expected new session id in cookie, got %q", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("expected HttpOnly session cookie")
	}

	// The returned CSRF token is bound to the new session.
	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !guard.Validate(body.CSRFToken, "session-new") {
		t.Error("expected csrf token bound to the new session")
	}
}

func TestLoginHandler_RegeneratesExistingSession(t *testing.T) {
	guard := security.NewCSRFGuard(security.NewSigner("test-secret"))
	regenerated := false
	svc := &mockService{
		authenticateFn: func(ctx context.Context, email, password string) (*Principal, error) {
			return &Principal{Email: email}, nil
		},
		regenerateFn: func(ctx context.Context, oldID string, p *Principal) (string, error) {
			if oldID != "session-old" {
				t.Errorf("expected old session id, got %q", oldID)
			}
			regenerated = true
			return "session-fresh", nil
		},
		loginFn: func(ctx context.Context, p *Principal) (string, error) {
			t.Error("expected Regenerate, not Login, for a request carrying a session")
			return "", nil
		},
	}
	h := NewHandler(svc, guard)

	e := echo.New()
	req, rec := newLoginRequest(`{"email":"alice@example.com","password":"CorrectHorse1"}`)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-old"})
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !regenerated {
		t.Error("expected session regeneration")
	}
}

func TestLogoutHandler_Idempotent(t *testing.T) {
	guard := security.NewCSRFGuard(security.NewSigner("test-secret"))
	h := NewHandler(&mockService{}, guard)

	// No session cookie at all: logout still succeeds.
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	// The cookie is cleared client-side.
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName && ck.MaxAge >= 0 {
			t.Error("expected session cookie expired")
		}
	}
}
