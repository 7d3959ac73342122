package security

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func newTestGuard() *CSRFGuard {
	return NewCSRFGuard(NewSigner("test-secret"))
}

func TestCSRFGuard_IssueAndValidate(t *testing.T) {
	g := newTestGuard()

	token, err := g.Issue("session-abc")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !g.Validate(token, "session-abc") {
		t.Error("expected token valid for its own session")
	}
}

func TestCSRFGuard_RejectsCrossSessionToken(t *testing.T) {
	g := newTestGuard()

	token, err := g.Issue("session-abc")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if g.Validate(token, "session-xyz") {
		t.Error("expected token rejected for a different session")
	}
}

func TestCSRFGuard_RejectsGarbage(t *testing.T) {
	g := newTestGuard()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a token", "nonsense"},
		{"forged", NewCSRFGuard(NewSigner("other-secret")).mustIssue(t, "session-abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if g.Validate(tt.token, "session-abc") {
				t.Error("expected rejection")
			}
		})
	}
}

func (g *CSRFGuard) mustIssue(t *testing.T, sessionID string) string {
	t.Helper()
	token, err := g.Issue(sessionID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	return token
}

func TestCSRFGuard_Expiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	signer := NewSigner("test-secret")
	signer.now = fixedClock(issued)
	g := NewCSRFGuard(signer)

	token := g.mustIssue(t, "session-abc")

	signer.now = fixedClock(issued.Add(30 * time.Minute))
	if !g.Validate(token, "session-abc") {
		t.Error("expected token valid within the hour")
	}

	signer.now = fixedClock(issued.Add(2 * time.Hour))
	if g.Validate(token, "session-abc") {
		t.Error("expected token expired after the hour")
	}
}

func TestCSRFGuard_TokensAreReusable(t *testing.T) {
	g := newTestGuard()
	token := g.mustIssue(t, "session-abc")

	for i := 0; i < 3; i++ {
		if !g.Validate(token, "session-abc") {
			t.Fatalf("expected token still valid on use %d", i+1)
		}
	}
}

func TestCSRFGuard_DistinctTokensPerIssue(t *testing.T) {
	g := newTestGuard()

	if g.mustIssue(t, "session-abc") == g.mustIssue(t, "session-abc") {
		t.Error("expected distinct tokens from consecutive issues")
	}
}

func TestVerifySubmission(t *testing.T) {
	g := newTestGuard()
	token := g.mustIssue(t, "session-abc")

	t.Run("valid submission strips token field", func(t *testing.T) {
		form := url.Values{
			CSRFTokenField: {token},
			"name":         {"Alice"},
		}
		if err := g.VerifySubmission(form, "session-abc"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if form.Has(CSRFTokenField) {
			t.Error("expected token field removed after verification")
		}
		if form.Get("name") != "Alice" {
			t.Error("expected other fields preserved")
		}
	})

	t.Run("missing token", func(t *testing.T) {
		form := url.Values{"name": {"Alice"}}
		if err := g.VerifySubmission(form, "session-abc"); !errors.Is(err, ErrMissingToken) {
			t.Errorf("expected ErrMissingToken, got %v", err)
		}
	})

	t.Run("wrong session", func(t *testing.T) {
		form := url.Values{CSRFTokenField: {token}}
		if err := g.VerifySubmission(form, "session-xyz"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
		if !form.Has(CSRFTokenField) {
			t.Error("expected token field kept on failed verification")
		}
	})
}
