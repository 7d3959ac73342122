package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/security"
	"github.com/varekai/roster/internal/session"
)

// --- Mock UserLookup ---

// mockUserLookup implements UserLookup for testing.
type mockUserLookup struct {
	lookupCredentialsFn func(ctx context.Context, email string) (*Credentials, error)
}

func (m *mockUserLookup) LookupCredentials(ctx context.Context, email string) (*Credentials, error) {
	if m.lookupCredentialsFn != nil {
		return m.lookupCredentialsFn(ctx, email)
	}
	return nil, apperror.NewNotFound("account not found")
}

// --- Test Helpers ---

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	return hash
}

// aliceLookup returns a lookup knowing exactly one account.
func aliceLookup(t *testing.T) *mockUserLookup {
	t.Helper()
	hash := hashOf(t, "CorrectHorse1")
	return &mockUserLookup{
		lookupCredentialsFn: func(ctx context.Context, email string) (*Credentials, error) {
			if email != "alice@example.com" {
				return nil, apperror.NewNotFound("account not found")
			}
			return &Credentials{
				Email:        "alice@example.com",
				Name:         "Alice",
				PasswordHash: hash,
				Profile:      map[string]any{"id": "user-1"},
			}, nil
		},
	}
}

func newTestService(t *testing.T, users UserLookup) Service {
	t.Helper()
	return NewService(users, session.NewMemoryStore(30*time.Minute))
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected unauthorized error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != 401 {
		t.Errorf("expected 401, got %d", appErr.Code)
	}
	if appErr.Message != "invalid email or password" {
		t.Errorf("expected uniform failure message, got %q", appErr.Message)
	}
}

// --- Authenticate Tests ---

func TestAuthenticate_Success(t *testing.T) {
	svc := newTestService(t, aliceLookup(t))

	p, err := svc.Authenticate(context.Background(), "alice@example.com", "CorrectHorse1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if p.Email != "alice@example.com" || p.Name != "Alice" {
		t.Errorf("unexpected principal: %+v", p)
	}
	if p.Profile["id"] != "user-1" {
		t.Errorf("expected profile carried through, got %v", p.Profile)
	}
}

func TestAuthenticate_NormalizesEmail(t *testing.T) {
	svc := newTestService(t, aliceLookup(t))

	p, err := svc.Authenticate(context.Background(), "  Alice@Example.COM  ", "CorrectHorse1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if p.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", p.Email)
	}
}

func TestAuthenticate_UniformFailure(t *testing.T) {
	svc := newTestService(t, aliceLookup(t))
	ctx := context.Background()

	// Unknown account and wrong password must be indistinguishable.
	_, unknownErr := svc.Authenticate(ctx, "nobody@example.com", "CorrectHorse1")
	assertUnauthorized(t, unknownErr)

	_, wrongPwErr := svc.Authenticate(ctx, "alice@example.com", "WrongPassword1")
	assertUnauthorized(t, wrongPwErr)

	if unknownErr.Error() != wrongPwErr.Error() {
		t.Errorf("expected identical errors, got %q vs %q", unknownErr, wrongPwErr)
	}
}

func TestAuthenticate_LookupFailure(t *testing.T) {
	users := &mockUserLookup{
		lookupCredentialsFn: func(ctx context.Context, email string) (*Credentials, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	svc := newTestService(t, users)

	_, err := svc.Authenticate(context.Background(), "alice@example.com", "CorrectHorse1")
	if err == nil {
		t.Fatal("expected error on lookup failure")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != 500 {
		t.Errorf("expected internal error, got %v", err)
	}
}

// --- Login / Logout Tests ---

func TestLoginAndLogout(t *testing.T) {
	store := session.NewMemoryStore(30 * time.Minute)
	svc := NewService(aliceLookup(t), store)
	ctx := context.Background()

	id, err := svc.Login(ctx, &Principal{Email: "alice@example.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a session id")
	}

	rec, err := store.Get(ctx, id)
	if err != nil || rec == nil {
		t.Fatalf("expected session record, rec=%v err=%v", rec, err)
	}
	if rec.UserID != "alice@example.com" {
		t.Errorf("expected session bound to user, got %q", rec.UserID)
	}
	if rec.Data["name"] != "Alice" {
		t.Errorf("expected cached payload, got %v", rec.Data)
	}

	existed, err := svc.Logout(ctx, id)
	if err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if !existed {
		t.Error("expected logout of live session to report existence")
	}

	// Logout is idempotent.
	existed, err = svc.Logout(ctx, id)
	if err != nil {
		t.Fatalf("second Logout returned error: %v", err)
	}
	if existed {
		t.Error("expected second logout to report absence")
	}
}

// --- CurrentPrincipal Tests ---

func TestCurrentPrincipal_LiveSession(t *testing.T) {
	svc := newTestService(t, aliceLookup(t))
	ctx := context.Background()

	id, err := svc.Login(ctx, &Principal{Email: "alice@example.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	p, err := svc.CurrentPrincipal(ctx, id)
	if err != nil {
		t.Fatalf("CurrentPrincipal returned error: %v", err)
	}
	if p == nil || p.Email != "alice@example.com" {
		t.Errorf("expected alice, got %+v", p)
	}
}

func TestCurrentPrincipal_UnknownSession(t *testing.T) {
	svc := newTestService(t, aliceLookup(t))

	p, err := svc.CurrentPrincipal(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("CurrentPrincipal returned error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil for unknown session, got %+v", p)
	}
}

func TestCurrentPrincipal_OrphanedSession(t *testing.T) {
	// The account exists at login time, then disappears.
	accountGone := false
	hash := hashOf(t, "CorrectHorse1")
	users := &mockUserLookup{
		lookupCredentialsFn: func(ctx context.Context, email string) (*Credentials, error) {
			if accountGone {
				return nil, apperror.NewNotFound("account not found")
			}
			return &Credentials{Email: email, Name: "Alice", PasswordHash: hash}, nil
		},
	}

	store := session.NewMemoryStore(30 * time.Minute)
	svc := NewService(users, store)
	ctx := context.Background()

	id, err := svc.Login(ctx, &Principal{Email: "alice@example.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	accountGone = true

	p, err := svc.CurrentPrincipal(ctx, id)
	if err != nil {
		t.Fatalf("CurrentPrincipal returned error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil when the account vanished, got %+v", p)
	}

	// The orphaned session was destroyed, not left behind.
	rec, _ := store.Get(ctx, id)
	if rec != nil {
		t.Error("expected orphaned session destroyed")
	}
}

// --- Regenerate Tests ---

func TestRegenerate(t *testing.T) {
	store := session.NewMemoryStore(30 * time.Minute)
	svc := NewService(aliceLookup(t), store)
	ctx := context.Background()

	oldID, err := svc.Login(ctx, &Principal{Email: "alice@example.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	newID, err := svc.Regenerate(ctx, oldID, &Principal{Email: "alice@example.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}

	if newID == oldID {
		t.Error("expected a fresh session id")
	}
	if rec, _ := store.Get(ctx, oldID); rec != nil {
		t.Error("expected old session dead after regeneration")
	}
	rec, _ := store.Get(ctx, newID)
	if rec == nil {
		t.Fatal("expected new session alive")
	}
	if rec.UserID != "alice@example.com" {
		t.Errorf("expected same user on new session, got %q", rec.UserID)
	}
}

// --- End-to-End Scenario ---

func TestLoginFlow(t *testing.T) {
	svc := newTestService(t, aliceLookup(t))
	ctx := context.Background()

	p, err := svc.Authenticate(ctx, "alice@example.com", "CorrectHorse1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	id, err := svc.Login(ctx, p)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	resolved, err := svc.CurrentPrincipal(ctx, id)
	if err != nil || resolved == nil {
		t.Fatalf("expected live principal, got %v err=%v", resolved, err)
	}

	if _, err := svc.Logout(ctx, id); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	resolved, err = svc.CurrentPrincipal(ctx, id)
	if err != nil {
		t.Fatalf("CurrentPrincipal after logout returned error: %v", err)
	}
	if resolved != nil {
		t.Error("expected no principal after logout")
	}
}
