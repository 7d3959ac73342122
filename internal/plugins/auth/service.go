package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/varekai/roster/internal/apperror"
	"github.com/varekai/roster/internal/metrics"
	"github.com/varekai/roster/internal/security"
	"github.com/varekai/roster/internal/session"
)

// Service defines the authentication/session contract. Handlers call these
// methods; they never touch the session store or credential lookup directly.
type Service interface {
	// Authenticate verifies credentials and returns the principal.
	// Unknown account and wrong password produce the same unauthorized
	// error -- the response never reveals which factor failed.
	Authenticate(ctx context.Context, email, password string) (*Principal, error)

	// Login creates a session for an authenticated principal and returns
	// the session id. A store failure is fatal to the request: logged and
	// propagated, never retried.
	Login(ctx context.Context, p *Principal) (string, error)

	// Logout destroys the session. True only if a session existed.
	Logout(ctx context.Context, sessionID string) (bool, error)

	// CurrentPrincipal resolves the session to a live principal, or nil
	// when the session is absent/expired or the account no longer exists.
	CurrentPrincipal(ctx context.Context, sessionID string) (*Principal, error)

	// Regenerate replaces the session id for an already-authenticated
	// principal, defeating session fixation. The old id is dead before
	// the new one is returned.
	Regenerate(ctx context.Context, oldSessionID string, p *Principal) (string, error)
}

// service implements Service over the injected collaborators.
type service struct {
	users UserLookup
	store session.Store
}

// NewService creates the orchestrator with its collaborators.
func NewService(users UserLookup, store session.Store) Service {
	return &service{users: users, store: store}
}

// Authenticate looks up the credential record and verifies the password.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	creds, err := s.users.LookupCredentials(ctx, email)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Type == "not_found" {
			// Log the real reason; the caller sees the uniform message.
			slog.Info("login rejected: unknown account", slog.String("email", email))
			metrics.AuthFailures.Inc()
			return nil, apperror.NewUnauthorized("invalid email or password")
		}
		return nil, apperror.NewInternal(fmt.Errorf("looking up credentials: %w", err))
	}

	if !security.VerifyPassword(password, creds.PasswordHash) {
		slog.Info("login rejected: password mismatch", slog.String("email", email))
		metrics.AuthFailures.Inc()
		return nil, apperror.NewUnauthorized("invalid email or password")
	}

	return &Principal{
		Email:   creds.Email,
		Name:    creds.Name,
		Profile: creds.Profile,
	}, nil
}

// Login creates a session with a cached projection of the principal in the
// payload. The projection is display-only; CurrentPrincipal re-resolves the
// account on every read.
func (s *service) Login(ctx context.Context, p *Principal) (string, error) {
	sessionID, err := s.store.Create(ctx, p.Email, map[string]any{
		"email": p.Email,
		"name":  p.Name,
	})
	if err != nil {
		slog.Error("session creation failed",
			slog.String("user_id", p.Email),
			slog.Any("error", err),
		)
		return "", apperror.NewSession("", fmt.Errorf("creating session: %w", err))
	}

	slog.Info("user logged in", slog.String("user_id", p.Email))
	return sessionID, nil
}

// Logout destroys the session.
func (s *service) Logout(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.store.Destroy(ctx, sessionID)
	if err != nil {
		return false, apperror.NewSession(sessionID, err)
	}
	if ok {
		slog.Info("user logged out")
	}
	return ok, nil
}

// CurrentPrincipal trusts only the session's user id; everything else is
// re-resolved through the credential lookup so a deleted or deactivated
// account loses access immediately, stale payload notwithstanding.
func (s *service) CurrentPrincipal(ctx context.Context, sessionID string) (*Principal, error) {
	rec, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, apperror.NewSession(sessionID, err)
	}
	if rec == nil {
		return nil, nil
	}

	creds, err := s.users.LookupCredentials(ctx, rec.UserID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Type == "not_found" {
			// Account vanished out from under the session; kill the session.
			if _, derr := s.store.Destroy(ctx, sessionID); derr != nil {
				slog.Warn("destroying orphaned session", slog.Any("error", derr))
			}
			return nil, nil
		}
		return nil, apperror.NewInternal(fmt.Errorf("resolving principal: %w", err))
	}

	return &Principal{
		Email:   creds.Email,
		Name:    creds.Name,
		Profile: creds.Profile,
	}, nil
}

// Regenerate destroys the old session before creating the new one, so
// there is no window where a fixated id outlives the trust change.
func (s *service) Regenerate(ctx context.Context, oldSessionID string, p *Principal) (string, error) {
	if _, err := s.store.Destroy(ctx, oldSessionID); err != nil {
		return "", apperror.NewSession(oldSessionID, err)
	}

	newID, err := s.Login(ctx, p)
	if err != nil {
		return "", err
	}

	slog.Info("session regenerated", slog.String("user_id", p.Email))
	return newID, nil
}
