// Package auth is the authentication and session orchestrator. It ties
// password verification, session creation/regeneration/destruction, and the
// external credential lookup together. It is the only package that talks to
// the credential store, and it owns no persistence of its own -- sessions
// live in the injected session.Store, credentials behind UserLookup.
package auth

import (
	"context"
)

// Principal is the authenticated identity handed to handlers. Profile data
// is advisory; authorization decisions key off Email (the principal id).
type Principal struct {
	Email   string         `json:"email"`
	Name    string         `json:"name"`
	Profile map[string]any `json:"profile,omitempty"`
}

// Credentials is the record the external collaborator returns for a lookup.
// The orchestrator only ever verifies against PasswordHash; it never sees
// or stores plaintext.
type Credentials struct {
	Email        string
	Name         string
	PasswordHash string
	Profile      map[string]any
}

// UserLookup is the external credential-lookup collaborator. The
// registrants plugin implements it; tests substitute a mock.
type UserLookup interface {
	// LookupCredentials returns the credentials for an email, or an
	// apperror.NotFound when no such account exists.
	LookupCredentials(ctx context.Context, email string) (*Credentials, error)
}

// LoginRequest holds the data submitted to POST /login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}
