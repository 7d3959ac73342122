package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"
)

// CSRFTokenField is the form field name carrying the CSRF token in
// traditional form submissions.
const CSRFTokenField = "csrf_token"

// csrfTokenMaxAge is how long an issued token stays valid. One hour covers
// any reasonable time between rendering a form and submitting it.
const csrfTokenMaxAge = time.Hour

// Submission errors surfaced by VerifySubmission.
var (
	ErrMissingToken = errors.New("csrf: missing token")
	ErrInvalidToken = errors.New("csrf: invalid or expired token")
)

// csrfPayload is the signed content of a CSRF token. The nonce is random
// per call so two tokens issued for the same session in the same second
// are still distinct (concurrent forms don't collide).
type csrfPayload struct {
	SessionID string `json:"sid"`
	Nonce     string `json:"nonce"`
}

// CSRFGuard issues and validates per-session CSRF tokens. Tokens are
// stateless: validity is entirely self-contained in the signed payload
// plus the comparison against the presenting session. A captured token
// remains valid for its full lifetime window -- tokens are deliberately
// not single-use.
type CSRFGuard struct {
	signer *Signer
	maxAge time.Duration
}

// NewCSRFGuard creates a guard signing tokens under the given signer.
func NewCSRFGuard(signer *Signer) *CSRFGuard {
	return &CSRFGuard{
		signer: signer,
		maxAge: csrfTokenMaxAge,
	}
}

// Issue generates a token bound to the session. Generated per form render.
func (g *CSRFGuard) Issue(sessionID string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	payload, err := json.Marshal(csrfPayload{
		SessionID: sessionID,
		Nonce:     base64.RawURLEncoding.EncodeToString(nonce),
	})
	if err != nil {
		return "", err
	}

	return g.signer.Sign(payload), nil
}

// Validate reports whether the token is genuine, unexpired, and bound to
// the presenting session. It fails closed: any malformed input returns
// false rather than an error.
func (g *CSRFGuard) Validate(token, sessionID string) bool {
	if token == "" {
		slog.Warn("missing CSRF token")
		return false
	}

	payload, err := g.signer.Verify(token, g.maxAge)
	if err != nil {
		slog.Warn("CSRF token rejected", slog.Any("reason", err))
		return false
	}

	var data csrfPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		slog.Warn("CSRF token payload malformed")
		return false
	}

	if subtle.ConstantTimeCompare([]byte(data.SessionID), []byte(sessionID)) != 1 {
		slog.Warn("CSRF token session mismatch")
		return false
	}

	return true
}

// VerifySubmission is the state-changing entry point for form posts. It
// pulls the token out of the form, validates it against the session, and
// strips the token field so downstream processing never sees it.
func (g *CSRFGuard) VerifySubmission(form url.Values, sessionID string) error {
	token := form.Get(CSRFTokenField)
	if token == "" {
		return ErrMissingToken
	}

	if !g.Validate(token, sessionID) {
		return ErrInvalidToken
	}

	form.Del(CSRFTokenField)
	return nil
}
