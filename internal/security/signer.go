package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Signing errors. Verify distinguishes a forged or corrupted token from a
// genuine one past its age limit; callers that don't care can treat both
// the same way (reject).
var (
	ErrInvalidSignature = errors.New("signer: invalid signature")
	ErrExpired          = errors.New("signer: token expired")
)

// Signer signs opaque payloads with HMAC-SHA256 under a process-wide secret,
// embedding the issue timestamp so verification can enforce a max age.
// Token layout: b64url(payload) "." b64url(unix-seconds) "." b64url(mac)
// where the MAC covers the first two segments.
//
// The secret lives only in memory. When it is generated at startup rather
// than configured, tokens do not survive a restart.
type Signer struct {
	secret []byte

	// now is swapped out in tests to control expiry.
	now func() time.Time
}

// NewSigner creates a signer with the given secret.
func NewSigner(secret string) *Signer {
	return &Signer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Sign serializes the payload into a signed token carrying the current
// timestamp.
func (s *Signer) Sign(payload []byte) string {
	issued := strconv.FormatInt(s.now().Unix(), 10)

	body := base64.RawURLEncoding.EncodeToString(payload) +
		"." + base64.RawURLEncoding.EncodeToString([]byte(issued))

	mac := s.mac(body)
	return body + "." + base64.RawURLEncoding.EncodeToString(mac)
}

// Verify checks the token's signature and age, returning the original
// payload. The signature is checked before the timestamp so a forged token
// can never probe expiry behavior.
func (s *Signer) Verify(token string, maxAge time.Duration) ([]byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidSignature
	}

	body := parts[0] + "." + parts[1]

	gotMAC, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if !hmac.Equal(gotMAC, s.mac(body)) {
		return nil, ErrInvalidSignature
	}

	issuedRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidSignature
	}
	issuedUnix, err := strconv.ParseInt(string(issuedRaw), 10, 64)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	if s.now().Sub(time.Unix(issuedUnix, 0)) > maxAge {
		return nil, ErrExpired
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return payload, nil
}

// mac computes the HMAC-SHA256 tag over the token body.
func (s *Signer) mac(body string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(body))
	return h.Sum(nil)
}
