package security

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

// fixedClock returns a now func pinned to the given time.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("test-secret")

	token := s.Sign([]byte(`{"hello":"world"}`))
	payload, err := s.Verify(token, time.Hour)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !bytes.Equal(payload, []byte(`{"hello":"world"}`)) {
		t.Errorf("payload mismatch: got %q", payload)
	}
}

func TestSigner_RejectsTamperedPayload(t *testing.T) {
	s := NewSigner("test-secret")

	token := s.Sign([]byte("original"))
	parts := strings.Split(token, ".")
	parts[0] = "dGFtcGVyZWQ" // "tampered" in b64url
	tampered := strings.Join(parts, ".")

	if _, err := s.Verify(tampered, time.Hour); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestSigner_RejectsWrongSecret(t *testing.T) {
	token := NewSigner("secret-a").Sign([]byte("payload"))

	if _, err := NewSigner("secret-b").Verify(token, time.Hour); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestSigner_RejectsMalformedTokens(t *testing.T) {
	s := NewSigner("test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separators", "abcdef"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"bad mac encoding", "YQ.Yg.!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Verify(tt.token, time.Hour); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("expected ErrInvalidSignature, got %v", err)
			}
		})
	}
}

func TestSigner_Expiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewSigner("test-secret")
	s.now = fixedClock(issued)
	token := s.Sign([]byte("payload"))

	// Within max age: still valid.
	s.now = fixedClock(issued.Add(59 * time.Minute))
	if _, err := s.Verify(token, time.Hour); err != nil {
		t.Errorf("expected token valid at 59m, got %v", err)
	}

	// Past max age: expired.
	s.now = fixedClock(issued.Add(61 * time.Minute))
	if _, err := s.Verify(token, time.Hour); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired at 61m, got %v", err)
	}
}
