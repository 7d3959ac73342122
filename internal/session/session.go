// Package session provides server-side session storage with sliding expiry.
// Sessions bind an opaque bearer token to a principal: anyone presenting a
// valid session id is treated as the owning principal, so ids carry at
// least 256 bits of entropy.
//
// Two backends implement the Store interface: the default in-memory map
// and a Redis-backed store for deployments that already run Redis.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// sessionIDBytes is the number of random bytes in a session id.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const sessionIDBytes = 32

// Record is the server-side state for one session. Data holds an arbitrary
// snapshot associated with the session (e.g., a cached user projection);
// it is advisory -- authorization decisions must only trust UserID.
type Record struct {
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	Data         map[string]any `json:"data"`
}

// Store defines how sessions are stored and retrieved. All implementations
// must be safe for concurrent use from multiple request goroutines, and a
// sweep must be safe to run concurrently with normal Get traffic.
type Store interface {
	// Create stores a new session for the user and returns its id.
	Create(ctx context.Context, userID string, data map[string]any) (string, error)

	// Get returns the session record, or nil when the id is unknown or the
	// session has expired (expired records are evicted as a side effect).
	// On a hit, LastActivity is refreshed: the expiry window slides.
	Get(ctx context.Context, sessionID string) (*Record, error)

	// Update merges the partial payload into the session's data.
	// Returns false when the session is absent or expired.
	Update(ctx context.Context, sessionID string, data map[string]any) (bool, error)

	// Destroy removes the session. Idempotent; true only if a record existed.
	Destroy(ctx context.Context, sessionID string) (bool, error)

	// SweepExpired evicts every record past its sliding window and returns
	// the number evicted. Called periodically by an external janitor.
	SweepExpired(ctx context.Context) (int, error)

	// CountActive returns the current number of live sessions, for metrics.
	CountActive(ctx context.Context) (int, error)
}

// newSessionID generates a cryptographically random session identifier.
func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
