package session

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// MemoryStore is the default Store implementation: a mutex-guarded map.
// All operations are sub-millisecond, so a single lock over the whole table
// is plenty; sweeps take the same lock as request traffic instead of
// pausing it globally.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	timeout time.Duration

	// now is swapped out in tests to control expiry.
	now func() time.Time
}

// NewMemoryStore creates an in-memory session store with the given sliding
// expiry window.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		timeout: timeout,
		now:     time.Now,
	}
}

// Create stores a new session with fresh timestamps and returns its id.
func (s *MemoryStore) Create(_ context.Context, userID string, data map[string]any) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	if data == nil {
		data = make(map[string]any)
	}

	now := s.now()
	s.mu.Lock()
	s.records[id] = &Record{
		SessionID:    id,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		Data:         data,
	}
	s.mu.Unlock()

	slog.Info("session created", slog.String("user_id", userID))
	return id, nil
}

// Get returns the session, refreshing its sliding window, or nil when the
// id is unknown or expired. Expired records are evicted on the spot.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Record, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}

	if now.Sub(rec.LastActivity) > s.timeout {
		delete(s.records, sessionID)
		return nil, nil
	}

	rec.LastActivity = now

	// Return a copy so callers can't mutate the stored record outside the
	// lock. The payload map needs its own copy too; a shallow one would
	// alias the stored map.
	out := *rec
	out.Data = maps.Clone(rec.Data)
	return &out, nil
}

// Update merges the partial payload into the session's data, refreshing the
// sliding window. Returns false when the session is absent or expired.
func (s *MemoryStore) Update(_ context.Context, sessionID string, data map[string]any) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return false, nil
	}
	if now.Sub(rec.LastActivity) > s.timeout {
		delete(s.records, sessionID)
		return false, nil
	}

	for k, v := range data {
		rec.Data[k] = v
	}
	rec.LastActivity = now
	return true, nil
}

// Destroy removes the session. True only if a record existed.
func (s *MemoryStore) Destroy(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	_, ok := s.records[sessionID]
	if ok {
		delete(s.records, sessionID)
	}
	s.mu.Unlock()

	if ok {
		slog.Info("session destroyed")
	}
	return ok, nil
}

// SweepExpired evicts every record past its sliding window.
func (s *MemoryStore) SweepExpired(_ context.Context) (int, error) {
	cutoff := s.now().Add(-s.timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, rec := range s.records {
		if rec.LastActivity.Before(cutoff) {
			delete(s.records, id)
			evicted++
		}
	}

	if evicted > 0 {
		slog.Info("swept expired sessions", slog.Int("count", evicted))
	}
	return evicted, nil
}

// CountActive returns the current record count. Records past their window
// but not yet swept are included; the janitor keeps the drift small.
func (s *MemoryStore) CountActive(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}
