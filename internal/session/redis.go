package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix is the Redis key prefix for session records.
const sessionKeyPrefix = "session:"

// RedisStore is a Store backed by Redis. Sliding expiry maps onto key TTLs:
// every hit rewrites the record with a fresh TTL, and Redis evicts the rest
// on its own. Use it when sessions should survive a process restart.
type RedisStore struct {
	rdb     *redis.Client
	timeout time.Duration
}

// NewRedisStore creates a Redis-backed session store with the given sliding
// expiry window.
func NewRedisStore(rdb *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, timeout: timeout}
}

// Create stores a new session with fresh timestamps and returns its id.
func (s *RedisStore) Create(ctx context.Context, userID string, data map[string]any) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	if data == nil {
		data = make(map[string]any)
	}

	now := time.Now().UTC()
	rec := &Record{
		SessionID:    id,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		Data:         data,
	}

	if err := s.write(ctx, rec); err != nil {
		return "", err
	}

	slog.Info("session created", slog.String("user_id", userID))
	return id, nil
}

// Get returns the session, refreshing its sliding window, or nil when the
// key is gone (Redis already evicted it) or past the window.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	return s.withRecord(ctx, sessionID, func(*Record) {})
}

// Update merges the partial payload into the session's data.
func (s *RedisStore) Update(ctx context.Context, sessionID string, data map[string]any) (bool, error) {
	rec, err := s.withRecord(ctx, sessionID, func(rec *Record) {
		for k, v := range data {
			rec.Data[k] = v
		}
	})
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// txRetries bounds optimistic-lock retries when concurrent writers touch
// the same session key.
const txRetries = 8

// withRecord runs a read-modify-write on the session key under WATCH, so
// two concurrent operations on the same session never interleave -- the
// later EXEC fails and retries against the fresh record instead of
// overwriting the earlier write. Refreshes the sliding window on every
// hit; returns nil when the key is absent or past the window.
func (s *RedisStore) withRecord(ctx context.Context, sessionID string, mutate func(*Record)) (*Record, error) {
	key := sessionKeyPrefix + sessionID

	var out *Record
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshaling session: %w", err)
		}

		// TTL normally evicts first, but guard against clock drift
		// between writers by checking the recorded activity time too.
		now := time.Now().UTC()
		if now.Sub(rec.LastActivity) > s.timeout {
			out = nil
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}

		mutate(&rec)
		rec.LastActivity = now

		payload, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.timeout)
			return nil
		})
		if err != nil {
			return err
		}

		out = &rec
		return nil
	}

	for attempt := 0; attempt < txRetries; attempt++ {
		err := s.rdb.Watch(ctx, txn, key)
		switch {
		case err == redis.Nil:
			return nil, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case err != nil:
			return nil, fmt.Errorf("reading session from redis: %w", err)
		default:
			return out, nil
		}
	}
	return nil, fmt.Errorf("updating session in redis: retries exhausted under contention")
}

// Destroy removes the session. True only if the key existed.
func (s *RedisStore) Destroy(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.rdb.Del(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("deleting session from redis: %w", err)
	}

	if n > 0 {
		slog.Info("session destroyed")
	}
	return n > 0, nil
}

// SweepExpired is a no-op for Redis: key TTLs already evict expired
// sessions server-side.
func (s *RedisStore) SweepExpired(_ context.Context) (int, error) {
	return 0, nil
}

// CountActive scans the session key prefix and returns the live count.
func (s *RedisStore) CountActive(ctx context.Context) (int, error) {
	var count int
	iter := s.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scanning sessions: %w", err)
	}
	return count, nil
}

// write serializes the record and stores it with a full sliding-window TTL.
func (s *RedisStore) write(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := s.rdb.Set(ctx, sessionKeyPrefix+rec.SessionID, data, s.timeout).Err(); err != nil {
		return fmt.Errorf("storing session in redis: %w", err)
	}
	return nil
}
