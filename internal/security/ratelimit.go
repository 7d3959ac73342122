package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/varekai/roster/internal/config"
)

// rateLimitWindow is the fixed-window length for all limit types.
const rateLimitWindow = time.Minute

// LimitType names a throttling policy.
type LimitType string

// The two policies: general page traffic and the stricter auth policy for
// login/register endpoints.
const (
	LimitGeneral LimitType = "general"
	LimitAuth    LimitType = "auth"
)

// RequestInfo identifies the client for rate limiting. With no trustworthy
// network-origin data available behind arbitrary proxies, the identifier is
// derived from session + endpoint + user agent. Distinct anonymous clients
// sharing no session collapse into weak differentiation; deployments that
// terminate TLS themselves should feed the real client IP into SessionID.
type RequestInfo struct {
	SessionID string
	Endpoint  string
	UserAgent string
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	// Allowed is true when the request may proceed.
	Allowed bool

	// RetryAfter is the backoff hint for denied requests; zero when allowed.
	RetryAfter time.Duration
}

// bucket tracks the counter for one (limitType, client) pair within the
// current window.
type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window rate limiter over in-memory counters. It is
// safe for concurrent use; the check-then-increment sequence runs under a
// single mutex so two concurrent checks for the same bucket always see each
// other's effect.
//
// The limiter fails open: an internal error during a check never blocks the
// caller -- availability wins over strict throttling for this one component.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     config.RateLimitConfig

	now func() time.Time
}

// NewLimiter creates a rate limiter with the given policy configuration.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Check tests and consumes one request against the policy for limitType.
// When the window has lapsed the bucket resets before testing; otherwise
// the count is compared against the configured limit and incremented on
// success. Denials carry the time until the window resets.
func (l *Limiter) Check(info RequestInfo, limitType LimitType) (decision Decision) {
	if !l.cfg.Enabled {
		return Decision{Allowed: true}
	}

	// Fail open on any internal fault: log it and let the request through.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("rate limiter internal error; allowing request",
				slog.Any("panic", r),
				slog.String("limit_type", string(limitType)),
			)
			decision = Decision{Allowed: true}
		}
	}()

	key := string(limitType) + ":" + l.clientID(info)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}

	// Reset if the window has passed.
	if !now.Before(b.resetAt) {
		b.count = 0
		b.resetAt = now.Add(rateLimitWindow)
	}

	if b.count >= l.limitFor(limitType) {
		return Decision{RetryAfter: b.resetAt.Sub(now)}
	}

	b.count++
	return Decision{Allowed: true}
}

// RecordFailedAttempt logs a failed attempt for abuse auditing. It does not
// touch the counters -- the request was already counted by Check.
func (l *Limiter) RecordFailedAttempt(info RequestInfo, limitType LimitType) {
	if !l.cfg.Enabled {
		return
	}

	slog.Warn("failed attempt",
		slog.String("limit_type", string(limitType)),
		slog.String("client_id", l.clientID(info)),
		slog.String("endpoint", info.Endpoint),
	)
}

// SweepStale evicts buckets whose window lapsed at least two windows ago,
// bounding memory under sustained abuse from many distinct identifiers.
// Safe to run concurrently with Check; returns the number evicted.
func (l *Limiter) SweepStale() int {
	cutoff := l.now().Add(-rateLimitWindow)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, b := range l.buckets {
		if b.resetAt.Before(cutoff) {
			delete(l.buckets, key)
			evicted++
		}
	}
	return evicted
}

// limitFor returns the configured threshold for the policy.
func (l *Limiter) limitFor(limitType LimitType) int {
	if limitType == LimitAuth {
		return l.cfg.AuthRequestsPerMinute
	}
	return l.cfg.RequestsPerMinute
}

// clientID derives the stable bucket identifier from the request info.
func (l *Limiter) clientID(info RequestInfo) string {
	sessionID := info.SessionID
	if sessionID == "" {
		sessionID = "anonymous"
	}
	endpoint := info.Endpoint
	if endpoint == "" {
		endpoint = "unknown"
	}

	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s", sessionID, endpoint, info.UserAgent))
	return hex.EncodeToString(sum[:])[:16]
}
