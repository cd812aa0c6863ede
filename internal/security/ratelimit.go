package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterService is the AppContext service name of the shared *RateLimiter.
const RateLimiterService = "security.ratelimiter"

// Rate limit kinds.
const (
	KindReport = "report"
	KindAuth   = "auth"
)

// RateLimitConfig holds configurable rate limits. Zero means the default,
// a negative value disables the limit.
type RateLimitConfig struct {
	// ReportsPerMin caps report generations per chat.
	ReportsPerMin int `yaml:"reports_per_min"`
	// AuthPerMin caps authentication attempts per remote address.
	AuthPerMin int `yaml:"auth_per_min"`
}

func rateLimitConfigDefaults() RateLimitConfig {
	return RateLimitConfig{
		ReportsPerMin: 6,
		AuthPerMin:    20,
	}
}

// RateLimiter implements sliding window rate limiting per kind and key.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]int
	window  time.Duration
	buckets map[bucketKey][]time.Time
	now     func() time.Time
}

type bucketKey struct {
	kind string
	key  string
}

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := rateLimitConfigDefaults()
	if cfg.ReportsPerMin == 0 {
		cfg.ReportsPerMin = defaults.ReportsPerMin
	}
	if cfg.AuthPerMin == 0 {
		cfg.AuthPerMin = defaults.AuthPerMin
	}

	limits := make(map[string]int, 2)
	if cfg.ReportsPerMin > 0 {
		limits[KindReport] = cfg.ReportsPerMin
	}
	if cfg.AuthPerMin > 0 {
		limits[KindAuth] = cfg.AuthPerMin
	}

	return &RateLimiter{
		limits:  limits,
		window:  time.Minute,
		buckets: make(map[bucketKey][]time.Time),
		now:     time.Now,
	}
}

// Allow records an event of kind for key and reports whether it is within
// the limit. Unknown or disabled kinds are always allowed. A nil
// RateLimiter allows everything.
func (rl *RateLimiter) Allow(kind, key string) error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, ok := rl.limits[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	bk := bucketKey{kind: kind, key: key}
	events := evict(rl.buckets[bk], now.Add(-rl.window))

	if len(events) >= limit {
		rl.buckets[bk] = events
		return ErrRateLimited
	}
	rl.buckets[bk] = append(events, now)
	return nil
}

// Prune drops buckets with no event inside the window.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for k, events := range rl.buckets {
		if len(evict(events, cutoff)) == 0 {
			delete(rl.buckets, k)
		}
	}
}

// evict drops events at or before cutoff. Events are chronologically ordered.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	return events[i:]
}
