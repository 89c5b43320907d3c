package guardrails

import (
	"sync"
	"time"

	"github.com/agentlab-dev/agentlab/logging"
)

// RateLimiterOptions configures the limiter.
type RateLimiterOptions struct {
	// Now overrides the clock, used in tests.
	Now func() time.Time
	// Logger receives rejection events.
	Logger logging.Logger
}

// RateLimiter is a sliding-window request limiter keyed by caller identity
// (user ID, IP address). Safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	requests map[string][]time.Time
	now      func() time.Time
	logger   logging.Logger
}

// NewRateLimiter allows limit requests per key within the window.
func NewRateLimiter(limit int, window time.Duration, optFns ...func(o *RateLimiterOptions)) *RateLimiter {
	opts := RateLimiterOptions{Now: time.Now, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &RateLimiter{
		limit:    limit,
		window:   window,
		requests: make(map[string][]time.Time),
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// Allow records a request for the key and reports whether it is within the
// limit.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneBefore(l.requests[key], now.Add(-l.window))

	if len(recent) >= l.limit {
		l.requests[key] = recent
		l.logger.Warn("guardrails.ratelimit.rejected", "key", key, "limit", l.limit)
		return false
	}

	l.requests[key] = append(recent, now)
	return true
}

// Remaining returns how many requests the key has left in the current
// window.
func (l *RateLimiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := pruneBefore(l.requests[key], l.now().Add(-l.window))
	l.requests[key] = recent

	remaining := l.limit - len(recent)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(timestamps) && !timestamps[idx].After(cutoff) {
		idx++
	}
	return timestamps[idx:]
}
