package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedKeys caps the number of tracked senders so rotating sender
// names cannot exhaust memory.
const maxTrackedKeys = 4096

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// SenderLimiter is a token bucket per sender. A nil limiter allows everything.
// Safe for concurrent use.
type SenderLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

// NewSenderLimiter allows rpm requests per minute per key with a burst of
// rpm. It returns nil when rpm <= 0.
func NewSenderLimiter(rpm int) *SenderLimiter {
	if rpm <= 0 {
		return nil
	}
	return &SenderLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Every(time.Minute / time.Duration(rpm)),
		burst:   rpm,
		// a bucket idle this long is full again, so forgetting it is lossless
		idle: time.Minute,
		now:  time.Now,
	}
}

// Allow reports whether key may make another request now.
func (l *SenderLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		l.evict(now)
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

// RetryAfter is the wait a rejected caller should be told about.
func (l *SenderLimiter) RetryAfter() time.Duration {
	if l == nil || l.limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.limit))
}

// evict prunes idle entries when at the cap, then drops arbitrary ones.
// Callers hold mu.
func (l *SenderLimiter) evict(now time.Time) {
	if len(l.entries) < maxTrackedKeys {
		return
	}
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) >= l.idle {
			delete(l.entries, k)
		}
	}
	for len(l.entries) >= maxTrackedKeys {
		for k := range l.entries {
			delete(l.entries, k)
			break
		}
	}
}

func (l *SenderLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
