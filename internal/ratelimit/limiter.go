// Package ratelimit provides token-bucket admission keyed by an arbitrary
// string, such as a device id or a client address.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL    = time.Minute
	defaultMaxEntries = 10000
)

type entry struct {
	limiter     *rate.Limiter
	lastAttempt time.Time
}

// KeyedLimiter holds one token bucket per key. Admission and the bucket
// update happen under a single lock, so two concurrent attempts for the same
// key can never both take the last token.
type KeyedLimiter struct {
	mu         sync.Mutex
	entries    map[string]*entry
	limit      rate.Limit
	burst      int
	refill     time.Duration
	idleTTL    time.Duration
	maxEntries int
}

type Option func(*KeyedLimiter)

// WithBurst lets a key take up to n admissions back to back.
func WithBurst(n int) Option {
	return func(l *KeyedLimiter) {
		if n > 0 {
			l.burst = n
		}
	}
}

// WithIdleTTL sets how long a key may go without attempts before Sweep drops
// it. Values shorter than a full bucket refill are raised to the refill time.
func WithIdleTTL(d time.Duration) Option {
	return func(l *KeyedLimiter) { l.idleTTL = d }
}

// WithMaxEntries caps the number of tracked keys; 0 disables the cap.
func WithMaxEntries(n int) Option {
	return func(l *KeyedLimiter) { l.maxEntries = n }
}

// New admits one attempt per key every interval.
func New(interval time.Duration, opts ...Option) *KeyedLimiter {
	l := &KeyedLimiter{
		entries:    make(map[string]*entry),
		limit:      rate.Every(interval),
		burst:      1,
		idleTTL:    defaultIdleTTL,
		maxEntries: defaultMaxEntries,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.refill = interval * time.Duration(l.burst)
	if l.idleTTL < l.refill {
		l.idleTTL = l.refill
	}

	return l
}

// NewPerMinute admits up to n attempts per key per minute.
func NewPerMinute(n int, opts ...Option) *KeyedLimiter {
	if n < 1 {
		n = 1
	}
	return New(time.Minute/time.Duration(n), append([]Option{WithBurst(n)}, opts...)...)
}

// Admit reports whether key may proceed at now. A rejected attempt leaves
// the key's bucket untouched.
func (l *KeyedLimiter) Admit(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		if l.maxEntries > 0 && len(l.entries) >= l.maxEntries {
			l.sweepLocked(now)
			if len(l.entries) >= l.maxEntries {
				l.evictOldestLocked()
			}
		}
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}

	e.lastAttempt = now
	return e.limiter.AllowN(now, 1)
}

// Sweep drops keys idle for at least the idle TTL and returns how many went.
func (l *KeyedLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(now)
}

func (l *KeyedLimiter) sweepLocked(now time.Time) int {
	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.lastAttempt) >= l.idleTTL {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

func (l *KeyedLimiter) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true

	for key, e := range l.entries {
		if first || e.lastAttempt.Before(oldest) {
			oldestKey = key
			oldest = e.lastAttempt
			first = false
		}
	}

	if !first {
		delete(l.entries, oldestKey)
	}
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps idle keys every period until ctx is done.
func (l *KeyedLimiter) Run(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = l.idleTTL
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}
