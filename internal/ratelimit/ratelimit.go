// Package ratelimit admits job creation per client IP over a sliding window.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks request timestamps per key and rejects keys exceeding the
// per-window maximum.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	history map[string][]time.Time
	now     func() time.Time
}

// New constructs a Limiter allowing max requests per window for each key.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		window:  window,
		max:     max,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records an attempt for key and reports whether it is admitted. When
// denied, retryAfter is how long until the oldest attempt ages out of the
// window.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.history[key][:0]
	for _, t := range l.history[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.history[key] = recent
		return false, recent[0].Sub(cutoff)
	}

	l.history[key] = append(recent, now)
	return true, 0
}

// Prune drops keys with no recent activity; call periodically to bound
// memory on long-running processes.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for key, times := range l.history {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.history, key)
		}
	}
}
