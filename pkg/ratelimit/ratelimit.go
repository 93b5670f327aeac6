// Package ratelimit implements an in-memory per-key token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	tokens    float64
	lastCheck time.Time
}

// Limiter gives every key limit tokens per window, refilled continuously.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   int
	window  time.Duration
	now     func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entry{tokens: float64(l.limit - 1), lastCheck: now}
		return l.limit > 0
	}

	rate := float64(l.limit) / l.window.Seconds()
	e.tokens += now.Sub(e.lastCheck).Seconds() * rate
	e.lastCheck = now
	if e.tokens > float64(l.limit) {
		e.tokens = float64(l.limit)
	}
	if e.tokens < 1 {
		return false
	}
	e.tokens--
	return true
}

// RetryAfter is how long an exhausted key waits for its next token.
func (l *Limiter) RetryAfter() time.Duration {
	if l.limit <= 0 {
		return l.window
	}
	return l.window / time.Duration(l.limit)
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Run evicts keys idle for two windows every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *Limiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	evicted := 0
	for key, e := range l.entries {
		if e.lastCheck.Before(cutoff) {
			delete(l.entries, key)
			evicted++
		}
	}
	return evicted
}
