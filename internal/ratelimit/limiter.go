package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store is a fixed-window admission counter. Allow reports the remaining
// budget for the key in the current window; a non-zero retryAfter means the
// request was rejected and the caller should retry after that duration.
type Store interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (remaining int, retryAfter time.Duration, err error)
}

// Policy is one admission rule layered over a Store.
type Policy struct {
	Max    int           `yaml:"max" env-default:"5"`
	Window time.Duration `yaml:"window" env-default:"60s"`
}

type entry struct {
	count       int
	windowStart time.Time
}

// Limiter is the in-memory Store for single-instance deployments. The
// whole table sits behind one mutex so the rollover check and the
// increment are atomic per key.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
	}
}

func (l *Limiter) Allow(_ context.Context, key string, max int, window time.Duration) (int, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{windowStart: now}
		l.entries[key] = e
	}

	// Lazy rollover: no timer resets windows, the next request does.
	if now.Sub(e.windowStart) > window {
		e.count = 0
		e.windowStart = now
	}

	if e.count >= max {
		retryAfter := window - now.Sub(e.windowStart)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return 0, retryAfter, nil
	}

	e.count++
	return max - e.count, 0, nil
}

// Cleanup drops entries whose window start is older than maxAge, bounding
// table growth under many distinct keys.
func (l *Limiter) Cleanup(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, e := range l.entries {
		if now.Sub(e.windowStart) >= maxAge {
			delete(l.entries, key)
		}
	}
}

// Run sweeps expired entries until the context is cancelled.
func (l *Limiter) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup(maxAge)
		}
	}
}
