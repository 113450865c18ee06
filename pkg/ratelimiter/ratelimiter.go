// Package ratelimiter implements a per-key sliding window limiter with an optional
// global token bucket on top of it.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultLimit  = 15
	DefaultWindow = 60 * time.Second
)

type Opts struct {
	// Limit is how many requests a key may make within Window.
	Limit  int
	Window time.Duration
	// GlobalLimit is requests per second across all keys, 0 disables it.
	GlobalLimit int

	// Now overrides the clock, used by tests.
	Now func() time.Time
}

type Ratelimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string][]time.Time
	lastSweep time.Time

	globalRatelimit *rate.Limiter
}

func NewRatelimiter(opts Opts) *Ratelimiter {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	rl := &Ratelimiter{
		limit:   opts.Limit,
		window:  opts.Window,
		now:     opts.Now,
		windows: make(map[string][]time.Time),
	}
	if opts.GlobalLimit > 0 {
		rl.globalRatelimit = rate.NewLimiter(rate.Limit(opts.GlobalLimit), opts.GlobalLimit)
	}
	rl.lastSweep = rl.now()

	return rl
}

// Allow records a request for key and reports whether it fits into the window.
// Denied requests are not recorded.
func (rl *Ratelimiter) Allow(ctx context.Context, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.maybeSweep(now)

	stamps := rl.prune(key, now)
	if len(stamps) >= rl.limit {
		slog.DebugContext(ctx, "per user ratelimit exceeded", "key", key, "count", len(stamps))
		return false
	}

	rl.windows[key] = append(stamps, now)
	return true
}

// RetryAfter reports how long key has to wait before Allow can succeed again.
func (rl *Ratelimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	stamps := rl.prune(key, now)
	if len(stamps) < rl.limit {
		return 0
	}
	// the oldest stamp that has to expire to free one slot
	oldest := stamps[len(stamps)-rl.limit]
	return oldest.Add(rl.window).Sub(now)
}

// Wait blocks until the global bucket has a token or ctx is done.
func (rl *Ratelimiter) Wait(ctx context.Context) error {
	if rl.globalRatelimit == nil {
		return nil
	}
	if err := rl.globalRatelimit.Wait(ctx); err != nil {
		slog.WarnContext(ctx, "cancelled while waiting for global ratelimit quota", "error", err)
		return err
	}
	return nil
}

// Len returns the number of keys currently tracked.
func (rl *Ratelimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// prune drops expired stamps of key and deletes the key once nothing is left.
// Must be called with mu held.
func (rl *Ratelimiter) prune(key string, now time.Time) []time.Time {
	stamps, ok := rl.windows[key]
	if !ok {
		return nil
	}

	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == len(stamps) {
		delete(rl.windows, key)
		return nil
	}
	if i > 0 {
		stamps = append(stamps[:0], stamps[i:]...)
		rl.windows[key] = stamps
	}
	return stamps
}

// maybeSweep reclaims idle keys, at most once per window. Must be called with mu held.
func (rl *Ratelimiter) maybeSweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	for key := range rl.windows {
		rl.prune(key, now)
	}
}
