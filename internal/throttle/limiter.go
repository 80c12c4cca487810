package throttle

import (
	"time"
)

// Limiter is a per-key sliding-window request limiter.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewLimiter allows limit requests per key within any window-long interval.
func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return NewLimiterWithNow(store, limit, window, time.Now)
}

// NewLimiterWithNow is NewLimiter with an injectable clock.
func NewLimiterWithNow(store Store, limit int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{store: store, limit: limit, window: window, now: now}
}

// Allow reports whether a request from key may proceed, and if not, how long
// the caller should wait before retrying. Rejected requests are not recorded.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l.limit <= 0 || l.window <= 0 {
		return true, 0
	}
	return l.store.Hit(key, l.now(), l.window, l.limit)
}

// Window returns the configured window.
func (l *Limiter) Window() time.Duration { return l.window }

// Sweep drops keys that have been idle for a whole window.
func (l *Limiter) Sweep() int {
	return l.store.Sweep(l.now().Add(-l.window))
}
