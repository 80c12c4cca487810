package throttle

import (
	"fmt"
	"time"
)

// Cooldown gates repeated actions per key with a minimum interval.
type Cooldown struct {
	store Store
	now   func() time.Time
}

// NewCooldown returns a Cooldown over store using the wall clock.
func NewCooldown(store Store) *Cooldown {
	return NewCooldownWithNow(store, time.Now)
}

// NewCooldownWithNow is NewCooldown with an injectable clock.
func NewCooldownWithNow(store Store, now func() time.Time) *Cooldown {
	return &Cooldown{store: store, now: now}
}

// Key builds the cooldown key for an alert type on a machine.
func Key(alertType, machineID string) string {
	return fmt.Sprintf("%s:%s", alertType, machineID)
}

// Acquire stamps key and reports true when key is not cooling down. The
// returned stamp undoes the claim when passed to Release.
func (c *Cooldown) Acquire(key string, window time.Duration) (time.Time, bool) {
	at := c.now()
	return at, c.store.Claim(key, at, window)
}

// Release gives back a claim taken by Acquire at at, unless key has been
// claimed again since.
func (c *Cooldown) Release(key string, at time.Time) {
	c.store.Release(key, at)
}

// Now exposes the cooldown's clock so callers stamp and compare consistently.
func (c *Cooldown) Now() time.Time { return c.now() }
