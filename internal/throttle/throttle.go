// Package throttle implements time-window throttles keyed by string: a
// sliding-window request limiter and a cooldown gate. State lives behind the
// Store interface so a shared cache can back it in a multi-instance setup.
package throttle

import (
	"sync"
	"time"
)

// Store keeps per-key timestamps. Implementations must be safe for concurrent use.
type Store interface {
	// Hit discards key's entries at or before t-window and, when fewer than
	// limit remain, appends t. It reports whether t was recorded and, when it
	// was not, how long until the oldest entry leaves the window.
	Hit(key string, t time.Time, window time.Duration, limit int) (bool, time.Duration)
	// Claim stamps key with t unless it already holds a stamp newer than
	// t-window. It reports whether the stamp was taken.
	Claim(key string, t time.Time, window time.Duration) bool
	// Release drops key's stamp if it is still t.
	Release(key string, t time.Time)
	// Sweep drops keys whose newest entry is at or before cutoff.
	Sweep(cutoff time.Time) int
}

// MemoryStore is the process-local Store. It resets on restart.
type MemoryStore struct {
	mu   sync.Mutex
	logs map[string][]time.Time
	last map[string]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs: make(map[string][]time.Time),
		last: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Hit(key string, t time.Time, window time.Duration, limit int) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := trim(m.logs[key], t.Add(-window))
	if len(log) >= limit {
		m.logs[key] = log
		return false, log[len(log)-limit].Add(window).Sub(t)
	}
	m.logs[key] = append(log, t)
	return true, 0
}

func (m *MemoryStore) Claim(key string, t time.Time, window time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.last[key]; ok && t.Sub(last) < window {
		return false
	}
	m.last[key] = t
	return true
}

func (m *MemoryStore) Release(key string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.last[key]; ok && last.Equal(t) {
		delete(m.last, key)
	}
}

func (m *MemoryStore) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key, log := range m.logs {
		if len(log) == 0 || !log[len(log)-1].After(cutoff) {
			delete(m.logs, key)
			n++
		}
	}
	for key, t := range m.last {
		if !t.After(cutoff) {
			delete(m.last, key)
			n++
		}
	}
	return n
}

// trim drops leading entries at or before cutoff. log is sorted ascending.
func trim(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0], log[i:]...)
}
