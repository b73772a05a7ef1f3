// Package server implements a per-identity cooldown limiter that spaces
// out contributions from each client.
package server

import (
	"math"
	"sync"
	"time"
)

// cooldownLimiter tracks the last accepted contribution per client
// identity. An identity may contribute again once the window has elapsed;
// refused attempts leave the record untouched. When the map outgrows its
// ceiling, entries older than the retention period are swept in one pass.
// The sweep is a memory bound, not a correctness requirement.
type cooldownLimiter struct {
	mu         sync.Mutex
	window     time.Duration
	maxEntries int
	retention  time.Duration
	lastSeen   map[string]time.Time
	now        func() time.Time
}

func newCooldownLimiter(window time.Duration, maxEntries int, retention time.Duration) *cooldownLimiter {
	if window <= 0 {
		window = 3 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if retention <= 0 {
		retention = time.Hour
	}

	return &cooldownLimiter{
		window:     window,
		maxEntries: maxEntries,
		retention:  retention,
		lastSeen:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// allow reports whether the identity may contribute now, and records the
// acceptance time when it may. The first call for a fresh identity always
// succeeds.
func (l *cooldownLimiter) allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.lastSeen[identity]; ok && now.Sub(last) < l.window {
		return false
	}
	l.lastSeen[identity] = now

	if len(l.lastSeen) > l.maxEntries {
		l.evict(now)
	}
	return true
}

// secondsRemaining reports the ceiling of the identity's leftover
// cooldown, for the user-facing wait message. Zero means the identity may
// contribute now.
func (l *cooldownLimiter) secondsRemaining(identity string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.lastSeen[identity]
	if !ok {
		return 0
	}
	remaining := l.window - l.now().Sub(last)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

// evict removes every entry older than the retention period. Caller holds
// the lock.
func (l *cooldownLimiter) evict(now time.Time) {
	for identity, last := range l.lastSeen {
		if now.Sub(last) >= l.retention {
			delete(l.lastSeen, identity)
		}
	}
}

// size reports how many identities are currently tracked.
func (l *cooldownLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lastSeen)
}
