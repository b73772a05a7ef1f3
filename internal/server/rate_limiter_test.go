package server

import (
	"fmt"
	"testing"
	"time"
)

// fakeClock drives the limiter deterministically in tests.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestLimiter(window time.Duration, maxEntries int, retention time.Duration) (*cooldownLimiter, *fakeClock) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	limiter := newCooldownLimiter(window, maxEntries, retention)
	limiter.now = clock.now
	return limiter, clock
}

// TestLimiterCooldownWindow verifies the documented scenario: a fresh
// identity is allowed, refused within the window with a correct
// remaining-seconds readout, and allowed again once the window elapses.
func TestLimiterCooldownWindow(t *testing.T) {
	limiter, clock := newTestLimiter(4*time.Second, 100, time.Hour)

	if !limiter.allow("1.2.3.4") {
		t.Fatal("first contribution from a fresh identity was refused")
	}

	clock.advance(2 * time.Second)
	if limiter.allow("1.2.3.4") {
		t.Error("contribution inside the cooldown window was allowed")
	}
	if got := limiter.secondsRemaining("1.2.3.4"); got != 2 {
		t.Errorf("secondsRemaining = %d, want 2", got)
	}

	clock.advance(3 * time.Second)
	if !limiter.allow("1.2.3.4") {
		t.Error("contribution after the window elapsed was refused")
	}
}

// TestLimiterRefusalDoesNotExtendCooldown verifies that a refused
// attempt leaves the recorded timestamp untouched.
func TestLimiterRefusalDoesNotExtendCooldown(t *testing.T) {
	limiter, clock := newTestLimiter(4*time.Second, 100, time.Hour)

	if !limiter.allow("client") {
		t.Fatal("first contribution refused")
	}

	// Hammer inside the window; none of these may reset the clock.
	for i := 0; i < 3; i++ {
		clock.advance(time.Second)
		if limiter.allow("client") {
			t.Fatalf("contribution at +%ds was allowed", i+1)
		}
	}

	clock.advance(time.Second)
	if !limiter.allow("client") {
		t.Error("contribution at +4s was refused; refusals must not extend the cooldown")
	}
}

// TestLimiterIdentitiesIndependent verifies separate identities have
// separate cooldowns.
func TestLimiterIdentitiesIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(4*time.Second, 100, time.Hour)

	if !limiter.allow("a") {
		t.Error("identity a refused")
	}
	if !limiter.allow("b") {
		t.Error("identity b refused after a was recorded")
	}
	if limiter.allow("a") {
		t.Error("identity a allowed inside its window")
	}
}

// TestLimiterSecondsRemainingCeiling verifies fractional cooldowns round
// up so the wait message never understates the wait.
func TestLimiterSecondsRemainingCeiling(t *testing.T) {
	limiter, clock := newTestLimiter(4*time.Second, 100, time.Hour)

	limiter.allow("client")
	clock.advance(2500 * time.Millisecond)

	if got := limiter.secondsRemaining("client"); got != 2 {
		t.Errorf("secondsRemaining = %d, want ceil(1.5) = 2", got)
	}
	if got := limiter.secondsRemaining("stranger"); got != 0 {
		t.Errorf("secondsRemaining for untracked identity = %d, want 0", got)
	}
}

// TestLimiterEviction verifies that crossing the entry ceiling sweeps
// identities older than the retention period in one pass.
func TestLimiterEviction(t *testing.T) {
	limiter, clock := newTestLimiter(time.Second, 10, time.Minute)

	for i := 0; i < 10; i++ {
		if !limiter.allow(fmt.Sprintf("old-%d", i)) {
			t.Fatalf("identity old-%d refused", i)
		}
	}

	// Everything above is now stale; the next accept crosses the ceiling
	// and triggers the sweep.
	clock.advance(2 * time.Minute)
	if !limiter.allow("fresh") {
		t.Fatal("fresh identity refused")
	}

	if got := limiter.size(); got != 1 {
		t.Errorf("tracked identities after eviction = %d, want 1", got)
	}
}
