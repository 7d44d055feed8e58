// Package clock abstracts time for components that schedule retries and
// record timestamps.
//
// Design decision: We inject a small clock interface instead of calling
// time.Now/time.After directly because:
// 1. Retry backoff tests become deterministic (no real sleeps)
// 2. Run timestamps can be pinned in finalize-idempotency tests
// 3. The production implementation stays a trivial passthrough
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock provides the time operations used by the fetcher and the
// checkpoint store.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that delivers the current time once the
	// given duration has elapsed.
	After(d time.Duration) <-chan time.Time
}

// System is the production clock backed by the time package.
type System struct{}

// NewSystem returns the real-time clock.
func NewSystem() *System {
	return &System{}
}

// Now returns time.Now().
func (*System) Now() time.Time {
	return time.Now()
}

// After returns time.After(d).
func (*System) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Manual is a test clock whose time only moves when Advance is called.
// Timers created by After fire when the manual time passes their deadline.
// Safe for concurrent use.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	deadline time.Time
	ch       chan time.Time
}

// NewManual returns a Manual clock starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After registers a timer firing once Advance moves the clock past d.
// A non-positive duration fires immediately.
func (m *Manual) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	deadline := m.now.Add(d)
	if d <= 0 {
		ch <- m.now
		return ch
	}
	m.timers = append(m.timers, &manualTimer{deadline: deadline, ch: ch})
	return ch
}

// Advance moves the clock forward and fires every timer whose deadline
// has been reached, in deadline order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)

	sort.Slice(m.timers, func(i, j int) bool {
		return m.timers[i].deadline.Before(m.timers[j].deadline)
	})

	remaining := m.timers[:0]
	for _, t := range m.timers {
		if !t.deadline.After(m.now) {
			t.ch <- m.now
			continue
		}
		remaining = append(remaining, t)
	}
	m.timers = remaining
}

// PendingTimers reports how many timers have not fired yet.
// Tests use this to wait until a goroutine has reached its backoff sleep.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
