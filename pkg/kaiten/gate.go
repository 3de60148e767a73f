package kaiten

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum wall-clock interval between request dispatches.
// One Gate is shared by every endpoint of a Client, and it is safe for
// concurrent use: callers queue on the mutex and leave one interval apart.
type Gate struct {
	mu           sync.Mutex
	interval     time.Duration
	lastDispatch time.Time
	now          func() time.Time
}

// NewGate creates a gate with the given minimum interval. Zero disables pacing.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval, now: time.Now}
}

// Wait reserves the next dispatch slot and blocks until it arrives. The
// mutex only guards the reservation, so every queued caller observes its own
// context while sleeping. On cancellation it returns ctx.Err() and gives the
// slot back when no later caller has reserved after it.
func (g *Gate) Wait(ctx context.Context) (time.Time, error) {
	g.mu.Lock()
	prev := g.lastDispatch
	slot := g.now()
	if !prev.IsZero() {
		if next := prev.Add(g.interval); next.After(slot) {
			slot = next
		}
	}
	g.lastDispatch = slot
	g.mu.Unlock()

	if wait := slot.Sub(g.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			g.mu.Lock()
			if g.lastDispatch.Equal(slot) {
				g.lastDispatch = prev
			}
			g.mu.Unlock()
			return time.Time{}, ctx.Err()
		}
	}

	// time.Timer may fire marginally early on some platforms
	for {
		wait := slot.Sub(g.now())
		if wait <= 0 {
			return slot, nil
		}
		time.Sleep(wait)
	}
}

// Interval returns the configured minimum gap.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
