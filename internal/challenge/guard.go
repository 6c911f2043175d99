// Package challenge implements the client side of the don't-laugh
// challenge: the capture/classify sampling loop, the session state machine,
// event recording and the recommendation poller.
package challenge

import (
	"sync"
	"sync/atomic"
	"time"
)

// Guard is an atomic check-and-set flag. The sampler uses it to keep at
// most one classify request in flight: ticks that fire while a request is
// outstanding are dropped, not queued.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire claims the guard. It returns false if it is already held.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// Cooldown suppresses repeat detections for a window after a positive one,
// so a single sustained laugh does not split into multiple events. It gates
// only the detection decision, never the sampling itself.
type Cooldown struct {
	mu    sync.Mutex
	until time.Time
}

// Active reports whether the cooldown window is still open.
func (c *Cooldown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Before(c.until)
}

// TryArm atomically checks the window and arms a new one. It returns false
// if a window is already open, guaranteeing at most one detection per
// window under concurrent samples.
func (c *Cooldown) TryArm(d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Before(c.until) {
		return false
	}
	c.until = now.Add(d)
	return true
}
