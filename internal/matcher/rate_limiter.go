package matcher

import (
	"context"
	"sync"
	"time"
)

// throttle spaces requests to the matching service at a fixed minimum
// interval. Callers reserve a slot under the lock, then sleep outside
// it so waiting goroutines queue in arrival order.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func newThrottle(requestsPerSecond int) *throttle {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &throttle{interval: time.Second / time.Duration(requestsPerSecond)}
}

// wait blocks until the caller's reserved slot arrives or ctx ends.
func (t *throttle) wait(ctx context.Context) error {
	t.mu.Lock()
	slot := time.Now()
	if t.next.After(slot) {
		slot = t.next
	}
	t.next = slot.Add(t.interval)
	t.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
