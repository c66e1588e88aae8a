package capture

import (
	"context"
	"time"
)

// backoff implements the reconnect policy: starts at 5s, doubles to a
// ceiling of 60s, resets to 5s on a successful open. The wait is polled
// in small slices so a stop signal interrupts it promptly.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{
		initial: 5 * time.Second,
		max:     60 * time.Second,
		current: 5 * time.Second,
	}
}

// reset returns the backoff to its initial value after a successful open.
func (b *backoff) reset() { b.current = b.initial }

// next doubles the current backoff, capped at max, and returns the value
// to wait before the next attempt.
func (b *backoff) next() time.Duration {
	wait := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return wait
}

// wait blocks for d, polling ctx.Done() every pollInterval (<=200ms) so
// shutdown interrupts the wait promptly. Returns false if the context
// was cancelled before d elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	const pollInterval = 200 * time.Millisecond

	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := pollInterval
		if remaining < step {
			step = remaining
		}
		t := time.NewTimer(step)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}
