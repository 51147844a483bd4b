// Package debounce coalesces bursts of input into a single call.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet window used when none is given.
const DefaultDelay = 300 * time.Millisecond

// Debouncer delays fn until Trigger has not been called for the quiet window,
// then calls it once with the last value. Calls to fn never overlap.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	gen     uint64
	pending bool
	value   T
	stopped bool

	// run serializes fn. It is taken before mu, never after.
	run sync.Mutex
}

// New creates a debouncer. A non-positive delay uses DefaultDelay.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records v and restarts the quiet window. A previously scheduled
// call is cancelled.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.gen++
	d.value = v
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs fn if gen is still the latest schedule. Stop may lose the race
// against an expiring timer; the generation check drops the stale call.
// The check is made while holding run, so a timer that expired while another
// call was running cannot deliver its value after a newer one.
func (d *Debouncer[T]) fire(gen uint64) {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.mu.Unlock()

	d.fn(v)
}

// Flush runs a pending call now instead of waiting for the quiet window.
// It reports whether a call was made.
func (d *Debouncer[T]) Flush() bool {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	v := d.value
	d.pending = false
	d.mu.Unlock()

	d.fn(v)
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending call. Later Triggers are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
}
