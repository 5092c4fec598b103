package state

import (
	"sync"
	"time"
)

// DefaultDebounce is the delay applied to search input.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays a call until input has been quiet for the configured delay.
// Every Trigger cancels the pending call and restarts the timer.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// NewDebouncer creates a Debouncer. A non-positive delay uses DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, replacing any call still pending.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.pending = fn
	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A later Trigger or Flush has taken over.
		if d.timer != timer {
			d.mu.Unlock()
			return
		}
		call := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()

		if call != nil {
			call()
		}
	})
	d.timer = timer
}

// Flush runs the pending call now, if any. It reports whether a call ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	call := d.pending
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.pending = nil
	d.mu.Unlock()

	if call == nil {
		return false
	}
	call()
	return true
}

// Stop cancels the pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.pending = nil
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
