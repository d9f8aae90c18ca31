package config

import (
	"sync"
	"time"
)

// debouncer delays a function until a quiet period has elapsed. Repeated
// trigger() calls within the delay window reset the timer so the function
// runs once after activity stops.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{
		delay: delay,
		fn:    fn,
	}
}

// trigger resets the debounce timer.
func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()

	if !stopped {
		d.fn()
	}
}

// stop cancels any pending execution and ignores future triggers.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
