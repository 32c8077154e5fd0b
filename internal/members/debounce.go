package members

import (
	"sync"
	"time"
)

// Debouncer runs the latest scheduled function once input has been quiet
// for the configured delay. Scheduling again supersedes the pending call.
type Debouncer struct {
	delay time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

// NewDebouncer creates a trailing-edge debouncer.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule replaces any pending call with fn. fn receives a check that
// reports whether it is still the newest scheduled call, so long-running
// work can drop stale results before publishing.
func (d *Debouncer) Schedule(fn func(current func() bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation

	d.timer = time.AfterFunc(d.delay, func() {
		fn(func() bool { return d.isCurrent(gen) })
	})
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
}

func (d *Debouncer) isCurrent(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation == gen
}
