package wallet

import (
	"sync"
	"time"

	"meshwallet/exception"
)

// debouncer coalesces bursts of triggers per key into one callback after a
// quiet window. It replaces closure-captured timers with an explicit table so
// an account's pending timers can be cancelled when the account is removed.
type debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger schedules fn after the quiet window, replacing any pending timer
// for the same key. Only the last fn of a burst runs.
func (d *debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()

		exception.SafeGo("debounce:"+key, fn)
	})
}

// Cancel drops the pending timer for a key, if any
func (d *debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
		delete(d.timers, key)
	}
}

// CancelAll drops every pending timer
func (d *debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
