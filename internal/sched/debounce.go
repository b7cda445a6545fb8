// Package sched provides the debounce-then-flush write scheduling shared
// by the draft cache and the remote syncer. Each mutation resets a pending
// timer; only the timer's eventual fire performs the write, so overlapping
// windows coalesce into one write of the latest snapshot.
package sched

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Trigger calls into single flush callbacks.
// The callback always receives the most recent snapshot; intermediate
// states are never separately persisted.
type Debouncer[T any] struct {
	window time.Duration
	flush  func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	latest  T
	stopped bool
}

// NewDebouncer creates a debouncer that calls flush with the latest
// snapshot once window has elapsed without another trigger.
func NewDebouncer[T any](window time.Duration, flush func(T)) *Debouncer[T] {
	return &Debouncer[T]{window: window, flush: flush}
}

// Trigger records a new snapshot and resets the pending timer.
func (d *Debouncer[T]) Trigger(snapshot T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.latest = snapshot
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	snapshot := d.latest
	d.pending = false
	d.mu.Unlock()

	d.flush(snapshot)
}

// Flush performs a synchronous best-effort write of any pending snapshot,
// bypassing the timer. Used on visibility loss and shutdown, where waiting
// for the timer cannot be guaranteed.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	snapshot := d.latest
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.flush(snapshot)
}

// Cancel drops the pending snapshot without stopping the debouncer.
// Used when a synchronous write has already persisted the same state.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Stop cancels any pending timer and ignores further triggers. In-flight
// flush callbacks are not aborted; orphaned writes are harmless.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
