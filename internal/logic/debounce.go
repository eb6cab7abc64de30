package logic

import "time"

// Debouncer turns a noisy boolean line into stable edges.
// A raw level change restarts the settle timer; once the raw level has been
// unchanged for at least the window, it becomes the stable level.
type Debouncer struct {
	window time.Duration
	raw    bool
	stable bool
	since  time.Time
}

// NewDebouncer creates a debouncer whose raw and stable levels start at initial.
func NewDebouncer(window time.Duration, initial bool, now time.Time) *Debouncer {
	return &Debouncer{
		window: window,
		raw:    initial,
		stable: initial,
		since:  now,
	}
}

// Sample feeds one raw reading. It returns an edge exactly once per stable
// level change. now must not go backwards between calls.
func (d *Debouncer) Sample(raw bool, now time.Time) (Edge, bool) {
	if raw != d.raw {
		d.raw = raw
		d.since = now
	}

	if d.raw == d.stable {
		return Edge{}, false
	}

	if now.Sub(d.since) < d.window {
		return Edge{}, false
	}

	d.stable = d.raw
	return Edge{Level: d.stable, Time: now}, true
}

// Stable returns the last debounced level.
func (d *Debouncer) Stable() bool {
	return d.stable
}
