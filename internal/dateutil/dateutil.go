// Package dateutil derives the calendar-day key that selects the daily
// documents (the planner page and the to-do visibility window) and watches
// for the key changing while the app stays open.
package dateutil

import (
	"context"
	"time"
)

// KeyLayout is the date key wire format, e.g. "2024-01-02".
const KeyLayout = "2006-01-02"

// timeNow is a test seam.
var timeNow = time.Now

// DayKey returns the date key for t in t's location.
func DayKey(t time.Time) string {
	return t.Format(KeyLayout)
}

// Today returns the date key for the current local time.
func Today() string {
	return DayKey(timeNow())
}

// Watcher emits the new day key when the local calendar date advances.
// Minute granularity is sufficient: the consumer only swaps a subscription.
type Watcher struct {
	interval time.Duration
	ch       chan string
}

// NewWatcher returns a Watcher checking the date at the given interval.
// A zero interval defaults to one minute.
func NewWatcher(interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{interval: interval, ch: make(chan string, 1)}
}

// Days returns the channel of day-boundary events.
func (w *Watcher) Days() <-chan string {
	return w.ch
}

// Run polls until ctx is done, sending the new key once per date change.
// The send is non-blocking: a consumer that lags only cares about the
// latest key, which the next tick delivers again.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := Today()
	for {
		select {
		case <-ticker.C:
			if key := Today(); key != last {
				last = key
				select {
				case w.ch <- key:
				default:
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
