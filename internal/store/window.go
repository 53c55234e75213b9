package store

import (
	"sync"
	"time"
)

// Window is a sliding-window counter: at most max events may fall within the
// trailing size ending at now. It is shared by every sender.
type Window struct {
	mu     sync.Mutex
	size   time.Duration
	max    int
	events []time.Time
}

func NewWindow(size time.Duration, max int) *Window {
	return &Window{
		size:   size,
		max:    max,
		events: make([]time.Time, 0, max),
	}
}

// Reserve admits and records an event at now, or reports false when the
// window is full.
func (w *Window) Reserve(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	if len(w.events) >= w.max {
		return false
	}
	w.events = append(w.events, now)
	return true
}

// Release gives back a reservation made at t whose event did not happen.
func (w *Window) Release(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := len(w.events) - 1; i >= 0; i-- {
		if w.events[i].Equal(t) {
			w.events = append(w.events[:i], w.events[i+1:]...)
			return
		}
	}
}

// Seed records events that happened before this process started.
func (w *Window) Seed(events []time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = append(w.events, events...)
}

func (w *Window) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return len(w.events)
}

func (w *Window) Size() time.Duration {
	return w.size
}

// events are not kept sorted: callers read the clock before taking the lock.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.size)
	kept := w.events[:0]
	for _, event := range w.events {
		if !event.Before(cutoff) {
			kept = append(kept, event)
		}
	}
	w.events = kept
}
