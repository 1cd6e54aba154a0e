// Package ratelimit bounds how often an actor may trigger a side-effecting
// action inside a rolling window. Counters live in process memory behind a
// mutex; the contract survives a move to an external atomic counter store.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow increments the actor's counter and reports whether the action is
// still within budget. The window starts at the first increment and resets
// once span has elapsed since then. Rejected calls increment too.
func (l *Limiter) Allow(actorKey string, max int, span time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[actorKey]
	if w == nil || now.Sub(w.start) >= span {
		w = &window{start: now}
		l.windows[actorKey] = w
	}
	w.count++
	return w.count <= max
}
