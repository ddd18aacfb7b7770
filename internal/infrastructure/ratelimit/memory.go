// Package ratelimit provides the in-process sliding-window counter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a sliding-log counter. Every admitted request stores its
// timestamp; a request is admitted while fewer than limit timestamps fall
// inside the trailing window. All keys share one mutex, so check-and-record
// is atomic per key.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*entry
	now     func() time.Time
	sweeps  int
}

// entry is the hit log of one key and the window it was last counted under.
type entry struct {
	hits   []time.Time
	window time.Duration
}

// NewMemory returns an empty counter.
func NewMemory() *Memory {
	return &Memory{windows: make(map[string]*entry), now: time.Now}
}

// sweepEvery bounds how often idle keys are dropped.
const sweepEvery = 1024

// Allow implements ports.WindowCounter.
func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := m.now()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.windows[key]
	if !ok {
		e = &entry{}
		m.windows[key] = e
	}
	e.window = window
	e.hits = prune(e.hits, cutoff)
	if len(e.hits) >= limit {
		return false, nil
	}
	e.hits = append(e.hits, now)

	m.sweeps++
	if m.sweeps >= sweepEvery {
		m.sweeps = 0
		m.sweep(now)
	}
	return true, nil
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// sweep drops keys whose newest hit has left that key's own window.
// Must hold m.mu.
func (m *Memory) sweep(now time.Time) {
	for k, e := range m.windows {
		if len(e.hits) == 0 || !e.hits[len(e.hits)-1].After(now.Add(-e.window)) {
			delete(m.windows, k)
		}
	}
}

// prune drops timestamps at or before cutoff. hits is sorted ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
