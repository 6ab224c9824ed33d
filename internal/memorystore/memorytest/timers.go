// Package memorytest provides a manually driven timer source for tests.
package memorytest

import (
	"sort"
	"sync"
	"time"

	"marketwatch/internal/memorystore"
)

// ManualTimers is an AfterFunc whose clock only moves on Advance.
type ManualTimers struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	owner   *ManualTimers
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// After satisfies memorystore.AfterFunc.
func (m *ManualTimers) After(d time.Duration, f func()) memorystore.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{owner: m, at: m.now + d, fn: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward and runs due callbacks in deadline order
// on the calling goroutine.
func (m *ManualTimers) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired && t.at <= m.now {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

// Active returns the number of timers neither fired nor stopped.
func (m *ManualTimers) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
