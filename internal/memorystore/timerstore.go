package memorystore

import (
	"sync"
	"time"

	"marketwatch/internal/render"
)

// Timer is a cancelable pending callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via RealAfter.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfter schedules on the runtime timer heap.
func RealAfter(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type pendingTimer struct {
	timer Timer
	token uint64
}

// TimerStore keeps at most one pending timer per cell. Arming a cell that
// already has a timer cancels the old one; a stale callback that was already
// in flight is recognised by its token and ignored by Expire.
type TimerStore struct {
	mu     sync.Mutex
	timers map[render.Cell]pendingTimer
	next   uint64
	after  AfterFunc
}

func NewTimerStore(after AfterFunc) *TimerStore {
	if after == nil {
		after = RealAfter
	}
	return &TimerStore{
		timers: make(map[render.Cell]pendingTimer),
		after:  after,
	}
}

// Arm (re)starts the timer for cell. fn receives the token to pass to Expire.
func (s *TimerStore) Arm(cell render.Cell, d time.Duration, fn func(cell render.Cell, token uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[cell]; ok {
		old.timer.Stop()
	}

	s.next++
	token := s.next
	t := s.after(d, func() { fn(cell, token) })
	s.timers[cell] = pendingTimer{timer: t, token: token}
	return token
}

// Expire consumes the pending timer for cell if token is still current.
// It returns false for cancelled or superseded timers.
func (s *TimerStore) Expire(cell render.Cell, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.timers[cell]
	if !ok || p.token != token {
		return false
	}
	delete(s.timers, cell)
	return true
}

func (s *TimerStore) Cancel(cell render.Cell) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.timers[cell]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.timers, cell)
	return true
}

// CancelAll drops every pending timer and returns how many there were.
func (s *TimerStore) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.timers)
	for cell, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, cell)
	}
	return n
}

func (s *TimerStore) IsPending(cell render.Cell) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[cell]
	return ok
}

func (s *TimerStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
