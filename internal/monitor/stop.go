package monitor

import (
	"sync"
	"sync/atomic"
)

// StopFlag is the shared stop signal of one session. Workers poll Stopped at
// the top of every iteration and between items; Done lets them wake from a
// wait. An in-flight fetch is not aborted.
type StopFlag struct {
	stopped atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func NewStopFlag() *StopFlag {
	return &StopFlag{done: make(chan struct{})}
}

func (s *StopFlag) Stop() {
	s.once.Do(func() {
		s.stopped.Store(true)
		close(s.done)
	})
}

func (s *StopFlag) Stopped() bool { return s.stopped.Load() }

func (s *StopFlag) Done() <-chan struct{} { return s.done }
