// Package session implements the operator-driven monitoring lifecycle:
// Idle -> Starting -> Running -> Stopping -> Idle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketwatch/internal/market"
	"marketwatch/internal/monitor"
	"marketwatch/internal/render"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrInvalidTransition = errors.New("invalid session transition")

// Runner is the combined discovery and polling loop.
type Runner interface {
	Run(ctx context.Context, fetcher market.PageFetcher, stop *monitor.StopFlag) error
}

// ReferenceStarter starts the reference feed if it is not running yet.
type ReferenceStarter interface {
	Start(ctx context.Context) bool
}

type Invalidator interface {
	Invalidate() int
}

type Status struct {
	State     State     `json:"-"`
	StateName string    `json:"state"`
	RunID     string    `json:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

type Session struct {
	mu        sync.Mutex
	state     State
	runID     string
	startedAt time.Time
	lastErr   error
	stop      *monitor.StopFlag
	done      chan struct{}
	onChange  []func(Status)

	baseCtx    context.Context
	factory    market.FetcherFactory
	runner     Runner
	reference  ReferenceStarter
	highlights Invalidator
	out        render.Dispatcher
	logger     *zap.Logger
}

// New creates an idle session. baseCtx bounds every run and the reference
// feed; cancelling it ends a running session.
func New(
	baseCtx context.Context,
	factory market.FetcherFactory,
	runner Runner,
	reference ReferenceStarter,
	highlights Invalidator,
	out render.Dispatcher,
	logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	close(done)
	return &Session{
		state:      Idle,
		done:       done,
		baseCtx:    baseCtx,
		factory:    factory,
		runner:     runner,
		reference:  reference,
		highlights: highlights,
		out:        out,
		logger:     logger.Named("session"),
	}
}

// OnChange registers fn to be called after every state transition.
func (s *Session) OnChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Start acquires a page fetcher and launches the monitor loop. It blocks
// only for fetcher acquisition. A failure returns the session to Idle and is
// returned as a *market.DriverInitError; there is no automatic retry.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, st)
	}
	s.state = Starting
	s.runID = uuid.NewString()
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("starting session", zap.String("run_id", s.Status().RunID))
	s.announce("starting monitor...")

	fetcher, err := s.factory(ctx)
	if err != nil {
		var die *market.DriverInitError
		if !errors.As(err, &die) {
			err = &market.DriverInitError{Err: err}
		}
		s.mu.Lock()
		s.state = Idle
		s.lastErr = err
		s.mu.Unlock()

		s.logger.Error("page fetcher init failed", zap.Error(err))
		s.announce("driver init failed: " + err.Error())
		return err
	}

	stop := monitor.NewStopFlag()
	done := make(chan struct{})

	s.mu.Lock()
	s.state = Running
	s.startedAt = time.Now()
	s.stop = stop
	s.done = done
	s.mu.Unlock()

	// State is rebuilt from scratch on every session.
	s.highlights.Invalidate()
	if s.reference != nil && s.reference.Start(s.baseCtx) {
		s.logger.Info("reference feed started")
	}

	s.announce("monitoring")
	go s.run(fetcher, stop, done)
	return nil
}

func (s *Session) run(fetcher market.PageFetcher, stop *monitor.StopFlag, done chan struct{}) {
	err := s.runner.Run(s.baseCtx, fetcher, stop)
	if cerr := fetcher.Close(); cerr != nil {
		s.logger.Warn("closing page fetcher", zap.Error(cerr))
	}

	defer close(done)

	s.mu.Lock()
	s.state = Idle
	s.stop = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		s.lastErr = err
	}
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("monitor loop ended", zap.Error(err))
	} else {
		s.logger.Info("session stopped")
	}
	s.announce("stopped")
}

// Stop sets the stop flag. The loop finishes its current item and releases
// the fetcher; use Wait to block until the session is Idle.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != Running {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: stop while %s", ErrInvalidTransition, st)
	}
	s.state = Stopping
	stop := s.stop
	s.mu.Unlock()

	stop.Stop()
	s.logger.Info("stopping session")
	s.announce("stopping...")
	return nil
}

// Wait blocks until the current run (if any) has ended or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	st := Status{State: s.state, StateName: s.state.String(), RunID: s.runID}
	if s.state == Running || s.state == Stopping {
		st.StartedAt = s.startedAt
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// announce renders text on the status line and notifies listeners.
func (s *Session) announce(text string) {
	if err := s.out.Dispatch(render.StatusCommand{Text: text}); err != nil {
		s.logger.Debug("dropping status", zap.Error(err))
	}

	s.mu.Lock()
	st := s.statusLocked()
	fns := append([]func(Status){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
