package render

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrQueueClosed = errors.New("render queue closed")

// Dispatcher accepts commands from workers.
type Dispatcher interface {
	Dispatch(cmd Command) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(Command) error

func (f DispatcherFunc) Dispatch(cmd Command) error { return f(cmd) }

// Queue is the single serialization point between workers and the Renderer.
// Any goroutine may Dispatch; exactly one goroutine runs Run and applies
// commands in receipt order.
type Queue struct {
	ch     chan Command
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func NewQueue(size int, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size < 1 {
		size = 1
	}
	return &Queue{
		ch:     make(chan Command, size),
		done:   make(chan struct{}),
		logger: logger.Named("render"),
	}
}

// Dispatch enqueues cmd, blocking while the buffer is full.
func (q *Queue) Dispatch(cmd Command) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- cmd:
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

// Close stops accepting commands. Run drains what is already buffered.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Run applies commands to r until ctx is cancelled or the queue is closed.
// A renderer error is logged and does not stop the consumer.
func (q *Queue) Run(ctx context.Context, r Renderer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-q.ch:
			q.apply(r, cmd)
		case <-q.done:
			for {
				select {
				case cmd := <-q.ch:
					q.apply(r, cmd)
				default:
					return nil
				}
			}
		}
	}
}

func (q *Queue) apply(r Renderer, cmd Command) {
	if err := cmd.Apply(r); err != nil {
		q.logger.Warn("render command failed", zap.String("kind", cmd.Kind()), zap.Error(err))
	}
}
