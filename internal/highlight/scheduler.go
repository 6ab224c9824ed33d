// Package highlight manages the transient "changed" style of grid cells.
package highlight

import (
	"sync"
	"time"

	"marketwatch/internal/memorystore"
	"marketwatch/internal/render"

	"go.uber.org/zap"
)

type cellValue struct {
	label     string
	priceText string
}

// Scheduler turns price observations into SetCell/RestoreCell commands and
// owns the decay timer of every highlighted cell.
type Scheduler struct {
	mu     sync.Mutex
	decay  time.Duration
	timers *memorystore.TimerStore
	out    render.Dispatcher
	cells  map[render.Cell]cellValue
	logger *zap.Logger
}

func New(decay time.Duration, timers *memorystore.TimerStore, out render.Dispatcher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timers == nil {
		timers = memorystore.NewTimerStore(nil)
	}
	return &Scheduler{
		decay:  decay,
		timers: timers,
		out:    out,
		cells:  make(map[render.Cell]cellValue),
		logger: logger.Named("highlight"),
	}
}

// OnUpdate renders the latest value of cell. A change is shown highlighted
// and (re)arms the cell's decay timer; an unchanged value keeps whatever
// style the cell has and leaves its timer alone.
func (s *Scheduler) OnUpdate(cell render.Cell, label, priceText string, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cells[cell] = cellValue{label: label, priceText: priceText}

	if !changed {
		s.dispatch(render.SetCellCommand{
			Cell:        cell,
			Label:       label,
			PriceText:   priceText,
			Highlighted: s.timers.IsPending(cell),
		})
		return
	}

	s.dispatch(render.SetCellCommand{Cell: cell, Label: label, PriceText: priceText, Highlighted: true})
	s.timers.Arm(cell, s.decay, s.expire)
}

// Invalidate cancels every pending timer and forgets cell values. It must be
// called whenever the cell-to-market binding changes.
func (s *Scheduler) Invalidate() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.timers.CancelAll()
	s.cells = make(map[render.Cell]cellValue)
	if n > 0 {
		s.logger.Debug("invalidated pending highlights", zap.Int("count", n))
	}
	return n
}

// Pending returns the number of highlighted cells awaiting restore.
func (s *Scheduler) Pending() int {
	return s.timers.Pending()
}

func (s *Scheduler) expire(cell render.Cell, token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.timers.Expire(cell, token) {
		return
	}
	v, ok := s.cells[cell]
	if !ok {
		return
	}
	s.dispatch(render.RestoreCellCommand{Cell: cell, Label: v.label, PriceText: v.priceText})
}

func (s *Scheduler) dispatch(cmd render.Command) {
	if err := s.out.Dispatch(cmd); err != nil {
		s.logger.Debug("dropping render command", zap.String("kind", cmd.Kind()), zap.Error(err))
	}
}
