// Package rendertest provides in-memory render fakes for tests.
package rendertest

import (
	"sync"

	"marketwatch/internal/render"
)

// Recorder is a Renderer and Dispatcher that keeps every command it sees.
type Recorder struct {
	mu       sync.Mutex
	commands []render.Command
	notify   chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1024)}
}

func (r *Recorder) Dispatch(cmd render.Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Notify fires once per recorded command (best effort).
func (r *Recorder) Notify() <-chan struct{} { return r.notify }

func (r *Recorder) Resize(rows, columns int) error {
	return r.Dispatch(render.ResizeCommand{Rows: rows, Columns: columns})
}

func (r *Recorder) SetCell(row, col int, label, priceText string, highlighted bool) error {
	return r.Dispatch(render.SetCellCommand{Cell: render.Cell{Row: row, Col: col}, Label: label, PriceText: priceText, Highlighted: highlighted})
}

func (r *Recorder) RestoreCell(row, col int, label, priceText string) error {
	return r.Dispatch(render.RestoreCellCommand{Cell: render.Cell{Row: row, Col: col}, Label: label, PriceText: priceText})
}

func (r *Recorder) SetReference(label, priceText string) error {
	return r.Dispatch(render.ReferenceCommand{Label: label, PriceText: priceText})
}

func (r *Recorder) SetStatus(text string) error {
	return r.Dispatch(render.StatusCommand{Text: text})
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []render.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]render.Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Count returns how many recorded commands have the given kind.
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, c := range r.Commands() {
		if c.Kind() == kind {
			n++
		}
	}
	return n
}

// OfKind returns recorded commands of the given kind in order.
func (r *Recorder) OfKind(kind string) []render.Command {
	var out []render.Command
	for _, c := range r.Commands() {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}
