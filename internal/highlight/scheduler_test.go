package highlight

import (
	"testing"
	"time"

	"marketwatch/internal/memorystore"
	"marketwatch/internal/memorystore/memorytest"
	"marketwatch/internal/render"
	"marketwatch/internal/render/rendertest"
)

const decay = 12 * time.Second

func newTestScheduler() (*Scheduler, *memorytest.ManualTimers, *rendertest.Recorder) {
	clock := memorytest.NewManualTimers()
	rec := rendertest.NewRecorder()
	s := New(decay, memorystore.NewTimerStore(clock.After), rec, nil)
	return s, clock, rec
}

// go test -v --run TestChangedHighlightsThenRestoresOnce
func TestChangedHighlightsThenRestoresOnce(t *testing.T) {
	s, clock, rec := newTestScheduler()
	cell := render.Cell{Row: 0, Col: 1}

	s.OnUpdate(cell, "bitcoin-75k", "YES 65¢ / NO 35¢", true)

	sets := rec.OfKind("set_cell")
	if len(sets) != 1 || !sets[0].(render.SetCellCommand).Highlighted {
		t.Fatalf("expected one highlighted set_cell, got %+v", rec.Commands())
	}
	if s.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", s.Pending())
	}

	clock.Advance(decay - time.Second)
	if rec.Count("restore_cell") != 0 {
		t.Fatal("restored before decay window elapsed")
	}

	clock.Advance(time.Second)
	restores := rec.OfKind("restore_cell")
	if len(restores) != 1 {
		t.Fatalf("restore_cell count = %d, want 1", len(restores))
	}
	r := restores[0].(render.RestoreCellCommand)
	if r.Cell != cell || r.PriceText != "YES 65¢ / NO 35¢" || r.Label != "bitcoin-75k" {
		t.Errorf("restore = %+v", r)
	}

	clock.Advance(time.Hour)
	if rec.Count("restore_cell") != 1 {
		t.Errorf("restore_cell count = %d after more time, want 1", rec.Count("restore_cell"))
	}
}

// go test -v --run TestRechangeRestartsWindow
func TestRechangeRestartsWindow(t *testing.T) {
	s, clock, rec := newTestScheduler()
	cell := render.Cell{Row: 2, Col: 3}

	s.OnUpdate(cell, "m", "YES 60¢ / NO 40¢", true)
	clock.Advance(8 * time.Second)
	s.OnUpdate(cell, "m", "YES 62¢ / NO 38¢", true)

	if s.Pending() != 1 || clock.Active() != 1 {
		t.Fatalf("pending = %d, active = %d; a cell must never have two timers", s.Pending(), clock.Active())
	}

	clock.Advance(8 * time.Second) // 16s after first change, 8s after second
	if rec.Count("restore_cell") != 0 {
		t.Fatal("first timer was not cancelled")
	}

	clock.Advance(4 * time.Second)
	restores := rec.OfKind("restore_cell")
	if len(restores) != 1 {
		t.Fatalf("restore_cell count = %d, want 1", len(restores))
	}
	if got := restores[0].(render.RestoreCellCommand).PriceText; got != "YES 62¢ / NO 38¢" {
		t.Errorf("restored with %q, want latest value", got)
	}
}

// go test -v --run TestUnchangedLeavesTimerAlone
func TestUnchangedLeavesTimerAlone(t *testing.T) {
	s, clock, rec := newTestScheduler()
	cell := render.Cell{}

	s.OnUpdate(cell, "m", "YES 60¢ / NO 40¢", false)
	if s.Pending() != 0 || clock.Active() != 0 {
		t.Fatal("unchanged observation armed a timer")
	}
	if got := rec.OfKind("set_cell")[0].(render.SetCellCommand); got.Highlighted {
		t.Errorf("unchanged value on a normal cell was highlighted: %+v", got)
	}

	s.OnUpdate(cell, "m", "YES 65¢ / NO 35¢", true)
	clock.Advance(5 * time.Second)
	s.OnUpdate(cell, "m", "YES 65¢ / NO 35¢", false)

	if clock.Active() != 1 {
		t.Fatalf("active timers = %d, want 1", clock.Active())
	}
	last := rec.OfKind("set_cell")[2].(render.SetCellCommand)
	if !last.Highlighted {
		t.Error("unchanged value during decay should keep the highlight style")
	}

	clock.Advance(7 * time.Second) // 12s after the change: the window was not reset
	if rec.Count("restore_cell") != 1 {
		t.Errorf("restore_cell count = %d, want 1 at first expiry", rec.Count("restore_cell"))
	}
}

func TestIndependentCells(t *testing.T) {
	s, clock, rec := newTestScheduler()

	for col := 0; col < 4; col++ {
		s.OnUpdate(render.Cell{Row: 0, Col: col}, "m", "x", true)
	}
	if s.Pending() != 4 {
		t.Fatalf("Pending = %d, want 4", s.Pending())
	}
	clock.Advance(decay)
	if rec.Count("restore_cell") != 4 {
		t.Errorf("restore_cell count = %d, want 4", rec.Count("restore_cell"))
	}
}

func TestInvalidateDropsPendingRestores(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.OnUpdate(render.Cell{Row: 0, Col: 0}, "a", "x", true)
	s.OnUpdate(render.Cell{Row: 0, Col: 1}, "b", "y", true)

	if n := s.Invalidate(); n != 2 {
		t.Errorf("Invalidate = %d, want 2", n)
	}
	clock.Advance(time.Hour)
	if rec.Count("restore_cell") != 0 {
		t.Errorf("invalidated timers restored %d cells", rec.Count("restore_cell"))
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d after Invalidate", s.Pending())
	}
}
