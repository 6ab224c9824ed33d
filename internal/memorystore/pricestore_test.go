package memorystore_test

import (
	"testing"

	"marketwatch/internal/memorystore"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// go test -v --run TestPriceStoreRecord
func TestPriceStoreRecord(t *testing.T) {
	s := memorystore.NewPriceStore()

	steps := []struct {
		name    string
		yes, no string
		changed bool
	}{
		{"first observation is baseline", "60", "40", false},
		{"identical pair", "60", "40", false},
		{"yes moves", "65", "40", true},
		{"no moves", "65", "35", true},
		{"both move", "70", "30", true},
		{"same value different scale", "70.0", "30.00", false},
	}
	for _, st := range steps {
		if got := s.Record("bitcoin-75k", d(st.yes), d(st.no)); got != st.changed {
			t.Errorf("%s: Record() = %v, want %v", st.name, got, st.changed)
		}
	}

	rec, ok := s.Get("bitcoin-75k")
	if !ok || !rec.Yes.Equal(d("70")) || !rec.No.Equal(d("30")) || rec.UpdatedAt.IsZero() {
		t.Errorf("Get() = %+v, %v", rec, ok)
	}
}

func TestPriceStoreIndependentIDs(t *testing.T) {
	s := memorystore.NewPriceStore()
	s.Record("a", d("1"), d("99"))
	if s.Record("b", d("2"), d("98")) {
		t.Error("first observation of b must not be a change")
	}
	if !s.Record("a", d("2"), d("98")) {
		t.Error("a moved, expected change")
	}
}

func TestPriceStoreRetain(t *testing.T) {
	s := memorystore.NewPriceStore()
	s.Record("a", d("1"), d("99"))
	s.Record("b", d("1"), d("99"))
	s.Record("c", d("1"), d("99"))

	if dropped := s.Retain([]string{"a", "c"}); dropped != 1 {
		t.Errorf("Retain dropped %d, want 1", dropped)
	}
	if s.CountAll() != 2 {
		t.Errorf("CountAll = %d, want 2", s.CountAll())
	}
	if s.Record("b", d("5"), d("95")) {
		t.Error("a pruned market must re-establish its baseline")
	}
}

func TestPriceStoreReset(t *testing.T) {
	s := memorystore.NewPriceStore()
	s.Record("a", d("60"), d("40"))
	s.Reset()

	if s.CountAll() != 0 {
		t.Fatalf("CountAll after Reset = %d, want 0", s.CountAll())
	}
	if s.Record("a", d("65"), d("35")) {
		t.Error("first observation after Reset reported as changed")
	}
}
