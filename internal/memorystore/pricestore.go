package memorystore

import (
	"sync"
	"time"

	"marketwatch/internal/market"

	"github.com/shopspring/decimal"
)

// PriceStore holds the last-known yes/no pair per market id and is the only
// place where "did the price change" is decided.
type PriceStore struct {
	mu   sync.RWMutex
	data map[string]market.PriceRecord
	now  func() time.Time
}

func NewPriceStore() *PriceStore {
	return &PriceStore{
		data: make(map[string]market.PriceRecord),
		now:  time.Now,
	}
}

// Record stores the pair for id and reports whether it differs from the
// previous one. The first observation of an id is a baseline and never
// counts as a change.
func (s *PriceStore) Record(id string, yes, no decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.data[id]
	changed := ok && (!yes.Equal(prev.Yes) || !no.Equal(prev.No))

	s.data[id] = market.PriceRecord{Yes: yes, No: no, UpdatedAt: s.now()}
	return changed
}

func (s *PriceStore) Get(id string) (market.PriceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[id]
	return rec, ok
}

// Retain drops records for ids not in keep and returns how many were dropped.
func (s *PriceStore) Retain(keep []string) int {
	set := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		set[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id := range s.data {
		if _, ok := set[id]; !ok {
			delete(s.data, id)
			dropped++
		}
	}
	return dropped
}

// Reset forgets every stored price so the next observation of any id is a
// baseline again.
func (s *PriceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]market.PriceRecord)
}

// CountAll returns the number of markets with a stored price.
func (s *PriceStore) CountAll() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
