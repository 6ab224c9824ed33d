package memorystore

import (
	"sync"

	"marketwatch/internal/market"
)

// SnapshotStore holds the operator-settable listing URL and the most recent
// discovery snapshot.
type SnapshotStore struct {
	mu         sync.Mutex
	listingURL string
	listingGen uint64
	snapshot   market.Snapshot
	hasSnap    bool
}

func NewSnapshotStore(listingURL string) *SnapshotStore {
	return &SnapshotStore{listingURL: listingURL}
}

// SetListingURL switches the subject being monitored. The generation counter
// lets the monitor notice the switch without waiting for its next discovery.
func (s *SnapshotStore) SetListingURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == s.listingURL {
		return
	}
	s.listingURL = u
	s.listingGen++
}

// ListingURL returns the current URL and its generation.
func (s *SnapshotStore) ListingURL() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listingURL, s.listingGen
}

// Swap installs snap and returns the previous snapshot, if any.
func (s *SnapshotStore) Swap(snap market.Snapshot) (prev market.Snapshot, hadPrev bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, hadPrev = s.snapshot, s.hasSnap
	s.snapshot, s.hasSnap = snap, true
	return prev, hadPrev
}

// Current returns the latest snapshot (zero value before the first discovery).
func (s *SnapshotStore) Current() market.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snapshot
	out.Entries = append([]market.Entry(nil), s.snapshot.Entries...)
	return out
}

// Reset forgets the snapshot so the next discovery is treated as the first.
func (s *SnapshotStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot, s.hasSnap = market.Snapshot{}, false
}
