package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one market found on the listing page.
type Entry struct {
	ID        string `json:"id"`         // e.g. "bitcoin-75k"
	SourceURL string `json:"source_url"` // absolute market page URL
}

// Snapshot is the ordered, deduplicated result of one discovery pass.
type Snapshot struct {
	ListingURL string
	Entries    []Entry
	TakenAt    time.Time
}

// Count returns the number of discovered markets; it drives the grid shape.
func (s Snapshot) Count() int {
	return len(s.Entries)
}

// SameMembership reports whether both snapshots bind the same ids to the same positions.
func (s Snapshot) SameMembership(other Snapshot) bool {
	if len(s.Entries) != len(other.Entries) {
		return false
	}
	for i := range s.Entries {
		if s.Entries[i].ID != other.Entries[i].ID {
			return false
		}
	}
	return true
}

// IDs returns the market ids in discovery order.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.ID
	}
	return ids
}

// PriceRecord is the last-known yes/no pair for one market.
type PriceRecord struct {
	Yes       decimal.Decimal
	No        decimal.Decimal
	UpdatedAt time.Time
}

// ReferencePrice is one observation from the reference feed.
type ReferencePrice struct {
	Symbol     string
	Price      decimal.Decimal
	ObservedAt time.Time
}
