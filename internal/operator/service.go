// Package operator exposes session control and status to humans: a JSON
// HTTP API and a Telegram bot.
package operator

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"marketwatch/internal/market"
	"marketwatch/internal/memorystore"
	"marketwatch/internal/session"
)

// Controller is the session surface operators drive.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Status() session.Status
}

type PendingCounter interface {
	Pending() int
}

var ErrBadListingURL = errors.New("listing url must be an absolute http(s) url")

type Overview struct {
	Session           session.Status `json:"session"`
	ListingURL        string         `json:"listing_url"`
	Markets           []market.Entry `json:"markets"`
	StoredPrices      int            `json:"stored_prices"`
	PendingHighlights int            `json:"pending_highlights"`
}

// Service is shared by the HTTP and Telegram front ends.
type Service struct {
	session    Controller
	listing    *memorystore.SnapshotStore
	prices     *memorystore.PriceStore
	highlights PendingCounter
}

func NewService(ctrl Controller, listing *memorystore.SnapshotStore, prices *memorystore.PriceStore, highlights PendingCounter) *Service {
	return &Service{session: ctrl, listing: listing, prices: prices, highlights: highlights}
}

func (s *Service) Start(ctx context.Context) error { return s.session.Start(ctx) }

func (s *Service) Stop() error { return s.session.Stop() }

// SetListing switches the monitored listing page. A running session picks
// it up on its next loop iteration.
func (s *Service) SetListing(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBadListingURL, raw)
	}
	s.listing.SetListingURL(u.String())
	return nil
}

// ListingURL returns the listing page currently monitored.
func (s *Service) ListingURL() string {
	u, _ := s.listing.ListingURL()
	return u
}

func (s *Service) Overview() Overview {
	listingURL, _ := s.listing.ListingURL()
	snap := s.listing.Current()
	ov := Overview{
		Session:      s.session.Status(),
		ListingURL:   listingURL,
		Markets:      snap.Entries,
		StoredPrices: s.prices.CountAll(),
	}
	if ov.Markets == nil {
		ov.Markets = []market.Entry{}
	}
	if s.highlights != nil {
		ov.PendingHighlights = s.highlights.Pending()
	}
	return ov
}
