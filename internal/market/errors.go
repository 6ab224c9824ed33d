package market

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when an element does not appear within the wait bound.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrNotFound is returned when a page has fewer matching elements than required.
	ErrNotFound = errors.New("element not found")
)

// DiscoveryError means the listing page was unreachable or its container never appeared.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// PollError is a single market's fetch, timeout or selector miss.
type PollError struct {
	MarketID string
	URL      string
	Err      error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s: %v", e.MarketID, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// DriverInitError means the page fetcher could not be acquired.
type DriverInitError struct {
	Err error
}

func (e *DriverInitError) Error() string {
	return fmt.Sprintf("driver init: %v", e.Err)
}

func (e *DriverInitError) Unwrap() error { return e.Err }

// ReferenceFeedError is a failed reference feed fetch.
type ReferenceFeedError struct {
	Err error
}

func (e *ReferenceFeedError) Error() string {
	return fmt.Sprintf("reference feed: %v", e.Err)
}

func (e *ReferenceFeedError) Unwrap() error { return e.Err }
