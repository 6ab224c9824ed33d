package market

import (
	"context"
	"time"
)

// Element is the part of a DOM element the monitor reads.
type Element struct {
	Text string
	Href string // resolved absolute href, empty for non-anchors
}

// PageFetcher loads pages and exposes element lookup on the loaded page.
// Implementations wrap a single browser session and are not safe for
// concurrent use.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
	Close() error
}

// Page is a handle to the page most recently loaded by a PageFetcher.
type Page interface {
	// WaitForElement blocks until selector matches or timeout elapses,
	// returning ErrTimeout in the latter case.
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// FindAll returns every element matching selector in document order.
	FindAll(ctx context.Context, selector string) ([]Element, error)
}

// FetcherFactory acquires a fresh PageFetcher for one monitoring session.
type FetcherFactory func(ctx context.Context) (PageFetcher, error)
