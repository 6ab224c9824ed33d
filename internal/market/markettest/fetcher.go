// Package markettest provides a scripted PageFetcher for tests.
package markettest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"marketwatch/internal/market"
)

// FakePage is the content served for one URL.
type FakePage struct {
	// Elements maps a selector to the elements it matches.
	Elements map[string][]market.Element
	// FetchErr fails Fetch for this URL.
	FetchErr error
}

// Fetcher serves FakePages by URL and records every fetch.
type Fetcher struct {
	mu      sync.Mutex
	pages   map[string]*FakePage
	fetches []string
	closed  bool
	inUse   bool
	// OnFetch, when set, runs before every fetch (e.g. to block or count).
	OnFetch func(url string)
}

func NewFetcher() *Fetcher {
	return &Fetcher{pages: make(map[string]*FakePage)}
}

// SetPage installs or replaces the page served for url.
func (f *Fetcher) SetPage(url string, p *FakePage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = p
}

// Fetch fails with an error if called concurrently, which would violate the
// single-caller contract of real fetchers.
func (f *Fetcher) Fetch(ctx context.Context, url string) (market.Page, error) {
	f.mu.Lock()
	if f.inUse {
		f.mu.Unlock()
		return nil, errors.New("concurrent fetch")
	}
	f.inUse = true
	hook := f.OnFetch
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inUse = false
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(url)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, url)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := f.pages[url]
	if !ok {
		return nil, errors.New("404 " + url)
	}
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	return &page{p: p}, nil
}

func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *Fetcher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Fetches returns the URLs fetched so far, in order.
func (f *Fetcher) Fetches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetches...)
}

// CountFetches returns how many fetches had url as a prefix.
func (f *Fetcher) CountFetches(prefix string) int {
	n := 0
	for _, u := range f.Fetches() {
		if strings.HasPrefix(u, prefix) {
			n++
		}
	}
	return n
}

type page struct {
	p *FakePage
}

func (pg *page) WaitForElement(_ context.Context, selector string, _ time.Duration) (market.Element, error) {
	els := pg.p.Elements[selector]
	if len(els) == 0 {
		return market.Element{}, market.ErrTimeout
	}
	return els[0], nil
}

func (pg *page) FindAll(_ context.Context, selector string) ([]market.Element, error) {
	return append([]market.Element(nil), pg.p.Elements[selector]...), nil
}

// ListingPage builds a listing page whose container holds links to hrefs.
func ListingPage(hrefs ...string) *FakePage {
	links := make([]market.Element, len(hrefs))
	for i, h := range hrefs {
		links[i] = market.Element{Href: h, Text: h}
	}
	return &FakePage{Elements: map[string][]market.Element{
		"#markets-grid-container":   {{}},
		"#markets-grid-container a": links,
	}}
}

// MarketPage builds a market page showing yes/no price texts.
func MarketPage(yes, no string) *FakePage {
	return &FakePage{Elements: map[string][]market.Element{
		".price": {{Text: yes}, {Text: no}},
	}}
}
