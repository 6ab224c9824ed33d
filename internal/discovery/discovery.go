// Package discovery turns a listing page into an ordered set of markets.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"marketwatch/internal/market"

	"go.uber.org/zap"
)

type Config struct {
	ContainerSelector string
	LinkSelector      string
	CommentMarker     string
	IDPrefixes        []string
	Timeout           time.Duration // bound on waiting for the container
	MaxMarkets        int           // 0 = unlimited
}

func DefaultConfig() Config {
	return Config{
		ContainerSelector: "#markets-grid-container",
		LinkSelector:      "a",
		CommentMarker:     "#comment",
		IDPrefixes:        []string{"what-price-will-", "will-"},
		Timeout:           10 * time.Second,
		MaxMarkets:        40,
	}
}

type Discoverer struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{cfg: cfg, logger: logger.Named("discovery"), now: time.Now}
}

// Discover loads listingURL and returns the markets linked from its
// container in page order. Any failure is a *market.DiscoveryError.
func (d *Discoverer) Discover(ctx context.Context, fetcher market.PageFetcher, listingURL string) (market.Snapshot, error) {
	fail := func(err error) (market.Snapshot, error) {
		return market.Snapshot{}, &market.DiscoveryError{URL: listingURL, Err: err}
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return fail(fmt.Errorf("parse listing url: %w", err))
	}

	page, err := fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return fail(fmt.Errorf("fetch listing: %w", err))
	}

	if _, err := page.WaitForElement(ctx, d.cfg.ContainerSelector, d.cfg.Timeout); err != nil {
		return fail(fmt.Errorf("wait for %s: %w", d.cfg.ContainerSelector, err))
	}

	links, err := page.FindAll(ctx, d.cfg.ContainerSelector+" "+d.cfg.LinkSelector)
	if err != nil {
		return fail(fmt.Errorf("find links: %w", err))
	}

	snap := market.Snapshot{ListingURL: listingURL, TakenAt: d.now()}
	seen := make(map[string]bool, len(links))
	skipped := 0

	for _, link := range links {
		if d.cfg.MaxMarkets > 0 && len(snap.Entries) >= d.cfg.MaxMarkets {
			break
		}

		href := strings.TrimSpace(link.Href)
		if href == "" || (d.cfg.CommentMarker != "" && strings.Contains(href, d.cfg.CommentMarker)) {
			skipped++
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			skipped++
			continue
		}
		abs := base.ResolveReference(ref)

		id := MarketID(abs.Path, d.cfg.IDPrefixes)
		if id == "" || seen[id] {
			skipped++
			continue
		}
		seen[id] = true

		snap.Entries = append(snap.Entries, market.Entry{ID: id, SourceURL: abs.String()})
	}

	d.logger.Debug("listing parsed",
		zap.String("url", listingURL),
		zap.Int("links", len(links)),
		zap.Int("markets", snap.Count()),
		zap.Int("skipped", skipped))

	return snap, nil
}

// MarketID derives a market id from the last segment of a URL path with the
// first matching boilerplate prefix removed.
// "/event/will-bitcoin-reach-75k" with prefix "will-" -> "bitcoin-reach-75k".
func MarketID(urlPath string, prefixes []string) string {
	trimmed := strings.Trim(urlPath, "/")
	if trimmed == "" {
		return ""
	}
	seg := path.Base(trimmed)
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(seg, p) && len(seg) > len(p) {
			return strings.TrimPrefix(seg, p)
		}
	}
	return seg
}
