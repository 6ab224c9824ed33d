// Package poller sweeps the discovered markets and reads their yes/no prices.
package poller

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"marketwatch/internal/market"
	"marketwatch/internal/memorystore"
	"marketwatch/internal/render"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Updater receives each successfully polled market in discovery order.
type Updater interface {
	OnUpdate(cell render.Cell, label, priceText string, changed bool)
}

type Config struct {
	PriceSelector string
	Timeout       time.Duration // bound on waiting for the price elements
	Columns       int
}

// Result summarises one sweep.
type Result struct {
	Polled      int
	Failed      int
	Changed     int
	Interrupted bool // stop observed between items
}

type Poller struct {
	cfg     Config
	prices  *memorystore.PriceStore
	updates Updater
	logger  *zap.Logger
}

func New(cfg Config, prices *memorystore.PriceStore, updates Updater, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{cfg: cfg, prices: prices, updates: updates, logger: logger.Named("poller")}
}

// Sweep polls every market of snap one at a time. A failing market is logged
// and skipped; it is not retried within the same sweep. stopped is checked
// before each market.
func (p *Poller) Sweep(ctx context.Context, fetcher market.PageFetcher, snap market.Snapshot, stopped func() bool) Result {
	var res Result
	layout := render.NewLayout(snap.Count(), p.cfg.Columns)

	for i, entry := range snap.Entries {
		if (stopped != nil && stopped()) || ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		yes, no, text, err := p.PollOne(ctx, fetcher, entry)
		if err != nil {
			res.Failed++
			p.logger.Warn("market poll failed", zap.String("market", entry.ID), zap.Error(err))
			continue
		}
		res.Polled++

		changed := p.prices.Record(entry.ID, yes, no)
		if changed {
			res.Changed++
			p.logger.Info("price changed",
				zap.String("market", entry.ID),
				zap.String("yes", yes.String()),
				zap.String("no", no.String()))
		}
		p.updates.OnUpdate(layout.Position(i), entry.ID, text, changed)
	}

	p.logger.Debug("sweep finished",
		zap.Int("markets", snap.Count()),
		zap.Int("polled", res.Polled),
		zap.Int("failed", res.Failed),
		zap.Int("changed", res.Changed),
		zap.Bool("interrupted", res.Interrupted))

	return res
}

// PollOne reads the price pair of a single market. Errors are *market.PollError.
func (p *Poller) PollOne(ctx context.Context, fetcher market.PageFetcher, entry market.Entry) (yes, no decimal.Decimal, text string, err error) {
	fail := func(err error) (decimal.Decimal, decimal.Decimal, string, error) {
		return decimal.Zero, decimal.Zero, "", &market.PollError{MarketID: entry.ID, URL: entry.SourceURL, Err: err}
	}

	page, err := fetcher.Fetch(ctx, entry.SourceURL)
	if err != nil {
		return fail(fmt.Errorf("fetch: %w", err))
	}
	if _, err := page.WaitForElement(ctx, p.cfg.PriceSelector, p.cfg.Timeout); err != nil {
		return fail(fmt.Errorf("wait for %s: %w", p.cfg.PriceSelector, err))
	}
	els, err := page.FindAll(ctx, p.cfg.PriceSelector)
	if err != nil {
		return fail(fmt.Errorf("find prices: %w", err))
	}
	if len(els) < 2 {
		return fail(fmt.Errorf("%d price elements: %w", len(els), market.ErrNotFound))
	}

	yesText, noText := strings.TrimSpace(els[0].Text), strings.TrimSpace(els[1].Text)
	if yes, err = ParsePrice(yesText); err != nil {
		return fail(err)
	}
	if no, err = ParsePrice(noText); err != nil {
		return fail(err)
	}
	return yes, no, FormatPair(yesText, noText), nil
}

// ParsePrice normalizes displayed price text such as "60¢", "$0.65" or "<1¢"
// and parses what remains.
func ParsePrice(text string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r), r == '<', r == '>', r == ',':
			return -1
		}
		return r
	}, text)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", text, err)
	}
	return d, nil
}

// FormatPair is the cell text for a price pair, e.g. "YES 60¢ / NO 40¢".
func FormatPair(yesText, noText string) string {
	return "YES " + yesText + " / NO " + noText
}
