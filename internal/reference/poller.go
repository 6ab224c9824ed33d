// Package reference polls the external ticker feed for the reference labels.
package reference

import (
	"context"
	"sync/atomic"
	"time"

	"marketwatch/internal/market"
	"marketwatch/internal/render"
	"marketwatch/pkg/pricefeed"

	"go.uber.org/zap"
)

// PriceSource returns the current prices of symbols.
type PriceSource interface {
	GetPrices(ctx context.Context, symbols []string) ([]market.ReferencePrice, error)
}

// Symbol maps a feed symbol to the label it is shown under.
type Symbol struct {
	Symbol string
	Label  string
}

// Poller fetches the reference prices on a fixed cadence and dispatches one
// ReferenceCommand per configured symbol. It shares nothing with the market
// polling path.
type Poller struct {
	source   PriceSource
	symbols  []Symbol
	interval time.Duration
	timeout  time.Duration
	out      render.Dispatcher
	logger   *zap.Logger

	running  atomic.Bool
	failures atomic.Int64
}

func New(source PriceSource, symbols []Symbol, interval, timeout time.Duration, out render.Dispatcher, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:   source,
		symbols:  symbols,
		interval: interval,
		timeout:  timeout,
		out:      out,
		logger:   logger.Named("reference"),
	}
}

// Start runs the poller in its own goroutine unless it is already running.
// It reports whether this call started it.
func (p *Poller) Start(ctx context.Context) bool {
	if !p.running.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer p.running.Store(false)
		_ = p.Run(ctx)
	}()
	return true
}

func (p *Poller) Running() bool { return p.running.Load() }

// Failures is the number of failed fetches since creation.
func (p *Poller) Failures() int64 { return p.failures.Load() }

// Run polls immediately and then on every tick until ctx is done. Fetch
// failures are logged and the next tick retries.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.PollOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PollOnce performs one fetch and dispatch cycle.
func (p *Poller) PollOnce(ctx context.Context) error {
	want := make([]string, len(p.symbols))
	labels := make(map[string]string, len(p.symbols))
	for i, s := range p.symbols {
		want[i] = s.Symbol
		labels[s.Symbol] = s.Label
	}

	fetchCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prices, err := p.source.GetPrices(fetchCtx, want)
	if err != nil {
		p.failures.Add(1)
		ferr := &market.ReferenceFeedError{Err: err}
		p.logger.Debug("reference fetch failed", zap.Error(ferr))
		return ferr
	}

	for _, rp := range prices {
		label, ok := labels[rp.Symbol]
		if !ok {
			continue
		}
		cmd := render.ReferenceCommand{Label: label, PriceText: pricefeed.FormatUSD(rp.Price)}
		if err := p.out.Dispatch(cmd); err != nil {
			p.logger.Debug("dropping reference update", zap.String("symbol", rp.Symbol), zap.Error(err))
		}
	}
	return nil
}
