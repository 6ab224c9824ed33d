// Package monitor runs the combined discovery and price polling loop.
package monitor

import (
	"context"
	"errors"
	"time"

	"marketwatch/internal/market"
	"marketwatch/internal/memorystore"
	"marketwatch/internal/poller"
	"marketwatch/internal/render"

	"go.uber.org/zap"
)

type Discoverer interface {
	Discover(ctx context.Context, fetcher market.PageFetcher, listingURL string) (market.Snapshot, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, fetcher market.PageFetcher, snap market.Snapshot, stopped func() bool) poller.Result
}

// Invalidator drops highlight state bound to grid positions.
type Invalidator interface {
	Invalidate() int
}

type Config struct {
	DiscoveryInterval time.Duration
	PollInterval      time.Duration
	Columns           int
}

// Worker owns the page fetcher for the duration of one session. Discovery
// runs on the coarse cadence (or right away when the listing URL changes);
// a price sweep runs on every poll tick.
type Worker struct {
	cfg        Config
	listing    *memorystore.SnapshotStore
	prices     *memorystore.PriceStore
	discoverer Discoverer
	sweeper    Sweeper
	highlights Invalidator
	out        render.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	lastCount int
}

func NewWorker(
	cfg Config,
	listing *memorystore.SnapshotStore,
	prices *memorystore.PriceStore,
	discoverer Discoverer,
	sweeper Sweeper,
	highlights Invalidator,
	out render.Dispatcher,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		cfg:        cfg,
		listing:    listing,
		prices:     prices,
		discoverer: discoverer,
		sweeper:    sweeper,
		highlights: highlights,
		out:        out,
		logger:     logger.Named("monitor"),
		now:        time.Now,
		lastCount:  -1,
	}
}

// Run loops until stop is set or ctx is cancelled. Errors from discovery and
// polling are logged and never end the loop.
func (w *Worker) Run(ctx context.Context, fetcher market.PageFetcher, stop *StopFlag) error {
	w.listing.Reset()
	w.prices.Reset()
	w.lastCount = -1

	_, seenGen := w.listing.ListingURL()
	var nextDiscovery time.Time

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if stop.Stopped() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		url, gen := w.listing.ListingURL()
		if gen != seenGen || !w.now().Before(nextDiscovery) {
			if gen != seenGen {
				w.logger.Info("listing url changed", zap.String("url", url))
			}
			seenGen = gen
			nextDiscovery = w.now().Add(w.cfg.DiscoveryInterval)
			w.discover(ctx, fetcher, url)
		}

		if !stop.Stopped() {
			if snap := w.listing.Current(); snap.Count() > 0 {
				w.sweeper.Sweep(ctx, fetcher, snap, stop.Stopped)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Worker) discover(ctx context.Context, fetcher market.PageFetcher, url string) {
	snap, err := w.discoverer.Discover(ctx, fetcher, url)
	if err != nil {
		var de *market.DiscoveryError
		if errors.As(err, &de) {
			w.logger.Warn("discovery failed, keeping previous markets", zap.String("url", de.URL), zap.Error(de.Err))
		} else {
			w.logger.Warn("discovery failed, keeping previous markets", zap.String("url", url), zap.Error(err))
		}
		return
	}
	w.apply(snap)
}

// apply installs snap. Any change to the id-to-cell binding cancels pending
// highlights first; only a change in count reshapes the grid.
func (w *Worker) apply(snap market.Snapshot) {
	prev, hadPrev := w.listing.Swap(snap)

	countChanged := snap.Count() != w.lastCount
	if countChanged || !hadPrev || !prev.SameMembership(snap) {
		w.highlights.Invalidate()
	}

	if countChanged {
		layout := render.NewLayout(snap.Count(), w.cfg.Columns)
		if err := w.out.Dispatch(layout.Resize()); err != nil {
			w.logger.Debug("dropping resize", zap.Error(err))
		}
		w.logger.Info("grid resized",
			zap.Int("markets", snap.Count()),
			zap.Int("rows", layout.Rows()),
			zap.Int("columns", layout.Columns))
		w.lastCount = snap.Count()
	}

	if dropped := w.prices.Retain(snap.IDs()); dropped > 0 {
		w.logger.Debug("pruned prices of vanished markets", zap.Int("count", dropped))
	}
}
