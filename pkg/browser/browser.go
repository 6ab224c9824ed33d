// Package browser implements market.PageFetcher on a headless Chrome tab.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketwatch/internal/market"

	"github.com/chromedp/chromedp"
)

type Options struct {
	Headless    bool
	ExecPath    string
	UserAgent   string
	PageTimeout time.Duration // bound on one navigation
}

// Fetcher drives a single tab. It is not safe for concurrent use.
type Fetcher struct {
	opts        Options
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
}

// New launches the browser and opens the tab. Failure to launch is a
// *market.DriverInitError.
func New(ctx context.Context, opts Options) (*Fetcher, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	// The browser lives until Close, not until the caller's ctx ends.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser and attaches the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, &market.DriverInitError{Err: err}
	}

	return &Fetcher{opts: opts, tabCtx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// Factory adapts New to market.FetcherFactory.
func Factory(opts Options) market.FetcherFactory {
	return func(ctx context.Context) (market.PageFetcher, error) {
		f, err := New(ctx, opts)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// run executes actions on the tab bounded by timeout and by ctx.
func (f *Fetcher) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx := f.tabCtx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return market.ErrTimeout
	}
	return err
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (market.Page, error) {
	if err := f.run(ctx, f.opts.PageTimeout, chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	return &page{f: f}, nil
}

func (f *Fetcher) Close() error {
	f.closeOnce.Do(func() {
		f.cancelTab()
		f.cancelAlloc()
	})
	return nil
}

type page struct {
	f *Fetcher
}

func (p *page) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (market.Element, error) {
	if err := p.f.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return market.Element{}, err
	}
	els, err := p.FindAll(ctx, selector)
	if err != nil {
		return market.Element{}, err
	}
	if len(els) == 0 {
		return market.Element{}, market.ErrNotFound
	}
	return els[0], nil
}

func (p *page) FindAll(ctx context.Context, selector string) ([]market.Element, error) {
	script, err := findAllScript(selector)
	if err != nil {
		return nil, err
	}
	var out []market.Element
	if err := p.f.run(ctx, p.f.opts.PageTimeout, chromedp.Evaluate(script, &out)); err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	return out, nil
}

// findAllScript returns JS that collects text and resolved href of every
// element matching selector.
func findAllScript(selector string) (string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map(e => ({Text: (e.innerText || e.textContent || "").trim(), Href: e.href || ""}))`,
		quoted,
	), nil
}
