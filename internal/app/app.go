// Package app wires the monitor, its renderers and the operator surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"marketwatch/config"
	"marketwatch/internal/discovery"
	"marketwatch/internal/highlight"
	"marketwatch/internal/market"
	"marketwatch/internal/memorystore"
	"marketwatch/internal/monitor"
	"marketwatch/internal/operator"
	"marketwatch/internal/poller"
	"marketwatch/internal/reference"
	"marketwatch/internal/render"
	"marketwatch/internal/session"
	"marketwatch/pkg/browser"
	"marketwatch/pkg/pricefeed"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	cfg    *config.Config
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	Queue      *render.Queue
	Renderer   render.Renderer
	Hub        *render.Hub // nil unless render.mode is "ws"
	Listing    *memorystore.SnapshotStore
	Prices     *memorystore.PriceStore
	Highlights *highlight.Scheduler
	Reference  *reference.Poller
	Session    *session.Session
	Service    *operator.Service

	mux *http.ServeMux
}

// Run builds the application with a Chrome page fetcher and runs it until
// ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	factory := browser.Factory(browser.Options{
		Headless:    cfg.Browser.Headless,
		ExecPath:    cfg.Browser.ExecPath,
		UserAgent:   cfg.Browser.UserAgent,
		PageTimeout: cfg.Monitor.PageTimeout,
	})
	return Build(ctx, cfg, factory, logger).Run(ctx)
}

// Build wires every component. Nothing runs until Run.
func Build(ctx context.Context, cfg *config.Config, factory market.FetcherFactory, logger *zap.Logger) *App {
	a := &App{cfg: cfg, logger: logger}
	// Sessions and the reference feed end when Run shuts down, after the
	// final status lines are queued.
	a.ctx, a.cancel = context.WithCancel(context.WithoutCancel(ctx))

	a.Queue = render.NewQueue(cfg.Render.QueueSize, logger)
	if cfg.Render.Mode == "ws" {
		a.Hub = render.NewHub(logger)
		a.Renderer = a.Hub
	} else {
		a.Renderer = render.NewLogRenderer(logger)
	}

	m := cfg.Monitor
	a.Listing = memorystore.NewSnapshotStore(m.ListingURL)
	a.Prices = memorystore.NewPriceStore()
	a.Highlights = highlight.New(m.DecayWindow, memorystore.NewTimerStore(memorystore.RealAfter), a.Queue, logger)

	disc := discovery.New(discovery.Config{
		ContainerSelector: m.ContainerSelector,
		LinkSelector:      m.LinkSelector,
		CommentMarker:     m.CommentMarker,
		IDPrefixes:        m.IDPrefixes,
		Timeout:           m.PageTimeout,
		MaxMarkets:        m.MaxMarkets,
	}, logger)
	poll := poller.New(poller.Config{
		PriceSelector: m.PriceSelector,
		Timeout:       m.PageTimeout,
		Columns:       m.Columns,
	}, a.Prices, a.Highlights, logger)
	worker := monitor.NewWorker(monitor.Config{
		DiscoveryInterval: m.DiscoveryInterval,
		PollInterval:      m.PollInterval,
		Columns:           m.Columns,
	}, a.Listing, a.Prices, disc, poll, a.Highlights, a.Queue, logger)

	symbols := make([]reference.Symbol, len(cfg.Reference.Symbols))
	for i, s := range cfg.Reference.Symbols {
		symbols[i] = reference.Symbol{Symbol: s.Symbol, Label: s.Label}
	}
	a.Reference = reference.New(
		pricefeed.NewRESTClient(cfg.Reference.URL, cfg.Reference.Timeout),
		symbols, cfg.Reference.Interval, cfg.Reference.Timeout, a.Queue, logger)

	a.Session = session.New(a.ctx, factory, worker, a.Reference, a.Highlights, a.Queue, logger)
	a.Service = operator.NewService(a.Session, a.Listing, a.Prices, a.Highlights)

	a.mux = http.NewServeMux()
	operator.Register(a.mux, a.Service, logger)
	if a.Hub != nil {
		a.mux.Handle("GET /ws", a.Hub)
	}
	return a
}

// Handler is the HTTP surface: the operator API plus /ws in ws mode.
func (a *App) Handler() http.Handler { return a.mux }

// Run serves until ctx is cancelled or a component fails, then stops the
// session, drains the render queue and returns.
func (a *App) Run(ctx context.Context) error {
	c := cron.New()
	if a.cfg.Monitor.Heartbeat != "" {
		if _, err := c.AddFunc(a.cfg.Monitor.Heartbeat, a.heartbeat); err != nil {
			return fmt.Errorf("register heartbeat: %w", err)
		}
	}

	defer a.cancel()

	g, ctx := errgroup.WithContext(ctx)

	// The queue outlives ctx so shutdown status lines are still rendered.
	g.Go(func() error {
		return a.Queue.Run(context.WithoutCancel(ctx), a.Renderer)
	})

	srv := &http.Server{
		Addr:              a.cfg.Render.ListenAddr,
		Handler:           a.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		a.logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("render_mode", a.cfg.Render.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.Hub != nil {
		g.Go(func() error { return a.Hub.Run(ctx) })
	}

	if a.cfg.Telegram.Enabled {
		bot, err := operator.NewBot(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.Service, a.logger)
		if err != nil {
			a.logger.Warn("telegram disabled", zap.Error(err))
		} else {
			a.Session.OnChange(bot.NotifyState)
			g.Go(func() error { return bot.Run(ctx) })
		}
	}

	c.Start()

	if a.cfg.Monitor.Autostart {
		g.Go(func() error {
			if err := a.Session.Start(ctx); err != nil {
				a.logger.Error("autostart failed", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		<-c.Stop().Done()
		_ = a.Session.Stop()
		if err := a.Session.Wait(shutdownCtx); err != nil {
			a.logger.Warn("session did not stop in time", zap.Error(err))
		}
		a.cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http shutdown", zap.Error(err))
		}
		a.Queue.Close()
		return nil
	})

	return g.Wait()
}

func (a *App) heartbeat() {
	ov := a.Service.Overview()
	a.logger.Info("heartbeat",
		zap.String("session", ov.Session.StateName),
		zap.String("listing", ov.ListingURL),
		zap.Int("markets", len(ov.Markets)),
		zap.Int("stored_prices", ov.StoredPrices),
		zap.Int("pending_highlights", ov.PendingHighlights),
		zap.Bool("reference_running", a.Reference.Running()),
		zap.Int64("reference_failures", a.Reference.Failures()))
}
