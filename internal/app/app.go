package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"signalscan/internal/dispatch"
	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/internal/engine"
	"signalscan/internal/state"
	"signalscan/internal/usecase"
	"signalscan/pkg/config"
	"signalscan/pkg/httpx"
	"signalscan/pkg/logger"
)

// drainInterval is the consumer-side dispatch tick.
const drainInterval = 250 * time.Millisecond

// App owns the full pipeline lifecycle: construction, startup ordering,
// scheduled jobs, and graceful shutdown.
type App struct {
	cfg     *config.Config
	logger  *logger.Logger
	metrics repository.Metrics

	docs    repository.DocumentStore
	cache   *state.MarketCache
	bus     *dispatch.Bus
	board   *Board
	stream  repository.MarketStream
	tier1   *usecase.Tier1
	tier2   *usecase.Tier2
	tier3   *usecase.Classifier
	halts   *usecase.HaltReconciler
	news    *usecase.NewsAggregator
	engines []*engine.Runner

	httpHandler httpx.Handler
	httpServer  *httpx.Server
	cron        *cron.Cron
}

// New builds the application from configuration.
func New(cfg *config.Config) (*App, error) {
	log, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	m := ProvideMetrics()

	docs, err := ProvideStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	cache := state.NewMarketCache()
	bus := dispatch.NewBus(cfg.Dispatch.BufferSize, log, m)
	board := NewBoard()

	ms := ProvideMarketStream(cfg, log)
	market := ProvideMarketData(cfg, log)

	newsAgg := ProvideNewsAggregator(cfg,
		ProvideNewsStream(cfg, log),
		ProvideNewsProviders(cfg, log),
		docs, bus, m, log)

	tier1 := ProvideTier1(cfg, market, docs, m, log)
	tier2 := ProvideTier2(cfg, ms, market, docs, cache, m, log)
	tier3 := usecase.NewClassifier(newsAgg, bus, m, log)

	haltRec := ProvideHaltReconciler(cfg,
		ProvideHaltSources(cfg, log), docs, bus, m, log)

	app := &App{
		cfg:     cfg,
		logger:  log.Component("app"),
		metrics: m,
		docs:    docs,
		cache:   cache,
		bus:     bus,
		board:   board,
		stream:  ms,
		tier1:   tier1,
		tier2:   tier2,
		tier3:   tier3,
		halts:   haltRec,
		news:    newsAgg,
		engines: ProvideEngines(cache, bus, m, log),
	}

	// Tier1 feeds Tier2 the candidate list; Tier2 feeds Tier3 merged
	// updates. All further flow goes through the dispatch bus.
	tier1.OnCandidates(func(candidates []models.CandidateEntry) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tier2.SetCandidates(ctx, candidates)
	})
	tier2.OnUpdate(tier3.Handle)

	return app, nil
}

// Accessors for the ops handler wired in main.
func (a *App) Board() *Board                  { return a.board }
func (a *App) Logger() *logger.Logger         { return a.logger }
func (a *App) Tier1() *usecase.Tier1          { return a.tier1 }
func (a *App) Halts() *usecase.HaltReconciler { return a.halts }
func (a *App) News() *usecase.NewsAggregator  { return a.news }

// SetHTTPHandler injects the ops route handler.
func (a *App) SetHTTPHandler(h httpx.Handler) { a.httpHandler = h }

// Run starts every component and blocks until a shutdown signal.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.restore(ctx)

	if err := a.stream.Connect(ctx); err != nil {
		// Tier2's loop reconnects; a cold-start failure is not fatal.
		a.logger.Warn("initial stream connect failed", logger.Error(err))
	}
	if a.cfg.News.StreamURL != "" {
		a.logger.Info("primary news stream configured")
	}

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
			a.logger.Debug("component stopped", logger.String("name", name))
		}()
	}

	start("drain", func(ctx context.Context) { a.bus.Run(ctx, drainInterval, a.board) })
	start("tier2", a.tier2.Run)
	start("halts", a.halts.Run)
	start("news", a.news.Run)
	for _, r := range a.engines {
		r := r
		start("engine", r.Run)
	}

	// Startup scan runs in the background so a slow universe fetch does not
	// delay the stream components.
	start("tier1-startup", func(ctx context.Context) {
		if err := a.tier1.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("startup scan", logger.Error(err))
		}
	})

	if err := a.startCron(ctx); err != nil {
		return fmt.Errorf("cron: %w", err)
	}

	a.httpServer = httpx.NewServer(a.httpHandler, a.logger,
		httpx.WithPort(a.cfg.Server.Port),
		httpx.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		httpx.WithMetrics(a.cfg.Metrics.Enabled),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	a.logger.Info("pipeline running",
		logger.String("env", a.cfg.Environment),
		logger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	a.logger.Info("shutdown signal received")

	return a.shutdown(cancel, &wg)
}

// restore warms every component from the document store. Failures are
// logged and skipped; the pipeline can always start cold.
func (a *App) restore(ctx context.Context) {
	if err := a.halts.Restore(ctx); err != nil {
		a.logger.Warn("restore halts", logger.Error(err))
	}
	if err := a.news.Restore(ctx); err != nil {
		a.logger.Warn("restore news", logger.Error(err))
	}
	if err := a.tier2.Restore(ctx); err != nil {
		a.logger.Warn("restore live state", logger.Error(err))
	}
	if err := a.tier1.Restore(ctx); err != nil {
		a.logger.Warn("restore candidates", logger.Error(err))
	}
}

// startCron registers the scheduled jobs in exchange-local time: the Tier1
// scans, the session reset at premarket open, and the midnight halt
// cleanup.
func (a *App) startCron(ctx context.Context) error {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return err
	}
	a.cron = cron.New(cron.WithLocation(loc))

	for _, at := range a.cfg.Tier1.ScanTimes {
		t, err := time.Parse("15:04", at)
		if err != nil {
			return fmt.Errorf("scan time %q: %w", at, err)
		}
		spec := fmt.Sprintf("%d %d * * 1-5", t.Minute(), t.Hour())
		if _, err := a.cron.AddFunc(spec, func() {
			if err := a.tier1.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("scheduled scan", logger.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	// Session reset at premarket open.
	if _, err := a.cron.AddFunc("0 4 * * 1-5", func() {
		a.cache.ResetSession(time.Now())
		a.tier3.ResetSession()
		for _, r := range a.engines {
			r.ResetSession()
		}
		a.logger.Info("session state reset")
	}); err != nil {
		return err
	}

	// Midnight halt cleanup.
	if _, err := a.cron.AddFunc("0 0 * * *", func() {
		a.halts.Cleanup(ctx)
	}); err != nil {
		return err
	}

	a.cron.Start()
	return nil
}

func (a *App) shutdown(cancel context.CancelFunc, wg *sync.WaitGroup) error {
	shutdownCtx, done := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer done()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("http stop", logger.Error(err))
		}
	}
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	cancel()

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		a.logger.Warn("shutdown timeout, components still running")
	}

	// Final persists after the loops stop.
	persistCtx, pdone := context.WithTimeout(context.Background(), 5*time.Second)
	defer pdone()
	a.halts.Persist(persistCtx)
	a.news.Persist(persistCtx)

	a.bus.Close()
	if err := a.stream.Close(); err != nil {
		a.logger.Warn("stream close", logger.Error(err))
	}
	if err := a.docs.Close(); err != nil {
		a.logger.Warn("store close", logger.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}
