package usecase

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/internal/dispatch"
	"signalscan/pkg/logger"
)

const (
	breakingNewsKey = "news:breaking"
	generalNewsKey  = "news:general"
)

// NewsAggregator merges one continuous primary feed with a round-robin of
// secondary providers, deduplicates by article id and symbol, age-categorizes,
// and
// emits news events. One age policy applies everywhere: breaking up to
// BreakingMaxAge, general up to GeneralMaxAge, ignore beyond.
type NewsAggregator struct {
	primary   repository.NewsStream
	secondary []repository.NewsProvider
	store     repository.DocumentStore
	bus       *dispatch.Bus
	metrics   repository.Metrics
	logger    *logger.Logger

	pollInterval    time.Duration
	cleanupInterval time.Duration
	breakingMaxAge  time.Duration
	generalMaxAge   time.Duration
	reconnectDelay  time.Duration

	seen *gocache.Cache // dedup keys, retained as long as items can live

	mu       sync.Mutex
	breaking map[string]models.NewsItem // key -> item
	general  map[string]models.NewsItem
	nextIdx  int

	now func() time.Time
}

type NewsConfig struct {
	PollInterval    time.Duration
	CleanupInterval time.Duration
	BreakingMaxAge  time.Duration
	GeneralMaxAge   time.Duration
	ReconnectDelay  time.Duration
}

func NewNewsAggregator(
	primary repository.NewsStream,
	secondary []repository.NewsProvider,
	store repository.DocumentStore,
	bus *dispatch.Bus,
	metrics repository.Metrics,
	log *logger.Logger,
	cfg NewsConfig,
) *NewsAggregator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 30 * time.Minute
	}
	if cfg.BreakingMaxAge <= 0 {
		cfg.BreakingMaxAge = 2 * time.Hour
	}
	if cfg.GeneralMaxAge <= 0 {
		cfg.GeneralMaxAge = 72 * time.Hour
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 10 * time.Second
	}
	return &NewsAggregator{
		primary:         primary,
		secondary:       secondary,
		store:           store,
		bus:             bus,
		metrics:         metrics,
		logger:          log.Component("news"),
		pollInterval:    cfg.PollInterval,
		cleanupInterval: cfg.CleanupInterval,
		breakingMaxAge:  cfg.BreakingMaxAge,
		generalMaxAge:   cfg.GeneralMaxAge,
		reconnectDelay:  cfg.ReconnectDelay,
		seen:            gocache.New(cfg.GeneralMaxAge, time.Hour),
		breaking:        make(map[string]models.NewsItem),
		general:         make(map[string]models.NewsItem),
		now:             time.Now,
	}
}

// Run drives the primary stream, the secondary poller, and the cleanup
// task until the context is cancelled.
func (a *NewsAggregator) Run(ctx context.Context) {
	var wg sync.WaitGroup

	if a.primary != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runPrimary(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runSecondary(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runCleanup(ctx)
	}()

	wg.Wait()
}

func (a *NewsAggregator) runPrimary(ctx context.Context) {
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		items, errs := a.primary.Read(ctx)
		a.consumePrimary(ctx, items, errs)

		if ctx.Err() != nil {
			return
		}
		a.metrics.RecordError("news_stream")
		a.logger.Warn("primary news stream dropped, reconnecting")
		if err := a.primary.Reconnect(ctx); err != nil {
			a.logger.Error("news reconnect", logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(a.reconnectDelay):
			}
		}
	}
}

func (a *NewsAggregator) consumePrimary(ctx context.Context, items <-chan models.NewsItem, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-items:
			if !ok {
				return
			}
			a.Accept(item)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				a.logger.Warn("news stream error", logger.Error(err))
				return
			}
		}
	}
}

// runSecondary polls one provider per cycle, round-robin. A failing
// provider rotates to the next immediately instead of burning the cycle.
func (a *NewsAggregator) runSecondary(ctx context.Context) {
	if len(a.secondary) == 0 {
		return
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pollNext(ctx)
		}
	}
}

func (a *NewsAggregator) pollNext(ctx context.Context) {
	for attempts := 0; attempts < len(a.secondary); attempts++ {
		a.mu.Lock()
		provider := a.secondary[a.nextIdx]
		a.nextIdx = (a.nextIdx + 1) % len(a.secondary)
		a.mu.Unlock()

		items, err := provider.Fetch(ctx)
		if err != nil {
			a.metrics.RecordError("news_" + provider.Name())
			a.logger.Warn("news provider failed, rotating",
				logger.String("provider", provider.Name()), logger.Error(err))
			continue
		}

		for _, item := range items {
			a.Accept(item)
		}
		return
	}
}

// Accept runs one item through dedup, keyword filtering, and age
// categorization. Re-processing the same (id, symbol) is a no-op, whichever
// provider carried it.
func (a *NewsAggregator) Accept(item models.NewsItem) {
	key := item.Key()
	if _, dup := a.seen.Get(key); dup {
		return
	}
	a.seen.Set(key, struct{}{}, gocache.DefaultExpiration)

	if isForeignListing(item.Symbol) {
		return
	}
	if !MatchesNewsFilter(item.Headline) {
		return
	}

	now := a.now()
	age := now.Sub(item.PublishedAt)
	switch {
	case age <= a.breakingMaxAge:
		item.Category = models.NewsBreaking
	case age <= a.generalMaxAge:
		item.Category = models.NewsGeneral
	default:
		item.Category = models.NewsIgnore
	}
	if item.Category == models.NewsIgnore {
		return
	}

	a.mu.Lock()
	if item.Category == models.NewsBreaking {
		a.breaking[key] = item
	} else {
		a.general[key] = item
	}
	a.mu.Unlock()

	a.bus.Publish(models.Event{
		Category: models.EventNews,
		Symbol:   item.Symbol,
		Payload:  item,
		At:       now,
	})
}

// Breaking reports whether the symbol has a current breaking item and the
// age in hours of the freshest one. Implements the classifier's lookup.
func (a *NewsAggregator) Breaking(symbol string) (float64, bool) {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	best := -1.0
	for _, item := range a.breaking {
		if item.Symbol != symbol {
			continue
		}
		age := item.AgeHours(now)
		if best < 0 || age < best {
			best = age
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func (a *NewsAggregator) runCleanup(ctx context.Context) {
	ticker := time.NewTicker(a.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.Persist(context.Background())
			return
		case <-ticker.C:
			a.Cleanup()
			a.Persist(ctx)
		}
	}
}

// Cleanup demotes aged breaking items to general and deletes anything past
// general retention from either store.
func (a *NewsAggregator) Cleanup() {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	demoted, deleted := 0, 0
	for key, item := range a.breaking {
		age := now.Sub(item.PublishedAt)
		switch {
		case age > a.generalMaxAge:
			delete(a.breaking, key)
			deleted++
		case age > a.breakingMaxAge:
			delete(a.breaking, key)
			item.Category = models.NewsGeneral
			a.general[key] = item
			demoted++
		}
	}
	for key, item := range a.general {
		if now.Sub(item.PublishedAt) > a.generalMaxAge {
			delete(a.general, key)
			deleted++
		}
	}

	if demoted > 0 || deleted > 0 {
		a.logger.Info("news cleanup",
			logger.Int("demoted", demoted), logger.Int("deleted", deleted))
	}
	a.metrics.RecordGauge("news_breaking", float64(len(a.breaking)))
	a.metrics.RecordGauge("news_general", float64(len(a.general)))
}

// Persist writes both news stores.
func (a *NewsAggregator) Persist(ctx context.Context) {
	a.mu.Lock()
	breaking := make(map[string]models.NewsItem, len(a.breaking))
	for k, v := range a.breaking {
		breaking[k] = v
	}
	general := make(map[string]models.NewsItem, len(a.general))
	for k, v := range a.general {
		general[k] = v
	}
	a.mu.Unlock()

	if err := a.store.Save(ctx, breakingNewsKey, breaking); err != nil {
		a.logger.Error("persist breaking news", logger.Error(err))
	}
	if err := a.store.Save(ctx, generalNewsKey, general); err != nil {
		a.logger.Error("persist general news", logger.Error(err))
	}
}

// Restore loads both news stores and re-seeds the dedup set so restored
// items are not re-emitted.
func (a *NewsAggregator) Restore(ctx context.Context) error {
	var breaking, general map[string]models.NewsItem
	if err := a.store.Load(ctx, breakingNewsKey, &breaking); err != nil && err != repository.ErrNotFound {
		return err
	}
	if err := a.store.Load(ctx, generalNewsKey, &general); err != nil && err != repository.ErrNotFound {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range breaking {
		a.breaking[k] = v
		a.seen.Set(k, struct{}{}, gocache.DefaultExpiration)
	}
	for k, v := range general {
		a.general[k] = v
		a.seen.Set(k, struct{}{}, gocache.DefaultExpiration)
	}
	return nil
}

// BreakingItems returns a copy of the breaking store, newest state wins.
func (a *NewsAggregator) BreakingItems() []models.NewsItem {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]models.NewsItem, 0, len(a.breaking))
	for _, item := range a.breaking {
		out = append(out, item)
	}
	return out
}
