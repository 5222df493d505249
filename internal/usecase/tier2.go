package usecase

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"signalscan/internal/domain/models"
	"signalscan/internal/domain/repository"
	"signalscan/internal/state"
	"signalscan/pkg/logger"
)

const liveStateKey = "tier2:live_state"

// Tier2 is the live state validator. It keeps the streaming subscription in
// sync with the candidate list, merges quote/trade ticks into the market
// cache, backfills missing previous closes, and persists the merged cache on
// a fixed interval.
type Tier2 struct {
	stream  repository.MarketStream
	market  repository.MarketData
	store   repository.DocumentStore
	cache   *state.MarketCache
	metrics repository.Metrics
	logger  *logger.Logger

	persistInterval time.Duration
	reconnectDelay  time.Duration

	// prevCloses holds successful lookups for a fixed TTL; blacklist holds
	// symbols the provider confirmed it has no data for, so we stop
	// retrying doomed lookups until restart.
	prevCloses *gocache.Cache
	blacklist  *gocache.Cache

	onUpdate func(models.LiveQuote)
}

type Tier2Config struct {
	PersistInterval time.Duration
	PrevCloseTTL    time.Duration
	ReconnectDelay  time.Duration
}

func NewTier2(
	stream repository.MarketStream,
	market repository.MarketData,
	store repository.DocumentStore,
	cache *state.MarketCache,
	metrics repository.Metrics,
	log *logger.Logger,
	cfg Tier2Config,
) *Tier2 {
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = 10 * time.Second
	}
	if cfg.PrevCloseTTL <= 0 {
		cfg.PrevCloseTTL = time.Hour
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Tier2{
		stream:          stream,
		market:          market,
		store:           store,
		cache:           cache,
		metrics:         metrics,
		logger:          log.Component("tier2"),
		persistInterval: cfg.PersistInterval,
		reconnectDelay:  cfg.ReconnectDelay,
		prevCloses:      gocache.New(cfg.PrevCloseTTL, 10*time.Minute),
		blacklist:       gocache.New(24*time.Hour, time.Hour),
	}
}

// OnUpdate registers the downstream callback invoked with each merged quote.
// Must be set before Run.
func (t *Tier2) OnUpdate(fn func(models.LiveQuote)) {
	t.onUpdate = fn
}

// SetCandidates reconciles the subscription with a fresh candidate list:
// new symbols are subscribed, dropped symbols are unsubscribed and removed
// from the cache.
func (t *Tier2) SetCandidates(ctx context.Context, candidates []models.CandidateEntry) {
	want := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		want[c.Symbol] = c.AvgVolume
	}

	current := make(map[string]struct{})
	for _, s := range t.cache.Symbols() {
		current[s] = struct{}{}
	}

	var added, removed []string
	for sym := range want {
		if _, ok := current[sym]; !ok {
			added = append(added, sym)
		}
	}
	for sym := range current {
		if _, ok := want[sym]; !ok {
			removed = append(removed, sym)
		}
	}

	for sym, avg := range want {
		t.cache.SetReference(sym, 0, avg, 0)
	}

	if len(removed) > 0 {
		if err := t.stream.Unsubscribe(ctx, removed); err != nil {
			t.logger.Warn("unsubscribe", logger.Error(err))
		}
		t.cache.Remove(removed...)
	}
	if len(added) > 0 {
		if err := t.stream.Subscribe(ctx, added); err != nil {
			t.metrics.RecordError("tier2_subscribe")
			t.logger.Error("subscribe delta", logger.Error(err))
		}
	}

	t.metrics.RecordGauge("tier2_watchlist", float64(len(want)))
	t.logger.Info("candidates reconciled",
		logger.Int("added", len(added)),
		logger.Int("removed", len(removed)),
		logger.Int("total", len(want)))
}

// Run drives the stream read loop until the context is cancelled. Stream
// errors trigger reconnects with the full subscription replayed; the loop
// never aborts on a single failure.
func (t *Tier2) Run(ctx context.Context) {
	go t.persistLoop(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return
		}

		quotes, trades, errs := t.stream.Read(ctx)
		t.consume(ctx, quotes, trades, errs)

		if ctx.Err() != nil {
			return
		}
		t.metrics.RecordError("tier2_stream")
		t.logger.Warn("stream dropped, reconnecting")
		if err := t.stream.Reconnect(ctx); err != nil {
			t.logger.Error("reconnect", logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(t.reconnectDelay):
			}
		}
	}
}

func (t *Tier2) consume(
	ctx context.Context,
	quotes <-chan models.QuoteUpdate,
	trades <-chan models.TradeUpdate,
	errs <-chan error,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-quotes:
			if !ok {
				return
			}
			merged := t.cache.ApplyQuote(q)
			t.ensurePrevClose(ctx, merged)
			t.emit(merged)
		case tr, ok := <-trades:
			if !ok {
				return
			}
			merged := t.cache.ApplyTrade(tr)
			t.ensurePrevClose(ctx, merged)
			t.emit(merged)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				t.logger.Warn("stream error", logger.Error(err))
				return
			}
		}
	}
}

func (t *Tier2) emit(q models.LiveQuote) {
	if t.onUpdate != nil {
		t.onUpdate(q)
	}
}

// ensurePrevClose backfills a missing previous close with an on-demand
// lookup, caching successes and blacklisting symbols the provider has no
// data for.
func (t *Tier2) ensurePrevClose(ctx context.Context, q models.LiveQuote) {
	if q.PrevClose > 0 {
		return
	}
	if _, banned := t.blacklist.Get(q.Symbol); banned {
		return
	}
	if v, ok := t.prevCloses.Get(q.Symbol); ok {
		t.cache.SetReference(q.Symbol, v.(float64), 0, 0)
		return
	}

	pc, err := t.market.PrevClose(ctx, q.Symbol)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			t.blacklist.Set(q.Symbol, struct{}{}, gocache.DefaultExpiration)
			t.logger.Warn("no previous close, blacklisted",
				logger.String("symbol", q.Symbol))
			return
		}
		t.metrics.RecordError("tier2_prevclose")
		t.logger.Warn("previous close lookup",
			logger.String("symbol", q.Symbol), logger.Error(err))
		return
	}

	t.prevCloses.Set(q.Symbol, pc, gocache.DefaultExpiration)
	t.cache.SetReference(q.Symbol, pc, 0, 0)
}

func (t *Tier2) persistLoop(ctx context.Context) {
	ticker := time.NewTicker(t.persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persist so a restart resumes from recent state.
			t.persist(context.Background())
			return
		case <-ticker.C:
			t.persist(ctx)
		}
	}
}

func (t *Tier2) persist(ctx context.Context) {
	snap := t.cache.Snapshot()
	if len(snap) == 0 {
		return
	}
	if err := t.store.Save(ctx, liveStateKey, snap); err != nil {
		t.metrics.RecordError("tier2_persist")
		t.logger.Error("persist live state", logger.Error(err))
	}
}

// Restore seeds the cache from the last persisted live state.
func (t *Tier2) Restore(ctx context.Context) error {
	var snap []models.LiveQuote
	if err := t.store.Load(ctx, liveStateKey, &snap); err != nil {
		if err == repository.ErrNotFound {
			return nil
		}
		return err
	}
	for _, q := range snap {
		t.cache.Restore(q)
	}
	t.logger.Info("live state restored", logger.Int("symbols", len(snap)))
	return nil
}
