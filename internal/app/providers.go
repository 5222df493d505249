package app

import (
	"context"
	"fmt"
	"time"

	"signalscan/internal/dispatch"
	"signalscan/internal/domain/repository"
	"signalscan/internal/engine"
	"signalscan/internal/service/haltfeed"
	"signalscan/internal/service/marketdata"
	"signalscan/internal/service/newsfeed"
	"signalscan/internal/service/stream"
	"signalscan/internal/state"
	"signalscan/internal/store"
	"signalscan/internal/usecase"
	"signalscan/pkg/config"
	"signalscan/pkg/logger"
	"signalscan/pkg/metrics"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStore creates the document store: Redis when enabled, otherwise
// in-process memory.
func ProvideStore(cfg *config.Config) (repository.DocumentStore, error) {
	if !cfg.Redis.Enabled {
		return store.NewMemoryStore(), nil
	}
	rs := store.NewRedisStore(store.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   "signalscan:",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rs, nil
}

// ProvideMarketStream creates the WebSocket quote/trade client.
func ProvideMarketStream(cfg *config.Config, log *logger.Logger) repository.MarketStream {
	return stream.New(stream.Config{
		APIKey:         cfg.Provider.APIKey,
		WebSocketURL:   cfg.Provider.WebSocketURL,
		ReconnectDelay: cfg.Provider.ReconnectDelay,
		PingInterval:   cfg.Provider.PingInterval,
		BatchSize:      cfg.Tier2.SubscribeBatch,
	}, log)
}

// ProvideMarketData creates the REST historical/reference client. It also
// serves as the ticker universe source.
func ProvideMarketData(cfg *config.Config, log *logger.Logger) *marketdata.Client {
	return marketdata.New(marketdata.Config{
		BaseURL:   cfg.Provider.RESTBaseURL,
		APIKey:    cfg.Provider.APIKey,
		RateLimit: cfg.Provider.RateLimit,
		RateBurst: cfg.Provider.RateBurst,
	}, log)
}

// ProvideHaltSources creates both halt feed parser strategies.
func ProvideHaltSources(cfg *config.Config, log *logger.Logger) []repository.HaltSource {
	return []repository.HaltSource{
		haltfeed.NewRSSSource(cfg.Halts.RSSFeedURL, log),
		haltfeed.NewTableSource(cfg.Halts.TableURL, log),
	}
}

// ProvideNewsStream creates the primary news subscription, nil when not
// configured.
func ProvideNewsStream(cfg *config.Config, log *logger.Logger) repository.NewsStream {
	if cfg.News.StreamURL == "" {
		return nil
	}
	return newsfeed.NewStreamClient(
		cfg.News.StreamURL,
		cfg.Provider.APIKey,
		cfg.Provider.ReconnectDelay,
		log,
	)
}

// ProvideNewsProviders creates every configured secondary provider.
func ProvideNewsProviders(cfg *config.Config, log *logger.Logger) []repository.NewsProvider {
	out := make([]repository.NewsProvider, 0, len(cfg.News.Providers))
	for _, p := range cfg.News.Providers {
		switch p.Type {
		case "rss":
			out = append(out, newsfeed.NewRSSProvider(p.Name, p.URL, log))
		default:
			out = append(out, newsfeed.NewRESTProvider(p.Name, p.URL, p.APIKey, p.Timeout, log))
		}
	}
	return out
}

// ProvideTier1 creates the historical volume filter.
func ProvideTier1(
	cfg *config.Config,
	market *marketdata.Client,
	docs repository.DocumentStore,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Tier1 {
	return usecase.NewTier1(market, market, docs, m, log, usecase.Tier1Config{
		LookbackDays: cfg.Tier1.LookbackDays,
		MinAvgVolume: cfg.Tier1.MinAvgVolume,
		MinPrice:     cfg.Tier1.MinPrice,
		MaxPrice:     cfg.Tier1.MaxPrice,
		BatchSize:    cfg.Tier1.BatchSize,
	})
}

// ProvideTier2 creates the live state validator.
func ProvideTier2(
	cfg *config.Config,
	ms repository.MarketStream,
	market *marketdata.Client,
	docs repository.DocumentStore,
	cache *state.MarketCache,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Tier2 {
	return usecase.NewTier2(ms, market, docs, cache, m, log, usecase.Tier2Config{
		PersistInterval: cfg.Tier2.PersistInterval,
		PrevCloseTTL:    cfg.Tier2.PrevCloseTTL,
		ReconnectDelay:  cfg.Provider.ReconnectDelay,
	})
}

// ProvideNewsAggregator creates the news aggregator.
func ProvideNewsAggregator(
	cfg *config.Config,
	primary repository.NewsStream,
	secondary []repository.NewsProvider,
	docs repository.DocumentStore,
	bus *dispatch.Bus,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.NewsAggregator {
	return usecase.NewNewsAggregator(primary, secondary, docs, bus, m, log, usecase.NewsConfig{
		PollInterval:    cfg.News.PollInterval,
		CleanupInterval: cfg.News.CleanupInterval,
		BreakingMaxAge:  cfg.News.BreakingMaxAge,
		GeneralMaxAge:   cfg.News.GeneralMaxAge,
		ReconnectDelay:  cfg.Provider.ReconnectDelay,
	})
}

// ProvideHaltReconciler creates the halt reconciler.
func ProvideHaltReconciler(
	cfg *config.Config,
	sources []repository.HaltSource,
	docs repository.DocumentStore,
	bus *dispatch.Bus,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.HaltReconciler {
	return usecase.NewHaltReconciler(sources, docs, bus, m, log, cfg.Halts.PollInterval)
}

// ProvideEngines creates the three momo engine runners.
func ProvideEngines(
	cache *state.MarketCache,
	bus *dispatch.Bus,
	m repository.Metrics,
	log *logger.Logger,
) []*engine.Runner {
	return []*engine.Runner{
		engine.NewRunner(engine.NewVectorEngine(), cache, bus, m, log),
		engine.NewRunner(engine.NewSqueezeEngine(), cache, bus, m, log),
		engine.NewRunner(engine.NewTrendEngine(), cache, bus, m, log),
	}
}
