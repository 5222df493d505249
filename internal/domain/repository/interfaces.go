package repository

import (
	"context"
	"errors"

	"signalscan/internal/domain/models"
)

// ErrNotFound is returned by DocumentStore.Load when a key has never been
// saved.
var ErrNotFound = errors.New("document not found")

// MarketStream is a streaming quote/trade subscription. Subscribe may be
// called repeatedly with new symbols; implementations must replay the full
// accumulated subscription set after Reconnect.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Unsubscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan models.QuoteUpdate, <-chan models.TradeUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// MarketData is the on-demand historical/reference endpoint.
type MarketData interface {
	// DailyBars fetches trailing daily bars for a batch of symbols.
	DailyBars(ctx context.Context, symbols []string, days int) (map[string][]models.Bar, error)
	// PrevClose fetches the prior session close for one symbol.
	// ErrNotFound means the provider confirmed it has no data.
	PrevClose(ctx context.Context, symbol string) (float64, error)
}

// UniverseSource supplies the full ticker universe Tier1 scans over.
type UniverseSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

// NewsStream is the continuous primary news subscription.
type NewsStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.NewsItem, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
}

// NewsProvider is one pollable secondary news source.
type NewsProvider interface {
	Name() string
	Fetch(ctx context.Context) ([]models.NewsItem, error)
}

// HaltSource is one halt feed behind a format-specific parser strategy.
// Higher Priority entries override lower ones during reconciliation.
type HaltSource interface {
	Name() string
	Priority() int
	Fetch(ctx context.Context) ([]models.HaltRecord, error)
}

// DocumentStore is the opaque key->JSON persistence collaborator with
// last-write-wins semantics.
type DocumentStore interface {
	Load(ctx context.Context, key string, dest any) error
	Save(ctx context.Context, key string, value any) error
	Close() error
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordEvent(category, symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordGauge(name string, value float64)
}
