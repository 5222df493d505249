package state

import (
	"sync"
	"time"

	"signalscan/internal/domain/models"
)

// MarketCache holds the latest known live state per symbol. Ticks arrive as
// partial updates, so applying one merges only the fields the update carries
// and never clears previously known values.
type MarketCache struct {
	mu     sync.RWMutex
	quotes map[string]*models.LiveQuote
}

func NewMarketCache() *MarketCache {
	return &MarketCache{quotes: make(map[string]*models.LiveQuote)}
}

// ApplyQuote merges a quote tick into the symbol's state and returns the
// merged result.
func (c *MarketCache) ApplyQuote(u models.QuoteUpdate) models.LiveQuote {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.getOrCreate(u.Symbol)
	if u.Bid > 0 {
		q.Bid = u.Bid
	}
	if u.Ask > 0 {
		q.Ask = u.Ask
	}
	if u.BidSize > 0 {
		q.BidSize = u.BidSize
	}
	if u.AskSize > 0 {
		q.AskSize = u.AskSize
	}
	q.LastUpdate = u.At
	c.trackHigh(q)
	return *q
}

// ApplyTrade merges a trade tick into the symbol's state and returns the
// merged result.
func (c *MarketCache) ApplyTrade(u models.TradeUpdate) models.LiveQuote {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.getOrCreate(u.Symbol)
	if u.Price > 0 {
		q.Price = u.Price
	}
	if u.Size > 0 {
		q.Volume += u.Size
	}
	q.LastUpdate = u.At
	c.trackHigh(q)
	return *q
}

// SetReference fills slow-moving reference fields that come from REST lookups
// rather than the tick stream. Zero values are ignored.
func (c *MarketCache) SetReference(symbol string, prevClose, avgVolume, floatShares float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.getOrCreate(symbol)
	if prevClose > 0 {
		q.PrevClose = prevClose
	}
	if avgVolume > 0 {
		q.AvgVolume = avgVolume
	}
	if floatShares > 0 {
		q.FloatShares = floatShares
	}
}

// Get returns a copy of the symbol's state.
func (c *MarketCache) Get(symbol string) (models.LiveQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quotes[symbol]
	if !ok {
		return models.LiveQuote{}, false
	}
	return *q, true
}

// Restore seeds a symbol's state wholesale, used when loading persisted
// state at startup.
func (c *MarketCache) Restore(q models.LiveQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := q
	c.quotes[q.Symbol] = &cp
}

// Snapshot returns copies of every tracked symbol's state.
func (c *MarketCache) Snapshot() []models.LiveQuote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.LiveQuote, 0, len(c.quotes))
	for _, q := range c.quotes {
		out = append(out, *q)
	}
	return out
}

// Symbols returns the tracked symbol set.
func (c *MarketCache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.quotes))
	for s := range c.quotes {
		out = append(out, s)
	}
	return out
}

// Remove drops symbols that fell off the watchlist.
func (c *MarketCache) Remove(symbols ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range symbols {
		delete(c.quotes, s)
	}
}

// ResetSession clears session-scoped fields (cumulative volume, day high/low)
// ahead of a new trading day.
func (c *MarketCache) ResetSession(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, q := range c.quotes {
		q.Volume = 0
		q.High = 0
		q.Low = 0
		q.LastUpdate = at
	}
}

func (c *MarketCache) getOrCreate(symbol string) *models.LiveQuote {
	q, ok := c.quotes[symbol]
	if !ok {
		q = &models.LiveQuote{Symbol: symbol}
		c.quotes[symbol] = q
	}
	return q
}

// trackHigh maintains the running day high and low from the last price.
// Caller holds the write lock.
func (c *MarketCache) trackHigh(q *models.LiveQuote) {
	p := q.EffectivePrice()
	if p <= 0 {
		return
	}
	if p > q.High {
		q.High = p
	}
	if q.Low == 0 || p < q.Low {
		q.Low = p
	}
}
